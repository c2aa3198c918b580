package main

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iMithrellas/ttlens/internal/client"
	"github.com/iMithrellas/ttlens/internal/config"
)

var benchIterations int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure the average ping round trip to a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlag("console_endpoint", cmd.Flags().Lookup("endpoint"))
		s, err := config.Current()
		if err != nil {
			return err
		}

		c, err := client.Dial(s.ConsoleEndpoint)
		if err != nil {
			return err
		}
		defer c.Close()

		glog.Infof("Benchmarking %d iterations against %s...", benchIterations, s.ConsoleEndpoint)
		avg, err := c.Benchmark(benchIterations, func(pct int) {
			glog.Infof("Progress: %d%%", pct)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nAveraged round trip over %d iterations: %v\n", benchIterations, avg)
		return nil
	},
}

func init() {
	benchCmd.Flags().StringP("endpoint", "e", "tcp://127.0.0.1:5555", "Server endpoint")
	benchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 10000, "Number of pings")
	rootCmd.AddCommand(benchCmd)
}
