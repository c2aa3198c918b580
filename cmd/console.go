package main

import (
	"flag"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iMithrellas/ttlens/internal/config"
	"github.com/iMithrellas/ttlens/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Attach an interactive console to a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlag("console_endpoint", cmd.Flags().Lookup("endpoint"))
		viper.BindPFlag("max_history", cmd.Flags().Lookup("max_history"))
		s, err := config.Current()
		if err != nil {
			return err
		}
		flag.Set("logtostderr", "false")
		return console.Run(s.ConsoleEndpoint, s.MaxHistory)
	},
}

func init() {
	consoleCmd.Flags().StringP("endpoint", "e", "tcp://127.0.0.1:5555", "Server endpoint")
	consoleCmd.Flags().Int("max_history", 64, "Console history length")
	rootCmd.AddCommand(consoleCmd)
}
