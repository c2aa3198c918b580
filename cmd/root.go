package main

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/iMithrellas/ttlens/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ttlens",
	Short: "Remote debug server and console for AI-accelerator chips",
	Long: `ttlens serves a device backend over a ZeroMQ request/reply socket so a
debugger on another host can read and write registers, read tiles, send ARC
messages and fetch chip descriptors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.GenerateConfig(path); err != nil {
			glog.Warningf("Error generating config file: %v", err)
		}
		if err := config.LoadConfig(path); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/ttlens/config.toml)")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}
