package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/iMithrellas/ttlens/internal/config"
	"github.com/iMithrellas/ttlens/internal/console"
	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/server"
	"github.com/iMithrellas/ttlens/internal/simulator"
	"github.com/iMithrellas/ttlens/internal/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a device backend",
	Long: `Start the debug server on the configured backend. In the foreground an
interactive console is attached to the server; with --background the server
runs until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	config.BindFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

// openBackend builds the configured device. The returned close func releases
// backend resources.
func openBackend(s config.Settings) (device.Device, func(), error) {
	switch s.Backend {
	case config.BackendNone:
		return device.Unimplemented{}, func() {}, nil
	case config.BackendSimulation:
		cfg := simulator.DefaultConfig()
		if s.SimulationConfig != "" {
			var err error
			if cfg, err = simulator.LoadConfig(s.SimulationConfig); err != nil {
				return nil, nil, err
			}
		}
		if s.RunDirPath != "" {
			cfg.RunDirPath = s.RunDirPath
		}
		sim, err := simulator.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return sim, func() {
			if err := sim.Close(); err != nil {
				glog.Warningf("[SIM] Error removing run directory: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", s.Backend)
}

// localHost is the address a client on this machine uses to reach a server
// bound to host.
func localHost(host string) string {
	switch host {
	case "", "*", "0.0.0.0":
		return "127.0.0.1"
	}
	return host
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := config.Current()
	if err != nil {
		return err
	}
	if !s.Background {
		// The console owns the terminal.
		flag.Set("logtostderr", "false")
	}

	dev, closeDev, err := openBackend(s)
	if err != nil {
		return err
	}
	defer closeDev()

	srv := server.New(dev, server.WithHost(s.BindAddress))
	if err := srv.Start(s.Port); err != nil {
		return err
	}
	defer srv.Stop()

	if !s.Background {
		return console.Run(wire.Endpoint(localHost(s.BindAddress), srv.Port()), s.MaxHistory)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	glog.Info("Shutdown signal received.")
	return nil
}
