// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iMithrellas/ttlens/internal/wire"
)

// Backends the serve command can build.
const (
	BackendSimulation = "simulation"
	BackendNone       = "none"
)

const envPrefix = "TTLENS"

var defaults = map[string]any{
	"port":              wire.DefaultPort,
	"bind_address":      "127.0.0.1",
	"backend":           BackendSimulation,
	"simulation_config": "",
	"run_dirpath":       "",
	"background":        false,
	"max_history":       64,
	"console_endpoint":  wire.Endpoint("127.0.0.1", wire.DefaultPort),
}

// Settings is a typed snapshot of the merged configuration.
type Settings struct {
	Port             int
	BindAddress      string
	Backend          string
	SimulationConfig string
	RunDirPath       string
	Background       bool
	MaxHistory       int
	ConsoleEndpoint  string
}

// DefaultPath is config.toml under the user config directory.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "/etc"
	}
	return filepath.Join(configDir, "ttlens", "config.toml")
}

// BindFlags registers the server flags on fs and binds them to viper keys.
func BindFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", wire.DefaultPort, "Port the debug server listens on")
	fs.String("bind_address", "127.0.0.1", "Interface the debug server binds")
	fs.String("backend", BackendSimulation, "Device backend (simulation, none)")
	fs.String("simulation_config", "", "Simulator TOML config; empty uses a single wormhole_b0 chip")
	fs.String("run_dirpath", "", "Directory for descriptors and run output")
	fs.BoolP("background", "b", false, "Serve without the interactive console")
	fs.Int("max_history", 64, "Console history length")

	fs.VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}

func SetupEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func setDefaults() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// LoadConfig reads the TOML config at path and layers environment variables
// over it.
func LoadConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	setDefaults()
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	SetupEnvironment()
	return nil
}

// GenerateConfig writes a config file holding the defaults, unless one
// already exists at path.
func GenerateConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking config file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	for k, val := range defaults {
		v.Set(k, val)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Current returns the merged settings and checks them.
func Current() (Settings, error) {
	s := Settings{
		Port:             viper.GetInt("port"),
		BindAddress:      viper.GetString("bind_address"),
		Backend:          strings.ToLower(viper.GetString("backend")),
		SimulationConfig: viper.GetString("simulation_config"),
		RunDirPath:       viper.GetString("run_dirpath"),
		Background:       viper.GetBool("background"),
		MaxHistory:       viper.GetInt("max_history"),
		ConsoleEndpoint:  viper.GetString("console_endpoint"),
	}
	if s.Port < 0 || s.Port > 65535 {
		return s, fmt.Errorf("invalid port %d", s.Port)
	}
	switch s.Backend {
	case BackendSimulation, BackendNone:
	default:
		return s, fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.MaxHistory <= 0 {
		s.MaxHistory = defaults["max_history"].(int)
	}
	return s, nil
}
