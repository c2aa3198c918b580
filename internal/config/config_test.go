package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestGenerateThenLoad(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "ttlens", "config.toml")

	if err := GenerateConfig(path); err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "port = 5555") {
		t.Errorf("generated config missing port:\n%s", data)
	}

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	s, err := Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	want := Settings{
		Port:            5555,
		BindAddress:     "127.0.0.1",
		Backend:         BackendSimulation,
		MaxHistory:      64,
		ConsoleEndpoint: "tcp://127.0.0.1:5555",
	}
	if s != want {
		t.Errorf("settings = %+v, want %+v", s, want)
	}
}

func TestGenerateKeepsExistingFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("port = 6000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateConfig(path); err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	s, _ := Current()
	if s.Port != 6000 || s.Backend != BackendSimulation {
		t.Errorf("settings = %+v", s)
	}
}

func TestPrecedence(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("port = 6000\nbackend = \"none\"\nmax_history = 8\n"), 0o644)

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--port", "7000"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TTLENS_MAX_HISTORY", "16")

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	s, err := Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if s.Port != 7000 {
		t.Errorf("flag did not override file: port %d", s.Port)
	}
	if s.Backend != BackendNone {
		t.Errorf("file did not override flag default: backend %q", s.Backend)
	}
	if s.MaxHistory != 16 {
		t.Errorf("env did not override file: max_history %d", s.MaxHistory)
	}
}

func TestCurrentRejectsBadSettings(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("backend", "pcie")
	if _, err := Current(); err == nil {
		t.Errorf("unknown backend accepted")
	}
	viper.Set("backend", BackendSimulation)
	viper.Set("port", 70000)
	if _, err := Current(); err == nil {
		t.Errorf("port 70000 accepted")
	}
}

func TestDefaultPath(t *testing.T) {
	if p := DefaultPath(); filepath.Base(p) != "config.toml" || filepath.Base(filepath.Dir(p)) != "ttlens" {
		t.Errorf("DefaultPath() = %q", p)
	}
}
