package simulator

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ChipConfig describes one simulated chip.
type ChipConfig struct {
	ID              uint8  `toml:"id"`
	Arch            string `toml:"arch"`
	HarvestingEfuse uint32 `toml:"harvesting_efuse"`
	ActiveEth       []int  `toml:"active_eth"`

	BoardID         uint64 `toml:"board_id"`
	AsicID          uint32 `toml:"asic_id"`
	AICLK           uint32 `toml:"aiclk"`
	AICLKIdle       uint32 `toml:"aiclk_idle"`
	AXICLK          uint32 `toml:"axiclk"`
	ARCCLK          uint32 `toml:"arcclk"`
	VoltageMV       uint32 `toml:"voltage_mv"`
	AsicTemperature uint32 `toml:"asic_temperature"`
}

// Config is the simulator configuration file.
type Config struct {
	// RunDirPath is where descriptors are written. Empty means a temporary
	// directory that Close removes.
	RunDirPath    string       `toml:"run_dirpath"`
	JTAG          bool         `toml:"jtag"`
	DMAChannels   int          `toml:"dma_channels"`
	DMABufferSize uint64       `toml:"dma_buffer_size"`
	Chips         []ChipConfig `toml:"chips"`
}

const (
	defaultDMAChannels   = 1
	defaultDMABufferSize = 1 << 20
	defaultAICLK         = 1000
	defaultAICLKIdle     = 500
	defaultAXICLK        = 960
	defaultARCCLK        = 540
	defaultVoltageMV     = 800
	defaultTemperature   = 45 << 4 // 1/16 degree C
)

// DefaultConfig is a single unharvested wormhole_b0 chip without JTAG.
func DefaultConfig() Config {
	cfg := Config{Chips: []ChipConfig{{ID: 0, Arch: "wormhole_b0"}}}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a simulator config from a TOML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading simulator config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid simulator config %s: %w", path, err)
	}
	if len(cfg.Chips) == 0 {
		return Config{}, fmt.Errorf("simulator config %s: no chips", path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DMAChannels <= 0 {
		c.DMAChannels = defaultDMAChannels
	}
	if c.DMABufferSize == 0 {
		c.DMABufferSize = defaultDMABufferSize
	}
	for i := range c.Chips {
		ch := &c.Chips[i]
		if ch.Arch == "" {
			ch.Arch = "wormhole_b0"
		}
		if ch.AICLK == 0 {
			ch.AICLK = defaultAICLK
		}
		if ch.AICLKIdle == 0 {
			ch.AICLKIdle = defaultAICLKIdle
		}
		if ch.AXICLK == 0 {
			ch.AXICLK = defaultAXICLK
		}
		if ch.ARCCLK == 0 {
			ch.ARCCLK = defaultARCCLK
		}
		if ch.VoltageMV == 0 {
			ch.VoltageMV = defaultVoltageMV
		}
		if ch.AsicTemperature == 0 {
			ch.AsicTemperature = defaultTemperature
		}
		if ch.AsicID == 0 {
			ch.AsicID = uint32(ch.ID)
		}
	}
}
