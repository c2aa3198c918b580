package simulator

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/iMithrellas/ttlens/internal/coord"
)

type socDescriptor struct {
	Arch       string   `yaml:"arch_name"`
	GridX      int      `yaml:"grid_x"`
	GridY      int      `yaml:"grid_y"`
	Harvest    uint32   `yaml:"harvesting_mask"`
	Functional []string `yaml:"functional_workers"`
	Harvested  []string `yaml:"harvested_workers"`
	DRAM       []string `yaml:"dram"`
	PCIe       []string `yaml:"pcie"`
	ARC        []string `yaml:"arc"`
	Eth        []string `yaml:"eth"`
	ActiveEth  []string `yaml:"active_eth"`
}

type clusterDescriptor struct {
	Arch       map[uint8]string `yaml:"arch"`
	Chips      []uint8          `yaml:"chips"`
	Harvesting map[uint8]uint32 `yaml:"harvesting"`
	SocDescs   map[uint8]string `yaml:"chip_soc_descriptors"`
}

func coreNames(list []coord.XY) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.String()
	}
	return out
}

func newSocDescriptor(tr *coord.Translator) socDescriptor {
	arch := tr.Arch()
	eth := append(tr.Cores(coord.ActiveEth), tr.Cores(coord.IdleEth)...)
	return socDescriptor{
		Arch:       arch.Name,
		GridX:      arch.GridX,
		GridY:      arch.GridY,
		Harvest:    tr.Efuse(),
		Functional: coreNames(tr.Cores(coord.Tensix)),
		Harvested:  coreNames(tr.Cores(coord.Harvested)),
		DRAM:       coreNames(arch.DRAM),
		PCIe:       coreNames(arch.PCIe),
		ARC:        coreNames(arch.ARC),
		Eth:        coreNames(eth),
		ActiveEth:  coreNames(tr.Cores(coord.ActiveEth)),
	}
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}
	return nil
}

// writeDescriptors writes one SoC descriptor per chip and the cluster
// descriptor into dir, recording their paths on the simulator.
func (s *Simulator) writeDescriptors(dir string) error {
	cluster := clusterDescriptor{
		Arch:       make(map[uint8]string),
		Harvesting: make(map[uint8]uint32),
		SocDescs:   make(map[uint8]string),
	}
	for _, id := range s.ids {
		c := s.chips[id]
		path := filepath.Join(dir, fmt.Sprintf("soc_descriptor_%d.yaml", id))
		if err := writeYAML(path, newSocDescriptor(c.tr)); err != nil {
			return err
		}
		c.socPath = path
		cluster.Chips = append(cluster.Chips, id)
		cluster.Arch[id] = c.tr.Arch().Name
		cluster.Harvesting[id] = c.tr.Efuse()
		cluster.SocDescs[id] = path
	}
	s.clusterPath = filepath.Join(dir, "cluster_descriptor.yaml")
	return writeYAML(s.clusterPath, cluster)
}
