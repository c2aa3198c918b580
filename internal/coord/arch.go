// Package coord describes chip topologies and translates core coordinates
// between NOC0, NOC1, logical and translated spaces, taking harvested
// tensix rows into account.
package coord

import (
	"fmt"
	"strings"
)

// XY is a coordinate pair in some space.
type XY struct {
	X int
	Y int
}

func (c XY) String() string {
	return fmt.Sprintf("%d-%d", c.X, c.Y)
}

// Arch is the fixed NOC0 layout of one chip architecture.
type Arch struct {
	Name  string
	GridX int
	GridY int

	TensixColumns []int
	// TensixRows holds the NOC0 y of each physical tensix row. Its length
	// matches the row interleave table.
	TensixRows []int

	DRAM     []XY
	PCIe     []XY
	ARC      []XY
	Ethernet []XY // in channel order

	// TranslatedOrigin is where translated tensix coordinates start.
	TranslatedOrigin int
}

func cores(xs, ys []int) []XY {
	out := make([]XY, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, XY{X: x, Y: y})
		}
	}
	return out
}

var workerColumns = []int{1, 2, 3, 4, 6, 7, 8, 9}

// WormholeB0 is the simulated wormhole_b0 layout: a 10x14 NOC grid with
// twelve tensix rows, DRAM in columns 0 and 5, ethernet on rows 0 and 7.
var WormholeB0 = &Arch{
	Name:             "wormhole_b0",
	GridX:            10,
	GridY:            14,
	TensixColumns:    workerColumns,
	TensixRows:       []int{1, 2, 3, 4, 5, 6, 8, 9, 10, 11, 12, 13},
	DRAM:             cores([]int{0, 5}, []int{0, 4, 7, 11}),
	PCIe:             []XY{{X: 0, Y: 2}},
	ARC:              []XY{{X: 0, Y: 9}},
	Ethernet:         cores(workerColumns, []int{0, 7}),
	TranslatedOrigin: 18,
}

var archs = map[string]*Arch{
	"wormhole_b0": WormholeB0,
	"wormhole":    WormholeB0,
}

// LookupArch finds an architecture by name.
func LookupArch(name string) (*Arch, error) {
	a, ok := archs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("coord: unknown architecture %q", name)
	}
	return a, nil
}

// CoreType is the kind of core at a coordinate.
type CoreType int

const (
	Tensix CoreType = iota
	DRAM
	PCIe
	ARC
	ActiveEth
	IdleEth
	Harvested
)

var coreTypeNames = []string{"tensix", "dram", "pcie", "arc", "active_eth", "idle_eth", "harvested"}

func (t CoreType) String() string {
	if int(t) < len(coreTypeNames) {
		return coreTypeNames[t]
	}
	return fmt.Sprintf("CoreType(%d)", int(t))
}

// ParseCoreType parses a wire core type name.
func ParseCoreType(s string) (CoreType, error) {
	s = strings.ToLower(s)
	for i, n := range coreTypeNames {
		if n == s {
			return CoreType(i), nil
		}
	}
	switch s {
	case "worker", "functional_workers":
		return Tensix, nil
	case "eth":
		return ActiveEth, nil
	}
	return 0, fmt.Errorf("coord: unknown core type %q", s)
}

// Space is a coordinate system.
type Space int

const (
	NOC0 Space = iota
	NOC1
	Logical
	Translated
	numSpaces
)

var spaceNames = []string{"noc0", "noc1", "logical", "translated"}

func (s Space) String() string {
	if s >= 0 && s < numSpaces {
		return spaceNames[s]
	}
	return fmt.Sprintf("Space(%d)", int(s))
}

// ParseSpace parses a wire coordinate system name; "raw" is NOC0.
func ParseSpace(s string) (Space, error) {
	s = strings.ToLower(s)
	if s == "raw" {
		return NOC0, nil
	}
	for i, n := range spaceNames {
		if n == s {
			return Space(i), nil
		}
	}
	return 0, fmt.Errorf("coord: unknown coordinate system %q", s)
}
