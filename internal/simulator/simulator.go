// Package simulator is an in-memory device backend. It models a cluster of
// chips with sparse NOC memory, BAR and AXI spaces, DMA buffers, an ARC that
// answers a handful of firmware messages, and per-chip telemetry.
package simulator

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/iMithrellas/ttlens/internal/coord"
	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/tile"
)

// MaxBlockSize bounds a single block read or write.
const MaxBlockSize = 16 << 20

type chip struct {
	cfg ChipConfig
	tr  *coord.Translator

	noc *memory
	bar *memory
	axi *memory
	dma []*memory

	telemetryMu sync.Mutex
	tel         *telemetryReader

	socPath string
}

// Simulator implements device.Device over simulated chips.
type Simulator struct {
	cfg   Config
	chips map[uint8]*chip
	ids   []uint8

	runDir      string
	ownsRunDir  bool
	clusterPath string
}

var _ device.Device = (*Simulator)(nil)

// Open builds the simulated cluster and writes its descriptors to the run
// directory.
func Open(cfg Config) (*Simulator, error) {
	cfg.applyDefaults()
	if len(cfg.Chips) == 0 {
		return nil, errors.New("simulator: no chips configured")
	}

	s := &Simulator{cfg: cfg, chips: make(map[uint8]*chip, len(cfg.Chips))}
	for _, cc := range cfg.Chips {
		if _, dup := s.chips[cc.ID]; dup {
			return nil, fmt.Errorf("simulator: duplicate chip id %d", cc.ID)
		}
		arch, err := coord.LookupArch(cc.Arch)
		if err != nil {
			return nil, fmt.Errorf("simulator: chip %d: %w", cc.ID, err)
		}
		c := &chip{
			cfg: cc,
			tr:  coord.NewTranslator(arch, cc.HarvestingEfuse, cc.ActiveEth),
			noc: newMemory(),
			bar: newMemory(),
			axi: newMemory(),
			dma: make([]*memory, cfg.DMAChannels),
		}
		for i := range c.dma {
			c.dma[i] = newMemory()
		}
		s.chips[cc.ID] = c
		s.ids = append(s.ids, cc.ID)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })

	s.runDir = cfg.RunDirPath
	if s.runDir == "" {
		dir, err := os.MkdirTemp("", "ttlens-sim-")
		if err != nil {
			return nil, fmt.Errorf("simulator: creating run directory: %w", err)
		}
		s.runDir = dir
		s.ownsRunDir = true
	} else if err := os.MkdirAll(s.runDir, 0o755); err != nil {
		return nil, fmt.Errorf("simulator: creating run directory: %w", err)
	}

	if err := s.writeDescriptors(s.runDir); err != nil {
		s.Close()
		return nil, err
	}
	glog.Infof("[SIM] %d chip(s) ready, run directory %s", len(s.ids), s.runDir)
	return s, nil
}

// Close removes the run directory if Open created it.
func (s *Simulator) Close() error {
	if !s.ownsRunDir {
		return nil
	}
	s.ownsRunDir = false
	return os.RemoveAll(s.runDir)
}

func notSupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", device.ErrNotSupported, fmt.Sprintf(format, args...))
}

func (s *Simulator) chip(id uint8) (*chip, error) {
	c, ok := s.chips[id]
	if !ok {
		return nil, notSupported("no chip %d", id)
	}
	return c, nil
}

// core resolves a NOC0 coordinate to a live core.
func (s *Simulator) core(id, x, y uint8) (*chip, error) {
	c, err := s.chip(id)
	if err != nil {
		return nil, err
	}
	typ, ok := c.tr.CoreAt(coord.XY{X: int(x), Y: int(y)})
	if !ok || typ == coord.Harvested {
		return nil, notSupported("chip %d has no core at %d-%d", id, x, y)
	}
	return c, nil
}

func checkBlock(size int) error {
	if size > MaxBlockSize {
		return notSupported("block of %d bytes exceeds %d", size, MaxBlockSize)
	}
	return nil
}

func (s *Simulator) Read32(id, x, y uint8, addr uint64) (uint32, error) {
	c, err := s.core(id, x, y)
	if err != nil {
		return 0, err
	}
	return c.noc.read32(x, y, addr), nil
}

func (s *Simulator) Write32(id, x, y uint8, addr uint64, data uint32) error {
	c, err := s.core(id, x, y)
	if err != nil {
		return err
	}
	c.noc.write32(x, y, addr, data)
	return nil
}

func (s *Simulator) Read(id, x, y uint8, addr uint64, size uint32) ([]byte, error) {
	c, err := s.core(id, x, y)
	if err != nil {
		return nil, err
	}
	if err := checkBlock(int(size)); err != nil {
		return nil, err
	}
	return c.noc.read(x, y, addr, int(size)), nil
}

func (s *Simulator) Write(id, x, y uint8, addr uint64, data []byte) error {
	c, err := s.core(id, x, y)
	if err != nil {
		return err
	}
	if err := checkBlock(len(data)); err != nil {
		return err
	}
	c.noc.write(x, y, addr, data)
	return nil
}

func (s *Simulator) Read32Raw(id uint8, addr uint64) (uint32, error) {
	c, err := s.chip(id)
	if err != nil {
		return 0, err
	}
	return c.bar.read32(0, 0, addr), nil
}

func (s *Simulator) Write32Raw(id uint8, addr uint64, data uint32) error {
	c, err := s.chip(id)
	if err != nil {
		return err
	}
	c.bar.write32(0, 0, addr, data)
	return nil
}

// DMABufferRead32 reads from a channel's host DMA buffer.
func (s *Simulator) DMABufferRead32(id uint8, addr uint64, channel uint16) (uint32, error) {
	c, err := s.chip(id)
	if err != nil {
		return 0, err
	}
	if int(channel) >= len(c.dma) {
		return 0, notSupported("chip %d has no dma channel %d", id, channel)
	}
	if size := s.cfg.DMABufferSize; addr >= size || size-addr < 4 {
		return 0, notSupported("address %#x outside the dma buffer", addr)
	}
	return c.dma[channel].read32(0, 0, addr), nil
}

func (s *Simulator) ReadTile(id, x, y uint8, addr uint64, size uint32, format tile.Format) (string, error) {
	data, err := s.Read(id, x, y, addr, size)
	if err != nil {
		return "", err
	}
	out, err := tile.Render(data, format)
	if err != nil {
		return "", notSupported("%v", err)
	}
	return out, nil
}

func (s *Simulator) ArcMsg(id uint8, code uint32, wait bool, arg0, arg1 uint32, timeout time.Duration) (device.ArcReply, error) {
	c, err := s.chip(id)
	if err != nil {
		return device.ArcReply{}, err
	}
	return c.arcMsg(code, wait, arg0, arg1, timeout)
}

func (s *Simulator) ReadArcTelemetryEntry(id, tag uint8) (uint32, error) {
	c, err := s.chip(id)
	if err != nil {
		return 0, err
	}
	v, ok := c.readTelemetry(tag)
	if !ok {
		return 0, notSupported("chip %d has no telemetry tag %d", id, tag)
	}
	return v, nil
}

func (s *Simulator) jtag() error {
	if !s.cfg.JTAG {
		return notSupported("jtag disabled")
	}
	return nil
}

// JTAGRead32 reaches the same NOC memory as Read32.
func (s *Simulator) JTAGRead32(id, x, y uint8, addr uint64) (uint32, error) {
	if err := s.jtag(); err != nil {
		return 0, err
	}
	return s.Read32(id, x, y, addr)
}

func (s *Simulator) JTAGWrite32(id, x, y uint8, addr uint64, data uint32) error {
	if err := s.jtag(); err != nil {
		return err
	}
	return s.Write32(id, x, y, addr, data)
}

func (s *Simulator) JTAGReadAXI32(id uint8, addr uint32) (uint32, error) {
	if err := s.jtag(); err != nil {
		return 0, err
	}
	c, err := s.chip(id)
	if err != nil {
		return 0, err
	}
	return c.axi.read32(0, 0, uint64(addr)), nil
}

func (s *Simulator) JTAGWriteAXI32(id uint8, addr uint32, data uint32) error {
	if err := s.jtag(); err != nil {
		return err
	}
	c, err := s.chip(id)
	if err != nil {
		return err
	}
	c.axi.write32(0, 0, uint64(addr), data)
	return nil
}

func (s *Simulator) DeviceIDs() ([]uint8, error) {
	return append([]uint8(nil), s.ids...), nil
}

func (s *Simulator) DeviceArch(id uint8) (string, error) {
	c, err := s.chip(id)
	if err != nil {
		return "", err
	}
	return c.tr.Arch().Name, nil
}

// SocDescription returns the path of the chip's SoC descriptor file.
func (s *Simulator) SocDescription(id uint8) (string, error) {
	c, err := s.chip(id)
	if err != nil {
		return "", err
	}
	return c.socPath, nil
}

// ClusterDescription returns the path of the cluster descriptor file.
func (s *Simulator) ClusterDescription() (string, error) {
	return s.clusterPath, nil
}

func (s *Simulator) ConvertCoordinate(id, x, y uint8, coreType, coordSystem string) (uint8, uint8, error) {
	c, err := s.chip(id)
	if err != nil {
		return 0, 0, err
	}
	typ, err := coord.ParseCoreType(coreType)
	if err != nil {
		return 0, 0, notSupported("%v", err)
	}
	space, err := coord.ParseSpace(coordSystem)
	if err != nil {
		return 0, 0, notSupported("%v", err)
	}
	out, ok := c.tr.Translate(coord.XY{X: int(x), Y: int(y)}, typ, coord.NOC0, space)
	if !ok {
		return 0, 0, notSupported("no %s core at %d-%d on chip %d", typ, x, y, id)
	}
	return uint8(out.X), uint8(out.Y), nil
}

// File reads a file on the server host. Any failure to read is reported as
// absence.
func (s *Simulator) File(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, notSupported("%v", err)
	}
	return data, nil
}

func (s *Simulator) RunDirPath() (string, error) {
	return s.runDir, nil
}
