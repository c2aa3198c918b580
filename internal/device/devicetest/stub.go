// Package devicetest provides small device backends for tests.
package devicetest

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/iMithrellas/ttlens/internal/device"
)

type regKey struct {
	chip, x, y uint8
	addr       uint64
}

// Stub keeps written registers in a map. A register never written is
// absent. File serves from the local filesystem. Everything else is
// unimplemented.
type Stub struct {
	device.Unimplemented

	mu   sync.Mutex
	regs map[regKey]uint32
}

func NewStub() *Stub {
	return &Stub{regs: make(map[regKey]uint32)}
}

func (s *Stub) Read32(chip, x, y uint8, addr uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.regs[regKey{chip, x, y, addr}]
	if !ok {
		return 0, device.ErrNotSupported
	}
	return v, nil
}

func (s *Stub) Write32(chip, x, y uint8, addr uint64, data uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[regKey{chip, x, y, addr}] = data
	return nil
}

func (s *Stub) File(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrNotSupported, err)
	}
	return data, nil
}

// ErrFault is the backend fault Faulty reports.
var ErrFault = errors.New("devicetest: injected fault")

// Faulty fails Read32 with ErrFault and panics in DeviceArch.
type Faulty struct {
	device.Unimplemented
}

func (Faulty) Read32(uint8, uint8, uint8, uint64) (uint32, error) {
	return 0, ErrFault
}

func (Faulty) DeviceArch(uint8) (string, error) {
	panic("devicetest: arch probe crashed")
}
