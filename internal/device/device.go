// Package device defines the capability interface a debug backend exposes to
// the ttlens server.
//
// Every operation returns its result together with an error. An error that
// matches ErrNotSupported means the result is absent: the backend does not
// implement the operation, or cannot satisfy it for these arguments (an
// unknown chip, a harvested core, an unpopulated telemetry tag). Absence is
// reported to clients as NOT_SUPPORTED. Any other error is a backend fault.
package device

import (
	"errors"
	"time"

	"github.com/iMithrellas/ttlens/internal/tile"
)

// ErrNotSupported marks an absent result.
var ErrNotSupported = errors.New("device: operation not supported")

// ArcReply is the outcome of an ARC firmware message.
type ArcReply struct {
	Status uint32
	Ret0   uint32
	Ret1   uint32
}

// Device is implemented by every backend: PCIe, JTAG, simulation or a test
// stub. Backends embed Unimplemented and override what they support.
type Device interface {
	// NOC register access, coordinates in NOC0 space.
	Read32(chipID, x, y uint8, addr uint64) (uint32, error)
	Write32(chipID, x, y uint8, addr uint64, data uint32) error
	Read(chipID, x, y uint8, addr uint64, size uint32) ([]byte, error)
	Write(chipID, x, y uint8, addr uint64, data []byte) error

	// BAR access that bypasses NOC routing.
	Read32Raw(chipID uint8, addr uint64) (uint32, error)
	Write32Raw(chipID uint8, addr uint64, data uint32) error
	DMABufferRead32(chipID uint8, addr uint64, channel uint16) (uint32, error)

	ReadTile(chipID, x, y uint8, addr uint64, size uint32, format tile.Format) (string, error)

	ArcMsg(chipID uint8, msgCode uint32, wait bool, arg0, arg1 uint32, timeout time.Duration) (ArcReply, error)
	ReadArcTelemetryEntry(chipID uint8, tag uint8) (uint32, error)

	// JTAG transport. Independent of PCIe availability.
	JTAGRead32(chipID, x, y uint8, addr uint64) (uint32, error)
	JTAGWrite32(chipID, x, y uint8, addr uint64, data uint32) error
	JTAGReadAXI32(chipID uint8, addr uint32) (uint32, error)
	JTAGWriteAXI32(chipID uint8, addr uint32, data uint32) error

	DeviceIDs() ([]uint8, error)
	DeviceArch(chipID uint8) (string, error)
	SocDescription(chipID uint8) (string, error)
	ClusterDescription() (string, error)
	// ConvertCoordinate maps a NOC0 coordinate of coreType into coordSystem.
	ConvertCoordinate(chipID, x, y uint8, coreType, coordSystem string) (uint8, uint8, error)

	// Server-local, not device-local.
	File(path string) ([]byte, error)
	RunDirPath() (string, error)
}

// Unimplemented reports ErrNotSupported for every operation.
type Unimplemented struct{}

var _ Device = Unimplemented{}

func (Unimplemented) Read32(uint8, uint8, uint8, uint64) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) Write32(uint8, uint8, uint8, uint64, uint32) error {
	return ErrNotSupported
}

func (Unimplemented) Read(uint8, uint8, uint8, uint64, uint32) ([]byte, error) {
	return nil, ErrNotSupported
}

func (Unimplemented) Write(uint8, uint8, uint8, uint64, []byte) error {
	return ErrNotSupported
}

func (Unimplemented) Read32Raw(uint8, uint64) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) Write32Raw(uint8, uint64, uint32) error {
	return ErrNotSupported
}

func (Unimplemented) DMABufferRead32(uint8, uint64, uint16) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) ReadTile(uint8, uint8, uint8, uint64, uint32, tile.Format) (string, error) {
	return "", ErrNotSupported
}

func (Unimplemented) ArcMsg(uint8, uint32, bool, uint32, uint32, time.Duration) (ArcReply, error) {
	return ArcReply{}, ErrNotSupported
}

func (Unimplemented) ReadArcTelemetryEntry(uint8, uint8) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) JTAGRead32(uint8, uint8, uint8, uint64) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) JTAGWrite32(uint8, uint8, uint8, uint64, uint32) error {
	return ErrNotSupported
}

func (Unimplemented) JTAGReadAXI32(uint8, uint32) (uint32, error) {
	return 0, ErrNotSupported
}

func (Unimplemented) JTAGWriteAXI32(uint8, uint32, uint32) error {
	return ErrNotSupported
}

func (Unimplemented) DeviceIDs() ([]uint8, error) {
	return nil, ErrNotSupported
}

func (Unimplemented) DeviceArch(uint8) (string, error) {
	return "", ErrNotSupported
}

func (Unimplemented) SocDescription(uint8) (string, error) {
	return "", ErrNotSupported
}

func (Unimplemented) ClusterDescription() (string, error) {
	return "", ErrNotSupported
}

func (Unimplemented) ConvertCoordinate(uint8, uint8, uint8, string, string) (uint8, uint8, error) {
	return 0, 0, ErrNotSupported
}

func (Unimplemented) File(string) ([]byte, error) {
	return nil, ErrNotSupported
}

func (Unimplemented) RunDirPath() (string, error) {
	return "", ErrNotSupported
}
