// Package wire defines the ttlens debug protocol: operation tags, the packed
// request layouts, frame validation and the untagged response sentinels.
package wire

import "fmt"

// DefaultPort is the TCP port the debug server listens on unless configured.
const DefaultPort = 5555

// Endpoint formats a ZeroMQ TCP endpoint for host and port.
func Endpoint(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

// Response sentinels. Responses carry no tag; a client recognizes these by
// exact byte comparison.
const (
	NotSupported  = "NOT_SUPPORTED"
	BadRequest    = "BAD_REQUEST"
	Pong          = "PONG"
	InternalError = "INTERNAL_ERROR"
)

// Tag is the one-byte operation tag at offset 0 of every request.
type Tag uint8

// Reserved ranges: basic 0-9, device registers 10-19, JTAG 50-59,
// runtime/meta 100-103, files 200+.
const (
	TagInvalid Tag = 0
	TagPing    Tag = 1

	TagPCIRead32             Tag = 10
	TagPCIWrite32            Tag = 11
	TagPCIRead               Tag = 12
	TagPCIWrite              Tag = 13
	TagPCIRead32Raw          Tag = 14
	TagPCIWrite32Raw         Tag = 15
	TagDMABufferRead32       Tag = 16
	TagArcMsg                Tag = 17
	TagReadArcTelemetryEntry Tag = 18
	TagGetDeviceArch         Tag = 19

	TagJTAGRead32     Tag = 50
	TagJTAGWrite32    Tag = 51
	TagJTAGReadAXI32  Tag = 52
	TagJTAGWriteAXI32 Tag = 53

	TagPCIReadTile           Tag = 100
	TagGetClusterDescription Tag = 101
	TagConvertCoordinate     Tag = 102
	TagGetDeviceIDs          Tag = 103

	TagGetFile                 Tag = 200
	TagGetRunDirPath           Tag = 201
	TagGetDeviceSocDescription Tag = 202
)

// String returns the protocol name of the tag.
func (t Tag) String() string {
	if l, ok := layouts[t]; ok {
		return l.name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}
