package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownTag is returned for a frame whose first byte names no operation.
	ErrUnknownTag = errors.New("wire: unknown operation tag")
	// ErrFrameLength is returned when a frame's size disagrees with its layout.
	ErrFrameLength = errors.New("wire: frame length does not match layout")
)

// Fixed header sizes, tag byte included.
const (
	sizeTagOnly      = 1
	sizeChip         = 1 + 1
	sizeCoreAddr     = 1 + 1 + 1 + 1 + 8
	sizeCoreAddrData = sizeCoreAddr + 4
	sizeChipAddr     = 1 + 1 + 8
	sizeChipAddrData = sizeChipAddr + 4
	sizeDMARead      = sizeChipAddr + 2
	sizeArcMsg       = 1 + 1 + 4 + 1 + 4 + 4 + 4
	sizeTelemetry    = 1 + 1 + 1
	sizeAXIAddr      = 1 + 1 + 4
	sizeAXIAddrData  = sizeAXIAddr + 4
	sizeReadTile     = sizeCoreAddr + 4 + 1
	sizeConvert      = 1 + 1 + 1 + 1 + 4 + 4
	sizeGetFile      = 1 + 4
)

// layout describes the fixed header of a tag and, for tags that carry a
// tail, how to read the declared tail length from that header.
type layout struct {
	name  string
	fixed int
	// tail is only ever called with a slice of exactly fixed bytes.
	tail func(hdr []byte) uint64
}

func u32At(off int) func([]byte) uint64 {
	return func(hdr []byte) uint64 {
		return uint64(binary.LittleEndian.Uint32(hdr[off:]))
	}
}

func convertTail(hdr []byte) uint64 {
	return uint64(binary.LittleEndian.Uint32(hdr[4:])) + uint64(binary.LittleEndian.Uint32(hdr[8:]))
}

var layouts = map[Tag]layout{
	TagPing: {name: "ping", fixed: sizeTagOnly},

	TagPCIRead32:             {name: "pci_read32", fixed: sizeCoreAddr},
	TagPCIWrite32:            {name: "pci_write32", fixed: sizeCoreAddrData},
	TagPCIRead:               {name: "pci_read", fixed: sizeCoreAddrData},
	TagPCIWrite:              {name: "pci_write", fixed: sizeCoreAddrData, tail: u32At(sizeCoreAddr)},
	TagPCIRead32Raw:          {name: "pci_read32_raw", fixed: sizeChipAddr},
	TagPCIWrite32Raw:         {name: "pci_write32_raw", fixed: sizeChipAddrData},
	TagDMABufferRead32:       {name: "dma_buffer_read32", fixed: sizeDMARead},
	TagArcMsg:                {name: "arc_msg", fixed: sizeArcMsg},
	TagReadArcTelemetryEntry: {name: "read_arc_telemetry_entry", fixed: sizeTelemetry},
	TagGetDeviceArch:         {name: "get_device_arch", fixed: sizeChip},

	TagJTAGRead32:     {name: "jtag_read32", fixed: sizeCoreAddr},
	TagJTAGWrite32:    {name: "jtag_write32", fixed: sizeCoreAddrData},
	TagJTAGReadAXI32:  {name: "jtag_read_axi32", fixed: sizeAXIAddr},
	TagJTAGWriteAXI32: {name: "jtag_write_axi32", fixed: sizeAXIAddrData},

	TagPCIReadTile:           {name: "pci_read_tile", fixed: sizeReadTile},
	TagGetClusterDescription: {name: "get_cluster_description", fixed: sizeTagOnly},
	TagConvertCoordinate:     {name: "convert_coordinate", fixed: sizeConvert, tail: convertTail},
	TagGetDeviceIDs:          {name: "get_device_ids", fixed: sizeTagOnly},

	TagGetFile:                 {name: "get_file", fixed: sizeGetFile, tail: u32At(1)},
	TagGetRunDirPath:           {name: "get_run_dirpath", fixed: sizeTagOnly},
	TagGetDeviceSocDescription: {name: "get_device_soc_description", fixed: sizeChip},
}

// Tags returns every defined operation tag in ascending order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(layouts))
	for t := range layouts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Layout reports the fixed header size of tag (tag byte included) and
// whether the tag carries a variable-length tail.
func Layout(tag Tag) (fixed int, hasTail bool, ok bool) {
	l, ok := layouts[tag]
	if !ok {
		return 0, false, false
	}
	return l.fixed, l.tail != nil, true
}

// Validate checks that frame is well-formed for the tag in its first byte:
// its length must equal the fixed header size plus any tail length declared
// inside that header. The declared length is read only after the header
// itself has been length-checked.
func Validate(frame []byte) error {
	if len(frame) == 0 {
		return fmt.Errorf("%w: empty frame", ErrFrameLength)
	}
	tag := Tag(frame[0])
	l, ok := layouts[tag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTag, frame[0])
	}
	n := len(frame)
	if l.tail == nil {
		if n != l.fixed {
			return fmt.Errorf("%w: %s has %d bytes, want %d", ErrFrameLength, tag, n, l.fixed)
		}
		return nil
	}
	if n < l.fixed {
		return fmt.Errorf("%w: %s has %d bytes, header needs %d", ErrFrameLength, tag, n, l.fixed)
	}
	want := uint64(l.fixed) + l.tail(frame[:l.fixed])
	if uint64(n) != want {
		return fmt.Errorf("%w: %s has %d bytes, header declares %d", ErrFrameLength, tag, n, want)
	}
	return nil
}
