package wire

import "encoding/binary"

// Request is one decoded debug request. The concrete types below form a
// closed set; Decode returns them by value.
type Request interface {
	Tag() Tag
	appendFields(e *encoder)
}

// Ping is answered with Pong by the server itself.
type Ping struct{}

// PCIRead32 reads a 32-bit word from a core over the NOC.
type PCIRead32 struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
}

// PCIWrite32 writes a 32-bit word to a core over the NOC.
type PCIWrite32 struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
	Data    uint32
}

// PCIRead reads Size bytes from a core over the NOC.
type PCIRead struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
	Size    uint32
}

// PCIWrite writes Data to a core over the NOC. On the wire the length of
// Data is the size field and Data follows the header as the tail.
type PCIWrite struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
	Data    []byte
}

// PCIRead32Raw reads a 32-bit word from the chip's BAR, bypassing the NOC.
type PCIRead32Raw struct {
	ChipID  uint8
	Address uint64
}

// PCIWrite32Raw writes a 32-bit word to the chip's BAR, bypassing the NOC.
type PCIWrite32Raw struct {
	ChipID  uint8
	Address uint64
	Data    uint32
}

// DMABufferRead32 reads a 32-bit word from a host DMA buffer channel.
type DMABufferRead32 struct {
	ChipID  uint8
	Address uint64
	Channel uint16
}

// ArcMsg sends a firmware message to the chip's ARC controller.
type ArcMsg struct {
	ChipID      uint8
	MsgCode     uint32
	WaitForDone bool
	Arg0        uint32
	Arg1        uint32
	TimeoutMs   uint32
}

// ReadArcTelemetryEntry reads one ARC telemetry value by tag.
type ReadArcTelemetryEntry struct {
	ChipID       uint8
	TelemetryTag uint8
}

// GetDeviceArch asks for the architecture name of a chip.
type GetDeviceArch struct {
	ChipID uint8
}

// JTAGRead32 reads a 32-bit word from a core through the JTAG transport.
type JTAGRead32 struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
}

// JTAGWrite32 writes a 32-bit word to a core through the JTAG transport.
type JTAGWrite32 struct {
	ChipID  uint8
	NocX    uint8
	NocY    uint8
	Address uint64
	Data    uint32
}

// JTAGReadAXI32 reads a 32-bit word from the chip's AXI bus over JTAG.
type JTAGReadAXI32 struct {
	ChipID  uint8
	Address uint32
}

// JTAGWriteAXI32 writes a 32-bit word to the chip's AXI bus over JTAG.
type JTAGWriteAXI32 struct {
	ChipID  uint8
	Address uint32
	Data    uint32
}

// PCIReadTile reads Size bytes from a core and renders them in DataFormat.
type PCIReadTile struct {
	ChipID     uint8
	NocX       uint8
	NocY       uint8
	Address    uint64
	Size       uint32
	DataFormat uint8
}

// GetClusterDescription asks for the cluster topology descriptor.
type GetClusterDescription struct{}

// ConvertCoordinate converts a NOC0 coordinate into CoordSystem for a core
// of CoreType. Both names travel as the frame tail.
type ConvertCoordinate struct {
	ChipID      uint8
	NocX        uint8
	NocY        uint8
	CoreType    string
	CoordSystem string
}

// GetDeviceIDs lists the chip ids the backend exposes.
type GetDeviceIDs struct{}

// GetFile fetches a server-local file by path.
type GetFile struct {
	Path string
}

// GetRunDirPath asks for the server's configured working directory.
type GetRunDirPath struct{}

// GetDeviceSocDescription asks for a chip's SoC descriptor.
type GetDeviceSocDescription struct {
	ChipID uint8
}

func (Ping) Tag() Tag { return TagPing }
func (PCIRead32) Tag() Tag { return TagPCIRead32 }
func (PCIWrite32) Tag() Tag { return TagPCIWrite32 }
func (PCIRead) Tag() Tag { return TagPCIRead }
func (PCIWrite) Tag() Tag { return TagPCIWrite }
func (PCIRead32Raw) Tag() Tag { return TagPCIRead32Raw }
func (PCIWrite32Raw) Tag() Tag { return TagPCIWrite32Raw }
func (DMABufferRead32) Tag() Tag { return TagDMABufferRead32 }
func (ArcMsg) Tag() Tag { return TagArcMsg }
func (ReadArcTelemetryEntry) Tag() Tag { return TagReadArcTelemetryEntry }
func (GetDeviceArch) Tag() Tag { return TagGetDeviceArch }
func (JTAGRead32) Tag() Tag { return TagJTAGRead32 }
func (JTAGWrite32) Tag() Tag { return TagJTAGWrite32 }
func (JTAGReadAXI32) Tag() Tag { return TagJTAGReadAXI32 }
func (JTAGWriteAXI32) Tag() Tag { return TagJTAGWriteAXI32 }
func (PCIReadTile) Tag() Tag { return TagPCIReadTile }
func (GetClusterDescription) Tag() Tag { return TagGetClusterDescription }
func (ConvertCoordinate) Tag() Tag { return TagConvertCoordinate }
func (GetDeviceIDs) Tag() Tag { return TagGetDeviceIDs }
func (GetFile) Tag() Tag { return TagGetFile }
func (GetRunDirPath) Tag() Tag { return TagGetRunDirPath }
func (GetDeviceSocDescription) Tag() Tag { return TagGetDeviceSocDescription }

type encoder struct {
	b []byte
}

func (e *encoder) u8(v uint8) { e.b = append(e.b, v) }
func (e *encoder) u16(v uint16) { e.b = binary.LittleEndian.AppendUint16(e.b, v) }
func (e *encoder) u32(v uint32) { e.b = binary.LittleEndian.AppendUint32(e.b, v) }
func (e *encoder) u64(v uint64) { e.b = binary.LittleEndian.AppendUint64(e.b, v) }
func (e *encoder) raw(p []byte) { e.b = append(e.b, p...) }
func (e *encoder) flag(v bool) { e.u8(boolByte(v)) }
func (e *encoder) core(c, x, y uint8, addr uint64) {
	e.u8(c)
	e.u8(x)
	e.u8(y)
	e.u64(addr)
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func (Ping) appendFields(*encoder) {}
func (r PCIRead32) appendFields(e *encoder) { e.core(r.ChipID, r.NocX, r.NocY, r.Address) }
func (r PCIWrite32) appendFields(e *encoder) {
	e.core(r.ChipID, r.NocX, r.NocY, r.Address)
	e.u32(r.Data)
}

func (r PCIRead) appendFields(e *encoder) {
	e.core(r.ChipID, r.NocX, r.NocY, r.Address)
	e.u32(r.Size)
}

func (r PCIRead32Raw) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u64(r.Address)
}

func (r PCIWrite32Raw) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u64(r.Address)
	e.u32(r.Data)
}

func (r DMABufferRead32) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u64(r.Address)
	e.u16(r.Channel)
}

func (r ReadArcTelemetryEntry) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u8(r.TelemetryTag)
}

func (r GetDeviceArch) appendFields(e *encoder) { e.u8(r.ChipID) }
func (r JTAGRead32) appendFields(e *encoder) { e.core(r.ChipID, r.NocX, r.NocY, r.Address) }
func (r JTAGWrite32) appendFields(e *encoder) {
	e.core(r.ChipID, r.NocX, r.NocY, r.Address)
	e.u32(r.Data)
}

func (r JTAGReadAXI32) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u32(r.Address)
}

func (r JTAGWriteAXI32) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u32(r.Address)
	e.u32(r.Data)
}

func (GetClusterDescription) appendFields(*encoder) {}
func (GetDeviceIDs) appendFields(*encoder) {}
func (GetRunDirPath) appendFields(*encoder) {}
func (r GetDeviceSocDescription) appendFields(e *encoder) { e.u8(r.ChipID) }

func (r PCIWrite) appendFields(e *encoder) {
	e.core(r.ChipID, r.NocX, r.NocY, r.Address)
	e.u32(uint32(len(r.Data)))
	e.raw(r.Data)
}

func (r ArcMsg) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u32(r.MsgCode)
	e.flag(r.WaitForDone)
	e.u32(r.Arg0)
	e.u32(r.Arg1)
	e.u32(r.TimeoutMs)
}

func (r PCIReadTile) appendFields(e *encoder) {
	e.core(r.ChipID, r.NocX, r.NocY, r.Address)
	e.u32(r.Size)
	e.u8(r.DataFormat)
}

func (r ConvertCoordinate) appendFields(e *encoder) {
	e.u8(r.ChipID)
	e.u8(r.NocX)
	e.u8(r.NocY)
	e.u32(uint32(len(r.CoreType)))
	e.u32(uint32(len(r.CoordSystem)))
	e.raw([]byte(r.CoreType))
	e.raw([]byte(r.CoordSystem))
}

func (r GetFile) appendFields(e *encoder) {
	e.u32(uint32(len(r.Path)))
	e.raw([]byte(r.Path))
}

// Encode serializes r into a request frame.
func Encode(r Request) []byte {
	e := &encoder{b: make([]byte, 0, 32)}
	e.u8(uint8(r.Tag()))
	r.appendFields(e)
	return e.b
}

// decoder walks a frame that has already passed Validate, so every field
// read is inside the frame.
type decoder struct {
	b   []byte
	off int
}

func (d *decoder) u8() uint8 {
	v := d.b[d.off]
	d.off++
	return v
}

func (d *decoder) u16() uint16 {
	v := binary.LittleEndian.Uint16(d.b[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(d.b[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	v := binary.LittleEndian.Uint64(d.b[d.off:])
	d.off += 8
	return v
}

// bytes returns a copy so decoded requests never alias the receive buffer.
func (d *decoder) bytes(n uint32) []byte {
	out := make([]byte, n)
	copy(out, d.b[d.off:d.off+int(n)])
	d.off += int(n)
	return out
}

// Decode validates frame and returns the typed request it carries.
func Decode(frame []byte) (Request, error) {
	if err := Validate(frame); err != nil {
		return nil, err
	}
	d := &decoder{b: frame, off: 1}
	switch Tag(frame[0]) {
	case TagPing:
		return Ping{}, nil
	case TagPCIRead32:
		return PCIRead32{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64()}, nil
	case TagPCIWrite32:
		return PCIWrite32{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64(), Data: d.u32()}, nil
	case TagPCIRead:
		return PCIRead{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64(), Size: d.u32()}, nil
	case TagPCIWrite:
		r := PCIWrite{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64()}
		r.Data = d.bytes(d.u32())
		return r, nil
	case TagPCIRead32Raw:
		return PCIRead32Raw{ChipID: d.u8(), Address: d.u64()}, nil
	case TagPCIWrite32Raw:
		return PCIWrite32Raw{ChipID: d.u8(), Address: d.u64(), Data: d.u32()}, nil
	case TagDMABufferRead32:
		return DMABufferRead32{ChipID: d.u8(), Address: d.u64(), Channel: d.u16()}, nil
	case TagArcMsg:
		return ArcMsg{ChipID: d.u8(), MsgCode: d.u32(), WaitForDone: d.u8() != 0, Arg0: d.u32(), Arg1: d.u32(), TimeoutMs: d.u32()}, nil
	case TagReadArcTelemetryEntry:
		return ReadArcTelemetryEntry{ChipID: d.u8(), TelemetryTag: d.u8()}, nil
	case TagGetDeviceArch:
		return GetDeviceArch{ChipID: d.u8()}, nil
	case TagJTAGRead32:
		return JTAGRead32{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64()}, nil
	case TagJTAGWrite32:
		return JTAGWrite32{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64(), Data: d.u32()}, nil
	case TagJTAGReadAXI32:
		return JTAGReadAXI32{ChipID: d.u8(), Address: d.u32()}, nil
	case TagJTAGWriteAXI32:
		return JTAGWriteAXI32{ChipID: d.u8(), Address: d.u32(), Data: d.u32()}, nil
	case TagPCIReadTile:
		return PCIReadTile{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8(), Address: d.u64(), Size: d.u32(), DataFormat: d.u8()}, nil
	case TagGetClusterDescription:
		return GetClusterDescription{}, nil
	case TagConvertCoordinate:
		r := ConvertCoordinate{ChipID: d.u8(), NocX: d.u8(), NocY: d.u8()}
		coreLen, sysLen := d.u32(), d.u32()
		r.CoreType = string(d.bytes(coreLen))
		r.CoordSystem = string(d.bytes(sysLen))
		return r, nil
	case TagGetDeviceIDs:
		return GetDeviceIDs{}, nil
	case TagGetFile:
		return GetFile{Path: string(d.bytes(d.u32()))}, nil
	case TagGetRunDirPath:
		return GetRunDirPath{}, nil
	case TagGetDeviceSocDescription:
		return GetDeviceSocDescription{ChipID: d.u8()}, nil
	}
	// Validate accepted a tag with no decoder; layouts and Decode disagree.
	return nil, ErrUnknownTag
}
