package console

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/iMithrellas/ttlens/internal/tile"
	"github.com/iMithrellas/ttlens/internal/wire"
)

// Command is one parsed console line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a line into a lower-cased command name and its
// arguments.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}
	parts := strings.Fields(input)
	return Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseAddress parses an address as $hex, 0xhex, #decimal or bare hex.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	base := 16
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 10
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	return v, err == nil
}

type argReader struct {
	args []string
	err  error
}

func (a *argReader) next(what string) string {
	if a.err != nil {
		return ""
	}
	if len(a.args) == 0 {
		a.err = fmt.Errorf("missing %s", what)
		return ""
	}
	s := a.args[0]
	a.args = a.args[1:]
	return s
}

// num parses a decimal or 0x-prefixed count that fits in bits.
func (a *argReader) num(what string, bits int) uint64 {
	s := a.next(what)
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		a.err = fmt.Errorf("invalid %s %q", what, s)
	}
	return v
}

func (a *argReader) u8(what string) uint8   { return uint8(a.num(what, 8)) }
func (a *argReader) u16(what string) uint16 { return uint16(a.num(what, 16)) }
func (a *argReader) u32(what string) uint32 { return uint32(a.num(what, 32)) }

func (a *argReader) addr() uint64 {
	s := a.next("address")
	if a.err != nil {
		return 0
	}
	v, ok := ParseAddress(s)
	if !ok {
		a.err = fmt.Errorf("invalid address %q", s)
	}
	return v
}

func (a *argReader) done(usage string) error {
	if a.err == nil && len(a.args) > 0 {
		a.err = fmt.Errorf("unexpected argument %q", a.args[0])
	}
	if a.err != nil {
		return fmt.Errorf("%v (usage: %s)", a.err, usage)
	}
	return nil
}

type commandDef struct {
	usage string
	build func(a *argReader) wire.Request
}

var commands = map[string]commandDef{
	"ping": {"ping", func(*argReader) wire.Request { return wire.Ping{} }},

	"read32": {"read32 chip x y addr", func(a *argReader) wire.Request {
		return wire.PCIRead32{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), Address: a.addr()}
	}},
	"write32": {"write32 chip x y addr data", func(a *argReader) wire.Request {
		return wire.PCIWrite32{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), Address: a.addr(), Data: a.u32("data")}
	}},
	"read": {"read chip x y addr size", func(a *argReader) wire.Request {
		return wire.PCIRead{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), Address: a.addr(), Size: a.u32("size")}
	}},
	"raw32": {"raw32 chip addr", func(a *argReader) wire.Request {
		return wire.PCIRead32Raw{ChipID: a.u8("chip"), Address: a.addr()}
	}},
	"dma32": {"dma32 chip addr channel", func(a *argReader) wire.Request {
		return wire.DMABufferRead32{ChipID: a.u8("chip"), Address: a.addr(), Channel: a.u16("channel")}
	}},
	"jtag32": {"jtag32 chip x y addr", func(a *argReader) wire.Request {
		return wire.JTAGRead32{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), Address: a.addr()}
	}},
	"axi32": {"axi32 chip addr", func(a *argReader) wire.Request {
		return wire.JTAGReadAXI32{ChipID: a.u8("chip"), Address: uint32(a.addr())}
	}},
	"arc": {"arc chip code arg0 arg1", func(a *argReader) wire.Request {
		return wire.ArcMsg{ChipID: a.u8("chip"), MsgCode: a.u32("code"), WaitForDone: true, Arg0: a.u32("arg0"), Arg1: a.u32("arg1"), TimeoutMs: 1000}
	}},
	"telemetry": {"telemetry chip tag", func(a *argReader) wire.Request {
		return wire.ReadArcTelemetryEntry{ChipID: a.u8("chip"), TelemetryTag: a.u8("tag")}
	}},
	"arch": {"arch chip", func(a *argReader) wire.Request {
		return wire.GetDeviceArch{ChipID: a.u8("chip")}
	}},
	"ids": {"ids", func(*argReader) wire.Request { return wire.GetDeviceIDs{} }},

	"convert": {"convert chip x y type space", func(a *argReader) wire.Request {
		return wire.ConvertCoordinate{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), CoreType: a.next("core type"), CoordSystem: a.next("space")}
	}},
	"tile": {"tile chip x y addr size fmt", func(a *argReader) wire.Request {
		r := wire.PCIReadTile{ChipID: a.u8("chip"), NocX: a.u8("x"), NocY: a.u8("y"), Address: a.addr(), Size: a.u32("size")}
		name := a.next("format")
		if a.err == nil {
			f, err := tile.ParseFormat(name)
			a.err = err
			r.DataFormat = uint8(f)
		}
		return r
	}},
	"file": {"file path", func(a *argReader) wire.Request { return wire.GetFile{Path: a.next("path")} }},

	"cluster": {"cluster", func(*argReader) wire.Request { return wire.GetClusterDescription{} }},

	"soc": {"soc chip", func(a *argReader) wire.Request {
		return wire.GetDeviceSocDescription{ChipID: a.u8("chip")}
	}},
	"rundir": {"rundir", func(*argReader) wire.Request { return wire.GetRunDirPath{} }},
}

// CommandNames lists the console commands in the order help prints them.
var CommandNames = []string{
	"ping", "read32", "write32", "read", "raw32", "dma32", "jtag32", "axi32",
	"arc", "telemetry", "arch", "ids", "convert", "tile", "file", "cluster",
	"soc", "rundir",
}

// Usage returns the argument synopsis of a command.
func Usage(name string) string {
	return commands[name].usage
}

// BuildRequest turns a console command into a protocol request.
func BuildRequest(cmd Command) (wire.Request, error) {
	def, ok := commands[cmd.Name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", cmd.Name)
	}
	a := &argReader{args: cmd.Args}
	req := def.build(a)
	if err := a.done(def.usage); err != nil {
		return nil, err
	}
	return req, nil
}

// FormatReply renders a reply for display. Sentinels print as-is.
func FormatReply(req wire.Request, reply []byte) string {
	switch string(reply) {
	case wire.NotSupported, wire.BadRequest, wire.InternalError, wire.Pong:
		return string(reply)
	}
	switch req.(type) {
	case wire.PCIRead32, wire.PCIWrite32, wire.PCIRead32Raw, wire.PCIWrite32Raw,
		wire.DMABufferRead32, wire.ReadArcTelemetryEntry, wire.JTAGRead32,
		wire.JTAGWrite32, wire.JTAGReadAXI32, wire.JTAGWriteAXI32:
		if len(reply) == 4 {
			v := binary.LittleEndian.Uint32(reply)
			return fmt.Sprintf("0x%08x (%d)", v, v)
		}
	case wire.PCIWrite:
		if len(reply) == 4 {
			return fmt.Sprintf("%d bytes written", binary.LittleEndian.Uint32(reply))
		}
	case wire.ArcMsg:
		if len(reply) == 12 {
			return fmt.Sprintf("status=0x%x ret0=0x%x ret1=0x%x",
				binary.LittleEndian.Uint32(reply[0:]),
				binary.LittleEndian.Uint32(reply[4:]),
				binary.LittleEndian.Uint32(reply[8:]))
		}
	case wire.ConvertCoordinate:
		if len(reply) == 2 {
			return fmt.Sprintf("%d-%d", reply[0], reply[1])
		}
	case wire.GetDeviceIDs:
		ids := make([]string, len(reply))
		for i, id := range reply {
			ids[i] = strconv.Itoa(int(id))
		}
		return strings.Join(ids, " ")
	case wire.PCIRead:
		return fmt.Sprintf("% x", reply)
	case wire.PCIReadTile, wire.GetDeviceArch, wire.GetClusterDescription,
		wire.GetFile, wire.GetRunDirPath, wire.GetDeviceSocDescription:
		return string(reply)
	}
	return fmt.Sprintf("% x", reply)
}
