package wire

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// samples holds one representative request per defined tag.
var samples = []Request{
	Ping{},
	PCIRead32{ChipID: 1, NocX: 2, NocY: 3, Address: 123456},
	PCIWrite32{ChipID: 1, NocX: 2, NocY: 3, Address: 123456, Data: 987654},
	PCIRead{ChipID: 0, NocX: 1, NocY: 1, Address: 0x1000, Size: 64},
	PCIWrite{ChipID: 0, NocX: 1, NocY: 1, Address: 0x1000, Data: []byte{1, 2, 3, 4, 5}},
	PCIRead32Raw{ChipID: 2, Address: 0x1ff30000},
	PCIWrite32Raw{ChipID: 2, Address: 0x1ff30000, Data: 0xdeadbeef},
	DMABufferRead32{ChipID: 0, Address: 0x40, Channel: 3},
	ArcMsg{ChipID: 0, MsgCode: 0xaa90, WaitForDone: true, Arg0: 7, Arg1: 9, TimeoutMs: 1000},
	ReadArcTelemetryEntry{ChipID: 0, TelemetryTag: 14},
	GetDeviceArch{ChipID: 3},
	JTAGRead32{ChipID: 0, NocX: 9, NocY: 8, Address: 0xffb20000},
	JTAGWrite32{ChipID: 0, NocX: 9, NocY: 8, Address: 0xffb20000, Data: 42},
	JTAGReadAXI32{ChipID: 0, Address: 0x80030000},
	JTAGWriteAXI32{ChipID: 0, Address: 0x80030000, Data: 17},
	PCIReadTile{ChipID: 0, NocX: 1, NocY: 1, Address: 0x2000, Size: 4096, DataFormat: 0},
	GetClusterDescription{},
	ConvertCoordinate{ChipID: 0, NocX: 1, NocY: 1, CoreType: "tensix", CoordSystem: "logical"},
	GetDeviceIDs{},
	GetFile{Path: "test_file"},
	GetRunDirPath{},
	GetDeviceSocDescription{ChipID: 0},
}

func tailLen(r Request) int {
	switch v := r.(type) {
	case PCIWrite:
		return len(v.Data)
	case GetFile:
		return len(v.Path)
	case ConvertCoordinate:
		return len(v.CoreType) + len(v.CoordSystem)
	}
	return 0
}

func TestSamplesCoverEveryTag(t *testing.T) {
	seen := make(map[Tag]bool)
	for _, r := range samples {
		seen[r.Tag()] = true
	}
	for _, tag := range Tags() {
		if !seen[tag] {
			t.Errorf("no sample request for %s", tag)
		}
	}
	if len(seen) != len(Tags()) {
		t.Errorf("samples cover %d tags, %d defined", len(seen), len(Tags()))
	}
}

func TestFrameRoundTrip(t *testing.T) {
	for _, r := range samples {
		t.Run(r.Tag().String(), func(t *testing.T) {
			frame := Encode(r)
			fixed, hasTail, ok := Layout(r.Tag())
			if !ok {
				t.Fatalf("no layout for %s", r.Tag())
			}
			if want := fixed + tailLen(r); len(frame) != want {
				t.Fatalf("encoded %d bytes, want %d", len(frame), want)
			}
			if hasTail != (tailLen(r) > 0) {
				t.Fatalf("hasTail = %v for sample with tail %d", hasTail, tailLen(r))
			}
			if err := Validate(frame); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			got, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, r) {
				t.Errorf("Decode = %#v, want %#v", got, r)
			}
		})
	}
}

func TestTruncatedFramesFail(t *testing.T) {
	for _, r := range samples {
		t.Run(r.Tag().String(), func(t *testing.T) {
			frame := Encode(r)
			if len(frame) > 1 {
				if err := Validate(frame[:len(frame)-1]); !errors.Is(err, ErrFrameLength) {
					t.Errorf("truncated by 1: err = %v, want ErrFrameLength", err)
				}
			}
			if n := tailLen(r); n > 0 {
				if err := Validate(frame[:len(frame)-n]); !errors.Is(err, ErrFrameLength) {
					t.Errorf("truncated by tail: err = %v, want ErrFrameLength", err)
				}
			}
			if err := Validate(append(frame, 0)); !errors.Is(err, ErrFrameLength) {
				t.Errorf("extended by 1: err = %v, want ErrFrameLength", err)
			}
		})
	}
}

func TestDeclaredTailLargerThanFrame(t *testing.T) {
	cases := []struct {
		name   string
		frame  []byte
		offset int
	}{
		{"pci_write", Encode(PCIWrite{Data: []byte{1, 2}}), sizeCoreAddr},
		{"get_file", Encode(GetFile{Path: "abc"}), 1},
		{"convert_core_type", Encode(ConvertCoordinate{CoreType: "dram", CoordSystem: "noc1"}), 4},
		{"convert_coord_system", Encode(ConvertCoordinate{CoreType: "dram", CoordSystem: "noc1"}), 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			binary.LittleEndian.PutUint32(tc.frame[tc.offset:], 0xffffffff)
			if err := Validate(tc.frame); !errors.Is(err, ErrFrameLength) {
				t.Errorf("err = %v, want ErrFrameLength", err)
			}
			if _, err := Decode(tc.frame); err == nil {
				t.Errorf("Decode accepted a frame with an oversized tail")
			}
		})
	}
}

func TestHeaderShorterThanLengthField(t *testing.T) {
	// Three bytes of a get_file frame: the size field itself is cut.
	if err := Validate([]byte{byte(TagGetFile), 9, 0}); !errors.Is(err, ErrFrameLength) {
		t.Errorf("err = %v, want ErrFrameLength", err)
	}
}

func TestUnknownAndEmptyFrames(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrFrameLength) {
		t.Errorf("empty frame: err = %v, want ErrFrameLength", err)
	}
	for _, tag := range []byte{0, 2, 9, 20, 49, 54, 99, 104, 199, 203, 255} {
		if err := Validate([]byte{tag}); !errors.Is(err, ErrUnknownTag) {
			t.Errorf("tag %d: err = %v, want ErrUnknownTag", tag, err)
		}
	}
}

func TestFixedFieldLayout(t *testing.T) {
	frame := Encode(PCIWrite32{ChipID: 1, NocX: 2, NocY: 3, Address: 123456, Data: 987654})
	want := []byte{11, 1, 2, 3}
	want = binary.LittleEndian.AppendUint64(want, 123456)
	want = binary.LittleEndian.AppendUint32(want, 987654)
	if !reflect.DeepEqual(frame, want) {
		t.Errorf("frame = % x, want % x", frame, want)
	}

	frame = Encode(ConvertCoordinate{ChipID: 4, NocX: 5, NocY: 6, CoreType: "dram", CoordSystem: "noc1"})
	want = []byte{102, 4, 5, 6, 4, 0, 0, 0, 4, 0, 0, 0}
	want = append(want, "dramnoc1"...)
	if !reflect.DeepEqual(frame, want) {
		t.Errorf("convert frame = % x, want % x", frame, want)
	}
}

func TestTagNames(t *testing.T) {
	if got := TagPCIRead32.String(); got != "pci_read32" {
		t.Errorf("TagPCIRead32 = %q", got)
	}
	if got := Tag(77).String(); got != "tag(77)" {
		t.Errorf("Tag(77) = %q", got)
	}
}
