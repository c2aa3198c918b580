package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-zeromq/zmq4"

	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/device/devicetest"
	"github.com/iMithrellas/ttlens/internal/wire"
)

// everyRequest holds one zero-valued request of each kind.
var everyRequest = []wire.Request{
	wire.Ping{},
	wire.PCIRead32{},
	wire.PCIWrite32{},
	wire.PCIRead{},
	wire.PCIWrite{Data: []byte{1}},
	wire.PCIRead32Raw{},
	wire.PCIWrite32Raw{},
	wire.DMABufferRead32{},
	wire.ArcMsg{},
	wire.ReadArcTelemetryEntry{},
	wire.GetDeviceArch{},
	wire.JTAGRead32{},
	wire.JTAGWrite32{},
	wire.JTAGReadAXI32{},
	wire.JTAGWriteAXI32{},
	wire.PCIReadTile{},
	wire.GetClusterDescription{},
	wire.ConvertCoordinate{CoreType: "tensix", CoordSystem: "logical"},
	wire.GetDeviceIDs{},
	wire.GetFile{Path: "x"},
	wire.GetRunDirPath{},
	wire.GetDeviceSocDescription{},
}

func TestEveryTagRoutes(t *testing.T) {
	seen := make(map[wire.Tag]bool)
	for _, r := range everyRequest {
		seen[r.Tag()] = true
	}
	for _, tag := range wire.Tags() {
		if !seen[tag] {
			t.Errorf("no request of tag %s", tag)
		}
	}

	s := New(device.Unimplemented{})
	for _, r := range everyRequest {
		want := wire.NotSupported
		if r.Tag() == wire.TagPing {
			want = wire.Pong
		}
		if got := string(s.Handle(wire.Encode(r))); got != want {
			t.Errorf("%s against an all-absent backend = %q, want %q", r.Tag(), got, want)
		}
	}
}

func TestHandleFraming(t *testing.T) {
	s := New(device.Unimplemented{})
	tests := []struct {
		name  string
		frame []byte
		want  string
	}{
		{"empty", nil, wire.BadRequest},
		{"tag zero", []byte{0}, wire.NotSupported},
		{"unassigned tag", []byte{99, 1, 2}, wire.NotSupported},
		{"ping with trailing byte", []byte{byte(wire.TagPing), 0}, wire.BadRequest},
		{"truncated read32", wire.Encode(wire.PCIRead32{})[:11], wire.BadRequest},
		{"tail longer than declared", append(wire.Encode(wire.GetFile{Path: "a"}), 'b'), wire.BadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(s.Handle(tc.frame)); got != tc.want {
				t.Errorf("Handle(% x) = %q, want %q", tc.frame, got, tc.want)
			}
		})
	}
}

func TestResultEncoding(t *testing.T) {
	stub := devicetest.NewStub()
	s := New(stub)

	write := wire.Encode(wire.PCIWrite32{ChipID: 0, NocX: 1, NocY: 1, Address: 8, Data: 0x01020304})
	if got := s.Handle(write); !bytes.Equal(got, []byte{4, 3, 2, 1}) {
		t.Errorf("write32 reply = % x", got)
	}
	read := wire.Encode(wire.PCIRead32{ChipID: 0, NocX: 1, NocY: 1, Address: 8})
	if got := s.Handle(read); !bytes.Equal(got, []byte{4, 3, 2, 1}) {
		t.Errorf("read32 reply = % x", got)
	}
}

func TestBackendFaults(t *testing.T) {
	s := New(devicetest.Faulty{})

	if got := string(s.Handle(wire.Encode(wire.PCIRead32{}))); got != wire.InternalError {
		t.Errorf("faulting read32 = %q", got)
	}
	if got := string(s.Handle(wire.Encode(wire.GetDeviceArch{}))); got != wire.InternalError {
		t.Errorf("panicking arch probe = %q", got)
	}
	if got := string(s.Handle(wire.Encode(wire.Ping{}))); got != wire.Pong {
		t.Errorf("ping after faults = %q", got)
	}
}

func startTest(t *testing.T, dev device.Device) *Server {
	t.Helper()
	s := New(dev)
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func dial(t *testing.T, endpoint string) zmq4.Socket {
	t.Helper()
	req := zmq4.NewReq(context.Background())
	if err := req.Dial(endpoint); err != nil {
		t.Fatalf("Dial %s: %v", endpoint, err)
	}
	t.Cleanup(func() { req.Close() })
	return req
}

func roundTrip(t *testing.T, req zmq4.Socket, frame []byte) []byte {
	t.Helper()
	if err := req.Send(zmq4.NewMsg(frame)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := req.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	return msg.Bytes()
}

func TestEndToEnd(t *testing.T) {
	s := startTest(t, devicetest.NewStub())
	req := dial(t, s.Endpoint())

	read := wire.PCIRead32{ChipID: 1, NocX: 2, NocY: 3, Address: 123456}
	if got := string(roundTrip(t, req, wire.Encode(read))); got != wire.NotSupported {
		t.Errorf("read32 of unwritten register = %q", got)
	}

	write := wire.PCIWrite32{ChipID: 1, NocX: 2, NocY: 3, Address: 123456, Data: 987654}
	roundTrip(t, req, wire.Encode(write))
	got := roundTrip(t, req, wire.Encode(read))
	if len(got) != 4 || binary.LittleEndian.Uint32(got) != 987654 {
		t.Errorf("read32 after write = % x", got)
	}

	if got := string(roundTrip(t, req, wire.Encode(wire.Ping{}))); got != wire.Pong {
		t.Errorf("ping = %q", got)
	}

	missing := filepath.Join(t.TempDir(), "test_file")
	if got := string(roundTrip(t, req, wire.Encode(wire.GetFile{Path: missing}))); got != wire.NotSupported {
		t.Errorf("get_file of missing file = %q", got)
	}
	if got := string(roundTrip(t, req, []byte{byte(wire.TagPCIRead32), 1})); got != wire.BadRequest {
		t.Errorf("short frame = %q", got)
	}
}

func TestServerSurvivesFaults(t *testing.T) {
	s := startTest(t, devicetest.Faulty{})
	req := dial(t, s.Endpoint())

	for i := 0; i < 3; i++ {
		if got := string(roundTrip(t, req, wire.Encode(wire.GetDeviceArch{}))); got != wire.InternalError {
			t.Fatalf("panicking request %d = %q", i, got)
		}
	}
	if got := string(roundTrip(t, req, wire.Encode(wire.Ping{}))); got != wire.Pong {
		t.Errorf("ping after faults = %q", got)
	}
	if !s.IsRunning() {
		t.Errorf("server stopped after backend faults")
	}
}

func TestLifecycle(t *testing.T) {
	var never Server
	never.Stop()

	s := New(device.Unimplemented{})
	if s.IsRunning() {
		t.Fatalf("new server reports running")
	}
	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() || s.Port() == 0 {
		t.Fatalf("running=%v port=%d after Start", s.IsRunning(), s.Port())
	}
	if err := s.Start(0); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Errorf("running after Stop")
	}
}

func TestBindExclusive(t *testing.T) {
	first := New(device.Unimplemented{})
	if err := first.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	port := first.Port()

	second := New(device.Unimplemented{})
	if err := second.Start(port); !errors.Is(err, ErrBind) {
		first.Stop()
		t.Fatalf("Start on a bound port = %v, want ErrBind", err)
	}
	if second.IsRunning() {
		t.Errorf("failed Start left the server running")
	}

	first.Stop()
	if err := second.Start(port); err != nil {
		t.Fatalf("Start after the port was released: %v", err)
	}
	defer second.Stop()

	req := dial(t, second.Endpoint())
	if got := string(roundTrip(t, req, wire.Encode(wire.Ping{}))); got != wire.Pong {
		t.Errorf("ping on restarted port = %q", got)
	}
}
