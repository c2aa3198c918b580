// Package client talks to a ttlens debug server over a ZeroMQ REQ socket.
package client

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/tile"
	"github.com/iMithrellas/ttlens/internal/wire"
)

var (
	// ErrNotSupported wraps device.ErrNotSupported so callers can test either.
	ErrNotSupported = fmt.Errorf("client: %w", device.ErrNotSupported)
	ErrBadRequest   = errors.New("client: server rejected the request frame")
	ErrInternal     = errors.New("client: server backend fault")
	ErrEmptyReply   = errors.New("client: empty reply")
)

// Client is a single REQ connection. Requests are serialized; a REQ socket
// allows one request in flight.
type Client struct {
	mu       sync.Mutex
	endpoint string
	cancel   context.CancelFunc
	req      zmq4.Socket
}

// Dial connects to a server endpoint such as tcp://127.0.0.1:5555.
func Dial(endpoint string) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	req := zmq4.NewReq(ctx)
	if err := req.Dial(endpoint); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	return &Client{endpoint: endpoint, cancel: cancel, req: req}, nil
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Close() error {
	c.cancel()
	return c.req.Close()
}

// Do sends a raw frame and returns the raw reply, sentinels included.
func (c *Client) Do(frame []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.req.Send(zmq4.NewMsg(frame)); err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	msg, err := c.req.Recv()
	if err != nil {
		return nil, fmt.Errorf("error receiving reply: %w", err)
	}
	if len(msg.Frames) == 0 {
		return nil, ErrEmptyReply
	}
	return msg.Frames[0], nil
}

// RoundTrip encodes r, sends it and maps sentinel replies to errors.
func (c *Client) RoundTrip(r wire.Request) ([]byte, error) {
	reply, err := c.Do(wire.Encode(r))
	if err != nil {
		return nil, err
	}
	return reply, sentinel(r.Tag(), reply)
}

func sentinel(tag wire.Tag, reply []byte) error {
	switch string(reply) {
	case wire.NotSupported:
		return fmt.Errorf("%s: %w", tag, ErrNotSupported)
	case wire.BadRequest:
		return fmt.Errorf("%s: %w", tag, ErrBadRequest)
	case wire.InternalError:
		return fmt.Errorf("%s: %w", tag, ErrInternal)
	}
	return nil
}

func (c *Client) u32(r wire.Request) (uint32, error) {
	reply, err := c.RoundTrip(r)
	if err != nil {
		return 0, err
	}
	if len(reply) != 4 {
		return 0, fmt.Errorf("%s: %d-byte reply, want 4", r.Tag(), len(reply))
	}
	return binary.LittleEndian.Uint32(reply), nil
}

func (c *Client) text(r wire.Request) (string, error) {
	reply, err := c.RoundTrip(r)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

func (c *Client) Ping() error {
	reply, err := c.Do(wire.Encode(wire.Ping{}))
	if err != nil {
		return err
	}
	if !bytes.Equal(reply, []byte(wire.Pong)) {
		return fmt.Errorf("unexpected reply to ping: %q", reply)
	}
	return nil
}

func (c *Client) Read32(chip, x, y uint8, addr uint64) (uint32, error) {
	return c.u32(wire.PCIRead32{ChipID: chip, NocX: x, NocY: y, Address: addr})
}

func (c *Client) Write32(chip, x, y uint8, addr uint64, data uint32) error {
	_, err := c.u32(wire.PCIWrite32{ChipID: chip, NocX: x, NocY: y, Address: addr, Data: data})
	return err
}

func (c *Client) Read(chip, x, y uint8, addr uint64, size uint32) ([]byte, error) {
	return c.RoundTrip(wire.PCIRead{ChipID: chip, NocX: x, NocY: y, Address: addr, Size: size})
}

// Write returns the number of bytes the server wrote.
func (c *Client) Write(chip, x, y uint8, addr uint64, data []byte) (uint32, error) {
	return c.u32(wire.PCIWrite{ChipID: chip, NocX: x, NocY: y, Address: addr, Data: data})
}

func (c *Client) Read32Raw(chip uint8, addr uint64) (uint32, error) {
	return c.u32(wire.PCIRead32Raw{ChipID: chip, Address: addr})
}

func (c *Client) Write32Raw(chip uint8, addr uint64, data uint32) error {
	_, err := c.u32(wire.PCIWrite32Raw{ChipID: chip, Address: addr, Data: data})
	return err
}

func (c *Client) DMABufferRead32(chip uint8, addr uint64, channel uint16) (uint32, error) {
	return c.u32(wire.DMABufferRead32{ChipID: chip, Address: addr, Channel: channel})
}

func (c *Client) ArcMsg(chip uint8, code uint32, wait bool, arg0, arg1 uint32, timeout time.Duration) (device.ArcReply, error) {
	r := wire.ArcMsg{
		ChipID:      chip,
		MsgCode:     code,
		WaitForDone: wait,
		Arg0:        arg0,
		Arg1:        arg1,
		TimeoutMs:   uint32(timeout / time.Millisecond),
	}
	reply, err := c.RoundTrip(r)
	if err != nil {
		return device.ArcReply{}, err
	}
	if len(reply) != 12 {
		return device.ArcReply{}, fmt.Errorf("%s: %d-byte reply, want 12", r.Tag(), len(reply))
	}
	return device.ArcReply{
		Status: binary.LittleEndian.Uint32(reply[0:]),
		Ret0:   binary.LittleEndian.Uint32(reply[4:]),
		Ret1:   binary.LittleEndian.Uint32(reply[8:]),
	}, nil
}

func (c *Client) ReadArcTelemetryEntry(chip, tag uint8) (uint32, error) {
	return c.u32(wire.ReadArcTelemetryEntry{ChipID: chip, TelemetryTag: tag})
}

func (c *Client) DeviceArch(chip uint8) (string, error) {
	return c.text(wire.GetDeviceArch{ChipID: chip})
}

func (c *Client) JTAGRead32(chip, x, y uint8, addr uint64) (uint32, error) {
	return c.u32(wire.JTAGRead32{ChipID: chip, NocX: x, NocY: y, Address: addr})
}

func (c *Client) JTAGWrite32(chip, x, y uint8, addr uint64, data uint32) error {
	_, err := c.u32(wire.JTAGWrite32{ChipID: chip, NocX: x, NocY: y, Address: addr, Data: data})
	return err
}

func (c *Client) JTAGReadAXI32(chip uint8, addr uint32) (uint32, error) {
	return c.u32(wire.JTAGReadAXI32{ChipID: chip, Address: addr})
}

func (c *Client) JTAGWriteAXI32(chip uint8, addr, data uint32) error {
	_, err := c.u32(wire.JTAGWriteAXI32{ChipID: chip, Address: addr, Data: data})
	return err
}

func (c *Client) ReadTile(chip, x, y uint8, addr uint64, size uint32, format tile.Format) (string, error) {
	return c.text(wire.PCIReadTile{ChipID: chip, NocX: x, NocY: y, Address: addr, Size: size, DataFormat: uint8(format)})
}

func (c *Client) ClusterDescription() (string, error) {
	return c.text(wire.GetClusterDescription{})
}

func (c *Client) ConvertCoordinate(chip, x, y uint8, coreType, coordSystem string) (uint8, uint8, error) {
	r := wire.ConvertCoordinate{ChipID: chip, NocX: x, NocY: y, CoreType: coreType, CoordSystem: coordSystem}
	reply, err := c.RoundTrip(r)
	if err != nil {
		return 0, 0, err
	}
	if len(reply) != 2 {
		return 0, 0, fmt.Errorf("%s: %d-byte reply, want 2", r.Tag(), len(reply))
	}
	return reply[0], reply[1], nil
}

func (c *Client) DeviceIDs() ([]uint8, error) {
	return c.RoundTrip(wire.GetDeviceIDs{})
}

func (c *Client) File(path string) ([]byte, error) {
	return c.RoundTrip(wire.GetFile{Path: path})
}

func (c *Client) RunDirPath() (string, error) {
	return c.text(wire.GetRunDirPath{})
}

func (c *Client) SocDescription(chip uint8) (string, error) {
	return c.text(wire.GetDeviceSocDescription{ChipID: chip})
}

// Benchmark pings the server n times and returns the average round trip.
// progress, if set, is called at every tenth of the run with the percentage
// done.
func (c *Client) Benchmark(n int, progress func(pct int)) (time.Duration, error) {
	if n <= 0 {
		return 0, fmt.Errorf("benchmark needs a positive iteration count, got %d", n)
	}
	var avg time.Duration
	step := max(n/10, 1)
	for i := 1; i <= n; i++ {
		start := time.Now()
		if err := c.Ping(); err != nil {
			return avg, fmt.Errorf("iteration %d: %w", i, err)
		}
		// Incremental averaging
		avg += (time.Since(start) - avg) / time.Duration(i)
		if progress != nil && i%step == 0 {
			progress(i * 100 / n)
		}
	}
	return avg, nil
}
