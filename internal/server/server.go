// Package server runs the ttlens debug protocol over a ZeroMQ REP socket,
// answering each request frame with the result of a device.Device call.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
	"github.com/golang/glog"

	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/wire"
)

var (
	// ErrAlreadyRunning is returned by Start on a running server.
	ErrAlreadyRunning = errors.New("server: already running")
	// ErrBind is returned by Start when the endpoint cannot be bound.
	ErrBind = errors.New("server: cannot bind endpoint")
)

// DefaultHost is the interface the server binds unless WithHost is given.
const DefaultHost = "127.0.0.1"

// Option configures a Server.
type Option func(*Server)

// WithHost sets the interface to bind, e.g. "0.0.0.0" or "*".
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithLabel sets the tag printed in front of every log line.
func WithLabel(label string) Option {
	return func(s *Server) { s.label = label }
}

// Server serves one device over a REP socket. Requests are handled strictly
// one at a time, each receiving exactly one reply.
type Server struct {
	dev   device.Device
	host  string
	label string

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	running   atomic.Bool
	port      atomic.Int32
	cancel    context.CancelFunc
	sock      zmq4.Socket
	done      chan struct{}
}

func New(dev device.Device, opts ...Option) *Server {
	s := &Server{dev: dev, host: DefaultHost, label: "SERVER"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds tcp://host:port and serves in a background goroutine. Port 0
// binds an ephemeral port; Port reports the one chosen.
func (s *Server) Start(port int) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	rep := zmq4.NewRep(ctx)
	endpoint := wire.Endpoint(s.host, port)
	if err := rep.Listen(endpoint); err != nil {
		cancel()
		rep.Close()
		return fmt.Errorf("%w %s: %v", ErrBind, endpoint, err)
	}
	if addr, ok := rep.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	s.cancel = cancel
	s.sock = rep
	s.done = make(chan struct{})
	s.port.Store(int32(port))
	s.running.Store(true)
	glog.Infof("[%s] Listening on %s", s.label, s.Endpoint())

	go s.serve(ctx, rep, s.done)
	return nil
}

// Stop ends the serve loop and releases the port. It returns once the loop
// has exited and is a no-op on a server that is not running.
func (s *Server) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.running.Load() {
		return
	}
	s.cancel()
	s.sock.Close()
	<-s.done
	s.running.Store(false)
	glog.Infof("[%s] Stopped", s.label)
}

func (s *Server) IsRunning() bool { return s.running.Load() }

// Port is the bound port, or the last one bound after Stop.
func (s *Server) Port() int { return int(s.port.Load()) }

func (s *Server) Endpoint() string { return wire.Endpoint(s.host, s.Port()) }

func (s *Server) serve(ctx context.Context, rep zmq4.Socket, done chan<- struct{}) {
	defer close(done)
	for {
		msg, err := rep.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			glog.Errorf("[%s] Error receiving: %v", s.label, err)
			continue
		}
		var frame []byte
		if len(msg.Frames) > 0 {
			frame = msg.Frames[0]
		}
		reply := s.Handle(frame)
		if err := rep.Send(zmq4.NewMsg(reply)); err != nil {
			if ctx.Err() != nil {
				return
			}
			glog.Errorf("[%s] Error sending reply: %v", s.label, err)
		}
	}
}

// Handle validates one request frame, runs it against the device and
// returns the reply bytes. It never panics.
func (s *Server) Handle(frame []byte) (reply []byte) {
	req, err := wire.Decode(frame)
	switch {
	case errors.Is(err, wire.ErrUnknownTag):
		glog.V(1).Infof("[%s] %v", s.label, err)
		return []byte(wire.NotSupported)
	case err != nil:
		glog.Warningf("[%s] Rejected %d-byte frame: %v", s.label, len(frame), err)
		return []byte(wire.BadRequest)
	}
	glog.V(2).Infof("[%s] %s %+v", s.label, req.Tag(), req)

	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("[%s] %s: backend panic: %v", s.label, req.Tag(), r)
			reply = []byte(wire.InternalError)
		}
	}()

	out, err := dispatch(s.dev, req)
	switch {
	case err == nil:
		return out
	case errors.Is(err, device.ErrNotSupported):
		glog.V(1).Infof("[%s] %s: %v", s.label, req.Tag(), err)
		return []byte(wire.NotSupported)
	default:
		glog.Errorf("[%s] %s: %v", s.label, req.Tag(), err)
		return []byte(wire.InternalError)
	}
}
