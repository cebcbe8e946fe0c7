// Package fakenucleus is test-only tooling: a scripted Unix-socket
// stand-in for the real nucleus, used from _test.go files across this
// module to drive the end-to-end scenarios spec.md §8 describes (happy
// handshake, deferring a pre-update event, ignoring a post-update event,
// a refused handshake, a corrupted frame, interleaved stream ids).
// Adapted from the teacher's server.Server.handleConn (one read-loop
// goroutine per accepted connection) and server.Server.Serve (accept
// loop), stripped of the reflection-based service registry, middleware
// chain dispatch, and etcd registration — none of which apply to a
// scripted test double that just runs a per-test callback against each
// connection.
package fakenucleus

import (
	"io"
	"net"
	"sync"

	"github.com/aws-greengrass/nucleus-ipc/protocol"
)

// Server accepts connections on a Unix domain socket and runs handle
// against each one, on its own goroutine.
type Server struct {
	listener net.Listener
	wg       sync.WaitGroup
}

// New listens on socketPath and starts accepting connections. handle is
// invoked once per accepted connection and owns that connection's entire
// scripted lifetime; it should read and write frames using Conn's
// helpers and return when the scripted exchange is done (typically
// leaving the remote side to close the socket).
func New(socketPath string, handle func(*Conn)) (*Server, error) {
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	s := &Server{listener: l}
	go s.acceptLoop(handle)
	return s, nil
}

func (s *Server) acceptLoop(handle func(*Conn)) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			handle(&Conn{Conn: conn})
		}()
	}
}

// Close stops accepting new connections and waits for every in-flight
// handle callback to return.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// Conn is the server side of one accepted connection, with frame-level
// read/write helpers so a test's handle callback can script an exchange
// without hand-rolling prelude parsing.
type Conn struct {
	net.Conn
}

// ReadFrame reads exactly one frame and returns both its decoded
// Envelope and the raw frame bytes, so a test can mutate and resend the
// raw bytes for corruption scenarios, or just inspect the envelope.
func (c *Conn) ReadFrame() (protocol.Envelope, []byte, error) {
	prelude := make([]byte, protocol.PreludeSize)
	if _, err := io.ReadFull(c.Conn, prelude); err != nil {
		return protocol.Envelope{}, nil, err
	}
	total, err := protocol.FrameLen(prelude)
	if err != nil {
		return protocol.Envelope{}, nil, err
	}
	frame := make([]byte, total)
	copy(frame, prelude)
	if _, err := io.ReadFull(c.Conn, frame[protocol.PreludeSize:]); err != nil {
		return protocol.Envelope{}, nil, err
	}
	envelope, err := protocol.DecodeEnvelope(frame)
	return envelope, frame, err
}

// WriteMessage encodes msg and writes it in full.
func WriteMessage[P any](c *Conn, msg protocol.Message[P]) error {
	buf, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.WriteRaw(buf)
}

// WriteRaw writes an already-encoded frame verbatim, for tests that need
// to send deliberately malformed bytes (e.g. a flipped checksum bit).
func (c *Conn) WriteRaw(frame []byte) error {
	for len(frame) > 0 {
		n, err := c.Conn.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}
