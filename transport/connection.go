// Package transport dials the nucleus's Unix domain socket and performs
// the Connect handshake. Unlike the teacher's ClientTransport, a
// Connection runs no background recvLoop: nucleus IPC is a
// request-response protocol over one socket per logical caller (spec
// §4.4, §9), so reads happen synchronously on the calling goroutine, one
// frame at a time, skipping any frame whose stream id doesn't match the
// call in progress. Grounded on the teacher's client_transport.go for
// the overall shape (dial, framed send, framed receive) and on
// original_source/src/client.rs for the handshake and stream-id
// allocation rules.
package transport

import (
	"context"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
	"github.com/aws-greengrass/nucleus-ipc/ops"
	"github.com/aws-greengrass/nucleus-ipc/protocol"
)

// initialReadBufferSize matches spec §4.4's "sized initially to 1024
// bytes"; the buffer grows as readFrame observes larger frames.
const initialReadBufferSize = 1024

// Connection is a single, handshaken nucleus IPC socket. It is not safe
// for concurrent use: callers that need overlapping in-flight requests
// must dial separate Connections (spec §4.4), each with its own
// stream-id space.
type Connection struct {
	conn         net.Conn
	nextStreamID int32
	buf          []byte
	log          *zap.Logger
}

// Dial opens a Unix domain socket at socketPath and performs the Connect
// handshake with authToken. logger may be nil, in which case log
// messages are discarded.
func Dial(ctx context.Context, socketPath, authToken string, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, ipcerr.Wrap(ipcerr.KindIo, "dial "+socketPath, err)
	}

	c := &Connection{
		conn:         conn,
		nextStreamID: 1,
		buf:          make([]byte, initialReadBufferSize),
		log:          logger,
	}

	if err := c.handshake(authToken); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// handshake sends the Connect request on stream 0 and validates the
// reply: it must be a ConnectAck on stream 0 carrying the
// ConnectionAccepted flag. Any other message type on stream 0 is
// UnexpectedMessageType; a ConnectAck missing the flag is
// ConnectionRefused.
func (c *Connection) handshake(authToken string) error {
	if err := writeMessage(c, ops.NewConnect(authToken)); err != nil {
		return err
	}

	envelope, err := c.readFrame()
	if err != nil {
		return err
	}
	if envelope.Headers.StreamID() != 0 {
		return ipcerr.Newf(ipcerr.KindProtocol, "handshake: reply on stream %d, want 0", envelope.Headers.StreamID())
	}
	if envelope.Headers.MessageType() != protocol.MessageTypeConnectAck {
		return ipcerr.Newf(ipcerr.KindUnexpectedMessageType, "handshake: got %v, want ConnectAck", envelope.Headers.MessageType())
	}
	if !envelope.Headers.MessageFlags().Has(protocol.FlagConnectionAccept) {
		return ipcerr.New(ipcerr.KindConnectionRefused, "handshake: ConnectAck missing ConnectionAccepted flag")
	}
	return nil
}

// NextStreamID allocates the next stream id for a new logical call.
// Stream id 0 is reserved for the handshake; ids are handed out starting
// at 1 and increase monotonically for the life of the connection.
// Exhausting the int32 space is a fatal protocol error (spec §4.4).
func (c *Connection) NextStreamID() (int32, error) {
	if c.nextStreamID <= 0 {
		return 0, ipcerr.New(ipcerr.KindProtocol, "stream id space exhausted")
	}
	id := c.nextStreamID
	c.nextStreamID++
	return id, nil
}

// Call sends msg and waits for the first reply on msg's stream id,
// discarding frames for any other stream along the way (they belong to
// calls in flight on other logical streams multiplexed over this same
// socket, e.g. a subscription event arriving between a request and its
// response). The response payload is decoded as Resp.
//
// lastResponse tells the correlation loop whether this call expects the
// matched frame to close out its stream (spec §4.4's `(stream_id,
// last_response)` pair). It never changes whether Call succeeds; a
// mismatch between lastResponse and the reply's TerminateStream flag is
// only ever logged (see the Open Question decision in DESIGN.md).
func Call[Req, Resp any](c *Connection, msg protocol.Message[Req], lastResponse bool) (protocol.Message[Resp], error) {
	streamID := msg.Headers.StreamID()
	if err := writeMessage(c, msg); err != nil {
		return protocol.Message[Resp]{}, err
	}
	return readResponse[Resp](c, streamID, lastResponse)
}

// Await reads frames on an already-open stream until one matches
// streamID, without sending anything first. The pause supervisor uses
// this to read each successive event on its subscription stream, one at
// a time, after the initial Subscribe Call has already consumed the
// subscription ack.
func Await[Resp any](c *Connection, streamID int32, lastResponse bool) (protocol.Message[Resp], error) {
	return readResponse[Resp](c, streamID, lastResponse)
}

// readResponse reads frames until one matches streamID, then decodes its
// payload as Resp. Frames for other streams are logged at debug level
// and dropped; spec §9 treats this drop as expected multiplexing
// behavior, not an error. Once a matching frame arrives, its
// TerminateStream flag is compared against lastResponse and any mismatch
// is logged as a warning, never an error (spec §9's open question on
// last_response mismatches; see DESIGN.md).
func readResponse[Resp any](c *Connection, streamID int32, lastResponse bool) (protocol.Message[Resp], error) {
	for {
		envelope, err := c.readFrame()
		if err != nil {
			return protocol.Message[Resp]{}, err
		}
		if envelope.Headers.StreamID() != streamID {
			c.log.Debug("dropping frame for unmatched stream",
				zap.Int32("got_stream_id", envelope.Headers.StreamID()),
				zap.Int32("want_stream_id", streamID))
			continue
		}
		if envelope.Headers.MessageType() != protocol.MessageTypeApplication {
			return protocol.Message[Resp]{}, ipcerr.Newf(ipcerr.KindUnexpectedMessageType, "stream %d: got %v", streamID, envelope.Headers.MessageType())
		}

		terminated := envelope.Headers.MessageFlags().Has(protocol.FlagTerminateStream)
		switch {
		case lastResponse && !terminated:
			c.log.Warn("expected a terminal response but TerminateStream is absent", zap.Int32("stream_id", streamID))
		case !lastResponse && terminated:
			c.log.Warn("unexpected stream termination", zap.Int32("stream_id", streamID))
		}

		payload, err := protocol.DecodePayload[Resp](envelope.Payload)
		if err != nil {
			return protocol.Message[Resp]{}, err
		}
		return protocol.Message[Resp]{Headers: envelope.Headers, Payload: payload}, nil
	}
}

// ReadEnvelope reads the next frame off the connection without
// committing to a payload type, for callers that need to inspect headers
// before choosing how to decode the body. It does not filter by stream
// id. (The pause supervisor reads its subscription events with Await.)
func (c *Connection) ReadEnvelope() (protocol.Envelope, error) {
	return c.readFrame()
}

// Send writes msg without waiting for a reply, for fire-and-forget or
// subscribe-and-read-many call shapes (spec §4.5).
func Send[P any](c *Connection, msg protocol.Message[P]) error {
	return writeMessage(c, msg)
}

func writeMessage[P any](c *Connection, msg protocol.Message[P]) error {
	buf, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.writeAll(buf)
}

func (c *Connection) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.conn.Write(buf)
		if err != nil {
			return ipcerr.Wrap(ipcerr.KindIo, "write frame", err)
		}
		buf = buf[n:]
	}
	return nil
}

// readFrame reads exactly one frame: the fixed-size prelude, then the
// remainder indicated by its total_len, growing the internal buffer as
// needed. The returned Envelope's Payload borrows c.buf and is only valid
// until the next call to readFrame (spec §9, "borrowed vs owned parsed
// views"); its Headers are decoded into memory of their own and do not
// alias c.buf.
func (c *Connection) readFrame() (protocol.Envelope, error) {
	if _, err := io.ReadFull(c.conn, c.buf[:protocol.PreludeSize]); err != nil {
		return protocol.Envelope{}, ipcerr.Wrap(ipcerr.KindIo, "read prelude", err)
	}

	total, err := protocol.FrameLen(c.buf[:protocol.PreludeSize])
	if err != nil {
		return protocol.Envelope{}, err
	}
	if int(total) > len(c.buf) {
		grown := make([]byte, total)
		copy(grown, c.buf[:protocol.PreludeSize])
		c.buf = grown
	}

	if _, err := io.ReadFull(c.conn, c.buf[protocol.PreludeSize:total]); err != nil {
		return protocol.Envelope{}, ipcerr.Wrap(ipcerr.KindIo, "read frame body", err)
	}

	return protocol.DecodeEnvelope(c.buf[:total])
}

// Close closes the underlying socket. Blocked reads on this connection
// (e.g. a supervisor's subscription read) unblock with a KindIo error.
func (c *Connection) Close() error {
	return c.conn.Close()
}
