// Package client is the public entry point of the nucleus IPC module: a
// Client owns one primary transport.Connection and, once paused, an
// optional supervisor.Supervisor running on its own dedicated
// connection. Grounded on the teacher's client.Client for the "one
// struct owns the shared resources, exposes a handful of call verbs"
// shape, scaled down from its registry/balancer/transport-pool fields
// (nothing here to discover or balance across — spec §1) to the single
// connection + optional supervisor handle spec §4.7 describes.
package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
	"github.com/aws-greengrass/nucleus-ipc/middleware"
	"github.com/aws-greengrass/nucleus-ipc/ops"
	"github.com/aws-greengrass/nucleus-ipc/supervisor"
	"github.com/aws-greengrass/nucleus-ipc/transport"
)

// Client is the component process's handle onto the nucleus. It is not
// safe for concurrent calls on the primary connection (spec §4.4); a
// caller needing overlapping in-flight requests should open a second
// Client against the same socket path instead.
type Client struct {
	socketPath string
	authToken  string
	log        *zap.Logger

	primary *transport.Connection

	mu  sync.Mutex
	sup *supervisor.Supervisor
}

// New dials socketPath, performs the Connect handshake with authToken,
// and returns a ready Client. logger may be nil to discard log output.
func New(ctx context.Context, socketPath, authToken string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := transport.Dial(ctx, socketPath, authToken, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		socketPath: socketPath,
		authToken:  authToken,
		log:        logger,
		primary:    conn,
	}, nil
}

// UpdateState reports the component's lifecycle state to the nucleus.
// Wrapped in middleware.LoggingMiddleware so every call's outcome and
// duration lands in the façade's logger (spec §4.8's caller-side seam).
func (c *Client) UpdateState(state ops.LifecycleState) error {
	handler := middleware.LoggingMiddleware(c.log, "UpdateState")(func(ctx context.Context) error {
		streamID, err := c.primary.NextStreamID()
		if err != nil {
			return err
		}
		_, err = transport.Call[ops.UpdateStateRequest, ops.UpdateStateResponse](c.primary, ops.NewUpdateState(streamID, state), true)
		return err
	})
	return handler(context.Background())
}

// PauseComponentUpdate starts the pause/resume supervisor on a second,
// dedicated connection, if it isn't already running. Calling it again
// while already paused is a no-op (spec §4.6, idempotent pause).
func (c *Client) PauseComponentUpdate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sup != nil {
		return nil
	}

	conn, err := transport.Dial(ctx, c.socketPath, c.authToken, c.log)
	if err != nil {
		return err
	}
	sup, err := supervisor.New(conn, c.log)
	if err != nil {
		conn.Close()
		return err
	}
	c.sup = sup
	go sup.Run()
	return nil
}

// ResumeComponentUpdate stops the pause supervisor, if running, and
// waits for its connection to close. Calling it while not paused is a
// no-op.
func (c *Client) ResumeComponentUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sup == nil {
		return
	}
	c.sup.Stop()
	c.sup = nil
}

// Close stops the pause supervisor, if running, and closes the primary
// connection. The Client must not be used afterward.
func (c *Client) Close() error {
	c.ResumeComponentUpdate()
	if err := c.primary.Close(); err != nil {
		return ipcerr.Wrap(ipcerr.KindIo, "closing primary connection", err)
	}
	return nil
}
