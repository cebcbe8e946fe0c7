// Package supervisor implements the pause/resume "defer updates"
// background task (spec §4.6): it subscribes to component update events
// on a dedicated connection, defers every pre-update event it sees with
// a fixed recheck timeout, and ignores post-update events entirely.
// Grounded on original_source/src/paused_updates.rs's PausedUpdates;
// the teacher's ClientTransport.heartbeatLoop/NewClientTransport supplies
// the "owns a background goroutine that owns its own loop and exits
// cleanly when the connection breaks" shape.
package supervisor

import (
	"go.uber.org/zap"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
	"github.com/aws-greengrass/nucleus-ipc/ops"
	"github.com/aws-greengrass/nucleus-ipc/transport"
)

// Supervisor runs keep_paused's loop on a dedicated transport.Connection.
// It owns that connection for its entire lifetime: nothing else may use
// it, since Stop's cancellation works by closing the socket out from
// under a blocked read.
type Supervisor struct {
	conn     *transport.Connection
	streamID int32
	log      *zap.Logger

	stopped chan struct{}
}

// New subscribes to component update events over conn, which must not be
// used for anything else afterward. logger may be nil to discard log
// output.
func New(conn *transport.Connection, logger *zap.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	streamID, err := conn.NextStreamID()
	if err != nil {
		return nil, err
	}
	subscribeMsg := ops.NewSubscribeToComponentUpdates(streamID)
	if _, err := transport.Call[ops.ComponentUpdateSubscriptionRequest, ops.ComponentUpdateSubscriptionResponse](conn, subscribeMsg, false); err != nil {
		return nil, err
	}

	return &Supervisor{
		conn:     conn,
		streamID: streamID,
		log:      logger,
		stopped:  make(chan struct{}),
	}, nil
}

// Run drives the loop until the connection breaks or a fatal error
// triages as Io, InternalServer, or Protocol. It returns when the loop
// exits; callers typically run it in its own goroutine and call Stop to
// end it early.
func (s *Supervisor) Run() {
	defer close(s.stopped)
	for {
		update, err := transport.Await[ops.ComponentUpdateSubscriptionResponse](s.conn, s.streamID, false)
		if err != nil {
			if ipcerr.Is(err, ipcerr.KindIo) || ipcerr.Is(err, ipcerr.KindInternalServer) || ipcerr.Is(err, ipcerr.KindProtocol) {
				s.log.Error("pause supervisor stopping", zap.Error(err))
				return
			}
			s.log.Warn("pause supervisor: non-fatal error, continuing", zap.Error(err))
			continue
		}

		if update.Payload == nil {
			s.log.Warn("received component update event without a payload")
			continue
		}
		pre := update.Payload.PreUpdateEvent
		if pre == nil {
			s.log.Debug("no preUpdateEvent in update, ignoring")
			continue
		}

		if err := s.deferUpdate(pre.DeploymentID); err != nil {
			s.log.Error("error deferring component update",
				zap.String("deployment_id", pre.DeploymentID), zap.Error(err))
		}
	}
}

// deferUpdate issues a DeferComponentUpdate call for deploymentID.
// keep_paused defers unconditionally, with no rate limiting: a
// preUpdateEvent is a pause the component explicitly asked for, and
// dropping one to cap call volume would let an update proceed against
// that request. A caller that wants to bound call volume elsewhere can
// compose middleware.RateLimitMiddleware around its own calls.
func (s *Supervisor) deferUpdate(deploymentID string) error {
	streamID, err := s.conn.NextStreamID()
	if err != nil {
		return err
	}
	msg := ops.NewDeferComponentUpdate(streamID, deploymentID, nil, ops.DefaultDeferTimeout)
	_, err = transport.Call[ops.DeferComponentUpdateRequest, ops.DeferComponentUpdateResponse](s.conn, msg, true)
	return err
}

// Stop closes the supervisor's dedicated connection, unblocking a read
// in progress inside Run, then waits for Run to return.
func (s *Supervisor) Stop() {
	s.conn.Close()
	<-s.stopped
}
