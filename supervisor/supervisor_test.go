package supervisor

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aws-greengrass/nucleus-ipc/ops"
	"github.com/aws-greengrass/nucleus-ipc/protocol"
	"github.com/aws-greengrass/nucleus-ipc/transport"
)

func readRawFrame(conn net.Conn) ([]byte, error) {
	prelude := make([]byte, protocol.PreludeSize)
	if _, err := io.ReadFull(conn, prelude); err != nil {
		return nil, err
	}
	total, err := protocol.FrameLen(prelude)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, total)
	copy(frame, prelude)
	if _, err := io.ReadFull(conn, frame[protocol.PreludeSize:]); err != nil {
		return nil, err
	}
	return frame, nil
}

func writeRawMessage[P any](conn net.Conn, msg protocol.Message[P]) error {
	buf, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	_, err = conn.Write(buf)
	return err
}

func dialSupervisor(t *testing.T, serverFunc func(t *testing.T, conn net.Conn)) (*transport.Connection, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nucleus.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	accepted := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err != nil {
			t.Errorf("accept: %v", err)
			close(accepted)
			return
		}
		if _, err := readRawFrame(conn); err != nil {
			t.Errorf("read connect: %v", err)
			close(accepted)
			return
		}
		ack := protocol.NewMessage[ops.ConnectAck](protocol.NewHeaders(0, protocol.MessageTypeConnectAck, protocol.FlagConnectionAccept), nil)
		if err := writeRawMessage(conn, ack); err != nil {
			t.Errorf("write ack: %v", err)
			close(accepted)
			return
		}
		close(accepted)
		serverFunc(t, conn)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := transport.Dial(ctx, path, "token", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	<-accepted

	return conn, func() { l.Close() }
}

func TestSupervisorDefersPreUpdateEvent(t *testing.T) {
	deferSeen := make(chan string, 1)

	conn, cleanup := dialSupervisor(t, func(t *testing.T, sc net.Conn) {
		defer sc.Close()

		// 1: SubscribeToComponentUpdates request, reply with an empty ack.
		if _, err := readRawFrame(sc); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		ack := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{})
		if err := writeRawMessage(sc, ack); err != nil {
			t.Errorf("write subscribe ack: %v", err)
			return
		}

		// 2: push one preUpdateEvent on the same stream.
		event := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{
				PreUpdateEvent: &ops.PreComponentUpdateEvent{DeploymentID: "dep-1"},
			})
		if err := writeRawMessage(sc, event); err != nil {
			t.Errorf("write event: %v", err)
			return
		}

		// 3: expect a DeferComponentUpdate call in response.
		deferFrame, err := readRawFrame(sc)
		if err != nil {
			t.Errorf("read defer call: %v", err)
			return
		}
		deferMsg, err := protocol.Decode[ops.DeferComponentUpdateRequest](deferFrame)
		if err != nil {
			t.Errorf("decode defer call: %v", err)
			return
		}
		deferSeen <- deferMsg.Payload.DeploymentID

		deferAck := protocol.NewMessage(protocol.NewHeaders(deferMsg.Headers.StreamID(), protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.DeferComponentUpdateResponse{})
		writeRawMessage(sc, deferAck)

		// Block until the test closes the connection.
		io.Copy(io.Discard, sc)
	})
	defer cleanup()

	sup, err := New(conn, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go sup.Run()
	defer sup.Stop()

	select {
	case deploymentID := <-deferSeen:
		if deploymentID != "dep-1" {
			t.Fatalf("deployment id = %q, want dep-1", deploymentID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no DeferComponentUpdate call observed")
	}
}

func TestSupervisorIgnoresPostUpdateEvent(t *testing.T) {
	noDefer := make(chan struct{})

	conn, cleanup := dialSupervisor(t, func(t *testing.T, sc net.Conn) {
		defer sc.Close()

		if _, err := readRawFrame(sc); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		ack := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{})
		if err := writeRawMessage(sc, ack); err != nil {
			t.Errorf("write subscribe ack: %v", err)
			return
		}

		event := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{
				PostUpdateEvent: &ops.PostComponentUpdateEvent{DeploymentID: "dep-2"},
			})
		if err := writeRawMessage(sc, event); err != nil {
			t.Errorf("write event: %v", err)
			return
		}

		close(noDefer)
		io.Copy(io.Discard, sc)
	})
	defer cleanup()

	sup, err := New(conn, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go sup.Run()
	defer sup.Stop()

	<-noDefer
	// No DeferComponentUpdate call arrives for a post-update event;
	// give the (absent) call a moment to show up before concluding.
	time.Sleep(200 * time.Millisecond)
}

func TestSupervisorStopUnblocksRun(t *testing.T) {
	conn, cleanup := dialSupervisor(t, func(t *testing.T, sc net.Conn) {
		defer sc.Close()
		if _, err := readRawFrame(sc); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		ack := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{})
		writeRawMessage(sc, ack)
		io.Copy(io.Discard, sc)
	})
	defer cleanup()

	sup, err := New(conn, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runReturned := make(chan struct{})
	go func() {
		sup.Run()
		close(runReturned)
	}()

	go sup.Stop()

	select {
	case <-runReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestSupervisorLogsFatalErrorAndStops(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	conn, cleanup := dialSupervisor(t, func(t *testing.T, sc net.Conn) {
		if _, err := readRawFrame(sc); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		ack := protocol.NewMessage(protocol.NewHeaders(1, protocol.MessageTypeApplication, protocol.FlagNone),
			&ops.ComponentUpdateSubscriptionResponse{})
		writeRawMessage(sc, ack)
		sc.Close() // break the connection; Run should see a KindIo error.
	})
	defer cleanup()

	sup, err := New(conn, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runReturned := make(chan struct{})
	go func() {
		sup.Run()
		close(runReturned)
	}()

	select {
	case <-runReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the remote connection closed")
	}
	if logs.Len() == 0 {
		t.Fatal("expected an error log on fatal disconnect")
	}
}
