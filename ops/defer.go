package ops

import (
	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
	"github.com/aws-greengrass/nucleus-ipc/protocol"
)

// RecheckAfterMs is the defer-recheck timeout carried in a
// DeferComponentUpdate request: either DontDefer (encodes as 0) or
// Defer(ms) for ms >= 1 (spec §3).
type RecheckAfterMs uint64

// DontDefer reports that the update should proceed immediately.
func DontDefer() RecheckAfterMs { return 0 }

// Defer requests a recheck after ms milliseconds. ms must be at least 1.
func Defer(ms uint64) (RecheckAfterMs, error) {
	if ms < 1 {
		return 0, ipcerr.New(ipcerr.KindProtocol, "recheckAfterMs: Defer requires ms >= 1")
	}
	return RecheckAfterMs(ms), nil
}

// DefaultDeferTimeout is the pause supervisor's fixed default recheck
// delay: one minute.
const DefaultDeferTimeout = RecheckAfterMs(60_000)

// DeferComponentUpdateRequest asks the nucleus to delay a pending
// component update.
type DeferComponentUpdateRequest struct {
	DeploymentID   string  `json:"deploymentId"`
	Message        *string `json:"message,omitempty"`
	RecheckAfterMs uint64  `json:"recheckAfterMs"`
}

// DeferComponentUpdateResponse is the (empty) response payload.
type DeferComponentUpdateResponse struct{}

const (
	deferModelType = "aws.greengrass#DeferComponentUpdateRequest"
	deferOperation = "aws.greengrass#DeferComponentUpdate"
)

// NewDeferComponentUpdate builds a DeferComponentUpdate request.
// componentName is optional (nil omits the "message" field entirely).
func NewDeferComponentUpdate(streamID int32, deploymentID string, componentName *string, recheck RecheckAfterMs) protocol.Message[DeferComponentUpdateRequest] {
	headers := ipcCall(streamID, deferModelType, deferOperation)
	payload := DeferComponentUpdateRequest{
		DeploymentID:   deploymentID,
		Message:        componentName,
		RecheckAfterMs: uint64(recheck),
	}
	return protocol.NewMessage(headers, &payload)
}
