package ops

import "github.com/aws-greengrass/nucleus-ipc/protocol"

// LifecycleState is the component lifecycle state reported via
// UpdateState.
type LifecycleState string

const (
	LifecycleRunning LifecycleState = "RUNNING"
	LifecycleErrored LifecycleState = "ERRORED"
)

// UpdateStateRequest reports the component's current lifecycle state.
type UpdateStateRequest struct {
	State LifecycleState `json:"state"`
}

// UpdateStateResponse is the (empty) response payload.
type UpdateStateResponse struct{}

const (
	updateStateModelType = "aws.greengrass#UpdateStateRequest"
	updateStateOperation = "aws.greengrass#UpdateState"
)

// NewUpdateState builds an UpdateState request for the given stream id.
func NewUpdateState(streamID int32, state LifecycleState) protocol.Message[UpdateStateRequest] {
	headers := ipcCall(streamID, updateStateModelType, updateStateOperation)
	payload := UpdateStateRequest{State: state}
	return protocol.NewMessage(headers, &payload)
}
