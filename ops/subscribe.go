package ops

import "github.com/aws-greengrass/nucleus-ipc/protocol"

// ComponentUpdateSubscriptionRequest carries no fields; the subscription
// is implied entirely by the operation header.
type ComponentUpdateSubscriptionRequest struct{}

// PreComponentUpdateEvent announces a pending component update that can
// still be deferred.
type PreComponentUpdateEvent struct {
	DeploymentID    string `json:"deploymentId"`
	IsGgcRestarting bool   `json:"isGgcRestarting"`
}

// PostComponentUpdateEvent announces a component update that has already
// happened; it cannot be deferred and elicits no action from the pause
// supervisor.
type PostComponentUpdateEvent struct {
	DeploymentID string `json:"deploymentId"`
}

// ComponentUpdateSubscriptionResponse is one event on the subscription
// stream. Per spec §4.5, exactly one of the two fields is present in
// practice, but implementations must tolerate either/both/neither.
type ComponentUpdateSubscriptionResponse struct {
	PreUpdateEvent  *PreComponentUpdateEvent  `json:"preUpdateEvent,omitempty"`
	PostUpdateEvent *PostComponentUpdateEvent `json:"postUpdateEvent,omitempty"`
}

const (
	subscribeModelType = "aws.greengrass#SubscribeToComponentUpdatesRequest"
	subscribeOperation = "aws.greengrass#SubscribeToComponentUpdates"
)

// NewSubscribeToComponentUpdates builds the subscription request for the
// given stream id. It carries no payload.
func NewSubscribeToComponentUpdates(streamID int32) protocol.Message[ComponentUpdateSubscriptionRequest] {
	headers := ipcCall(streamID, subscribeModelType, subscribeOperation)
	return protocol.NewMessage[ComponentUpdateSubscriptionRequest](headers, nil)
}
