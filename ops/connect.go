package ops

import "github.com/aws-greengrass/nucleus-ipc/protocol"

const (
	ipcVersion     = "0.1.0"
	ipcContentType = "application/json"
)

// ConnectRequest is the handshake payload: the auth token obtained from
// the component's environment (spec §6, typically SVCUID).
type ConnectRequest struct {
	AuthToken string `json:"authToken"`
}

// ConnectAck is the (empty) handshake response payload.
type ConnectAck struct{}

// NewConnect builds the Connect handshake message: stream id 0, empty
// flags, :version and :content-type headers, and the auth token payload.
func NewConnect(authToken string) protocol.Message[ConnectRequest] {
	headers := protocol.NewHeaders(0, protocol.MessageTypeConnect, protocol.FlagNone)
	headers.Set(protocol.HeaderVersion, protocol.StringValue(ipcVersion))
	headers.Set(protocol.HeaderContentType, protocol.StringValue(ipcContentType))

	payload := ConnectRequest{AuthToken: authToken}
	return protocol.NewMessage(headers, &payload)
}
