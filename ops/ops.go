// Package ops builds the four message shapes the nucleus IPC protocol
// defines: the Connect handshake, SubscribeToComponentUpdates,
// DeferComponentUpdate, and UpdateState. Each builder returns a fully
// formed protocol.Message with the correct reserved and application
// headers, grounded on original_source/src/protocol/message/{handshake,
// state,component_update}.rs for header names, payload field casing, and
// the teacher's transport.ClientTransport.Send for the
// build-headers-then-payload-then-hand-to-the-codec shape.
package ops

import "github.com/aws-greengrass/nucleus-ipc/protocol"

// ipcCall builds the Application-typed headers shared by every non-
// handshake operation: the reserved stream-id/message-type/message-flags
// triple plus the service-model-type/operation pair that names the call,
// mirroring original_source's Message::ipc_call.
func ipcCall(streamID int32, serviceModelType, operation string) protocol.Headers {
	headers := protocol.NewHeaders(streamID, protocol.MessageTypeApplication, protocol.FlagNone)
	headers.Set(protocol.HeaderServiceModel, protocol.StringValue(serviceModelType))
	headers.Set(protocol.HeaderOperation, protocol.StringValue(operation))
	return headers
}
