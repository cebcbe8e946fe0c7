package protocol

import (
	"unicode/utf8"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

const maxHeaderNameLen = 255

// Header names. The first three are reserved: they must be present, typed
// Int32, on every parsed frame. The rest are standard optional names.
const (
	HeaderStreamID      = ":stream-id"
	HeaderMessageType   = ":message-type"
	HeaderMessageFlags  = ":message-flags"
	HeaderVersion       = ":version"
	HeaderContentType   = ":content-type"
	HeaderServiceModel  = "service-model-type"
	HeaderOperation     = "operation"
)

// Headers is the name -> typed-value map carried by every frame. Ordering
// is not semantically significant (spec §4.2) so a Go map is a faithful,
// idiomatic representation.
type Headers map[string]Value

// NewHeaders builds the reserved :stream-id/:message-type/:message-flags
// triple that every frame must carry.
func NewHeaders(streamID int32, msgType MessageType, flags MessageFlags) Headers {
	return Headers{
		HeaderStreamID:     Int32Value(streamID),
		HeaderMessageType:  Int32Value(int32(msgType)),
		HeaderMessageFlags: Int32Value(int32(flags)),
	}
}

// StreamID returns the :stream-id header. Only valid to call on headers
// that have passed DecodeHeaders or NewHeaders, both of which guarantee
// its presence and type.
func (h Headers) StreamID() int32 {
	v, _ := h[HeaderStreamID]
	id, _ := v.AsInt32()
	return id
}

// MessageType returns the :message-type header.
func (h Headers) MessageType() MessageType {
	v := h[HeaderMessageType]
	t, _ := v.AsInt32()
	return MessageType(t)
}

// MessageFlags returns the :message-flags header.
func (h Headers) MessageFlags() MessageFlags {
	v := h[HeaderMessageFlags]
	f, _ := v.AsInt32()
	return MessageFlags(f)
}

// Set inserts or overwrites a header value.
func (h Headers) Set(name string, v Value) { h[name] = v }

// Get looks up a header by name.
func (h Headers) Get(name string) (Value, bool) {
	v, ok := h[name]
	return v, ok
}

// sizeInBytes returns the encoded size of all headers, including each
// name's one-byte length prefix.
func (h Headers) sizeInBytes() (uint32, error) {
	var total uint32
	for name, v := range h {
		if len(name) > maxHeaderNameLen {
			return 0, ipcerr.Newf(ipcerr.KindProtocol, "header name %q exceeds %d bytes", name, maxHeaderNameLen)
		}
		total += 1 + uint32(len(name))
		sz, err := v.sizeInBytes()
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// writeTo appends the wire encoding of every header to buf.
func (h Headers) writeTo(buf []byte) ([]byte, error) {
	var err error
	for name, v := range h {
		if len(name) > maxHeaderNameLen {
			return nil, ipcerr.Newf(ipcerr.KindProtocol, "header name %q exceeds %d bytes", name, maxHeaderNameLen)
		}
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
		buf, err = v.writeTo(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeHeaders parses a contiguous run of name/value pairs, then verifies
// that :stream-id, :message-type, and :message-flags are all present and
// of type Int32, and that :message-type is one of the nine defined
// codes (0-8). Absence or a type mismatch on a reserved header surfaces as
// MissingHeader; an unrecognized message type surfaces as Protocol.
func DecodeHeaders(data []byte) (Headers, error) {
	headers := make(Headers)

	for len(data) > 0 {
		if len(data) < 1 {
			return nil, ipcerr.New(ipcerr.KindProtocol, "header name: missing length")
		}
		nameLen := int(data[0])
		data = data[1:]
		if len(data) < nameLen {
			return nil, ipcerr.New(ipcerr.KindProtocol, "header name: truncated")
		}
		nameBytes := data[:nameLen]
		if !utf8.Valid(nameBytes) {
			return nil, ipcerr.New(ipcerr.KindProtocol, "header name: invalid UTF-8")
		}
		name := string(nameBytes)
		data = data[nameLen:]

		value, consumed, err := decodeValue(data)
		if err != nil {
			return nil, err
		}
		data = data[consumed:]

		headers[name] = value
	}

	if err := requireInt32Header(headers, HeaderStreamID); err != nil {
		return nil, err
	}
	if err := requireInt32Header(headers, HeaderMessageType); err != nil {
		return nil, err
	}
	mt := headers[HeaderMessageType]
	mtVal, _ := mt.AsInt32()
	if !MessageType(mtVal).Valid() {
		return nil, ipcerr.Newf(ipcerr.KindProtocol, "unknown message type %d", mtVal)
	}
	if err := requireInt32Header(headers, HeaderMessageFlags); err != nil {
		return nil, err
	}

	return headers, nil
}

func requireInt32Header(headers Headers, name string) error {
	v, ok := headers[name]
	if !ok {
		return ipcerr.Newf(ipcerr.KindMissingHeader, "%s", name)
	}
	if _, ok := v.AsInt32(); !ok {
		return ipcerr.Newf(ipcerr.KindMissingHeader, "%s: wrong type", name)
	}
	return nil
}

// Clone returns a deep copy of h, safe to retain beyond the lifetime of
// the read buffer a borrowed Headers may have been parsed from (see spec
// §9, "Borrowed vs owned parsed views").
func (h Headers) Clone() Headers {
	clone := make(Headers, len(h))
	for name, v := range h {
		if bb, ok := v.AsByteBuffer(); ok {
			cp := make([]byte, len(bb))
			copy(cp, bb)
			v = ByteBufferValue(cp)
		}
		clone[name] = v
	}
	return clone
}
