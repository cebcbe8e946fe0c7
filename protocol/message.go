package protocol

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"math"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// Message is a single frame: a headers map and an optional JSON payload.
// Payload is a pointer so "no payload" (total_len-16-headers_len == 0)
// and "payload present" are distinguishable, matching spec §3.
type Message[P any] struct {
	Headers Headers
	Payload *P
}

// NewMessage builds a Message with the given headers and an optional
// payload.
func NewMessage[P any](headers Headers, payload *P) Message[P] {
	return Message[P]{Headers: headers, Payload: payload}
}

// Encode serializes m to its full wire representation: prelude, headers,
// JSON payload (if any), and the trailing whole-message CRC32/ISO-HDLC.
func Encode[P any](m Message[P]) ([]byte, error) {
	headersLen, err := m.Headers.sizeInBytes()
	if err != nil {
		return nil, err
	}

	var payloadBytes []byte
	if m.Payload != nil {
		payloadBytes, err = json.Marshal(m.Payload)
		if err != nil {
			return nil, ipcerr.Wrap(ipcerr.KindJSON, "encoding payload", err)
		}
	}
	if len(payloadBytes) > math.MaxUint32 {
		return nil, ipcerr.Newf(ipcerr.KindBufferTooLarge, "payload of %d bytes exceeds max %d", len(payloadBytes), uint32(math.MaxUint32))
	}
	payloadLen := uint32(len(payloadBytes))

	// 12 bytes prelude + headers + payload + 4 bytes trailing CRC.
	totalLen := uint64(PreludeSize) + uint64(headersLen) + uint64(payloadLen) + 4
	if totalLen > math.MaxUint32 {
		return nil, ipcerr.Newf(ipcerr.KindBufferTooLarge, "frame of %d bytes exceeds max %d", totalLen, uint32(math.MaxUint32))
	}

	prelude := Prelude{TotalLen: uint32(totalLen), HeadersLen: headersLen}
	buf := prelude.encode()

	buf, err = m.Headers.writeTo(buf)
	if err != nil {
		return nil, err
	}
	buf = append(buf, payloadBytes...)

	checksum := crc32.ChecksumIEEE(buf)
	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], checksum)
	buf = append(buf, crcBytes[:]...)

	return buf, nil
}

// Envelope is the shared, payload-type-independent result of parsing a
// frame: validated headers plus the raw payload bytes (empty when the
// frame carries no payload). The connection layer decodes an Envelope
// first to learn a frame's stream id before committing to a payload
// type, since frames for other in-flight streams may arrive interleaved
// with the one being awaited (spec §4.4).
type Envelope struct {
	Headers Headers
	Payload []byte
}

// DecodeEnvelope validates the prelude, the whole-message CRC, and the
// headers region of the frame occupying data[:n] (data may have trailing
// capacity beyond the frame; only the first n bytes, per the prelude's
// total_len, are examined). If the frame's message type is
// ApplicationError or InternalError, it returns the corresponding
// *ipcerr.Error instead of an Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	prelude, err := decodePrelude(data)
	if err != nil {
		return Envelope{}, err
	}
	if uint32(len(data)) < prelude.TotalLen {
		return Envelope{}, ipcerr.New(ipcerr.KindProtocol, "frame: truncated")
	}
	frame := data[:prelude.TotalLen]

	msgChecksum := crc32.ChecksumIEEE(frame[:len(frame)-4])
	wantChecksum := binary.BigEndian.Uint32(frame[len(frame)-4:])
	if msgChecksum != wantChecksum {
		return Envelope{}, ipcerr.New(ipcerr.KindChecksumMismatch, "message CRC mismatch")
	}

	headersBytes := frame[PreludeSize : PreludeSize+prelude.HeadersLen]
	headers, err := DecodeHeaders(headersBytes)
	if err != nil {
		return Envelope{}, err
	}
	reencodedLen, err := headers.sizeInBytes()
	if err != nil {
		return Envelope{}, err
	}
	if reencodedLen != prelude.HeadersLen {
		return Envelope{}, ipcerr.New(ipcerr.KindProtocol, "header size mismatch on re-encode")
	}

	payloadBytes := frame[PreludeSize+prelude.HeadersLen : len(frame)-4]

	switch headers.MessageType() {
	case MessageTypeApplicationError:
		return Envelope{}, ipcerr.New(ipcerr.KindApplication, decodeApplicationError(payloadBytes))
	case MessageTypeInternalError:
		return Envelope{}, ipcerr.New(ipcerr.KindInternalServer, decodeApplicationError(payloadBytes))
	}

	return Envelope{Headers: headers, Payload: payloadBytes}, nil
}

// decodeApplicationError renders an ApplicationError frame's payload
// (absent, a JSON string, or a JSON object) as a single human-readable
// string, per spec §4.3 ("attempt to decode the payload as a JSON string
// or object").
func decodeApplicationError(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return string(payload)
}

// Decode parses the full wire representation of a frame, including its
// JSON payload. data must contain at least one complete frame starting at
// offset 0 (trailing bytes beyond the frame, if any, are ignored).
func Decode[P any](data []byte) (Message[P], error) {
	frame, err := DecodeEnvelope(data)
	if err != nil {
		return Message[P]{}, err
	}
	payload, err := DecodePayload[P](frame.Payload)
	if err != nil {
		return Message[P]{}, err
	}
	return Message[P]{Headers: frame.Headers, Payload: payload}, nil
}

// DecodePayload unmarshals a raw JSON payload (as carried by an Envelope)
// into P. An empty payload decodes to a nil *P rather than a zero-valued
// P, matching the "present vs absent" distinction Message makes.
func DecodePayload[P any](raw []byte) (*P, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload P
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ipcerr.Wrap(ipcerr.KindJSON, "decoding payload", err)
	}
	return &payload, nil
}

// FrameLen returns the total length, in bytes, of the single frame at the
// start of data, without fully decoding it. Used by the connection to
// learn how many more bytes to read after the 12-byte prelude. data must
// be at least PreludeSize bytes.
func FrameLen(data []byte) (uint32, error) {
	prelude, err := decodePrelude(data)
	if err != nil {
		return 0, err
	}
	return prelude.TotalLen, nil
}
