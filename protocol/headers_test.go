package protocol

import (
	"strings"
	"testing"
)

func TestHeadersRoundTrip(t *testing.T) {
	h := NewHeaders(7, MessageTypeApplication, FlagTerminateStream)
	h.Set("operation", StringValue("aws.greengrass#UpdateState"))
	h.Set("count", Int16Value(42))

	size, err := h.sizeInBytes()
	if err != nil {
		t.Fatalf("sizeInBytes: %v", err)
	}
	buf, err := h.writeTo(nil)
	if err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if uint32(len(buf)) != size {
		t.Fatalf("encoded len = %d, sizeInBytes = %d", len(buf), size)
	}

	got, err := DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	if got.StreamID() != 7 {
		t.Errorf("StreamID = %d, want 7", got.StreamID())
	}
	if got.MessageType() != MessageTypeApplication {
		t.Errorf("MessageType = %v, want Application", got.MessageType())
	}
	if !got.MessageFlags().Has(FlagTerminateStream) {
		t.Errorf("expected TerminateStream flag set")
	}
	op, ok := got.Get("operation")
	if !ok {
		t.Fatal("missing operation header")
	}
	if s, _ := op.AsString(); s != "aws.greengrass#UpdateState" {
		t.Errorf("operation = %q", s)
	}
}

func TestDecodeHeadersMissingMandatoryHeader(t *testing.T) {
	// Build a headers blob missing :message-flags entirely.
	h := Headers{
		HeaderStreamID:    Int32Value(1),
		HeaderMessageType: Int32Value(int32(MessageTypeApplication)),
	}
	buf, err := h.writeTo(nil)
	if err != nil {
		t.Fatalf("writeTo: %v", err)
	}

	_, err = DecodeHeaders(buf)
	if err == nil {
		t.Fatal("expected MissingHeader error")
	}
}

func TestDecodeHeadersUnknownMessageType(t *testing.T) {
	h := Headers{
		HeaderStreamID:     Int32Value(1),
		HeaderMessageType:  Int32Value(99),
		HeaderMessageFlags: Int32Value(0),
	}
	buf, err := h.writeTo(nil)
	if err != nil {
		t.Fatalf("writeTo: %v", err)
	}

	_, err = DecodeHeaders(buf)
	if err == nil {
		t.Fatal("expected Protocol error for unknown message type")
	}
}

func TestEncodeRejectsOversizeHeaderName(t *testing.T) {
	h := Headers{strings.Repeat("x", 256): BoolValue(true)}
	if _, err := h.writeTo(nil); err == nil {
		t.Fatal("expected error for header name > 255 bytes")
	}
	if _, err := h.sizeInBytes(); err == nil {
		t.Fatal("expected error computing size of oversize header name")
	}
}

func TestEncodeRejectsOversizeStringValue(t *testing.T) {
	v := StringValue(strings.Repeat("a", maxBufferLen+1))
	if _, err := v.writeTo(nil); err == nil {
		t.Fatal("expected error for string value exceeding 65535 bytes")
	}
}
