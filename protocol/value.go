package protocol

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// ValueKind identifies which variant a Value holds. It is distinct from
// the wire type code: Bool has two wire codes (0 for false, 1 for true)
// but a single ValueKind.
type ValueKind byte

const (
	KindBool ValueKind = iota
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindByteBuffer
	KindString
	KindTimestamp
	KindUUID
)

const maxBufferLen = 0xFFFF // u16 length prefix on ByteBuffer/String

// Value is a typed header value, per the wire layout in spec §3. Only one
// of the fields is meaningful, selected by kind.
type Value struct {
	kind  ValueKind
	b     bool
	byt   byte
	i16   int16
	i32   int32
	i64   int64 // also backs Timestamp
	bytes []byte
	str   string
	uuid  uuid.UUID
}

func BoolValue(v bool) Value              { return Value{kind: KindBool, b: v} }
func ByteValue(v byte) Value              { return Value{kind: KindByte, byt: v} }
func Int16Value(v int16) Value            { return Value{kind: KindInt16, i16: v} }
func Int32Value(v int32) Value            { return Value{kind: KindInt32, i32: v} }
func Int64Value(v int64) Value            { return Value{kind: KindInt64, i64: v} }
func ByteBufferValue(v []byte) Value      { return Value{kind: KindByteBuffer, bytes: v} }
func StringValue(v string) Value          { return Value{kind: KindString, str: v} }
func TimestampValue(v int64) Value        { return Value{kind: KindTimestamp, i64: v} }
func UUIDValue(v uuid.UUID) Value         { return Value{kind: KindUUID, uuid: v} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsBool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) AsByte() (byte, bool)          { return v.byt, v.kind == KindByte }
func (v Value) AsInt16() (int16, bool)        { return v.i16, v.kind == KindInt16 }
func (v Value) AsInt32() (int32, bool)        { return v.i32, v.kind == KindInt32 }
func (v Value) AsInt64() (int64, bool)        { return v.i64, v.kind == KindInt64 }
func (v Value) AsByteBuffer() ([]byte, bool)  { return v.bytes, v.kind == KindByteBuffer }
func (v Value) AsString() (string, bool)      { return v.str, v.kind == KindString }
func (v Value) AsTimestamp() (int64, bool)    { return v.i64, v.kind == KindTimestamp }
func (v Value) AsUUID() (uuid.UUID, bool)     { return v.uuid, v.kind == KindUUID }

// typeCode returns the wire type byte that precedes the value's payload.
func (v Value) typeCode() byte {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindByte:
		return 2
	case KindInt16:
		return 3
	case KindInt32:
		return 4
	case KindInt64:
		return 5
	case KindByteBuffer:
		return 6
	case KindString:
		return 7
	case KindTimestamp:
		return 8
	case KindUUID:
		return 9
	default:
		return 0xFF
	}
}

// sizeInBytes returns the number of bytes this value occupies on the wire,
// including its one-byte type code.
func (v Value) sizeInBytes() (uint32, error) {
	switch v.kind {
	case KindBool:
		return 1, nil
	case KindByte:
		return 2, nil
	case KindInt16:
		return 3, nil
	case KindInt32:
		return 5, nil
	case KindInt64, KindTimestamp:
		return 9, nil
	case KindByteBuffer:
		if len(v.bytes) > maxBufferLen {
			return 0, ipcerr.Newf(ipcerr.KindBufferTooLarge, "byte buffer of %d bytes exceeds max %d", len(v.bytes), maxBufferLen)
		}
		return uint32(len(v.bytes)) + 3, nil
	case KindString:
		if len(v.str) > maxBufferLen {
			return 0, ipcerr.Newf(ipcerr.KindBufferTooLarge, "string of %d bytes exceeds max %d", len(v.str), maxBufferLen)
		}
		return uint32(len(v.str)) + 3, nil
	case KindUUID:
		return 17, nil
	default:
		return 0, ipcerr.New(ipcerr.KindProtocol, "unknown header value kind")
	}
}

// writeTo appends the wire encoding of v (type code + payload) to buf.
func (v Value) writeTo(buf []byte) ([]byte, error) {
	buf = append(buf, v.typeCode())

	switch v.kind {
	case KindBool:
		// No payload: the type code already distinguishes true/false.
	case KindByte:
		buf = append(buf, v.byt)
	case KindInt16:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(v.i16))
		buf = append(buf, tmp[:]...)
	case KindInt32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v.i32))
		buf = append(buf, tmp[:]...)
	case KindInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.i64))
		buf = append(buf, tmp[:]...)
	case KindByteBuffer:
		if len(v.bytes) > maxBufferLen {
			return nil, ipcerr.Newf(ipcerr.KindBufferTooLarge, "byte buffer of %d bytes exceeds max %d", len(v.bytes), maxBufferLen)
		}
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(len(v.bytes)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, v.bytes...)
	case KindString:
		if len(v.str) > maxBufferLen {
			return nil, ipcerr.Newf(ipcerr.KindBufferTooLarge, "string of %d bytes exceeds max %d", len(v.str), maxBufferLen)
		}
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(len(v.str)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, v.str...)
	case KindTimestamp:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.i64))
		buf = append(buf, tmp[:]...)
	case KindUUID:
		b := v.uuid
		buf = append(buf, b[:]...)
	default:
		return nil, ipcerr.New(ipcerr.KindProtocol, "unknown header value kind")
	}

	return buf, nil
}

// decodeValue reads one type-tagged value from the front of data, returning
// the value and the number of bytes consumed.
func decodeValue(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing type code")
	}
	code := data[0]
	rest := data[1:]

	switch code {
	case 0:
		return BoolValue(false), 1, nil
	case 1:
		return BoolValue(true), 1, nil
	case 2:
		if len(rest) < 1 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing byte")
		}
		return ByteValue(rest[0]), 2, nil
	case 3:
		if len(rest) < 2 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing int16")
		}
		return Int16Value(int16(binary.BigEndian.Uint16(rest))), 3, nil
	case 4:
		if len(rest) < 4 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing int32")
		}
		return Int32Value(int32(binary.BigEndian.Uint32(rest))), 5, nil
	case 5:
		if len(rest) < 8 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing int64")
		}
		return Int64Value(int64(binary.BigEndian.Uint64(rest))), 9, nil
	case 6:
		if len(rest) < 2 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing byte buffer length")
		}
		n := int(binary.BigEndian.Uint16(rest))
		if len(rest) < 2+n {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: truncated byte buffer")
		}
		buf := make([]byte, n)
		copy(buf, rest[2:2+n])
		return ByteBufferValue(buf), 1 + 2 + n, nil
	case 7:
		if len(rest) < 2 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing string length")
		}
		n := int(binary.BigEndian.Uint16(rest))
		if len(rest) < 2+n {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: truncated string")
		}
		if !utf8.Valid(rest[2 : 2+n]) {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: invalid UTF-8 string")
		}
		return StringValue(string(rest[2 : 2+n])), 1 + 2 + n, nil
	case 8:
		if len(rest) < 8 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing timestamp")
		}
		return TimestampValue(int64(binary.BigEndian.Uint64(rest))), 9, nil
	case 9:
		if len(rest) < 16 {
			return Value{}, 0, ipcerr.New(ipcerr.KindProtocol, "header value: missing UUID")
		}
		id, err := uuid.FromBytes(rest[:16])
		if err != nil {
			return Value{}, 0, ipcerr.Wrap(ipcerr.KindProtocol, "header value: invalid UUID", err)
		}
		return UUIDValue(id), 17, nil
	default:
		return Value{}, 0, ipcerr.Newf(ipcerr.KindProtocol, "header value: unknown type code %d", code)
	}
}
