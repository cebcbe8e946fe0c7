// Package protocol implements the nucleus IPC wire codec: the 12-byte
// frame prelude, typed headers, and the full frame (prelude + headers +
// JSON payload + trailing CRC). It has no teacher analog in mini-rpc's
// 14-byte fixed header, but follows the same "fixed header announces the
// length of what follows" shape — see Prelude.encode and decodePrelude
// below for the structural parallel.
package protocol

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// PreludeSize is the fixed size, in bytes, of a frame's prelude.
const PreludeSize = 12

// minFrameSize is the smallest a valid total_len can be: the prelude plus
// the trailing message CRC, with no headers and no payload.
const minFrameSize = 16

// Prelude is the fixed leading 12 bytes of every frame: the total frame
// length, the length of the encoded headers, and a CRC32/ISO-HDLC over
// the first 8 bytes.
type Prelude struct {
	TotalLen   uint32
	HeadersLen uint32
}

// encode writes the 12-byte prelude (including its own CRC) to buf.
func (p Prelude) encode() []byte {
	buf := make([]byte, PreludeSize)
	binary.BigEndian.PutUint32(buf[0:4], p.TotalLen)
	binary.BigEndian.PutUint32(buf[4:8], p.HeadersLen)
	binary.BigEndian.PutUint32(buf[8:12], crc32.ChecksumIEEE(buf[0:8]))
	return buf
}

// decodePrelude parses and validates the 12-byte prelude at the start of
// data. data must be at least PreludeSize bytes.
func decodePrelude(data []byte) (Prelude, error) {
	if len(data) < PreludeSize {
		return Prelude{}, ipcerr.New(ipcerr.KindProtocol, "prelude: truncated")
	}

	totalLen := binary.BigEndian.Uint32(data[0:4])
	headersLen := binary.BigEndian.Uint32(data[4:8])
	wantCRC := binary.BigEndian.Uint32(data[8:12])

	if gotCRC := crc32.ChecksumIEEE(data[0:8]); gotCRC != wantCRC {
		return Prelude{}, ipcerr.New(ipcerr.KindProtocol, "prelude: CRC mismatch")
	}
	if totalLen < minFrameSize {
		return Prelude{}, ipcerr.Newf(ipcerr.KindProtocol, "prelude: total_len %d below minimum %d", totalLen, minFrameSize)
	}
	if headersLen > totalLen-minFrameSize {
		return Prelude{}, ipcerr.Newf(ipcerr.KindProtocol, "prelude: headers_len %d exceeds total_len-16 (%d)", headersLen, totalLen-minFrameSize)
	}

	return Prelude{TotalLen: totalLen, HeadersLen: headersLen}, nil
}
