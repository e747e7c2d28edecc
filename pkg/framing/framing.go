// Package framing implements the fixed-header record format shared by every
// table in pkg/store: magic, version, reserved, length, CRC32C, padding,
// payload. Every value written to the KV substrate passes through Encode
// once and is verified through Decode on every read.
package framing

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Magic identifies a ConvergeDB frame. Any other leading bytes are treated
// as foreign data and rejected.
var Magic = [4]byte{'C', 'V', 'R', 'G'}

// Version is the current frame format version. A frame written with a
// different version fails to decode with ErrVersionMismatch rather than
// being silently misinterpreted.
const Version byte = 1

// headerSize is magic(4) + version(1) + reserved(3) + length(4) + crc32c(4).
const headerSize = 4 + 1 + 3 + 4 + 4

// castagnoli is the CRC32C polynomial table used for frame integrity.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Encode wraps payload in a frame whose payload start is aligned to align
// bytes past the header. align must be a power of two (1, 4, 8, 16); 1 means
// no padding. The returned slice is a fresh allocation.
func Encode(payload []byte, align int) []byte {
	pad := paddingFor(align)
	out := make([]byte, headerSize+pad+len(payload))

	copy(out[0:4], Magic[:])
	out[4] = Version
	// out[5:8] reserved, left zero.
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(payload)))

	sum := crc32.Checksum(payload, castagnoli)
	binary.LittleEndian.PutUint32(out[12:16], sum)

	copy(out[headerSize+pad:], payload)
	return out
}

// paddingFor returns the number of padding bytes needed so that the payload
// (which starts at headerSize+pad) lands on an `align`-byte boundary,
// measured from the start of the frame. align<=1 means no alignment is
// requested.
func paddingFor(align int) int {
	if align <= 1 {
		return 0
	}
	rem := headerSize % align
	if rem == 0 {
		return 0
	}
	return align - rem
}

// Decode verifies and strips a frame, returning the payload. The returned
// slice aliases buf — callers that need the bytes to outlive buf's backing
// storage (e.g. a transaction-scoped mmap view) must copy it themselves;
// pkg/store handles that distinction via its alignment check.
func Decode(buf []byte) ([]byte, error) {
	if len(buf) < headerSize {
		return nil, hyberr.New(hyberr.Serialization, "framing.Decode", "frame shorter than header")
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return nil, hyberr.New(hyberr.Serialization, "framing.Decode", "bad magic")
	}
	if buf[4] != Version {
		return nil, hyberr.Newf(hyberr.VersionMismatch, "framing.Decode", "frame version %d, want %d", buf[4], Version)
	}

	length := binary.LittleEndian.Uint32(buf[8:12])
	wantSum := binary.LittleEndian.Uint32(buf[12:16])

	// Payload may be preceded by padding; search from the end since length
	// is authoritative and the header declares no explicit padding count.
	if int(length) > len(buf)-headerSize {
		return nil, hyberr.New(hyberr.Serialization, "framing.Decode", "declared length exceeds frame size")
	}
	payload := buf[len(buf)-int(length):]

	gotSum := crc32.Checksum(payload, castagnoli)
	if gotSum != wantSum {
		return nil, hyberr.New(hyberr.CrcMismatch, "framing.Decode", "checksum mismatch")
	}

	return payload, nil
}

// IsAligned reports whether offset (an absolute offset, such as a page-relative
// byte offset within a mapped file) gives a payload start aligned to align
// bytes. pkg/store uses this to decide between a zero-copy borrow and a
// one-time defensive copy.
func IsAligned(offset int, align int) bool {
	if align <= 1 {
		return true
	}
	return (offset+headerSize)%align == 0
}
