// Package stream implements framing for sequences of tagged JSON records.
//
// Each record travels as one frame:
//
//	@frame{v=1 seq=N len=N [crc=X] [sum=blake3:X] [zstd=true] [final=true]}\n
//	<payload bytes>\n
//
// The header gives:
//   - Message boundaries (len counts payload bytes on the wire)
//   - Ordering via sequence numbers (seq)
//   - Transport integrity via optional CRC-32 of the wire bytes
//   - Content identity via optional BLAKE3 digest of the tagged JSON
//   - Optional zstd compression of the payload
//
// Headers are not part of the tagged JSON; the payload is passed to
// tagjson unchanged.
package stream

import (
	"fmt"
)

// Version is the frame protocol version.
const Version uint8 = 1

// Frame is a single framed record.
type Frame struct {
	Version uint8  // Protocol version (must be 1)
	Seq     uint64 // Sequence number, monotonic per stream
	Payload []byte // Tagged JSON, uncompressed

	// Optional fields
	CRC        *uint32   // CRC-32 of the wire payload (nil if not present)
	Sum        *[32]byte // BLAKE3 of Payload (nil if not present)
	Compressed bool      // Payload travels zstd-compressed
	Final      bool      // End-of-stream marker

	// WireLen is the payload length on the wire. Set by Reader.
	WireLen int
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// HasSum returns true if a content digest is present.
func (f *Frame) HasSum() bool {
	return f.Sum != nil
}

// MaxPayloadSize is the default maximum payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// ParseError reports a malformed frame.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("frame: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("frame: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Seq      uint64
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("frame %d: CRC mismatch: expected %08x, got %08x", e.Seq, e.Expected, e.Got)
}

// SumMismatchError is returned when the content digest does not match.
type SumMismatchError struct {
	Seq      uint64
	Expected [32]byte
	Got      [32]byte
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("frame %d: blake3 mismatch: expected %s, got %s", e.Seq, HashToHex(e.Expected), HashToHex(e.Got))
}

// SequenceError is returned by a Cursor for out-of-order frames.
type SequenceError struct {
	Expected uint64
	Got      uint64
	Reason   string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("frame %d: %s (expected %d)", e.Got, e.Reason, e.Expected)
}
