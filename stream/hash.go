package stream

import (
	"encoding/hex"
	"hash/crc32"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/zeebo/blake3"
)

// ComputeSum computes the BLAKE3-256 digest of the given bytes.
func ComputeSum(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// SumValue serializes v with tagjson and digests the result. Equal values
// have equal sums since the encoding sorts keys.
func SumValue(v any) ([32]byte, error) {
	data, err := tagjson.Serialize(v)
	if err != nil {
		return [32]byte{}, err
	}
	return ComputeSum(data), nil
}

// VerifySum checks that data digests to expected.
func VerifySum(data []byte, expected [32]byte) bool {
	return ComputeSum(data) == expected
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string to a 32-byte hash.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}

// ============================================================
// Frame Checks
// ============================================================

// WireCRC computes the CRC-32 (IEEE) carried in a frame's crc field. It
// covers the payload as sent, after compression.
func WireCRC(wire []byte) uint32 {
	return crc32.ChecksumIEEE(wire)
}

// checkWire compares the frame's CRC, if any, with the bytes read.
func checkWire(f *Frame, wire []byte) error {
	if f.CRC == nil {
		return nil
	}
	if got := WireCRC(wire); got != *f.CRC {
		return &CRCMismatchError{Seq: f.Seq, Expected: *f.CRC, Got: got}
	}
	return nil
}

// checkSum compares the frame's digest, if any, with its decompressed
// payload.
func checkSum(f *Frame) error {
	if f.Sum == nil {
		return nil
	}
	if got := ComputeSum(f.Payload); got != *f.Sum {
		return &SumMismatchError{Seq: f.Seq, Expected: *f.Sum, Got: got}
	}
	return nil
}
