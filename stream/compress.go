package stream

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("stream: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
	if err != nil {
		panic("stream: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the zstd encoding of data, or ok=false when it would
// not be smaller.
func compress(data []byte) (out []byte, ok bool) {
	out = zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, false
	}
	return out, true
}

func decompress(data []byte, max int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompress")
	}
	if len(out) > max {
		return nil, &ParseError{Reason: fmt.Sprintf("decompressed payload too large: %d > %d", len(out), max), Offset: -1}
	}
	return out, nil
}

// IsZstd reports whether data starts with the zstd frame magic number.
func IsZstd(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd
}

// Decompress decodes a whole zstd stream, such as a compressed frame file.
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompress")
	}
	return out, nil
}
