package stream

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/pkg/errors"
)

// Writer writes frames to an io.Writer.
type Writer struct {
	w         io.Writer
	withCRC   bool // Whether to compute and include CRC
	withSum   bool // Whether to compute and include the BLAKE3 digest
	compress  bool // Whether to zstd-compress payloads that shrink
	serialize tagjson.SerializeOptions
	seq       uint64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCRC adds a CRC-32 of the wire payload to every frame.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithSum adds a BLAKE3 digest of the tagged JSON to every frame.
func WithSum() WriterOption {
	return func(w *Writer) {
		w.withSum = true
	}
}

// WithCompression zstd-compresses payloads when that makes them smaller.
func WithCompression() WriterOption {
	return func(w *Writer) {
		w.compress = true
	}
}

// WithSerializeOptions sets the options WriteValue serializes with.
func WithSerializeOptions(opts tagjson.SerializeOptions) WriterOption {
	return func(w *Writer) {
		w.serialize = opts
	}
}

// NewWriter creates a frame writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// Seq returns the sequence number of the last frame written.
func (w *Writer) Seq() uint64 {
	return w.seq
}

// WriteFrame writes a single frame. CRC, digest and compression follow the
// writer's options; a Sum already set on f is written as given.
//
// Format:
//
//	@frame{v=1 seq=N len=N [crc=X] [sum=blake3:X] [zstd=true] [final=true]}\n
//	<payload bytes>\n
func (w *Writer) WriteFrame(f *Frame) error {
	wire := f.Payload
	compressed := false
	if w.compress && len(f.Payload) > 0 {
		if out, ok := compress(f.Payload); ok {
			wire, compressed = out, true
		}
	}

	var header strings.Builder
	header.WriteString("@frame{")

	header.WriteString("v=")
	if f.Version == 0 {
		header.WriteByte('1')
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}

	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))

	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(wire)))

	if w.withCRC && len(wire) > 0 {
		header.WriteString(" crc=")
		header.WriteString(fmt.Sprintf("%08x", WireCRC(wire)))
	}

	sum := f.Sum
	if sum == nil && w.withSum {
		computed := ComputeSum(f.Payload)
		sum = &computed
	}
	if sum != nil {
		header.WriteString(" sum=blake3:")
		header.WriteString(HashToHex(*sum))
	}

	if compressed {
		header.WriteString(" zstd=true")
	}

	if f.Final {
		header.WriteString(" final=true")
	}

	header.WriteString("}\n")

	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return errors.Wrap(err, "write header")
	}

	if len(wire) > 0 {
		if _, err := w.w.Write(wire); err != nil {
			return errors.Wrap(err, "write payload")
		}
	}

	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return errors.Wrap(err, "write trailing newline")
	}

	w.seq = f.Seq
	return nil
}

// WriteValue serializes v with tagjson and writes it as the next frame.
// Sequence numbers start at 1.
func (w *Writer) WriteValue(v any) error {
	return w.writeValue(v, false)
}

// WriteFinal writes v as the last frame of the stream.
func (w *Writer) WriteFinal(v any) error {
	return w.writeValue(v, true)
}

func (w *Writer) writeValue(v any, final bool) error {
	payload, err := tagjson.SerializeWithOptions(v, w.serialize)
	if err != nil {
		return errors.Wrapf(err, "frame %d", w.seq+1)
	}
	return w.WriteFrame(&Frame{
		Version: Version,
		Seq:     w.seq + 1,
		Payload: payload,
		Final:   final,
	})
}
