package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/pkg/errors"
)

// Reader reads frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	verifySum  bool
	cursor     *Cursor
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB). The limit
// applies to wire bytes and to decompressed payloads.
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithCRCVerification enables CRC verification.
func WithCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = true
	}
}

// WithoutVerification disables CRC and digest verification.
func WithoutVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
		r.verifySum = false
	}
}

// WithSequenceCheck rejects gaps, duplicates and frames after the final
// frame, tracking state in c. A nil c gets a fresh Cursor.
func WithSequenceCheck(c *Cursor) ReaderOption {
	return func(r *Reader) {
		if c == nil {
			c = NewCursor()
		}
		r.cursor = c
	}
}

// NewReader creates a frame reader. CRCs and digests present in a header
// are verified unless WithoutVerification is given.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true,
		verifySum:  true,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Cursor returns the sequence cursor, or nil without WithSequenceCheck.
func (r *Reader) Cursor() *Cursor {
	return r.cursor
}

// Next reads and returns the next frame with its payload decompressed.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	headerLine, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && headerLine == "" {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read header")
	}

	frame, err := parseHeader(headerLine)
	if err != nil {
		return nil, err
	}

	if frame.WireLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", frame.WireLen, r.maxPayload), Offset: -1}
	}

	var wire []byte
	if frame.WireLen > 0 {
		wire = make([]byte, frame.WireLen)
		if _, err := io.ReadFull(r.r, wire); err != nil {
			return nil, errors.Wrapf(err, "read payload of frame %d", frame.Seq)
		}
	}

	// Consume trailing newline (optional at EOF)
	if b, err := r.r.ReadByte(); err == nil {
		if b != '\n' {
			// Put it back - it's part of the next frame
			_ = r.r.UnreadByte()
		}
	}

	if r.verifyCRC {
		if err := checkWire(frame, wire); err != nil {
			return nil, err
		}
	}

	frame.Payload = wire
	if frame.Compressed && len(wire) > 0 {
		frame.Payload, err = decompress(wire, r.maxPayload)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", frame.Seq)
		}
	}

	if r.verifySum {
		if err := checkSum(frame); err != nil {
			return nil, err
		}
	}

	if r.cursor != nil {
		if err := r.cursor.Process(frame); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// NextValue reads the next frame and deserializes its payload.
// Returns io.EOF when no more frames are available.
func (r *Reader) NextValue(opts tagjson.DeserializeOptions) (any, *Frame, error) {
	frame, err := r.Next()
	if err != nil {
		return nil, nil, err
	}
	v, err := tagjson.DeserializeWithOptions(frame.Payload, opts)
	if err != nil {
		return nil, frame, errors.Wrapf(err, "frame %d", frame.Seq)
	}
	return v, frame, nil
}

// NextTree reads the next frame and decodes its payload into a Value tree
// without resolving class names.
func (r *Reader) NextTree() (*tagjson.Value, *Frame, error) {
	frame, err := r.Next()
	if err != nil {
		return nil, nil, err
	}
	v, err := tagjson.DecodeValue(frame.Payload)
	if err != nil {
		return nil, frame, errors.Wrapf(err, "frame %d", frame.Seq)
	}
	return v, frame, nil
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// parseHeader parses the @frame{...} header line.
func parseHeader(line string) (*Frame, error) {
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "@frame{") {
		return nil, &ParseError{Reason: "expected @frame{", Offset: 0}
	}

	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, &ParseError{Reason: "missing closing }", Offset: len(line)}
	}

	content := line[7:endIdx]

	frame := &Frame{Version: 1}
	seenLen := false

	for _, pair := range tokenize(content) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue // skip malformed pairs
		}

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, &ParseError{Reason: "invalid version", Offset: -1}
			}
			if uint8(v) != Version {
				return nil, &ParseError{Reason: "unsupported version " + val, Offset: -1}
			}
			frame.Version = uint8(v)

		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, &ParseError{Reason: "invalid seq", Offset: -1}
			}
			frame.Seq = seq

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, &ParseError{Reason: "invalid len", Offset: -1}
			}
			frame.WireLen = int(l)
			seenLen = true

		case "crc":
			crc, ok := parseCRC(val)
			if !ok {
				return nil, &ParseError{Reason: "invalid crc: " + val, Offset: -1}
			}
			frame.CRC = &crc

		case "sum":
			sum, ok := parseSum(val)
			if !ok {
				return nil, &ParseError{Reason: "invalid sum: " + val, Offset: -1}
			}
			frame.Sum = &sum

		case "zstd":
			frame.Compressed = val == "true" || val == "1"

		case "final":
			frame.Final = val == "true" || val == "1"
		}
	}

	if !seenLen {
		return nil, &ParseError{Reason: "missing len", Offset: -1}
	}
	return frame, nil
}

// tokenize splits key=value pairs separated by spaces or commas.
func tokenize(s string) []string {
	var tokens []string
	var current bytes.Buffer
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			current.WriteByte(c)
		case (c == ' ' || c == ',' || c == '\t') && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// parseCRC parses CRC value: "crc32:XXXXXXXX" or "XXXXXXXX"
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")

	if len(val) != 8 {
		return 0, false
	}

	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// parseSum parses a digest: "blake3:XXXX..." or "XXXX..."
func parseSum(val string) ([32]byte, bool) {
	val = strings.TrimPrefix(val, "blake3:")
	return HexToHash(val)
}
