// tagjson - tagged JSON CLI tool
//
// Usage:
//
//	tagjson inspect [--indent S] [file]            Render a document as readable text
//	tagjson fmt [--indent S] [file]                Re-encode a document canonically
//	tagjson decode --schema F [file]               Resolve classes declared in a schema
//	tagjson check --schema F [--as C] [file]       Validate a document against a schema
//	tagjson pack [--crc] [--sum] [--zstd] [file]   Frame JSON lines as a stream
//	tagjson frames [--schema F] [--strict] [file]  List the frames of a stream
//	tagjson version                                Print version info
//
// If no file is given, or the file is "-", reads from stdin. zstd-compressed
// input is detected and decompressed.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Neumenon/tagjson/schema"
	"github.com/Neumenon/tagjson/stream"
	"github.com/Neumenon/tagjson/tagjson"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "tagjson: %v\n", err)
		os.Exit(1)
	}
}

// exitCode ends the process with a status but no message; the command has
// already reported the problem.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitCode) ExitCode() int { return int(e) }

// command holds the streams and logger shared by every subcommand.
type command struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return exitCode(2)
	}

	c := &command{stdin: stdin, stdout: stdout, stderr: stderr}
	name, rest := args[0], args[1:]

	switch name {
	case "inspect":
		return c.inspect(rest)
	case "fmt":
		return c.format(rest)
	case "decode":
		return c.decode(rest)
	case "check":
		return c.check(rest)
	case "pack":
		return c.pack(rest)
	case "frames":
		return c.frames(rest)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "tagjson %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", name)
		printUsage(stderr)
		return exitCode(2)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tagjson - tagged JSON codec tool

Usage:
  tagjson inspect [--indent S] [file]            Render a document as readable text
  tagjson fmt [--indent S] [file]                Re-encode a document canonically
  tagjson decode --schema F [file]               Resolve classes declared in a schema
  tagjson check --schema F [--as C] [file]       Validate a document against a schema
  tagjson pack [--crc] [--sum] [--zstd] [file]   Frame JSON lines as a stream
  tagjson frames [--schema F] [--strict] [file]  List the frames of a stream
  tagjson version                                Print version info

Every command accepts --verbose for debug logging on stderr.
If no file is given, reads from stdin. zstd-compressed input is detected.

Examples:
  echo '{"[tu]":[1,"[d]2024-01-02"]}' | tagjson inspect
  # Output: (1, date(2024-01-02))

  tagjson fmt --indent '  ' doc.json

  tagjson check --schema shop.yaml order.json
  tagjson pack --crc --sum events.jsonl | tagjson frames --strict
`)
}

// ============================================================
// Flags and Input
// ============================================================

// flags creates a subcommand flag set with the shared --verbose flag.
func (c *command) flags(name string) (*pflag.FlagSet, *bool) {
	fs := pflag.NewFlagSet("tagjson "+name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	verbose := fs.Bool("verbose", false, "log debug messages to stderr")
	return fs, verbose
}

// parse parses flags, sets up logging and returns the single optional
// file argument.
func (c *command) parse(fs *pflag.FlagSet, verbose *bool, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return "", exitCode(0)
		}
		return "", err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))

	switch fs.NArg() {
	case 0:
		return "", nil
	case 1:
		return fs.Arg(0), nil
	default:
		return "", errors.Errorf("unexpected argument: %s", fs.Arg(1))
	}
}

// readInput reads the file, or stdin for "" and "-", and decompresses zstd.
func (c *command) readInput(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}

	if stream.IsZstd(data) {
		c.logger.Debug("decompressing input", "path", path, "compressed_bytes", len(data))
		data, err = stream.Decompress(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (c *command) loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, errors.New("--schema is required")
	}
	s, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loaded schema", "path", path, "classes", len(s.Classes), "hash", s.Hash)
	return s, nil
}

// ============================================================
// Document Commands
// ============================================================

// inspect: tagged JSON -> readable text
func (c *command) inspect(args []string) error {
	fs, verbose := c.flags("inspect")
	indent := fs.String("indent", "", "indent nested items with this string")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	data, err := c.readInput(path)
	if err != nil {
		return err
	}
	v, err := tagjson.DecodeValue(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, tagjson.FormatWithOptions(v, tagjson.FormatOptions{Indent: *indent}))
	return nil
}

// format: tagged JSON -> canonical tagged JSON
func (c *command) format(args []string) error {
	fs, verbose := c.flags("fmt")
	indent := fs.String("indent", "", "indent output with this string")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	data, err := c.readInput(path)
	if err != nil {
		return err
	}
	v, err := tagjson.DecodeValue(data)
	if err != nil {
		return err
	}
	out, err := tagjson.EncodeIndent(v, *indent)
	if err != nil {
		return err
	}
	c.stdout.Write(out)
	fmt.Fprintln(c.stdout)
	return nil
}

// decode: tagged JSON -> objects of schema classes, rendered as text
func (c *command) decode(args []string) error {
	fs, verbose := c.flags("decode")
	schemaPath := fs.String("schema", "", "schema file declaring the classes (yaml, toml, json)")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	s, err := c.loadSchema(*schemaPath)
	if err != nil {
		return err
	}
	data, err := c.readInput(path)
	if err != nil {
		return err
	}
	obj, err := tagjson.DeserializeWithOptions(data, s.DeserializeOptions())
	if err != nil {
		return err
	}
	v, err := tagjson.FromGo(obj)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, tagjson.Format(v))
	return nil
}

// check: validate a document against a schema
func (c *command) check(args []string) error {
	fs, verbose := c.flags("check")
	schemaPath := fs.String("schema", "", "schema file declaring the classes (yaml, toml, json)")
	as := fs.String("as", "", "require the document to be an instance of this class")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	s, err := c.loadSchema(*schemaPath)
	if err != nil {
		return err
	}
	data, err := c.readInput(path)
	if err != nil {
		return err
	}
	v, err := tagjson.DecodeValue(data)
	if err != nil {
		return err
	}

	var result *schema.ValidationResult
	if *as != "" {
		result = schema.ValidateAs(v, s, *as)
	} else {
		result = schema.ValidateWithSchema(v, s)
	}
	if !c.report("", result) {
		return exitCode(1)
	}
	fmt.Fprintln(c.stdout, "ok")
	return nil
}

// report prints validation findings and reports whether the value passed.
func (c *command) report(prefix string, result *schema.ValidationResult) bool {
	for _, w := range result.Warnings {
		fmt.Fprintf(c.stderr, "%swarning: %s [%s]\n", prefix, w.Error(), w.Code)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(c.stderr, "%serror: %s [%s]\n", prefix, e.Error(), e.Code)
	}
	return result.Valid
}

// ============================================================
// Stream Commands
// ============================================================

// pack: JSON lines -> frames
func (c *command) pack(args []string) error {
	fs, verbose := c.flags("pack")
	withCRC := fs.Bool("crc", false, "add a CRC-32 to every frame")
	withSum := fs.Bool("sum", false, "add a BLAKE3 digest to every frame")
	withZstd := fs.Bool("zstd", false, "compress payloads that shrink")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	data, err := c.readInput(path)
	if err != nil {
		return err
	}

	var opts []stream.WriterOption
	if *withCRC {
		opts = append(opts, stream.WithCRC())
	}
	if *withSum {
		opts = append(opts, stream.WithSum())
	}
	if *withZstd {
		opts = append(opts, stream.WithCompression())
	}
	out := bufio.NewWriter(c.stdout)
	w := stream.NewWriter(out, opts...)

	var payloads [][]byte
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := tagjson.DecodeValue([]byte(line))
		if err != nil {
			return errors.Wrapf(err, "line %d", n+1)
		}
		payload, err := tagjson.Encode(v)
		if err != nil {
			return errors.Wrapf(err, "line %d", n+1)
		}
		payloads = append(payloads, payload)
	}

	for i, payload := range payloads {
		err := w.WriteFrame(&stream.Frame{
			Version: stream.Version,
			Seq:     uint64(i + 1),
			Payload: payload,
			Final:   i == len(payloads)-1,
		})
		if err != nil {
			return err
		}
	}
	c.logger.Debug("packed frames", "frames", len(payloads))
	return out.Flush()
}

// frames: list the frames of a stream, optionally validating payloads
func (c *command) frames(args []string) error {
	fs, verbose := c.flags("frames")
	schemaPath := fs.String("schema", "", "validate every payload against this schema")
	strict := fs.Bool("strict", false, "reject sequence gaps, duplicates and frames after the final frame")
	path, err := c.parse(fs, verbose, args)
	if err != nil {
		return err
	}

	var s *schema.Schema
	if *schemaPath != "" {
		if s, err = c.loadSchema(*schemaPath); err != nil {
			return err
		}
	}
	data, err := c.readInput(path)
	if err != nil {
		return err
	}

	var opts []stream.ReaderOption
	if *strict {
		opts = append(opts, stream.WithSequenceCheck(nil))
	}
	r := stream.NewReader(bytes.NewReader(data), opts...)

	count, invalid := 0, 0
	for {
		v, f, err := r.NextTree()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "after %d frames", count)
		}
		count++
		c.printFrame(f, v)

		if s != nil && !c.report(fmt.Sprintf("frame %d: ", f.Seq), schema.ValidateWithSchema(v, s)) {
			invalid++
		}
	}

	fmt.Fprintf(c.stderr, "--- %d frames decoded ---\n", count)
	if invalid > 0 {
		fmt.Fprintf(c.stderr, "--- %d frames invalid ---\n", invalid)
		return exitCode(1)
	}
	return nil
}

func (c *command) printFrame(f *stream.Frame, v *tagjson.Value) {
	var header strings.Builder
	fmt.Fprintf(&header, "seq=%d len=%d", f.Seq, len(f.Payload))
	if f.Compressed {
		fmt.Fprintf(&header, " wire=%d zstd", f.WireLen)
	}
	if f.CRC != nil {
		fmt.Fprintf(&header, " crc=%08x", *f.CRC)
	}
	if f.Sum != nil {
		fmt.Fprintf(&header, " sum=%s", stream.HashToHex(*f.Sum)[:16])
	}
	if f.Final {
		header.WriteString(" final")
	}
	fmt.Fprintln(c.stdout, header.String())

	// Print payload (truncated if long)
	text := tagjson.Format(v)
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	fmt.Fprintf(c.stdout, "  %s\n", text)
}
