package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopSchema = `
classes:
  - name: shop.Order
    fields:
      - {name: id, type: uuid, required: true}
      - {name: qty, type: int, default: 1}
  - name: shop.Status
    kind: enum
    members:
      - {name: OPEN, value: open}
`

const orderID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopSchema), 0o644))
	return path
}

func exitStatus(t *testing.T, err error) int {
	t.Helper()
	coder, ok := err.(interface{ ExitCode() int })
	require.True(t, ok, "expected an exit code, got %v", err)
	return coder.ExitCode()
}

// ============================================================
// Dispatch
// ============================================================

func TestRun_Version(t *testing.T) {
	out, _, err := runCmd(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "tagjson "+version+"\n", out)
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runCmd(t, "")
	assert.Equal(t, 2, exitStatus(t, err))
	assert.Contains(t, stderr, "Usage:")

	_, stderr, err = runCmd(t, "", "explode")
	assert.Equal(t, 2, exitStatus(t, err))
	assert.Contains(t, stderr, "unknown command: explode")
}

func TestRun_HelpFlag(t *testing.T) {
	_, stderr, err := runCmd(t, "", "inspect", "--help")
	assert.Equal(t, 0, exitStatus(t, err))
	assert.Contains(t, stderr, "--indent")
}

func TestRun_BadFlag(t *testing.T) {
	_, _, err := runCmd(t, "", "inspect", "--bogus")
	require.Error(t, err)
}

func TestRun_ExtraArgument(t *testing.T) {
	_, _, err := runCmd(t, "", "inspect", "a.json", "b.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected argument")
}

// ============================================================
// Document Commands
// ============================================================

func TestInspect(t *testing.T) {
	out, _, err := runCmd(t, `{"[tu]":[1,"[d]2024-01-02"]}`, "inspect")
	require.NoError(t, err)
	assert.Equal(t, "(1, date(2024-01-02))\n", out)
}

func TestInspect_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`[true, null]`), 0o644))

	out, _, err := runCmd(t, "", "inspect", path)
	require.NoError(t, err)
	assert.Equal(t, "[True, None]\n", out)
}

func TestInspect_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(`{"[tu]":[1,2]}`), nil)
	require.NoError(t, enc.Close())

	out, _, err := runCmd(t, string(compressed), "inspect", "--verbose")
	require.NoError(t, err)
	assert.Equal(t, "(1, 2)\n", out)
}

func TestInspect_InvalidJSON(t *testing.T) {
	_, _, err := runCmd(t, `{"a":`, "inspect")
	require.Error(t, err)
}

func TestFmt(t *testing.T) {
	out, _, err := runCmd(t, "{ \"[tu]\" : [ 1, 2 ] }", "fmt")
	require.NoError(t, err)
	assert.Equal(t, "{\"[tu]\":[1,2]}\n", out)
}

func TestDecode(t *testing.T) {
	schemaPath := writeSchema(t)
	doc := `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `"}}`

	out, _, err := runCmd(t, doc, "decode", "--schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "shop.Order(")
	assert.Contains(t, out, "qty=1")
	assert.Contains(t, out, orderID)
}

func TestDecode_UnknownClass(t *testing.T) {
	schemaPath := writeSchema(t)
	_, _, err := runCmd(t, `{"[e|shop.Status]":"lost"}`, "decode", "--schema", schemaPath)
	require.Error(t, err)
}

func TestDecode_MissingSchema(t *testing.T) {
	_, _, err := runCmd(t, `1`, "decode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--schema is required")
}

func TestCheck(t *testing.T) {
	schemaPath := writeSchema(t)

	tests := []struct {
		name   string
		input  string
		args   []string
		status int
		stderr string
	}{
		{
			name:  "valid",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","qty":2}}`,
		},
		{
			name:   "wrong type",
			input:  `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","qty":"two"}}`,
			status: 1,
			stderr: "$.qty: expected int, got str [type_mismatch]",
		},
		{
			name:   "missing field",
			input:  `{"[dc|shop.Order]":{}}`,
			status: 1,
			stderr: "[missing_field]",
		},
		{
			name:   "not the requested class",
			input:  `[1]`,
			args:   []string{"--as", "shop.Order"},
			status: 1,
			stderr: "[type_mismatch]",
		},
		{
			name:  "member",
			input: `{"[e|shop.Status]":"open"}`,
			args:  []string{"--as", "shop.Status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"check", "--schema", schemaPath}, tt.args...)
			out, stderr, err := runCmd(t, tt.input, args...)
			if tt.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, "ok\n", out)
				return
			}
			assert.Equal(t, tt.status, exitStatus(t, err))
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

// ============================================================
// Stream Commands
// ============================================================

func TestPack(t *testing.T) {
	out, _, err := runCmd(t, "{\"a\":1}\n\n[1, 2]\n", "pack")
	require.NoError(t, err)
	assert.Equal(t, "@frame{v=1 seq=1 len=7}\n{\"a\":1}\n@frame{v=1 seq=2 len=5 final=true}\n[1,2]\n", out)
}

func TestPack_BadLine(t *testing.T) {
	_, _, err := runCmd(t, "1\n{bad\n", "pack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPackFrames_RoundTrip(t *testing.T) {
	packed, _, err := runCmd(t, "{\"a\":1}\n[1,2]\n\"[d]2024-01-02\"\n", "pack", "--crc", "--sum", "--zstd")
	require.NoError(t, err)
	assert.Contains(t, packed, "crc=")
	assert.Contains(t, packed, "sum=blake3:")

	out, stderr, err := runCmd(t, packed, "frames", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "seq=1 len=7")
	assert.Contains(t, out, "seq=2 len=5")
	assert.Contains(t, out, "date(2024-01-02)")
	assert.Contains(t, out, "final")
	assert.Contains(t, stderr, "--- 3 frames decoded ---")
}

func TestFrames_SequenceGap(t *testing.T) {
	input := "@frame{v=1 seq=1 len=1}\n1\n@frame{v=1 seq=3 len=1}\n2\n"

	_, _, err := runCmd(t, input, "frames")
	require.NoError(t, err)

	_, _, err = runCmd(t, input, "frames", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence gap")
}

func TestFrames_Schema(t *testing.T) {
	schemaPath := writeSchema(t)
	payload := `{"[e|shop.Status]":"lost"}`
	input := "@frame{v=1 seq=1 len=1}\n1\n" +
		fmt.Sprintf("@frame{v=1 seq=2 len=%d}\n%s\n", len(payload), payload)

	_, stderr, err := runCmd(t, input, "frames", "--schema", schemaPath)
	assert.Equal(t, 1, exitStatus(t, err))
	assert.Contains(t, stderr, "frame 2: error:")
	assert.Contains(t, stderr, "[unknown_member]")
	assert.Contains(t, stderr, "--- 1 frames invalid ---")
}
