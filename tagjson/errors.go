package tagjson

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================
// Serialize Errors
// ============================================================

// SerializeError reports a value the encoder refuses to encode.
type SerializeError struct {
	Path   string // Location of the value, e.g. $.items[2]
	Reason string
}

func (e *SerializeError) Error() string {
	if e.Path != "" && e.Path != "$" {
		return fmt.Sprintf("tagjson: serialize %s: %s", e.Path, e.Reason)
	}
	return "tagjson: serialize: " + e.Reason
}

// IntegerError is returned for integers outside the signed 64-bit range.
type IntegerError struct {
	SerializeError
	Value string
}

func (e *IntegerError) Unwrap() error { return &e.SerializeError }

// KeyError is returned for maps whose keys are not strings.
type KeyError struct {
	SerializeError
	KeyType string
}

func (e *KeyError) Unwrap() error { return &e.SerializeError }

// CycleError is returned when a value refers back to one of its ancestors.
type CycleError struct {
	SerializeError
	Type string
}

func (e *CycleError) Unwrap() error { return &e.SerializeError }

func newIntegerError(path, value string) *IntegerError {
	return &IntegerError{
		SerializeError: SerializeError{Path: path, Reason: "integer " + value + " out of range"},
		Value:          value,
	}
}

// ============================================================
// Deserialize Errors
// ============================================================

// DeserializeError reports input the decoder cannot turn back into a value.
type DeserializeError struct {
	Data     []byte // Input passed to Deserialize, if any
	Qualname string // Class name being resolved, if any
	Reason   string
}

func (e *DeserializeError) Error() string {
	var sb strings.Builder
	sb.WriteString("tagjson: deserialize")
	if e.Qualname != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Qualname)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

// NoObjectsError is returned when a class name needs resolving but the
// caller supplied neither objects nor redirects.
type NoObjectsError struct {
	DeserializeError
}

func (e *NoObjectsError) Unwrap() error { return &e.DeserializeError }

// ObjectNotFoundError is returned when the class name is not among the
// supplied objects or redirects.
type ObjectNotFoundError struct {
	DeserializeError
}

func (e *ObjectNotFoundError) Unwrap() error { return &e.DeserializeError }

// AmbiguousObjectError is returned when more than one supplied object
// carries the class name.
type AmbiguousObjectError struct {
	DeserializeError
	Count int
}

func (e *AmbiguousObjectError) Unwrap() error { return &e.DeserializeError }

// PayloadError is returned when a string matches a tag pattern but its
// payload does not parse.
type PayloadError struct {
	DeserializeError
	Tag     Tag
	Payload string
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("tagjson: deserialize: invalid %s payload %q: %v", e.Tag.Prefix(), e.Payload, e.Err)
}

func (e *PayloadError) Unwrap() []error {
	return []error{&e.DeserializeError, e.Err}
}

func newPayloadError(tag Tag, payload string, err error) *PayloadError {
	return &PayloadError{
		DeserializeError: DeserializeError{Reason: "invalid payload"},
		Tag:              tag,
		Payload:          payload,
		Err:              err,
	}
}

// deserializeErrorf builds a plain DeserializeError.
func deserializeErrorf(qualname, format string, args ...any) *DeserializeError {
	return &DeserializeError{Qualname: qualname, Reason: fmt.Sprintf(format, args...)}
}

// withData stamps the original input onto the DeserializeError in the chain.
func withData(err error, data []byte) error {
	var de *DeserializeError
	if errors.As(err, &de) {
		de.Data = data
	}
	return err
}
