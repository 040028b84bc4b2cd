package tagjson

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

// SerializeOptions configures the encoder.
type SerializeOptions struct {
	// Before is applied to the input and to every nested value before it is
	// classified.
	Before func(any) any

	// DataclassFinalHook may rewrite the encoded non-default fields of a
	// struct before they are wrapped in [dc|...]. typ is the struct type.
	DataclassFinalHook func(typ reflect.Type, fields map[string]*Value) map[string]*Value

	// Indent enables indented output. Empty means compact.
	Indent string
}

// Serialize encodes obj as tagged JSON with sorted keys.
func Serialize(obj any) ([]byte, error) {
	return SerializeWithOptions(obj, SerializeOptions{})
}

// SerializeWithOptions encodes obj with custom options.
func SerializeWithOptions(obj any, opts SerializeOptions) ([]byte, error) {
	v, err := FromGoWithOptions(obj, opts)
	if err != nil {
		return nil, err
	}
	return encodeValue(v, opts.Indent)
}

// FromGo classifies obj into a Value tree.
func FromGo(obj any) (*Value, error) {
	return FromGoWithOptions(obj, SerializeOptions{})
}

// FromGoWithOptions classifies obj with custom options.
func FromGoWithOptions(obj any, opts SerializeOptions) (*Value, error) {
	e := &encoder{opts: opts, active: make(map[visit]bool)}
	return e.encode(obj, "$")
}

// ============================================================
// Classifier Table
// ============================================================

// classifier is one entry of the ordered dispatch table. match sees the
// value with pointers already followed.
type classifier struct {
	name   string
	match  func(rv reflect.Value) bool
	encode func(e *encoder, rv reflect.Value, path string) (*Value, error)
}

// classifiers are tried in order; the first match wins. Assigned in init
// since the entries recurse through the encoder.
var classifiers []classifier

func init() {
	classifiers = []classifier{
		{"null", func(rv reflect.Value) bool { return !rv.IsValid() }, encodeNull},
		{"datetime", isType(timeType, dateTimeType), encodeDateTime},
		{"date", isType(dateType), encodeDate},
		{"time", isType(clockType), encodeClock},
		{"timedelta", isType(durationType), encodeTimeDelta},
		{"float", isScalar(reflect.Float32, reflect.Float64), encodeFloat},
		{"bool", isScalar(reflect.Bool), encodeBool},
		{"int", matchInt, encodeInt},
		{"uuid", isType(uuidType), encodeUUID},
		{"path", isType(pathType), encodePath},
		{"str", isScalar(reflect.String), encodeStr},
		{"dataclass", matchDataclass, encodeDataclass},
		{"dict", matchDict, encodeDict},
		{"enum", func(rv reflect.Value) bool { return isEnumType(rv.Type()) }, encodeEnum},
		{"containers", matchCollection, encodeContainer},
		{"fallback", func(reflect.Value) bool { return true }, encodeFallback},
	}
}

// ClassifierOrder returns the names of the classifiers in dispatch order.
func ClassifierOrder() []string {
	names := make([]string, len(classifiers))
	for i, c := range classifiers {
		names[i] = c.name
	}
	return names
}

func isType(types ...reflect.Type) func(reflect.Value) bool {
	return func(rv reflect.Value) bool {
		for _, t := range types {
			if rv.Type() == t {
				return true
			}
		}
		return false
	}
}

// isScalar matches the given kinds, except enum types and the types with a
// dedicated classifier earlier in the table.
func isScalar(kinds ...reflect.Kind) func(reflect.Value) bool {
	return func(rv reflect.Value) bool {
		t := rv.Type()
		if isEnumType(t) || t == durationType || t == pathType {
			return false
		}
		for _, k := range kinds {
			if t.Kind() == k {
				return true
			}
		}
		return false
	}
}

var matchIntKinds = isScalar(
	reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
	reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
)

func matchInt(rv reflect.Value) bool {
	return rv.Type() == bigIntType || matchIntKinds(rv)
}

func matchDataclass(rv reflect.Value) bool {
	t := rv.Type()
	if t.Kind() != reflect.Struct || leafStructs[t] || isEnumType(t) || isSequenceType(t) {
		return false
	}
	return t == recordType || hasFields(t)
}

func matchDict(rv reflect.Value) bool {
	return rv.Kind() == reflect.Map && !isEnumType(rv.Type())
}

func matchCollection(rv reflect.Value) bool {
	t := rv.Type()
	if isSequenceType(t) {
		return true
	}
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	// Byte strings have no tag and fall back to Unserializable.
	return t.Elem().Kind() != reflect.Uint8
}

// ============================================================
// Encoder
// ============================================================

// visit identifies a reference-typed value on the current path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type encoder struct {
	opts   SerializeOptions
	active map[visit]bool
}

func (e *encoder) encode(obj any, path string) (*Value, error) {
	if e.opts.Before != nil {
		obj = e.opts.Before(obj)
	}
	rv := reflect.ValueOf(obj)

	// Follow pointers, watching for cycles.
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		if rv.Kind() == reflect.Pointer {
			if rv.Type().Elem() == bigIntType {
				break
			}
			leave, err := e.enter(rv, path)
			if err != nil {
				return nil, err
			}
			defer leave()
		}
		rv = rv.Elem()
	}
	if rv.IsValid() && rv.Kind() == reflect.Pointer {
		// *big.Int
		rv = rv.Elem()
	}
	if rv.IsValid() && (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && !rv.IsNil() {
		leave, err := e.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
	}

	for _, c := range classifiers {
		if c.match(rv) {
			return c.encode(e, rv, path)
		}
	}
	return nil, &SerializeError{Path: path, Reason: "no classifier matched"}
}

// enter marks rv as active on the current path.
func (e *encoder) enter(rv reflect.Value, path string) (func(), error) {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if e.active[key] {
		return nil, &CycleError{
			SerializeError: SerializeError{Path: path, Reason: "cycle through " + rv.Type().String()},
			Type:           rv.Type().String(),
		}
	}
	e.active[key] = true
	return func() { delete(e.active, key) }, nil
}

// ============================================================
// Scalar Classifiers
// ============================================================

func encodeNull(_ *encoder, _ reflect.Value, _ string) (*Value, error) {
	return Null(), nil
}

func encodeDateTime(_ *encoder, rv reflect.Value, path string) (*Value, error) {
	if rv.Type() == dateTimeType {
		dt := rv.Interface().(civil.DateTime)
		if !dt.IsValid() {
			return nil, &SerializeError{Path: path, Reason: "invalid datetime " + dt.String()}
		}
		if err := checkYear(dt.Date.Year); err != nil {
			return nil, &SerializeError{Path: path, Reason: err.Error()}
		}
		return DateTime(dt), nil
	}
	t := rv.Interface().(time.Time)
	if err := checkYear(t.Year()); err != nil {
		return nil, &SerializeError{Path: path, Reason: err.Error()}
	}
	return ZonedDateTime(t), nil
}

func encodeDate(_ *encoder, rv reflect.Value, path string) (*Value, error) {
	d := rv.Interface().(civil.Date)
	if !d.IsValid() {
		return nil, &SerializeError{Path: path, Reason: "invalid date " + d.String()}
	}
	if err := checkYear(d.Year); err != nil {
		return nil, &SerializeError{Path: path, Reason: err.Error()}
	}
	return Date(d), nil
}

func encodeClock(_ *encoder, rv reflect.Value, path string) (*Value, error) {
	t := rv.Interface().(civil.Time)
	if !t.IsValid() {
		return nil, &SerializeError{Path: path, Reason: "invalid time " + t.String()}
	}
	return TimeOfDay(t), nil
}

func encodeTimeDelta(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return TimeDelta(time.Duration(rv.Int())), nil
}

func encodeFloat(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return Float(rv.Float()), nil
}

func encodeBool(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return Bool(rv.Bool()), nil
}

func encodeInt(_ *encoder, rv reflect.Value, path string) (*Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, newIntegerError(path, strconv.FormatUint(u, 10))
		}
		return Int(int64(u)), nil
	}
	// big.Int
	var b *big.Int
	if rv.CanAddr() {
		b = rv.Addr().Interface().(*big.Int)
	} else {
		x := rv.Interface().(big.Int)
		b = &x
	}
	if !b.IsInt64() {
		return nil, newIntegerError(path, b.String())
	}
	return Int(b.Int64()), nil
}

func encodeUUID(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return UUID(rv.Interface().(uuid.UUID)), nil
}

func encodePath(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return PathOf(Path(rv.String()).String()), nil
}

func encodeStr(_ *encoder, rv reflect.Value, _ string) (*Value, error) {
	return Str(rv.String()), nil
}

// ============================================================
// Structured Classifiers
// ============================================================

func encodeDataclass(e *encoder, rv reflect.Value, path string) (*Value, error) {
	t := rv.Type()
	if t == recordType {
		return e.encodeRecord(rv.Interface().(Record), path)
	}
	meta, err := structMetaFor(t)
	if err != nil {
		return nil, &SerializeError{Path: path, Reason: err.Error()}
	}

	fields := make(map[string]*Value, len(meta.fields))
	for _, f := range meta.fields {
		if !f.required && meta.isDefault(f, rv) {
			continue
		}
		fv, err := e.encode(rv.FieldByIndex(f.index).Interface(), path+"."+f.name)
		if err != nil {
			return nil, err
		}
		fields[f.name] = fv
	}

	if t.Name() == "" {
		// Anonymous structs have no class to resolve and encode as maps.
		return Map(mapEntries(fields)...), nil
	}
	return e.finishDataclass(qualnameOf(rv), t, fields), nil
}

func (e *encoder) encodeRecord(r Record, path string) (*Value, error) {
	if r.Class == "" {
		return nil, &SerializeError{Path: path, Reason: "record has no class"}
	}
	fields := make(map[string]*Value, len(r.Fields))
	for _, k := range sortedKeys(r.Fields) {
		fv, err := e.encode(r.Fields[k], path+"."+k)
		if err != nil {
			return nil, err
		}
		fields[k] = fv
	}
	return e.finishDataclass(r.Class, recordType, fields), nil
}

func (e *encoder) finishDataclass(class string, t reflect.Type, fields map[string]*Value) *Value {
	if e.opts.DataclassFinalHook != nil {
		fields = e.opts.DataclassFinalHook(t, fields)
	}
	return Dataclass(class, mapEntries(fields)...)
}

func mapEntries(fields map[string]*Value) []MapEntry {
	entries := make([]MapEntry, 0, len(fields))
	for k, v := range fields {
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	return entries
}

func encodeDict(e *encoder, rv reflect.Value, path string) (*Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, &KeyError{
			SerializeError: SerializeError{Path: path, Reason: "map keys must be strings, got " + rv.Type().Key().String()},
			KeyType:        rv.Type().Key().String(),
		}
	}
	entries := make([]MapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		v, err := e.encode(iter.Value().Interface(), fmt.Sprintf("%s[%q]", path, k))
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	return Map(entries...), nil
}

func encodeEnum(e *encoder, rv reflect.Value, path string) (*Value, error) {
	class := qualnameOf(rv)
	if class == "" {
		return nil, &SerializeError{Path: path, Reason: "enum " + rv.Type().String() + " has no class"}
	}
	member := rv.Interface().(Enumerated).EnumValue()
	if _, nested := member.(Enumerated); nested {
		return nil, &SerializeError{Path: path, Reason: "value of enum " + class + " is itself an enum"}
	}
	inner, err := e.encode(member, path)
	if err != nil {
		return nil, err
	}
	return Enum(class, inner), nil
}

// plainSequences encode without a qualname.
var plainSequences = map[reflect.Type]bool{
	tupleType:     true,
	setType:       true,
	frozenSetType: true,
}

func encodeContainer(e *encoder, rv reflect.Value, path string) (*Value, error) {
	t := rv.Type()
	var (
		kind  = KindList
		class string
		raw   []any
	)
	if isSequenceType(t) {
		seq := rv.Interface().(Sequence)
		k, ok := tagSequenceKind(seq.SequenceTag())
		if !ok {
			return nil, &SerializeError{Path: path, Reason: fmt.Sprintf("%s has invalid sequence tag %q", t, seq.SequenceTag())}
		}
		kind = k
		raw = seq.SequenceItems()
		if !plainSequences[t] {
			class = qualnameOf(rv)
		}
	} else {
		raw = make([]any, rv.Len())
		for i := range raw {
			raw[i] = rv.Index(i).Interface()
		}
		class = t.Name()
	}

	items := make([]*Value, len(raw))
	for i, item := range raw {
		v, err := e.encode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return NewSequence(kind, class, items...), nil
}

// encodeFallback records rv as an Unserializable dataclass. Before is not
// applied to the record.
func encodeFallback(e *encoder, rv reflect.Value, _ string) (*Value, error) {
	u := newUnserializable(rv.Interface())
	fields := map[string]*Value{
		"qualname": Str(u.Qualname),
		"repr":     Str(u.Repr),
		"str":      Str(u.Str),
	}
	return e.finishDataclass(UnserializableName, unserializableType, fields), nil
}
