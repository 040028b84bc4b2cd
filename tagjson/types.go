package tagjson

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

// Kind represents the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindDate
	KindDateTime      // Local datetime without zone
	KindZonedDateTime // Datetime with offset and optional zone name
	KindTime
	KindTimeDelta
	KindUUID
	KindPath
	KindList
	KindTuple
	KindSet
	KindFrozenSet
	KindMap
	KindDataclass
	KindEnum
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindZonedDateTime:
		return "zoned_datetime"
	case KindTime:
		return "time"
	case KindTimeDelta:
		return "timedelta"
	case KindUUID:
		return "uuid"
	case KindPath:
		return "path"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindFrozenSet:
		return "frozenset"
	case KindMap:
		return "map"
	case KindDataclass:
		return "dataclass"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// IsSequence reports whether the kind holds ordered items.
func (k Kind) IsSequence() bool {
	return k == KindList || k == KindTuple || k == KindSet || k == KindFrozenSet
}

// sequenceKindTag maps sequence kinds to their container tags.
func sequenceKindTag(k Kind) Tag {
	switch k {
	case KindTuple:
		return TagTuple
	case KindSet:
		return TagSet
	case KindFrozenSet:
		return TagFrozenSet
	default:
		return TagList
	}
}

// tagSequenceKind maps container tags to sequence kinds.
func tagSequenceKind(t Tag) (Kind, bool) {
	switch t {
	case TagList:
		return KindList, true
	case TagTuple:
		return KindTuple, true
	case TagSet:
		return KindSet, true
	case TagFrozenSet:
		return KindFrozenSet, true
	default:
		return KindNull, false
	}
}

// Value is a node of an encoded tree: a JSON primitive, a tagged scalar or a
// tagged container. Class names stay unresolved at this level.
type Value struct {
	kind Kind

	boolVal     bool
	intVal      int64
	floatVal    float64
	strVal      string // str and path
	dateVal     civil.Date
	dateTimeVal civil.DateTime
	zonedVal    time.Time
	timeVal     civil.Time
	deltaVal    time.Duration
	uuidVal     uuid.UUID

	class   string     // Qualname for named sequences, dataclasses and enums
	items   []*Value   // Sequences
	entries []MapEntry // Maps and dataclass fields, sorted by key
	inner   *Value     // Enum value
}

// MapEntry is a key-value pair of a map or dataclass node.
type MapEntry struct {
	Key   string
	Value *Value
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a bool value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an int value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a float value. Non-finite floats are allowed.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindStr, strVal: v}
}

// Date creates a date value.
func Date(v civil.Date) *Value {
	return &Value{kind: KindDate, dateVal: v}
}

// DateTime creates a local datetime value.
func DateTime(v civil.DateTime) *Value {
	return &Value{kind: KindDateTime, dateTimeVal: v}
}

// ZonedDateTime creates a zoned datetime value.
func ZonedDateTime(v time.Time) *Value {
	return &Value{kind: KindZonedDateTime, zonedVal: v}
}

// TimeOfDay creates a time value.
func TimeOfDay(v civil.Time) *Value {
	return &Value{kind: KindTime, timeVal: v}
}

// TimeDelta creates a duration value.
func TimeDelta(v time.Duration) *Value {
	return &Value{kind: KindTimeDelta, deltaVal: v}
}

// UUID creates a uuid value.
func UUID(v uuid.UUID) *Value {
	return &Value{kind: KindUUID, uuidVal: v}
}

// PathOf creates a path value.
func PathOf(p string) *Value {
	return &Value{kind: KindPath, strVal: p}
}

// List creates a plain list value.
func List(items ...*Value) *Value {
	return &Value{kind: KindList, items: items}
}

// NewSequence creates a list, tuple, set or frozenset value. A non-empty class
// marks a named collection type.
func NewSequence(kind Kind, class string, items ...*Value) *Value {
	if !kind.IsSequence() {
		panic(fmt.Sprintf("tagjson: %s is not a sequence kind", kind))
	}
	return &Value{kind: kind, class: class, items: items}
}

// Map creates a map value. Entries are sorted by key.
func Map(entries ...MapEntry) *Value {
	return &Value{kind: KindMap, entries: sortEntries(entries)}
}

// Dataclass creates a dataclass value with the given fields.
func Dataclass(class string, fields ...MapEntry) *Value {
	return &Value{kind: KindDataclass, class: class, entries: sortEntries(fields)}
}

// Enum creates an enum member value.
func Enum(class string, v *Value) *Value {
	if v == nil {
		v = Null()
	}
	return &Value{kind: KindEnum, class: class, inner: v}
}

// FieldEntry creates a MapEntry.
func FieldEntry(key string, v *Value) MapEntry {
	return MapEntry{Key: key, Value: v}
}

func sortEntries(entries []MapEntry) []MapEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value's variant.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether the value is null.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// Class returns the qualname of a named sequence, dataclass or enum.
func (v *Value) Class() string {
	if v == nil {
		return ""
	}
	return v.class
}

func (v *Value) expect(k Kind) error {
	if v.Kind() != k {
		return fmt.Errorf("tagjson: expected %s, got %s", k, v.Kind())
	}
	return nil
}

// AsBool returns the bool payload.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt returns the int payload.
func (v *Value) AsInt() (int64, error) {
	if err := v.expect(KindInt); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsFloat returns the float payload.
func (v *Value) AsFloat() (float64, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsStr returns the string payload.
func (v *Value) AsStr() (string, error) {
	if err := v.expect(KindStr); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsDate returns the date payload.
func (v *Value) AsDate() (civil.Date, error) {
	if err := v.expect(KindDate); err != nil {
		return civil.Date{}, err
	}
	return v.dateVal, nil
}

// AsDateTime returns the local datetime payload.
func (v *Value) AsDateTime() (civil.DateTime, error) {
	if err := v.expect(KindDateTime); err != nil {
		return civil.DateTime{}, err
	}
	return v.dateTimeVal, nil
}

// AsZonedDateTime returns the zoned datetime payload.
func (v *Value) AsZonedDateTime() (time.Time, error) {
	if err := v.expect(KindZonedDateTime); err != nil {
		return time.Time{}, err
	}
	return v.zonedVal, nil
}

// AsTime returns the time-of-day payload.
func (v *Value) AsTime() (civil.Time, error) {
	if err := v.expect(KindTime); err != nil {
		return civil.Time{}, err
	}
	return v.timeVal, nil
}

// AsTimeDelta returns the duration payload.
func (v *Value) AsTimeDelta() (time.Duration, error) {
	if err := v.expect(KindTimeDelta); err != nil {
		return 0, err
	}
	return v.deltaVal, nil
}

// AsUUID returns the uuid payload.
func (v *Value) AsUUID() (uuid.UUID, error) {
	if err := v.expect(KindUUID); err != nil {
		return uuid.UUID{}, err
	}
	return v.uuidVal, nil
}

// AsPath returns the path payload.
func (v *Value) AsPath() (Path, error) {
	if err := v.expect(KindPath); err != nil {
		return "", err
	}
	return Path(v.strVal), nil
}

// Items returns the items of a sequence, or nil.
func (v *Value) Items() []*Value {
	if v == nil || !v.kind.IsSequence() {
		return nil
	}
	return v.items
}

// Entries returns the entries of a map or the fields of a dataclass, or nil.
func (v *Value) Entries() []MapEntry {
	if v == nil || (v.kind != KindMap && v.kind != KindDataclass) {
		return nil
	}
	return v.entries
}

// Get returns the map entry or dataclass field with the given key, or nil.
func (v *Value) Get(key string) *Value {
	for _, e := range v.Entries() {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Inner returns the value carried by an enum member, or nil.
func (v *Value) Inner() *Value {
	if v == nil || v.kind != KindEnum {
		return nil
	}
	return v.inner
}

// Len returns the number of items, entries or fields.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindList, KindTuple, KindSet, KindFrozenSet:
		return len(v.items)
	case KindMap, KindDataclass:
		return len(v.entries)
	default:
		return 0
	}
}

// ============================================================
// Equality
// ============================================================

// Equal reports whether two values are structurally equal. NaN equals NaN,
// zoned datetimes compare by instant and zone name, and set members compare
// without regard to order.
func (v *Value) Equal(other *Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	if v.IsNull() {
		return true
	}
	switch v.kind {
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInt:
		return v.intVal == other.intVal
	case KindFloat:
		if math.IsNaN(v.floatVal) {
			return math.IsNaN(other.floatVal)
		}
		return v.floatVal == other.floatVal
	case KindStr, KindPath:
		return v.strVal == other.strVal
	case KindDate:
		return v.dateVal == other.dateVal
	case KindDateTime:
		return v.dateTimeVal == other.dateTimeVal
	case KindZonedDateTime:
		return v.zonedVal.Equal(other.zonedVal) &&
			v.zonedVal.Location().String() == other.zonedVal.Location().String()
	case KindTime:
		return v.timeVal == other.timeVal
	case KindTimeDelta:
		return v.deltaVal == other.deltaVal
	case KindUUID:
		return v.uuidVal == other.uuidVal
	case KindList, KindTuple:
		return v.class == other.class && equalItems(v.items, other.items)
	case KindSet, KindFrozenSet:
		return v.class == other.class && equalMembers(v.items, other.items)
	case KindMap, KindDataclass:
		return v.class == other.class && equalEntries(v.entries, other.entries)
	case KindEnum:
		return v.class == other.class && v.inner.Equal(other.inner)
	}
	return false
}

func equalItems(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalMembers(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && x.Equal(y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func equalEntries(a, b []MapEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// String returns a single-line rendering of the value.
func (v *Value) String() string {
	return FormatWithOptions(v, FormatOptions{})
}
