package tagjson

import (
	"fmt"
	"reflect"
	"sort"
)

// ============================================================
// Type Hooks
// ============================================================

// Qualnamer overrides the class name written into [dc|...], [e|...] and
// named container tags. Without it the Go type name is used.
type Qualnamer interface {
	Qualname() string
}

// Enumerated marks a type as an enum. EnumValue returns the member's value,
// which must not itself be Enumerated.
type Enumerated interface {
	EnumValue() any
}

// Defaulter supplies the declared defaults of a struct type. Defaults must
// return a value of the same type. Fields equal to their default are left out
// of the encoding.
type Defaulter interface {
	Defaults() any
}

// Sequence is implemented by collection types encoded under a container tag.
// Types embedding Tuple, Set or FrozenSet get it by promotion.
type Sequence interface {
	SequenceTag() Tag
	SequenceItems() []any
}

// ============================================================
// Path and Tuple
// ============================================================

// Path is a filesystem path, encoded as [p]<path>.
type Path string

// String returns the path text, "." for the empty path.
func (p Path) String() string {
	if p == "" {
		return "."
	}
	return string(p)
}

// Tuple is a fixed sequence, encoded as {"[tu]": [...]}.
type Tuple []any

func (t Tuple) SequenceTag() Tag     { return TagTuple }
func (t Tuple) SequenceItems() []any { return t }

// ============================================================
// Set and FrozenSet
// ============================================================

// memberSet stores items keyed by their canonical encoding, so members
// that encode identically are the same member.
type memberSet map[string]any

func memberKey(item any) string {
	data, err := Serialize(item)
	if err != nil {
		return fmt.Sprintf("%T:%v", item, item)
	}
	return string(data)
}

func newMemberSet(items []any) memberSet {
	m := make(memberSet, len(items))
	for _, item := range items {
		m[memberKey(item)] = item
	}
	return m
}

func (m memberSet) has(item any) bool {
	_, ok := m[memberKey(item)]
	return ok
}

// items returns the members ordered by their canonical encoding.
func (m memberSet) items() []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func (m memberSet) equal(other memberSet) bool {
	if len(m) != len(other) {
		return false
	}
	for k := range m {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Set is a mutable set, encoded as {"[s]": [...]}.
type Set struct {
	members memberSet
}

// NewSet creates a set holding items.
func NewSet(items ...any) Set {
	return Set{members: newMemberSet(items)}
}

// Add inserts item.
func (s *Set) Add(item any) {
	if s.members == nil {
		s.members = make(memberSet)
	}
	s.members[memberKey(item)] = item
}

// Remove deletes item if present.
func (s *Set) Remove(item any) {
	delete(s.members, memberKey(item))
}

// Has reports whether item is a member.
func (s Set) Has(item any) bool { return s.members.has(item) }

// Len returns the number of members.
func (s Set) Len() int { return len(s.members) }

// Items returns the members in canonical order.
func (s Set) Items() []any { return s.members.items() }

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool { return s.members.equal(other.members) }

func (s Set) SequenceTag() Tag     { return TagSet }
func (s Set) SequenceItems() []any { return s.Items() }

// FrozenSet is an immutable set, encoded as {"[fr]": [...]}.
type FrozenSet struct {
	members memberSet
}

// NewFrozenSet creates a frozen set holding items.
func NewFrozenSet(items ...any) FrozenSet {
	return FrozenSet{members: newMemberSet(items)}
}

// Has reports whether item is a member.
func (s FrozenSet) Has(item any) bool { return s.members.has(item) }

// Len returns the number of members.
func (s FrozenSet) Len() int { return len(s.members) }

// Items returns the members in canonical order.
func (s FrozenSet) Items() []any { return s.members.items() }

// Equal reports whether both sets hold the same members.
func (s FrozenSet) Equal(other FrozenSet) bool { return s.members.equal(other.members) }

func (s FrozenSet) SequenceTag() Tag     { return TagFrozenSet }
func (s FrozenSet) SequenceItems() []any { return s.Items() }

// ============================================================
// Schema-Declared Objects
// ============================================================

// Record is an instance of a dataclass known only by name, such as one
// declared in a schema file. It encodes every field it holds.
type Record struct {
	Class  string
	Fields map[string]any
}

func (r Record) Qualname() string { return r.Class }

// EnumMember is a member of an enum known only by name.
type EnumMember struct {
	Class string
	Name  string
	Value any
}

func (m EnumMember) Qualname() string { return m.Class }
func (m EnumMember) EnumValue() any   { return m.Value }

// NamedSequence is an instance of a named collection type known only by name.
type NamedSequence struct {
	Class string
	Tag   Tag
	Items []any
}

func (n NamedSequence) Qualname() string     { return n.Class }
func (n NamedSequence) SequenceTag() Tag     { return n.Tag }
func (n NamedSequence) SequenceItems() []any { return n.Items }

// ============================================================
// Unserializable
// ============================================================

// UnserializableName is the class name of the fallback record. It resolves
// without caller-supplied objects.
const UnserializableName = "Unserializable"

// Unserializable captures a value of a type the encoder does not support.
type Unserializable struct {
	Qualname string `tagjson:"qualname,required"`
	Repr     string `tagjson:"repr,required"`
	Str      string `tagjson:"str,required"`
}

// cycleMarker replaces Repr and Str of a value that refers back to itself.
const cycleMarker = "<cycle>"

func newUnserializable(v any) Unserializable {
	u := Unserializable{Qualname: fmt.Sprintf("%T", v)}
	if printsCycle(v) {
		u.Repr = u.Qualname + "{" + cycleMarker + "}"
		u.Str = cycleMarker
		return u
	}
	u.Repr = fmt.Sprintf("%#v", v)
	u.Str = fmt.Sprint(v)
	return u
}

// printsCycle reports whether fmt would revisit a map or slice it is still
// printing. fmt prints nested pointers as addresses, so only a top-level
// pointer is followed.
func printsCycle(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return walksCycle(rv, make(map[visit]bool))
}

func walksCycle(rv reflect.Value, active map[visit]bool) bool {
	switch rv.Kind() {
	case reflect.Interface:
		return !rv.IsNil() && walksCycle(rv.Elem(), active)

	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
		key := visit{ptr: rv.Pointer(), typ: rv.Type()}
		if rv.Kind() == reflect.Slice {
			key.len = rv.Len()
		}
		if active[key] {
			return true
		}
		active[key] = true
		defer delete(active, key)

		if rv.Kind() == reflect.Map {
			iter := rv.MapRange()
			for iter.Next() {
				if walksCycle(iter.Key(), active) || walksCycle(iter.Value(), active) {
					return true
				}
			}
			return false
		}
		return walksItems(rv, active)

	case reflect.Array:
		return walksItems(rv, active)

	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if walksCycle(rv.Field(i), active) {
				return true
			}
		}
	}
	return false
}

func walksItems(rv reflect.Value, active map[visit]bool) bool {
	if k := rv.Type().Elem().Kind(); k <= reflect.Complex128 || k == reflect.String {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if walksCycle(rv.Index(i), active) {
			return true
		}
	}
	return false
}
