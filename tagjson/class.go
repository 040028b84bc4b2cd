package tagjson

import (
	"fmt"
	"reflect"
	"sync"
)

// ClassKind is the category of a resolvable class.
type ClassKind uint8

const (
	ClassDataclass ClassKind = iota
	ClassEnum
	ClassList
	ClassTuple
	ClassSet
	ClassFrozenSet
)

// String returns the kind name.
func (k ClassKind) String() string {
	switch k {
	case ClassDataclass:
		return "dataclass"
	case ClassEnum:
		return "enum"
	case ClassList:
		return "list"
	case ClassTuple:
		return "tuple"
	case ClassSet:
		return "set"
	case ClassFrozenSet:
		return "frozenset"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Tag returns the container tag under which classes of this kind appear.
func (k ClassKind) Tag() Tag {
	switch k {
	case ClassEnum:
		return TagEnum
	case ClassList:
		return TagList
	case ClassTuple:
		return TagTuple
	case ClassSet:
		return TagSet
	case ClassFrozenSet:
		return TagFrozenSet
	default:
		return TagDataclass
	}
}

// ClassKindOf returns the class kind for a container tag.
func ClassKindOf(t Tag) (ClassKind, bool) {
	switch t {
	case TagDataclass:
		return ClassDataclass, true
	case TagEnum:
		return ClassEnum, true
	case TagList:
		return ClassList, true
	case TagTuple:
		return ClassTuple, true
	case TagSet:
		return ClassSet, true
	case TagFrozenSet:
		return ClassFrozenSet, true
	default:
		return 0, false
	}
}

// BuildFunc constructs an instance of a class. raw is the undecoded node.
// data is map[string]any of decoded fields for dataclasses, the decoded
// member value for enums and []any of decoded items for collections.
type BuildFunc func(raw *Value, data any) (any, error)

// Class describes a type that can be reconstructed from its qualname.
type Class struct {
	Name  string
	Kind  ClassKind
	Type  reflect.Type // nil for classes with no Go type
	build BuildFunc
}

// NewClass creates a class with a custom constructor.
func NewClass(name string, kind ClassKind, build BuildFunc) *Class {
	return &Class{Name: name, Kind: kind, build: build}
}

// Build constructs an instance from a decoded node and its materialized data.
func (c *Class) Build(raw *Value, data any) (any, error) {
	if c.build == nil {
		return nil, deserializeErrorf(c.Name, "class has no constructor")
	}
	return c.build(raw, data)
}

func (c *Class) String() string {
	return c.Kind.String() + " " + c.Name
}

// ============================================================
// Dataclasses
// ============================================================

// DataclassOf describes struct type T. Decoding starts from T's defaults,
// sets every encoded field, and rejects unknown or missing required fields.
func DataclassOf[T any]() *Class {
	return dataclassClass(reflect.TypeOf((*T)(nil)).Elem())
}

func dataclassClass(t reflect.Type) *Class {
	if t.Kind() != reflect.Struct {
		panic("tagjson: dataclass type must be a struct, got " + t.String())
	}
	return &Class{
		Name: typeQualname(t),
		Kind: ClassDataclass,
		Type: t,
		build: func(raw *Value, data any) (any, error) {
			fields, _ := data.(map[string]any)
			return buildStruct(t, fields)
		},
	}
}

func buildStruct(t reflect.Type, fields map[string]any) (any, error) {
	meta, err := structMetaFor(t)
	if err != nil {
		return nil, deserializeErrorf(t.Name(), "%v", err)
	}
	name := typeQualname(t)
	out := reflect.New(t).Elem()
	out.Set(meta.fresh())
	for _, key := range sortedKeys(fields) {
		i, ok := meta.byName[key]
		if !ok {
			return nil, deserializeErrorf(name, "unknown field %q", key)
		}
		f := meta.fields[i]
		if err := assign(out.FieldByIndex(f.index), fields[key]); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, key, err)
		}
	}
	for _, f := range meta.fields {
		if _, ok := fields[f.name]; f.required && !ok {
			return nil, deserializeErrorf(name, "missing required field %q", f.name)
		}
	}
	return out.Interface(), nil
}

var unserializableClass = dataclassClass(unserializableType)

// ============================================================
// Enums
// ============================================================

// EnumOf describes enum type T with the given members. Decoding returns
// the unique member whose EnumValue encodes equal to the decoded value.
func EnumOf[T Enumerated](members ...T) *Class {
	t := reflect.TypeOf((*T)(nil)).Elem()
	name := typeQualname(t)

	var (
		once   sync.Once
		values []*Value
		err    error
	)
	return &Class{
		Name: name,
		Kind: ClassEnum,
		Type: t,
		build: func(raw *Value, _ any) (any, error) {
			once.Do(func() {
				for _, m := range members {
					v, e := FromGo(m.EnumValue())
					if e != nil {
						err = e
						return
					}
					values = append(values, v)
				}
			})
			if err != nil {
				return nil, deserializeErrorf(name, "encode members: %v", err)
			}
			idx, lerr := LookupMember(name, values, raw.Inner())
			if lerr != nil {
				return nil, lerr
			}
			return members[idx], nil
		},
	}
}

// LookupMember returns the index of the single member value equal to v.
func LookupMember(class string, values []*Value, v *Value) (int, error) {
	found := -1
	for i, mv := range values {
		if !mv.Equal(v) {
			continue
		}
		if found >= 0 {
			return -1, deserializeErrorf(class, "more than one member has value %s", v)
		}
		found = i
	}
	if found < 0 {
		return -1, deserializeErrorf(class, "no member has value %s", v)
	}
	return found, nil
}

// ============================================================
// Named Collections
// ============================================================

// ContainerOf describes a named collection type T: a named slice or array
// (list), or a type implementing Sequence, including structs that embed
// Tuple, Set or FrozenSet.
func ContainerOf[T any]() *Class {
	t := reflect.TypeOf((*T)(nil)).Elem()
	kind, ok := containerKind(t)
	if !ok {
		panic("tagjson: " + t.String() + " is not a collection type")
	}
	return &Class{
		Name: typeQualname(t),
		Kind: kind,
		Type: t,
		build: func(raw *Value, data any) (any, error) {
			items, _ := data.([]any)
			return buildSequence(t, items)
		},
	}
}

func containerKind(t reflect.Type) (ClassKind, bool) {
	if isSequenceType(t) {
		k, ok := ClassKindOf(reflect.Zero(t).Interface().(Sequence).SequenceTag())
		return k, ok && k != ClassDataclass && k != ClassEnum
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		return ClassList, true
	}
	return 0, false
}

// buildSequence constructs collection type t holding items.
func buildSequence(t reflect.Type, items []any) (any, error) {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		out := reflect.New(t).Elem()
		if err := assign(out, items); err != nil {
			return nil, err
		}
		return out.Interface(), nil
	case reflect.Struct:
		out := reflect.New(t).Elem()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.Anonymous || !sf.IsExported() {
				continue
			}
			switch sf.Type {
			case tupleType:
				out.Field(i).Set(reflect.ValueOf(Tuple(items)))
				return out.Interface(), nil
			case setType:
				out.Field(i).Set(reflect.ValueOf(NewSet(items...)))
				return out.Interface(), nil
			case frozenSetType:
				out.Field(i).Set(reflect.ValueOf(NewFrozenSet(items...)))
				return out.Interface(), nil
			}
		}
	}
	return nil, deserializeErrorf(t.Name(), "cannot construct %s from items", t)
}
