package tagjson

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

var (
	timeType           = reflect.TypeOf(time.Time{})
	durationType       = reflect.TypeOf(time.Duration(0))
	dateType           = reflect.TypeOf(civil.Date{})
	dateTimeType       = reflect.TypeOf(civil.DateTime{})
	clockType          = reflect.TypeOf(civil.Time{})
	uuidType           = reflect.TypeOf(uuid.UUID{})
	bigIntType         = reflect.TypeOf(big.Int{})
	pathType           = reflect.TypeOf(Path(""))
	tupleType          = reflect.TypeOf(Tuple(nil))
	setType            = reflect.TypeOf(Set{})
	frozenSetType      = reflect.TypeOf(FrozenSet{})
	recordType         = reflect.TypeOf(Record{})
	unserializableType = reflect.TypeOf(Unserializable{})

	enumeratedType = reflect.TypeOf((*Enumerated)(nil)).Elem()
	sequenceType   = reflect.TypeOf((*Sequence)(nil)).Elem()
	qualnamerType  = reflect.TypeOf((*Qualnamer)(nil)).Elem()
	defaulterType  = reflect.TypeOf((*Defaulter)(nil)).Elem()
)

// leafStructs are struct types with their own encoding; they are never
// flattened or treated as dataclasses.
var leafStructs = map[reflect.Type]bool{
	timeType:      true,
	dateType:      true,
	dateTimeType:  true,
	clockType:     true,
	bigIntType:    true,
	setType:       true,
	frozenSetType: true,
}

func isEnumType(t reflect.Type) bool     { return t.Implements(enumeratedType) }
func isSequenceType(t reflect.Type) bool { return t.Implements(sequenceType) }

// qualnameOf returns the class name of v: its Qualname when it has one,
// else the Go type name.
func qualnameOf(v reflect.Value) string {
	if v.Type().Implements(qualnamerType) {
		if q := v.Interface().(Qualnamer).Qualname(); q != "" {
			return q
		}
	}
	return v.Type().Name()
}

// typeQualname is qualnameOf for the zero value of t.
func typeQualname(t reflect.Type) string {
	return qualnameOf(reflect.Zero(t))
}

// ============================================================
// Struct Metadata
// ============================================================

// fieldMeta describes one encoded field of a dataclass struct.
type fieldMeta struct {
	name     string
	index    []int
	typ      reflect.Type
	required bool
}

// structMeta is computed once per struct type and cached.
type structMeta struct {
	typ      reflect.Type
	fields   []fieldMeta
	byName   map[string]int
	defaults reflect.Value        // Cached defaults, compared against on encode
	fresh    func() reflect.Value // Fresh defaults for each decoded instance
}

type cachedMeta struct {
	meta *structMeta
	err  error
}

var structCache sync.Map // reflect.Type → cachedMeta

// structMetaFor returns the cached metadata of struct type t.
func structMetaFor(t reflect.Type) (*structMeta, error) {
	if cached, ok := structCache.Load(t); ok {
		c := cached.(cachedMeta)
		return c.meta, c.err
	}
	meta, err := buildStructMeta(t)
	actual, _ := structCache.LoadOrStore(t, cachedMeta{meta: meta, err: err})
	c := actual.(cachedMeta)
	return c.meta, c.err
}

func buildStructMeta(t reflect.Type) (*structMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}
	meta := &structMeta{typ: t, byName: make(map[string]int)}
	collectFields(t, nil, meta)

	meta.fresh = func() reflect.Value { return reflect.Zero(t) }
	if t.Implements(defaulterType) {
		probe := reflect.Zero(t).Interface().(Defaulter).Defaults()
		dv := reflect.ValueOf(probe)
		if dv.Kind() == reflect.Pointer && !dv.IsNil() {
			dv = dv.Elem()
		}
		if !dv.IsValid() || dv.Type() != t {
			return nil, fmt.Errorf("%s.Defaults returned %T, want %s", t.Name(), probe, t)
		}
		meta.fresh = func() reflect.Value {
			v := reflect.ValueOf(reflect.Zero(t).Interface().(Defaulter).Defaults())
			if v.Kind() == reflect.Pointer {
				v = v.Elem()
			}
			return v
		}
	}
	meta.defaults = meta.fresh()
	return meta, nil
}

// collectFields walks exported fields, flattening embedded non-pointer
// structs. The first field to claim a name keeps it.
func collectFields(t reflect.Type, prefix []int, meta *structMeta) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, required, skip := parseFieldTag(sf)
		if skip {
			continue
		}
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct &&
			!leafStructs[sf.Type] && !isSequenceType(sf.Type) && !isEnumType(sf.Type) {
			collectFields(sf.Type, index, meta)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if _, dup := meta.byName[name]; dup {
			continue
		}
		meta.byName[name] = len(meta.fields)
		meta.fields = append(meta.fields, fieldMeta{
			name:     name,
			index:    index,
			typ:      sf.Type,
			required: required,
		})
	}
}

// parseFieldTag reads `tagjson:"name,required"`, falling back to the name
// in a json tag. A name of "-" skips the field.
func parseFieldTag(sf reflect.StructField) (name string, required, skip bool) {
	tag, ok := sf.Tag.Lookup("tagjson")
	if !ok {
		if jt, ok := sf.Tag.Lookup("json"); ok {
			name, _, _ = strings.Cut(jt, ",")
			return name, false, name == "-"
		}
		return "", false, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "-" && len(parts) == 1 {
		return "", false, true
	}
	for _, opt := range parts[1:] {
		if opt == "required" {
			required = true
		}
	}
	return name, required, false
}

// hasFields reports whether t has at least one encoded field.
func hasFields(t reflect.Type) bool {
	meta, err := structMetaFor(t)
	return err != nil || len(meta.fields) > 0
}

// isDefault reports whether field f of struct value v equals its default.
func (m *structMeta) isDefault(f fieldMeta, v reflect.Value) bool {
	return reflect.DeepEqual(v.FieldByIndex(f.index).Interface(), m.defaults.FieldByIndex(f.index).Interface())
}
