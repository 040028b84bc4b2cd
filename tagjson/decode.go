package tagjson

import (
	"fmt"
	"reflect"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

// DeserializeOptions configures class resolution.
type DeserializeOptions struct {
	// Objects is an allow-list of classes matched by name.
	Objects []*Class

	// Redirects maps names to classes. Consulted after Objects.
	Redirects map[string]*Class

	// Resolver replaces Objects and Redirects when set.
	Resolver Resolver
}

func (o DeserializeOptions) resolver() Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return NewResolver(o.Objects, o.Redirects)
}

// Deserialize decodes tagged JSON. Dataclasses and enums other than
// Unserializable need DeserializeWithOptions.
func Deserialize(data []byte) (any, error) {
	return DeserializeWithOptions(data, DeserializeOptions{})
}

// DeserializeWithOptions decodes tagged JSON, resolving class names with
// the given objects and redirects.
func DeserializeWithOptions(data []byte, opts DeserializeOptions) (any, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, withData(err, data)
	}
	out, err := Materialize(v, opts)
	if err != nil {
		return nil, withData(err, data)
	}
	return out, nil
}

// DeserializeInto decodes tagged JSON into dst, which must be a non-nil
// pointer. When dst points to a struct or named collection, that type is
// added to the allow-list under its own name unless already present.
func DeserializeInto(data []byte, dst any, opts DeserializeOptions) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &DeserializeError{Data: data, Reason: fmt.Sprintf("destination must be a non-nil pointer, got %T", dst)}
	}
	if opts.Resolver == nil {
		if c := classForTarget(rv.Elem().Type()); c != nil && !hasClass(opts.Objects, c.Name) {
			opts.Objects = append(append([]*Class(nil), opts.Objects...), c)
		}
	}
	out, err := DeserializeWithOptions(data, opts)
	if err != nil {
		return err
	}
	if err := assign(rv.Elem(), out); err != nil {
		return withData(err, data)
	}
	return nil
}

func classForTarget(t reflect.Type) *Class {
	switch {
	case t.Name() == "" || isEnumType(t) || t == uuidType:
		return nil
	case t.Kind() == reflect.Struct && !leafStructs[t] && !isSequenceType(t) && t != recordType:
		return dataclassClass(t)
	}
	if kind, ok := containerKind(t); ok && !plainSequences[t] {
		return &Class{Name: typeQualname(t), Kind: kind, Type: t, build: func(_ *Value, data any) (any, error) {
			items, _ := data.([]any)
			return buildSequence(t, items)
		}}
	}
	return nil
}

func hasClass(classes []*Class, name string) bool {
	for _, c := range classes {
		if c != nil && c.Name == name {
			return true
		}
	}
	return false
}

// ============================================================
// JSON Tree → Value
// ============================================================

// DecodeValue parses tagged JSON into a Value tree without resolving
// class names.
func DecodeValue(data []byte) (*Value, error) {
	tree, err := readJSON(data)
	if err != nil {
		return nil, err
	}
	return fromJSON(tree)
}

func fromJSON(node any) (*Value, error) {
	switch x := node.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return parseNumber(x)
	case float64:
		return Float(x), nil
	case string:
		return decodeString(x)
	case []any:
		items := make([]*Value, len(x))
		for i, elem := range x {
			v, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		if len(x) == 1 {
			for key, inner := range x {
				tag, qualname, ok, err := matchContainer(key)
				if err != nil {
					return nil, err
				}
				if ok {
					return decodeContainer(tag, qualname, inner)
				}
			}
		}
		entries := make([]MapEntry, 0, len(x))
		for _, k := range sortedKeys(x) {
			v, err := fromJSON(x[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		return &Value{kind: KindMap, entries: entries}, nil
	default:
		return nil, &DeserializeError{Reason: fmt.Sprintf("unsupported JSON type %T", node)}
	}
}

// decodeString recognizes tagged scalars. Strings matching no pattern are
// plain strings; a matching string whose payload does not parse is an error.
func decodeString(s string) (*Value, error) {
	m, ok, err := matchUnit(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Str(s), nil
	}
	switch m.pattern {
	case "date":
		d, err := civil.ParseDate(m.payload)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return Date(d), nil
	case "float":
		f, err := strconv.ParseFloat(m.payload, 64)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return Float(f), nil
	case "local_datetime":
		dt, err := civil.ParseDateTime(m.payload)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return DateTime(dt), nil
	case "path":
		return PathOf(m.payload), nil
	case "time":
		t, err := civil.ParseTime(m.payload)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return TimeOfDay(t), nil
	case "timedelta":
		d, err := parseDuration(m.payload)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return TimeDelta(d), nil
	case "uuid":
		u, err := uuid.Parse(m.payload)
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return UUID(u), nil
	case "zoned_datetime", "zoned_datetime_utc":
		t, err := parseZoned(m.payload, m.zone, m.pattern == "zoned_datetime_utc")
		if err != nil {
			return nil, newPayloadError(m.tag, m.payload, err)
		}
		return ZonedDateTime(t), nil
	}
	return Str(s), nil
}

func decodeContainer(tag Tag, qualname string, inner any) (*Value, error) {
	key := tag.Key(qualname)
	switch tag {
	case TagDataclass:
		if qualname == "" {
			return nil, deserializeErrorf("", "%s has no class name", key)
		}
		obj, ok := inner.(map[string]any)
		if !ok {
			return nil, deserializeErrorf(qualname, "%s must hold an object, got %T", key, inner)
		}
		fields := make([]MapEntry, 0, len(obj))
		for _, k := range sortedKeys(obj) {
			v, err := fromJSON(obj[k])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", qualname, k, err)
			}
			fields = append(fields, MapEntry{Key: k, Value: v})
		}
		return &Value{kind: KindDataclass, class: qualname, entries: fields}, nil

	case TagEnum:
		if qualname == "" {
			return nil, deserializeErrorf("", "%s has no class name", key)
		}
		v, err := fromJSON(inner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return Enum(qualname, v), nil
	}

	kind, _ := tagSequenceKind(tag)
	arr, ok := inner.([]any)
	if !ok {
		return nil, deserializeErrorf(qualname, "%s must hold an array, got %T", key, inner)
	}
	items := make([]*Value, len(arr))
	for i, elem := range arr {
		v, err := fromJSON(elem)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		items[i] = v
	}
	return &Value{kind: kind, class: qualname, items: items}, nil
}

// ============================================================
// Value → Go
// ============================================================

// Materialize turns a Value tree into Go values, resolving class names
// with opts.
func Materialize(v *Value, opts DeserializeOptions) (any, error) {
	m := &materializer{resolver: opts.resolver()}
	return m.materialize(v)
}

type materializer struct {
	resolver Resolver
}

// resolve looks up a class. Unserializable is always known.
func (m *materializer) resolve(qualname string, want ClassKind) (*Class, error) {
	var (
		c   *Class
		err error
	)
	if qualname == UnserializableName && want == ClassDataclass {
		c = unserializableClass
	} else {
		c, err = m.resolver.Resolve(qualname)
		if err != nil {
			return nil, err
		}
	}
	if c.Kind != want {
		return nil, deserializeErrorf(qualname, "class is a %s, input has a %s", c.Kind, want)
	}
	return c, nil
}

func (m *materializer) materialize(v *Value) (any, error) {
	switch v.Kind() {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boolVal, nil
	case KindInt:
		return v.intVal, nil
	case KindFloat:
		return v.floatVal, nil
	case KindStr:
		return v.strVal, nil
	case KindDate:
		return v.dateVal, nil
	case KindDateTime:
		return v.dateTimeVal, nil
	case KindZonedDateTime:
		return v.zonedVal, nil
	case KindTime:
		return v.timeVal, nil
	case KindTimeDelta:
		return v.deltaVal, nil
	case KindUUID:
		return v.uuidVal, nil
	case KindPath:
		return Path(v.strVal), nil
	case KindList, KindTuple, KindSet, KindFrozenSet:
		return m.materializeSequence(v)
	case KindMap:
		out := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			x, err := m.materialize(e.Value)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", e.Key, err)
			}
			out[e.Key] = x
		}
		return out, nil
	case KindDataclass:
		c, err := m.resolve(v.class, ClassDataclass)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			x, err := m.materialize(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", v.class, e.Key, err)
			}
			fields[e.Key] = x
		}
		return c.Build(v, fields)
	case KindEnum:
		c, err := m.resolve(v.class, ClassEnum)
		if err != nil {
			return nil, err
		}
		x, err := m.materialize(v.inner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.class, err)
		}
		return c.Build(v, x)
	}
	return nil, deserializeErrorf("", "cannot materialize %s", v.Kind())
}

func (m *materializer) materializeSequence(v *Value) (any, error) {
	items := make([]any, len(v.items))
	for i, item := range v.items {
		x, err := m.materialize(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", v.kind, i, err)
		}
		items[i] = x
	}
	tag := sequenceKindTag(v.kind)
	if v.class != "" {
		want, _ := ClassKindOf(tag)
		c, err := m.resolve(v.class, want)
		if err != nil {
			return nil, err
		}
		return c.Build(v, items)
	}
	switch v.kind {
	case KindTuple:
		return Tuple(items), nil
	case KindSet:
		return NewSet(items...), nil
	case KindFrozenSet:
		return NewFrozenSet(items...), nil
	}
	return items, nil
}
