package tagjson

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Test Types
// ============================================================

type Example struct {
	X int    `tagjson:"x"`
	Y string `tagjson:"y"`
	Z []int  `tagjson:"z"`
}

func (Example) Defaults() any { return Example{X: 1, Y: "hi"} }

type Account struct {
	ID    uuid.UUID `tagjson:"id,required"`
	Owner string    `json:"owner"`
	Note  string    `tagjson:"-"`
	Tags  Names
}

type Names []string

type Pair struct{ Tuple }

type Color string

const (
	Red   Color = "red"
	Green Color = "green"
)

func (c Color) EnumValue() any { return string(c) }

type Level int

func (l Level) EnumValue() any { return int(l) }

func (Level) Qualname() string { return "logging.Level" }

type selfEnum int

func (s selfEnum) EnumValue() any { return s }

type node struct {
	Name string `tagjson:"name"`
	Next *node  `tagjson:"next"`
}

func mustSerialize(t *testing.T, obj any) string {
	t.Helper()
	data, err := Serialize(obj)
	require.NoError(t, err)
	return string(data)
}

// ============================================================
// Classifier Table
// ============================================================

func TestClassifierOrder(t *testing.T) {
	assert.Equal(t, []string{
		"null", "datetime", "date", "time", "timedelta", "float", "bool", "int",
		"uuid", "path", "str", "dataclass", "dict", "enum", "containers", "fallback",
	}, ClassifierOrder())
}

// ============================================================
// Scalars
// ============================================================

func TestSerialize_Scalars(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name string
		obj  any
		want string
	}{
		{"nil", nil, `null`},
		{"true", true, `true`},
		{"int", 42, `42`},
		{"negative", int8(-3), `-3`},
		{"uint", uint16(7), `7`},
		{"max int64", int64(math.MaxInt64), `9223372036854775807`},
		{"min int64", int64(math.MinInt64), `-9223372036854775808`},
		{"big int", big.NewInt(-5), `-5`},
		{"float", 1.5, `1.5`},
		{"whole float", 100.0, `100.0`},
		{"zero float", 0.0, `0.0`},
		{"large float", 1e21, `1e+21`},
		{"small float", 1e-7, `1e-7`},
		{"nan", math.NaN(), `"[fl]nan"`},
		{"inf", math.Inf(1), `"[fl]inf"`},
		{"-inf", math.Inf(-1), `"[fl]-inf"`},
		{"string", "hello", `"hello"`},
		{"html", "<a&b>", `"<a&b>"`},
		{"tag lookalike", "[d]2024-01-02", `"[d]2024-01-02"`},
		{"date", civil.Date{Year: 2024, Month: 1, Day: 2}, `"[d]2024-01-02"`},
		{"local datetime", civil.DateTime{
			Date: civil.Date{Year: 2024, Month: 1, Day: 2},
			Time: civil.Time{Hour: 3, Minute: 4, Second: 5},
		}, `"[dt]2024-01-02T03:04:05"`},
		{"utc", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), `"[dt]2024-01-02T03:04:05+00:00[dt.UTC]"`},
		{"fixed zone", time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", 3600)), `"[dt]2024-01-02T03:04:05+01:00"`},
		{"time", civil.Time{Hour: 3, Minute: 4, Second: 5, Nanosecond: 500000000}, `"[tm]03:04:05.5"`},
		{"timedelta", 90 * time.Minute, `"[td]PT1H30M"`},
		{"uuid", id, `"[uu]6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
		{"path", Path("/etc/hosts"), `"[p]/etc/hosts"`},
		{"empty path", Path(""), `"[p]."`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustSerialize(t, tt.obj))
		})
	}
}

func TestSerialize_IntegerBounds(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), 63)
	under := new(big.Int).Neg(new(big.Int).Add(over, big.NewInt(1)))

	for name, obj := range map[string]any{
		"uint64 max": uint64(math.MaxUint64),
		"2^63":       over,
		"-2^63-1":    under,
		"nested":     map[string]any{"a": []any{uint64(1 << 63)}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Serialize(obj)
			var ie *IntegerError
			require.ErrorAs(t, err, &ie)
			var se *SerializeError
			assert.ErrorAs(t, err, &se)
		})
	}

	_, err := Serialize(map[string]any{"a": []any{uint64(1 << 63)}})
	var ie *IntegerError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "9223372036854775808", ie.Value)
	assert.Equal(t, `$["a"][0]`, ie.Path)
}

func TestSerialize_TemporalRange(t *testing.T) {
	midnight := civil.Time{}
	for name, obj := range map[string]any{
		"date year 10000":     civil.Date{Year: 10000, Month: 1, Day: 1},
		"date year 0":         civil.Date{Year: 0, Month: 1, Day: 1},
		"date feb 30":         civil.Date{Year: 2024, Month: 2, Day: 30},
		"datetime year 10000": civil.DateTime{Date: civil.Date{Year: 10000, Month: 1, Day: 1}, Time: midnight},
		"datetime hour 24":    civil.DateTime{Date: civil.Date{Year: 2024, Month: 1, Day: 1}, Time: civil.Time{Hour: 24}},
		"zoned year 12000":    time.Date(12000, 1, 1, 0, 0, 0, 0, time.UTC),
		"zoned year 0":        time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC),
		"time hour 25":        civil.Time{Hour: 25},
		"time nanos":          civil.Time{Nanosecond: 1e9},
		"nested":              map[string]any{"a": []any{civil.Time{Minute: 60}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Serialize(obj)
			var se *SerializeError
			require.ErrorAs(t, err, &se)
		})
	}

	_, err := Serialize(map[string]any{"a": []any{civil.Date{Year: 10000, Month: 1, Day: 1}}})
	var se *SerializeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, `$["a"][0]`, se.Path)
	assert.Contains(t, se.Reason, "year 10000")
}

func TestSerialize_TemporalBounds(t *testing.T) {
	for name, obj := range map[string]any{
		"first date": civil.Date{Year: 1, Month: 1, Day: 1},
		"last date":  civil.Date{Year: 9999, Month: 12, Day: 31},
		"last datetime": civil.DateTime{
			Date: civil.Date{Year: 9999, Month: 12, Day: 31},
			Time: civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999999},
		},
		"last zoned": time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
		"last time":  civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999999},
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Serialize(obj)
			require.NoError(t, err)
			got, err := Deserialize(data)
			require.NoError(t, err)
			assert.Equal(t, obj, got)
		})
	}
}

// ============================================================
// Containers
// ============================================================

func TestSerialize_EndToEnd(t *testing.T) {
	got := mustSerialize(t, map[string]any{"c": nil, "b": []int{1, 2, 3}, "a": 1})
	assert.Equal(t, `{"a":1,"b":[1,2,3],"c":null}`, got)
}

func TestSerialize_Containers(t *testing.T) {
	tests := []struct {
		name string
		obj  any
		want string
	}{
		{"list", []any{1, "a", nil}, `[1,"a",null]`},
		{"empty list", []int{}, `[]`},
		{"array", [2]bool{true, false}, `[true,false]`},
		{"tuple", Tuple{1, "a"}, `{"[tu]":[1,"a"]}`},
		{"set", NewSet(2, 1), `{"[s]":[1,2]}`},
		{"frozenset", NewFrozenSet(), `{"[fr]":[]}`},
		{"named list", Names{"a", "b"}, `{"[l|Names]":["a","b"]}`},
		{"named tuple", Pair{Tuple{1, 2}}, `{"[tu|Pair]":[1,2]}`},
		{"named sequence", NamedSequence{Class: "Bag", Tag: TagSet, Items: []any{"x"}}, `{"[s|Bag]":["x"]}`},
		{"map", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"empty map", map[string]any{}, `{}`},
		{"nested", map[string]any{"t": Tuple{Tuple{}}}, `{"t":{"[tu]":[{"[tu]":[]}]}}`},
		{"anonymous struct", struct {
			A int `tagjson:"a"`
		}{A: 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustSerialize(t, tt.obj))
		})
	}
}

func TestSerialize_KeyError(t *testing.T) {
	_, err := Serialize(map[int]string{1: "a"})
	var ke *KeyError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "int", ke.KeyType)
}

// ============================================================
// Dataclasses
// ============================================================

func TestSerialize_Dataclass(t *testing.T) {
	tests := []struct {
		name string
		obj  any
		want string
	}{
		{"all defaults", Example{X: 1, Y: "hi"}, `{"[dc|Example]":{}}`},
		{"changed", Example{X: 2, Y: "hi", Z: []int{1}}, `{"[dc|Example]":{"x":2,"z":[1]}}`},
		{"pointer", &Example{X: 1, Y: "yo"}, `{"[dc|Example]":{"y":"yo"}}`},
		{"zero value is not default", Example{}, `{"[dc|Example]":{"x":0,"y":""}}`},
		{"record", Record{Class: "pkg.Point", Fields: map[string]any{"y": 2, "x": 1}}, `{"[dc|pkg.Point]":{"x":1,"y":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustSerialize(t, tt.obj))
		})
	}
}

func TestSerialize_FieldTags(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got := mustSerialize(t, Account{ID: id, Note: "skipped", Tags: Names{"x"}})
	assert.Equal(t, `{"[dc|Account]":{"Tags":{"[l|Names]":["x"]},"id":"[uu]6ba7b810-9dad-11d1-80b4-00c04fd430c8"}}`, got)

	got = mustSerialize(t, Account{})
	assert.Equal(t, `{"[dc|Account]":{"id":"[uu]00000000-0000-0000-0000-000000000000"}}`, got)
}

func TestSerialize_DataclassFinalHook(t *testing.T) {
	var seen reflect.Type
	data, err := SerializeWithOptions(Example{X: 5, Y: "hi"}, SerializeOptions{
		DataclassFinalHook: func(typ reflect.Type, fields map[string]*Value) map[string]*Value {
			seen = typ
			fields["extra"] = Str("v")
			return fields
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"[dc|Example]":{"extra":"v","x":5}}`, string(data))
	assert.Equal(t, reflect.TypeOf(Example{}), seen)
}

func TestSerialize_Before(t *testing.T) {
	upper := func(obj any) any {
		if s, ok := obj.(string); ok {
			return strings.ToUpper(s)
		}
		return obj
	}
	data, err := SerializeWithOptions(map[string]any{"a": "b", "c": []any{"d"}}, SerializeOptions{Before: upper})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"B","c":["D"]}`, string(data))
}

func TestSerialize_Indent(t *testing.T) {
	data, err := SerializeWithOptions(map[string]any{"a": 1}, SerializeOptions{Indent: "  "})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}

// ============================================================
// Enums
// ============================================================

func TestSerialize_Enum(t *testing.T) {
	assert.Equal(t, `{"[e|Color]":"red"}`, mustSerialize(t, Red))
	assert.Equal(t, `{"[e|logging.Level]":3}`, mustSerialize(t, Level(3)))
	assert.Equal(t, `{"[e|Mode]":"fast"}`, mustSerialize(t, EnumMember{Class: "Mode", Name: "FAST", Value: "fast"}))
	assert.Equal(t, `[{"[e|Color]":"green"}]`, mustSerialize(t, []Color{Green}))

	_, err := Serialize(selfEnum(1))
	var se *SerializeError
	assert.ErrorAs(t, err, &se)
}

// ============================================================
// Fallback and Cycles
// ============================================================

func TestSerialize_Unserializable(t *testing.T) {
	for name, obj := range map[string]any{
		"chan":  make(chan int),
		"func":  func() {},
		"bytes": []byte("hi"),
		"empty": struct{}{},
	} {
		t.Run(name, func(t *testing.T) {
			v, err := FromGo(obj)
			require.NoError(t, err)
			assert.Equal(t, KindDataclass, v.Kind())
			assert.Equal(t, UnserializableName, v.Class())
			q, err := v.Get("qualname").AsStr()
			require.NoError(t, err)
			assert.Equal(t, reflect.TypeOf(obj).String(), q)
			assert.NotNil(t, v.Get("repr"))
			assert.NotNil(t, v.Get("str"))
		})
	}
}

func TestSerialize_Cycle(t *testing.T) {
	n := &node{Name: "a"}
	n.Next = n
	_, err := Serialize(n)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "*tagjson.node", ce.Type)

	m := map[string]any{}
	m["self"] = m
	_, err = Serialize(m)
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "cycle")
}

type opaque struct {
	m map[string]any
}

func TestSerialize_UnserializableCycle(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	s := []any{nil}
	s[0] = s

	for name, obj := range map[string]any{
		"map":     opaque{m: m},
		"pointer": &opaque{m: m},
		"slice":   struct{ s []any }{s: s},
	} {
		t.Run(name, func(t *testing.T) {
			v, err := FromGo(obj)
			require.NoError(t, err)
			assert.Equal(t, UnserializableName, v.Class())
			repr, err := v.Get("repr").AsStr()
			require.NoError(t, err)
			assert.Contains(t, repr, "<cycle>")
			str, err := v.Get("str").AsStr()
			require.NoError(t, err)
			assert.Equal(t, "<cycle>", str)
		})
	}
}

func TestSerialize_UnserializableShared(t *testing.T) {
	shared := map[string]any{"k": 1}
	v, err := FromGo(opaque{m: map[string]any{"a": shared, "b": shared}})
	require.NoError(t, err)
	str, err := v.Get("str").AsStr()
	require.NoError(t, err)
	assert.Equal(t, "{map[a:map[k:1] b:map[k:1]]}", str)
}

func TestSerialize_UnserializableSkipsBefore(t *testing.T) {
	var seen []string
	opts := SerializeOptions{Before: func(v any) any {
		seen = append(seen, reflect.TypeOf(v).String())
		return v
	}}
	data, err := SerializeWithOptions(make(chan int), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"chan int"}, seen)
	assert.Contains(t, string(data), `"[dc|Unserializable]"`)
}

func TestSerialize_SharedReference(t *testing.T) {
	shared := []int{1}
	leaf := &node{Name: "leaf"}
	got := mustSerialize(t, map[string]any{
		"a": shared,
		"b": shared,
		"c": []*node{leaf, leaf},
	})
	assert.Equal(t, `{"a":[1],"b":[1],"c":[{"[dc|node]":{"name":"leaf"}},{"[dc|node]":{"name":"leaf"}}]}`, got)
}
