package tagjson

import (
	"math"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Value Accessors
// ============================================================

func TestValue_Accessors(t *testing.T) {
	i, err := Int(5).AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(5), i)

	_, err = Int(5).AsStr()
	assert.EqualError(t, err, "tagjson: expected str, got int")

	var nilValue *Value
	assert.True(t, nilValue.IsNull())
	assert.Equal(t, KindNull, nilValue.Kind())
	assert.Equal(t, 0, nilValue.Len())

	p, err := PathOf("/tmp").AsPath()
	require.NoError(t, err)
	assert.Equal(t, Path("/tmp"), p)

	d, err := Date(civil.Date{Year: 2024, Month: 2, Day: 29}).AsDate()
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day)

	m := Map(FieldEntry("b", Int(2)), FieldEntry("a", Int(1)))
	assert.Equal(t, "a", m.Entries()[0].Key)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Get("b").Equal(Int(2)))
	assert.Nil(t, m.Get("c"))
	assert.Nil(t, m.Items())

	e := Enum("Color", nil)
	assert.True(t, e.Inner().IsNull())
	assert.Equal(t, "Color", e.Class())
}

func TestSequence_PanicsOnNonSequenceKind(t *testing.T) {
	assert.Panics(t, func() { NewSequence(KindMap, "") })
	assert.NotPanics(t, func() { NewSequence(KindFrozenSet, "Bag", Int(1)) })
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "zoned_datetime", KindZonedDateTime.String())
	assert.Equal(t, "frozenset", KindFrozenSet.String())
	assert.True(t, KindTuple.IsSequence())
	assert.False(t, KindMap.IsSequence())
}

// ============================================================
// Equality
// ============================================================

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *Value
		equal bool
	}{
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"int vs float", Int(1), Float(1), false},
		{"null vs nil", Null(), nil, true},
		{"set order", NewSequence(KindSet, "", Int(1), Int(2)), NewSequence(KindSet, "", Int(2), Int(1)), true},
		{"list order", List(Int(1), Int(2)), List(Int(2), Int(1)), false},
		{"set size", NewSequence(KindSet, "", Int(1)), NewSequence(KindSet, "", Int(1), Int(1)), false},
		{"class", NewSequence(KindList, "A"), NewSequence(KindList, "B"), false},
		{"tuple vs list", NewSequence(KindTuple, ""), List(), false},
		{"dataclass", Dataclass("A", FieldEntry("x", Int(1))), Dataclass("A", FieldEntry("x", Int(1))), true},
		{"dataclass field", Dataclass("A", FieldEntry("x", Int(1))), Dataclass("A", FieldEntry("x", Int(2))), false},
		{"enum", Enum("E", Str("a")), Enum("E", Str("a")), true},
		{"same instant, other zone",
			ZonedDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			ZonedDateTime(time.Date(2024, 1, 1, 1, 0, 0, 0, time.FixedZone("", 3600))),
			false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

// ============================================================
// Collections
// ============================================================

func TestSet(t *testing.T) {
	s := NewSet(1, "a")
	s.Add(int64(1))
	assert.Equal(t, 2, s.Len())
	s.Add(Tuple{1, 2})
	assert.True(t, s.Has(Tuple{1, 2}))
	s.Remove("a")
	assert.False(t, s.Has("a"))
	assert.True(t, s.Equal(NewSet(Tuple{1, 2}, 1)))

	var empty Set
	empty.Add("x")
	assert.Equal(t, []any{"x"}, empty.Items())

	fs := NewFrozenSet(1, 1, 2)
	assert.Equal(t, 2, fs.Len())
	assert.True(t, fs.Equal(NewFrozenSet(2, 1)))
}

func TestPath_String(t *testing.T) {
	assert.Equal(t, ".", Path("").String())
	assert.Equal(t, "a/b", Path("a/b").String())
}
