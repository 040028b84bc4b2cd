// Package schema declares classes for tagged JSON in data files instead of
// Go types. A schema lists dataclasses with their fields, enums with their
// members and named collections with their item types. It can produce
// tagjson.Class descriptors for decoding and validate decoded value trees.
package schema

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/zeebo/blake3"
)

// Schema is a set of class definitions keyed by qualname.
type Schema struct {
	Classes map[string]*ClassDef // Qualname → definition
	Hash    string               // BLAKE3 of canonical schema text
}

// ClassDef defines one class.
type ClassDef struct {
	Name    string            // Qualname, e.g. "shop.Order"
	Kind    tagjson.ClassKind // dataclass, enum or a collection kind
	Fields  []*FieldDef       // For dataclasses
	Members []*MemberDef      // For enums
	Items   TypeSpec          // Item type for collections
}

// FieldDef defines a dataclass field.
type FieldDef struct {
	Name       string
	Type       TypeSpec
	Required   bool // Must be present when decoding
	Default    any  // Used when the field is absent
	HasDefault bool
}

// MemberDef defines an enum member.
type MemberDef struct {
	Name  string
	Value any
}

// TypeSpec describes the type of a field or collection item.
type TypeSpec struct {
	Kind TypeKind
	Name string    // For Kind == TypeRef
	Elem *TypeSpec // For containers; nil means any
}

// TypeKind is the kind of a type specification.
type TypeKind uint8

const (
	TypeAny TypeKind = iota
	TypeNull
	TypeBool
	TypeInt
	TypeFloat
	TypeStr
	TypeDate
	TypeDateTime
	TypeTime
	TypeTimeDelta
	TypeUUID
	TypePath
	TypeList      // list<T>
	TypeTuple     // tuple<T>
	TypeSet       // set<T>
	TypeFrozenSet // frozenset<T>
	TypeMap       // map<T>, string keys
	TypeRef       // Reference to a class
)

var kindNames = [...]string{
	TypeAny:       "any",
	TypeNull:      "null",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeStr:       "str",
	TypeDate:      "date",
	TypeDateTime:  "datetime",
	TypeTime:      "time",
	TypeTimeDelta: "timedelta",
	TypeUUID:      "uuid",
	TypePath:      "path",
	TypeList:      "list",
	TypeTuple:     "tuple",
	TypeSet:       "set",
	TypeFrozenSet: "frozenset",
	TypeMap:       "map",
}

// String returns the kind name.
func (k TypeKind) String() string {
	if k == TypeRef {
		return "ref"
	}
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsContainer reports whether the kind takes an element type.
func (k TypeKind) IsContainer() bool {
	return k >= TypeList && k <= TypeMap
}

// String returns the type spec in schema notation.
func (ts TypeSpec) String() string {
	switch {
	case ts.Kind == TypeRef:
		return ts.Name
	case ts.Kind.IsContainer() && ts.Elem != nil && ts.Elem.Kind != TypeAny:
		return ts.Kind.String() + "<" + ts.Elem.String() + ">"
	default:
		return ts.Kind.String()
	}
}

// ============================================================
// Schema Methods
// ============================================================

// GetClass returns a class definition by qualname.
func (s *Schema) GetClass(name string) *ClassDef {
	if s == nil || s.Classes == nil {
		return nil
	}
	return s.Classes[name]
}

// GetField returns a field definition of a dataclass.
func (s *Schema) GetField(className, fieldName string) *FieldDef {
	cd := s.GetClass(className)
	if cd == nil || cd.Kind != tagjson.ClassDataclass {
		return nil
	}
	return cd.Field(fieldName)
}

// Field returns the named field, or nil.
func (cd *ClassDef) Field(name string) *FieldDef {
	for _, f := range cd.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Names returns the class names in sorted order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Classes))
	for name := range s.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeHash computes and sets the schema hash.
func (s *Schema) ComputeHash() string {
	sum := blake3.Sum256([]byte(s.Canonical()))
	s.Hash = hex.EncodeToString(sum[:16]) // First 16 bytes = 32 hex chars
	return s.Hash
}

// Canonical returns the canonical schema text. Defaults and member values
// are written as tagged JSON.
func (s *Schema) Canonical() string {
	var sb strings.Builder
	sb.WriteString("@schema{\n")
	for _, name := range s.Names() {
		writeClassDef(&sb, s.Classes[name])
	}
	sb.WriteString("}")
	return sb.String()
}

func writeClassDef(sb *strings.Builder, cd *ClassDef) {
	sb.WriteString("  ")
	sb.WriteString(cd.Name)
	sb.WriteString(" ")

	switch cd.Kind {
	case tagjson.ClassDataclass:
		sb.WriteString("dataclass{\n")
		for _, f := range cd.Fields {
			sb.WriteString("    ")
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Type.String())
			if f.Required {
				sb.WriteString(" [required]")
			}
			if f.HasDefault {
				sb.WriteString(" = ")
				sb.WriteString(literal(f.Default))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("  }\n")
	case tagjson.ClassEnum:
		sb.WriteString("enum{\n")
		for _, m := range cd.Members {
			sb.WriteString("    ")
			sb.WriteString(m.Name)
			sb.WriteString(" = ")
			sb.WriteString(literal(m.Value))
			sb.WriteString("\n")
		}
		sb.WriteString("  }\n")
	default:
		sb.WriteString(cd.Kind.String())
		if cd.Items.Kind != TypeAny {
			sb.WriteString("<")
			sb.WriteString(cd.Items.String())
			sb.WriteString(">")
		}
		sb.WriteString("\n")
	}
}

func literal(v any) string {
	data, err := tagjson.Serialize(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
