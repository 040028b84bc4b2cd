package schema

import (
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/pkg/errors"
)

// ============================================================
// Type Spec Helpers
// ============================================================

// PrimitiveType returns a TypeSpec for a primitive type name. Unknown names
// are class references.
func PrimitiveType(name string) TypeSpec {
	for k, n := range kindNames {
		if n == name && !TypeKind(k).IsContainer() {
			return TypeSpec{Kind: TypeKind(k)}
		}
	}
	if name == "string" {
		return TypeSpec{Kind: TypeStr}
	}
	return TypeSpec{Kind: TypeRef, Name: name}
}

// ContainerType returns a container type spec with the given element type.
func ContainerType(kind TypeKind, elem TypeSpec) TypeSpec {
	return TypeSpec{Kind: kind, Elem: &elem}
}

// ListType returns a list type spec.
func ListType(elem TypeSpec) TypeSpec {
	return ContainerType(TypeList, elem)
}

// MapType returns a map type spec with string keys.
func MapType(val TypeSpec) TypeSpec {
	return ContainerType(TypeMap, val)
}

// RefType returns a reference to a class.
func RefType(name string) TypeSpec {
	return TypeSpec{Kind: TypeRef, Name: name}
}

// ParseType parses schema notation such as "int", "list<str>",
// "map<shop.Item>" or "shop.Order". The empty string means any.
func ParseType(s string) (TypeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeSpec{Kind: TypeAny}, nil
	}

	if open := strings.IndexByte(s, '<'); open >= 0 {
		if !strings.HasSuffix(s, ">") {
			return TypeSpec{}, errors.Errorf("type %q: missing closing >", s)
		}
		name := strings.TrimSpace(s[:open])
		kind := TypeAny
		for k, n := range kindNames {
			if n == name && TypeKind(k).IsContainer() {
				kind = TypeKind(k)
			}
		}
		if kind == TypeAny {
			return TypeSpec{}, errors.Errorf("type %q: %s takes no element type", s, name)
		}
		elem, err := ParseType(s[open+1 : len(s)-1])
		if err != nil {
			return TypeSpec{}, errors.Wrapf(err, "type %q", s)
		}
		return ContainerType(kind, elem), nil
	}

	if strings.ContainsAny(s, "<>, \t") {
		return TypeSpec{}, errors.Errorf("type %q: invalid name", s)
	}
	for k, n := range kindNames {
		if n == s && TypeKind(k).IsContainer() {
			return TypeSpec{Kind: TypeKind(k)}, nil
		}
	}
	return PrimitiveType(s), nil
}

// ============================================================
// Schema Builder
// ============================================================

// Builder helps construct schemas programmatically.
type Builder struct {
	schema *Schema
}

// NewBuilder creates a new schema builder.
func NewBuilder() *Builder {
	return &Builder{
		schema: &Schema{Classes: make(map[string]*ClassDef)},
	}
}

// Dataclass adds a dataclass definition.
func (b *Builder) Dataclass(name string, fields ...*FieldDef) *Builder {
	b.schema.Classes[name] = &ClassDef{
		Name:   name,
		Kind:   tagjson.ClassDataclass,
		Fields: fields,
	}
	return b
}

// Enum adds an enum definition.
func (b *Builder) Enum(name string, members ...*MemberDef) *Builder {
	b.schema.Classes[name] = &ClassDef{
		Name:    name,
		Kind:    tagjson.ClassEnum,
		Members: members,
	}
	return b
}

// Collection adds a named collection of the given kind.
func (b *Builder) Collection(name string, kind tagjson.ClassKind, items TypeSpec) *Builder {
	b.schema.Classes[name] = &ClassDef{
		Name:  name,
		Kind:  kind,
		Items: items,
	}
	return b
}

// Build finalizes and returns the schema.
func (b *Builder) Build() *Schema {
	b.schema.ComputeHash()
	return b.schema
}

// Field creates a field definition.
func Field(name string, typ TypeSpec, opts ...FieldOption) *FieldDef {
	f := &FieldDef{Name: name, Type: typ}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FieldOption is a function that modifies a field definition.
type FieldOption func(*FieldDef)

// WithRequired marks a field as required.
func WithRequired() FieldOption {
	return func(f *FieldDef) {
		f.Required = true
	}
}

// WithDefault sets the value used when a field is absent.
func WithDefault(v any) FieldOption {
	return func(f *FieldDef) {
		f.Default = normalize(v)
		f.HasDefault = true
	}
}

// Member creates an enum member definition.
func Member(name string, value any) *MemberDef {
	return &MemberDef{Name: name, Value: normalize(value)}
}
