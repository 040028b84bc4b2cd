package schema

import (
	"fmt"
	"sort"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/pkg/errors"
)

// Check reports definition errors: empty names, duplicate fields or
// members, enums without members, bad kinds and references to classes the
// schema does not define.
func (s *Schema) Check() error {
	for _, name := range s.Names() {
		cd := s.Classes[name]
		if cd.Name == "" {
			return errors.New("class with empty name")
		}
		switch cd.Kind {
		case tagjson.ClassDataclass:
			seen := make(map[string]bool, len(cd.Fields))
			for _, f := range cd.Fields {
				if f.Name == "" {
					return errors.Errorf("%s: field with empty name", cd.Name)
				}
				if seen[f.Name] {
					return errors.Errorf("%s: duplicate field %s", cd.Name, f.Name)
				}
				seen[f.Name] = true
				if err := s.checkRefs(f.Type); err != nil {
					return errors.Wrapf(err, "%s.%s", cd.Name, f.Name)
				}
			}
		case tagjson.ClassEnum:
			if len(cd.Members) == 0 {
				return errors.Errorf("%s: enum has no members", cd.Name)
			}
			seen := make(map[string]bool, len(cd.Members))
			for _, m := range cd.Members {
				if seen[m.Name] {
					return errors.Errorf("%s: duplicate member %s", cd.Name, m.Name)
				}
				seen[m.Name] = true
			}
		case tagjson.ClassList, tagjson.ClassTuple, tagjson.ClassSet, tagjson.ClassFrozenSet:
			if err := s.checkRefs(cd.Items); err != nil {
				return errors.Wrap(err, cd.Name)
			}
		default:
			return errors.Errorf("%s: unknown class kind %s", cd.Name, cd.Kind)
		}
	}
	return nil
}

func (s *Schema) checkRefs(ts TypeSpec) error {
	switch {
	case ts.Kind == TypeRef:
		if s.GetClass(ts.Name) == nil {
			return errors.Errorf("unknown class %s", ts.Name)
		}
	case ts.Elem != nil:
		return s.checkRefs(*ts.Elem)
	}
	return nil
}

// ============================================================
// Class Descriptors
// ============================================================

// Descriptors returns decoding descriptors for every class, sorted by name.
// Dataclasses decode to tagjson.Record, enums to tagjson.EnumMember and
// collections to tagjson.NamedSequence.
func (s *Schema) Descriptors() []*tagjson.Class {
	names := s.Names()
	classes := make([]*tagjson.Class, 0, len(names))
	for _, name := range names {
		classes = append(classes, s.Classes[name].Class())
	}
	return classes
}

// DeserializeOptions returns options that resolve the schema's classes.
func (s *Schema) DeserializeOptions() tagjson.DeserializeOptions {
	return tagjson.DeserializeOptions{Objects: s.Descriptors()}
}

// Class returns the decoding descriptor for the class.
func (cd *ClassDef) Class() *tagjson.Class {
	switch cd.Kind {
	case tagjson.ClassDataclass:
		return tagjson.NewClass(cd.Name, cd.Kind, cd.buildRecord)
	case tagjson.ClassEnum:
		values := memberValues(cd)
		return tagjson.NewClass(cd.Name, cd.Kind, func(raw *tagjson.Value, _ any) (any, error) {
			idx, err := tagjson.LookupMember(cd.Name, values, raw.Inner())
			if err != nil {
				return nil, err
			}
			m := cd.Members[idx]
			return tagjson.EnumMember{Class: cd.Name, Name: m.Name, Value: normalize(m.Value)}, nil
		})
	default:
		tag := cd.Kind.Tag()
		return tagjson.NewClass(cd.Name, cd.Kind, func(_ *tagjson.Value, data any) (any, error) {
			items, _ := data.([]any)
			return tagjson.NamedSequence{Class: cd.Name, Tag: tag, Items: items}, nil
		})
	}
}

// buildRecord starts from the field defaults, sets every decoded field and
// rejects unknown or missing required fields.
func (cd *ClassDef) buildRecord(_ *tagjson.Value, data any) (any, error) {
	in, _ := data.(map[string]any)

	var unknown []string
	for key := range in {
		if cd.Field(key) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, classError(cd.Name, "unknown field %q", unknown[0])
	}

	fields := make(map[string]any, len(cd.Fields))
	for _, f := range cd.Fields {
		if v, ok := in[f.Name]; ok {
			fields[f.Name] = v
			continue
		}
		switch {
		case f.Required:
			return nil, classError(cd.Name, "missing required field %q", f.Name)
		case f.HasDefault:
			fields[f.Name] = normalize(f.Default)
		default:
			fields[f.Name] = nil
		}
	}
	return tagjson.Record{Class: cd.Name, Fields: fields}, nil
}

func classError(class, format string, args ...any) error {
	return &tagjson.DeserializeError{Qualname: class, Reason: fmt.Sprintf(format, args...)}
}

// memberValues encodes member values for comparison with decoded nodes.
func memberValues(cd *ClassDef) []*tagjson.Value {
	values := make([]*tagjson.Value, len(cd.Members))
	for i, m := range cd.Members {
		v, err := tagjson.FromGo(m.Value)
		if err != nil {
			v = tagjson.Null()
		}
		values[i] = v
	}
	return values
}

// normalize gives v the shape decoding produces: int64 for integers,
// float64 for floats, []any for lists. Each call returns a fresh copy.
func normalize(v any) any {
	tree, err := tagjson.FromGo(v)
	if err != nil {
		return v
	}
	out, err := tagjson.Materialize(tree, tagjson.DeserializeOptions{})
	if err != nil {
		return v
	}
	return out
}
