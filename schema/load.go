package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a schema file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json" // JSON with comments and trailing commas
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return "", errors.Errorf("%s: unknown schema format (want .yaml, .yml, .toml, .json or .jsonc)", path)
	}
}

// Load reads a schema file. The format follows the extension.
func Load(path string) (*Schema, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema")
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return s, nil
}

// Parse decodes a schema document:
//
//	classes:
//	  - name: shop.Order
//	    kind: dataclass
//	    fields:
//	      - {name: id, type: uuid, required: true}
//	      - {name: qty, type: int, default: 1}
//	  - name: shop.Status
//	    kind: enum
//	    members:
//	      - {name: OPEN, value: open}
//	  - name: shop.Tags
//	    kind: set
//	    items: str
//
// The result is checked and hashed.
func Parse(data []byte, format Format) (*Schema, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	s, err := fromDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	s.ComputeHash()
	return s, nil
}

func decodeDocument(data []byte, format Format) (map[string]any, error) {
	var doc map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "parse yaml")
		}
	case FormatTOML:
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, errors.Wrap(err, "parse toml")
		}
		doc = tree.ToMap()
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "parse json")
		}
	default:
		return nil, errors.Errorf("unknown schema format %q", format)
	}
	if doc == nil {
		return nil, errors.New("empty schema document")
	}
	return doc, nil
}

// ============================================================
// Document Walking
// ============================================================

func fromDocument(doc map[string]any) (*Schema, error) {
	s := &Schema{Classes: make(map[string]*ClassDef)}

	classes, err := listOf(doc, "classes")
	if err != nil {
		return nil, err
	}
	for i, raw := range classes {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.Errorf("classes[%d]: expected a table, got %T", i, raw)
		}
		cd, err := classFromDocument(obj)
		if err != nil {
			return nil, errors.Wrapf(err, "classes[%d]", i)
		}
		if _, dup := s.Classes[cd.Name]; dup {
			return nil, errors.Errorf("classes[%d]: duplicate class %s", i, cd.Name)
		}
		s.Classes[cd.Name] = cd
	}
	return s, nil
}

func classFromDocument(obj map[string]any) (*ClassDef, error) {
	name, err := stringOf(obj, "name", true)
	if err != nil {
		return nil, err
	}
	kindName, err := stringOf(obj, "kind", false)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	kind, err := parseClassKind(kindName)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	cd := &ClassDef{Name: name, Kind: kind}
	switch kind {
	case tagjson.ClassDataclass:
		fields, err := listOf(obj, "fields")
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		for i, raw := range fields {
			f, err := fieldFromDocument(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.fields[%d]", name, i)
			}
			cd.Fields = append(cd.Fields, f)
		}
	case tagjson.ClassEnum:
		members, err := listOf(obj, "members")
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		for i, raw := range members {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, errors.Errorf("%s.members[%d]: expected a table, got %T", name, i, raw)
			}
			memberName, err := stringOf(m, "name", true)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.members[%d]", name, i)
			}
			value, ok := m["value"]
			if !ok {
				return nil, errors.Errorf("%s.members[%d]: missing value", name, i)
			}
			cd.Members = append(cd.Members, Member(memberName, numbers(value)))
		}
	default:
		items, err := stringOf(obj, "items", false)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		if cd.Items, err = ParseType(items); err != nil {
			return nil, errors.Wrap(err, name)
		}
	}
	return cd, nil
}

func fieldFromDocument(raw any) (*FieldDef, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Errorf("expected a table, got %T", raw)
	}
	name, err := stringOf(obj, "name", true)
	if err != nil {
		return nil, err
	}
	typeName, err := stringOf(obj, "type", false)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	typ, err := ParseType(typeName)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	var opts []FieldOption
	switch required := obj["required"].(type) {
	case nil:
	case bool:
		if required {
			opts = append(opts, WithRequired())
		}
	default:
		return nil, errors.Errorf("%s: required must be a bool, got %T", name, required)
	}
	if def, ok := obj["default"]; ok {
		opts = append(opts, WithDefault(numbers(def)))
	}
	return Field(name, typ, opts...), nil
}

func parseClassKind(name string) (tagjson.ClassKind, error) {
	if name == "" {
		return tagjson.ClassDataclass, nil
	}
	for _, k := range []tagjson.ClassKind{
		tagjson.ClassDataclass, tagjson.ClassEnum, tagjson.ClassList,
		tagjson.ClassTuple, tagjson.ClassSet, tagjson.ClassFrozenSet,
	} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown class kind %q", name)
}

func stringOf(obj map[string]any, key string, required bool) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		if required {
			return "", errors.Errorf("missing %s", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Errorf("%s must be a string, got %T", key, raw)
	}
	return s, nil
}

func listOf(obj map[string]any, key string) ([]any, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.Errorf("%s must be a list, got %T", key, raw)
	}
	return list, nil
}

// numbers replaces JSON number literals with int64 or float64.
func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return string(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = numbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = numbers(item)
		}
		return out
	default:
		return v
	}
}
