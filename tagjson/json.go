package tagjson

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ============================================================
// JSON Writer
// ============================================================

// jsonFloat writes a finite float so that it always reads back as a float:
// the text carries a fraction or an exponent.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	return []byte(formatFloat(float64(f))), nil
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	fmtByte := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		fmtByte = 'e'
	}
	s := strconv.FormatFloat(f, fmtByte, -1, 64)
	if fmtByte == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// writeJSON writes a JSON-native tree with sorted object keys, no
// indentation and no HTML escaping.
func writeJSON(tree any) ([]byte, error) {
	return json.MarshalWithOption(tree, json.DisableHTMLEscape())
}

// writeJSONIndent is writeJSON with indentation.
func writeJSONIndent(tree any, indent string) ([]byte, error) {
	return json.MarshalIndentWithOption(tree, "", indent, json.DisableHTMLEscape())
}

// ============================================================
// Value → JSON Tree
// ============================================================

// Encode writes a Value tree as compact tagged JSON.
func Encode(v *Value) ([]byte, error) {
	return encodeValue(v, "")
}

// EncodeIndent writes a Value tree as indented tagged JSON.
func EncodeIndent(v *Value, indent string) ([]byte, error) {
	return encodeValue(v, indent)
}

func encodeValue(v *Value, indent string) ([]byte, error) {
	tree, err := toJSON(v)
	if err != nil {
		return nil, err
	}
	if indent != "" {
		return writeJSONIndent(tree, indent)
	}
	return writeJSON(tree)
}

// toJSON converts a Value into the JSON-native tree the writer accepts.
func toJSON(v *Value) (any, error) {
	switch v.Kind() {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boolVal, nil
	case KindInt:
		return v.intVal, nil
	case KindFloat:
		f := v.floatVal
		switch {
		case math.IsNaN(f):
			return TagFloat.Prefix() + "nan", nil
		case math.IsInf(f, 1):
			return TagFloat.Prefix() + "inf", nil
		case math.IsInf(f, -1):
			return TagFloat.Prefix() + "-inf", nil
		}
		return jsonFloat(f), nil
	case KindStr:
		return v.strVal, nil
	case KindDate:
		return TagDate.Prefix() + v.dateVal.String(), nil
	case KindDateTime:
		return TagDateTime.Prefix() + formatDateTime(v.dateTimeVal), nil
	case KindZonedDateTime:
		return TagDateTime.Prefix() + formatZoned(v.zonedVal), nil
	case KindTime:
		return TagTime.Prefix() + formatClock(v.timeVal), nil
	case KindTimeDelta:
		return TagTimeDelta.Prefix() + formatDuration(v.deltaVal), nil
	case KindUUID:
		return TagUUID.Prefix() + v.uuidVal.String(), nil
	case KindPath:
		return TagPath.Prefix() + v.strVal, nil
	case KindList, KindTuple, KindSet, KindFrozenSet:
		items := make([]any, len(v.items))
		for i, item := range v.items {
			x, err := toJSON(item)
			if err != nil {
				return nil, err
			}
			items[i] = x
		}
		if v.kind == KindList && v.class == "" {
			return items, nil
		}
		return map[string]any{sequenceKindTag(v.kind).Key(v.class): items}, nil
	case KindMap:
		return entriesJSON(v.entries)
	case KindDataclass:
		fields, err := entriesJSON(v.entries)
		if err != nil {
			return nil, err
		}
		return map[string]any{TagDataclass.Key(v.class): fields}, nil
	case KindEnum:
		inner, err := toJSON(v.inner)
		if err != nil {
			return nil, err
		}
		return map[string]any{TagEnum.Key(v.class): inner}, nil
	}
	return nil, fmt.Errorf("tagjson: cannot encode %s", v.Kind())
}

func entriesJSON(entries []MapEntry) (map[string]any, error) {
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		x, err := toJSON(e.Value)
		if err != nil {
			return nil, err
		}
		out[e.Key] = x
	}
	return out, nil
}

// ============================================================
// JSON Reader
// ============================================================

// readJSON parses a single JSON document into bool, json.Number, string,
// []any, map[string]any or nil.
func readJSON(data []byte) (any, error) {
	if !json.Valid(data) {
		var probe any
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, &DeserializeError{Reason: "invalid JSON: " + err.Error()}
		}
		return nil, &DeserializeError{Reason: "invalid JSON"}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &DeserializeError{Reason: "invalid JSON: " + err.Error()}
	}
	return tree, nil
}

// parseNumber classifies a JSON number as int64 or float64. Integers beyond
// the signed 64-bit range are rejected.
func parseNumber(n json.Number) (*Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &DeserializeError{Reason: "invalid number " + s}
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &DeserializeError{Reason: "integer " + s + " out of range"}
	}
	return Int(i), nil
}
