package tagjson

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
)

var bigIntPtrType = reflect.TypeOf((*big.Int)(nil))

// assign stores a materialized value into dst, converting between the
// decoder's generic forms (int64, float64, []any, map[string]any, sets)
// and the destination type.
func assign(dst reflect.Value, src any) error {
	dt := dst.Type()
	if src == nil {
		dst.Set(reflect.Zero(dt))
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dt) {
		dst.Set(sv)
		return nil
	}

	switch dt.Kind() {
	case reflect.Pointer:
		if dt == bigIntPtrType {
			if i, ok := src.(int64); ok {
				dst.Set(reflect.ValueOf(big.NewInt(i)))
				return nil
			}
			break
		}
		p := reflect.New(dt.Elem())
		if err := assign(p.Elem(), src); err != nil {
			return err
		}
		dst.Set(p)
		return nil

	case reflect.Bool:
		if b, ok := src.(bool); ok {
			dst.SetBool(b)
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := src.(int64); ok && !isEnumType(dt) {
			if dst.OverflowInt(i) {
				return deserializeErrorf("", "integer %d overflows %s", i, dt)
			}
			dst.SetInt(i)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i, ok := src.(int64); ok && !isEnumType(dt) {
			if i < 0 || dst.OverflowUint(uint64(i)) {
				return deserializeErrorf("", "integer %d overflows %s", i, dt)
			}
			dst.SetUint(uint64(i))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		switch x := src.(type) {
		case float64:
			dst.SetFloat(x)
			return nil
		case int64:
			dst.SetFloat(float64(x))
			return nil
		}

	case reflect.String:
		if isEnumType(dt) {
			break
		}
		switch x := src.(type) {
		case string:
			dst.SetString(x)
			return nil
		case Path:
			dst.SetString(string(x))
			return nil
		}

	case reflect.Slice:
		if items, ok := sequenceItems(src); ok {
			out := reflect.MakeSlice(dt, len(items), len(items))
			for i, item := range items {
				if err := assign(out.Index(i), item); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			dst.Set(out)
			return nil
		}

	case reflect.Array:
		if items, ok := sequenceItems(src); ok {
			if len(items) != dt.Len() {
				return deserializeErrorf("", "cannot assign %d items to %s", len(items), dt)
			}
			for i, item := range items {
				if err := assign(dst.Index(i), item); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return nil
		}

	case reflect.Map:
		m, ok := src.(map[string]any)
		if !ok || dt.Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(dt, len(m))
		for _, k := range sortedKeys(m) {
			ev := reflect.New(dt.Elem()).Elem()
			if err := assign(ev, m[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(dt.Key()), ev)
		}
		dst.Set(out)
		return nil

	case reflect.Struct:
		if items, ok := sequenceItems(src); ok && isSequenceType(dt) {
			built, err := buildSequence(dt, items)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(built))
			return nil
		}
	}

	return deserializeErrorf("", "cannot assign %T to %s", src, dt)
}

// sequenceItems returns the items of the decoder's sequence forms.
func sequenceItems(src any) ([]any, bool) {
	switch x := src.(type) {
	case []any:
		return x, true
	case Tuple:
		return x, true
	case Set:
		return x.Items(), true
	case FrozenSet:
		return x.Items(), true
	case NamedSequence:
		return x.Items, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
