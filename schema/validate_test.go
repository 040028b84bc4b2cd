package schema

import (
	"testing"

	"github.com/Neumenon/tagjson/tagjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, input string) *tagjson.Value {
	t.Helper()
	v, err := tagjson.DecodeValue([]byte(input))
	require.NoError(t, err)
	return v
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidate(t *testing.T) {
	s := shopSchema()
	tests := []struct {
		name  string
		input string
		codes []string
		path  string
	}{
		{
			name:  "valid order",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","qty":2,"tags":{"[s|shop.Tags]":["a"]}}}`,
		},
		{
			name:  "null field",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","note":null}}`,
		},
		{
			name:  "wrong field type",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","qty":"two"}}`,
			codes: []string{"type_mismatch"},
			path:  "$.qty",
		},
		{
			name:  "unknown field",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","color":"red"}}`,
			codes: []string{"unknown_field"},
			path:  "$.color",
		},
		{
			name:  "missing field",
			input: `{"[dc|shop.Order]":{"qty":2}}`,
			codes: []string{"missing_field"},
			path:  "$.id",
		},
		{
			name:  "unknown class",
			input: `{"[dc|shop.Nope]":{}}`,
			codes: []string{"unknown_class"},
			path:  "$",
		},
		{
			name:  "kind mismatch",
			input: `{"[e|shop.Order]":1}`,
			codes: []string{"kind_mismatch"},
			path:  "$",
		},
		{
			name:  "unknown member",
			input: `{"[e|shop.Status]":"lost"}`,
			codes: []string{"unknown_member"},
			path:  "$",
		},
		{
			name:  "nested in plain containers",
			input: `{"orders":[{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","qty":1.5}}]}`,
			codes: []string{"type_mismatch"},
			path:  "$.orders[0].qty",
		},
		{
			name:  "field references wrong class",
			input: `{"[dc|shop.Order]":{"id":"[uu]` + orderID + `","tags":{"[e|shop.Status]":"open"}}}`,
			codes: []string{"type_mismatch"},
			path:  "$.tags",
		},
		{
			name:  "inside unknown class",
			input: `{"[dc|shop.Nope]":{"inner":{"[e|shop.Status]":"lost"}}}`,
			codes: []string{"unknown_class", "unknown_member"},
			path:  "$",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateWithSchema(tree(t, tt.input), s)
			if len(tt.codes) == 0 {
				assert.True(t, result.Valid, "errors: %v", result.Errors)
				assert.Empty(t, result.Errors)
				return
			}
			assert.False(t, result.Valid)
			assert.Equal(t, tt.codes, codes(result.Errors))
			assert.Equal(t, tt.path, result.Errors[0].Path)
		})
	}
}

func TestValidate_CollectionItems(t *testing.T) {
	s := shopSchema()
	result := ValidateWithSchema(tree(t, `{"[s|shop.Tags]":["a",1]}`), s)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"type_mismatch"}, codes(result.Errors))
	assert.Contains(t, result.Errors[0].Message, "expected str, got int")
}

func TestValidate_Unserializable(t *testing.T) {
	s := shopSchema()
	result := ValidateWithSchema(tree(t, `{"[dc|Unserializable]":{"qualname":"func()","repr":"(func())(nil)","str":"<nil>"}}`), s)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "unserializable", result.Warnings[0].Code)
	assert.Contains(t, result.Warnings[0].Message, "func()")
}

func TestValidateAs(t *testing.T) {
	s := shopSchema()
	order := tree(t, `{"[dc|shop.Order]":{"id":"[uu]`+orderID+`"}}`)

	assert.True(t, ValidateAs(order, s, "shop.Order").Valid)

	result := ValidateAs(order, s, "shop.Status")
	assert.False(t, result.Valid)
	assert.Equal(t, "type_mismatch", result.Errors[0].Code)

	result = ValidateAs(order, s, "shop.Missing")
	assert.Equal(t, []string{"unknown_class"}, codes(result.Errors))
}

func TestIsValid(t *testing.T) {
	s := shopSchema()
	assert.True(t, IsValid(tree(t, `[1,"a",null]`), s))
	assert.False(t, IsValid(tree(t, `{"[e|shop.Status]":"x"}`), s))
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{Path: "$.qty", Message: "expected int, got str"}
	assert.Equal(t, "$.qty: expected int, got str", e.Error())

	e = &ValidationError{Message: "bad"}
	assert.Equal(t, "bad", e.Error())
}
