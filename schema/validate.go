package schema

import (
	"fmt"
	"strings"

	"github.com/Neumenon/tagjson/tagjson"
)

// ValidationError represents a validation failure.
type ValidationError struct {
	Path    string // JSON-path style path to the error
	Message string // Human-readable error message
	Code    string // Machine-readable error code
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationResult contains all validation errors and warnings.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// Validator validates decoded value trees against a Schema.
type Validator struct {
	schema   *Schema
	errors   []ValidationError
	warnings []ValidationError
	members  map[string][]*tagjson.Value // Encoded enum member values by class
}

// NewValidator creates a validator for the given schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:  schema,
		members: make(map[string][]*tagjson.Value),
	}
}

// Validate checks every classed node in the tree.
func (v *Validator) Validate(value *tagjson.Value) *ValidationResult {
	v.errors = nil
	v.warnings = nil
	v.validateValue(value, "$", TypeSpec{Kind: TypeAny})
	return v.result()
}

// ValidateAs validates a value as an instance of a specific class.
func (v *Validator) ValidateAs(value *tagjson.Value, className string) *ValidationResult {
	v.errors = nil
	v.warnings = nil
	if v.schema.GetClass(className) == nil {
		v.addError("$", "unknown_class", "unknown class: %s", className)
		return v.result()
	}
	v.validateValue(value, "$", RefType(className))
	return v.result()
}

func (v *Validator) result() *ValidationResult {
	return &ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

func (v *Validator) validateValue(value *tagjson.Value, path string, spec TypeSpec) {
	if value.IsNull() {
		// Null is valid for every type
		return
	}
	if !v.matches(value, spec) {
		v.addError(path, "type_mismatch", "expected %s, got %s", spec, describe(value))
	}

	if value.Class() != "" {
		v.validateClassed(value, path)
		return
	}

	elem := TypeSpec{Kind: TypeAny}
	if spec.Kind.IsContainer() && spec.Elem != nil {
		elem = *spec.Elem
	}
	switch value.Kind() {
	case tagjson.KindList, tagjson.KindTuple, tagjson.KindSet, tagjson.KindFrozenSet:
		for i, item := range value.Items() {
			v.validateValue(item, fmt.Sprintf("%s[%d]", path, i), elem)
		}
	case tagjson.KindMap:
		for _, e := range value.Entries() {
			v.validateValue(e.Value, joinPath(path, e.Key), elem)
		}
	}
}

// matches checks the node itself against spec, without descending.
func (v *Validator) matches(value *tagjson.Value, spec TypeSpec) bool {
	k := value.Kind()
	switch spec.Kind {
	case TypeAny:
		return true
	case TypeNull:
		return false
	case TypeBool:
		return k == tagjson.KindBool
	case TypeInt:
		return k == tagjson.KindInt
	case TypeFloat:
		return k == tagjson.KindFloat || k == tagjson.KindInt
	case TypeStr:
		return k == tagjson.KindStr
	case TypeDate:
		return k == tagjson.KindDate
	case TypeDateTime:
		return k == tagjson.KindDateTime || k == tagjson.KindZonedDateTime
	case TypeTime:
		return k == tagjson.KindTime
	case TypeTimeDelta:
		return k == tagjson.KindTimeDelta
	case TypeUUID:
		return k == tagjson.KindUUID
	case TypePath:
		return k == tagjson.KindPath
	case TypeList:
		return k == tagjson.KindList
	case TypeTuple:
		return k == tagjson.KindTuple
	case TypeSet:
		return k == tagjson.KindSet
	case TypeFrozenSet:
		return k == tagjson.KindFrozenSet
	case TypeMap:
		return k == tagjson.KindMap
	case TypeRef:
		return value.Class() == spec.Name
	}
	return false
}

func (v *Validator) validateClassed(value *tagjson.Value, path string) {
	name := value.Class()
	kind, _ := classKindOf(value.Kind())

	if name == tagjson.UnserializableName && kind == tagjson.ClassDataclass {
		qualname, _ := value.Get("qualname").AsStr()
		v.addWarning(path, "unserializable", "value of type %s was not serializable", qualname)
		return
	}

	cd := v.schema.GetClass(name)
	if cd == nil {
		v.addError(path, "unknown_class", "unknown class: %s", name)
		v.validateChildren(value, path)
		return
	}
	if cd.Kind != kind {
		v.addError(path, "kind_mismatch", "%s is a %s, got a %s", name, cd.Kind, kind)
		v.validateChildren(value, path)
		return
	}

	switch cd.Kind {
	case tagjson.ClassDataclass:
		v.validateFields(value, path, cd)
	case tagjson.ClassEnum:
		v.validateMember(value, path, cd)
	default:
		for i, item := range value.Items() {
			v.validateValue(item, fmt.Sprintf("%s[%d]", path, i), cd.Items)
		}
	}
}

func (v *Validator) validateFields(value *tagjson.Value, path string, cd *ClassDef) {
	present := make(map[string]bool, value.Len())
	for _, e := range value.Entries() {
		present[e.Key] = true
		fieldPath := joinPath(path, e.Key)
		fd := cd.Field(e.Key)
		if fd == nil {
			v.addError(fieldPath, "unknown_field", "unknown field: %s (class %s)", e.Key, cd.Name)
			v.validateValue(e.Value, fieldPath, TypeSpec{Kind: TypeAny})
			continue
		}
		v.validateValue(e.Value, fieldPath, fd.Type)
	}

	// Encoded dataclasses omit default-valued fields, so only required
	// fields must be present.
	for _, fd := range cd.Fields {
		if fd.Required && !present[fd.Name] {
			v.addError(joinPath(path, fd.Name), "missing_field", "required field missing: %s", fd.Name)
		}
	}
}

func (v *Validator) validateMember(value *tagjson.Value, path string, cd *ClassDef) {
	values, ok := v.members[cd.Name]
	if !ok {
		values = memberValues(cd)
		v.members[cd.Name] = values
	}
	if _, err := tagjson.LookupMember(cd.Name, values, value.Inner()); err != nil {
		names := make([]string, len(cd.Members))
		for i, m := range cd.Members {
			names[i] = m.Name
		}
		v.addError(path, "unknown_member", "no member of %s has value %s, expected one of: %s",
			cd.Name, value.Inner(), strings.Join(names, ", "))
	}
}

// validateChildren descends into a node whose class could not be checked.
func (v *Validator) validateChildren(value *tagjson.Value, path string) {
	anyType := TypeSpec{Kind: TypeAny}
	for i, item := range value.Items() {
		v.validateValue(item, fmt.Sprintf("%s[%d]", path, i), anyType)
	}
	for _, e := range value.Entries() {
		v.validateValue(e.Value, joinPath(path, e.Key), anyType)
	}
	if inner := value.Inner(); inner != nil {
		v.validateValue(inner, path, anyType)
	}
}

func (v *Validator) addError(path, code, format string, args ...interface{}) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *Validator) addWarning(path, code, format string, args ...interface{}) {
	v.warnings = append(v.warnings, ValidationError{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// Helper functions

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func describe(value *tagjson.Value) string {
	if class := value.Class(); class != "" {
		return class
	}
	return value.Kind().String()
}

func classKindOf(k tagjson.Kind) (tagjson.ClassKind, bool) {
	switch k {
	case tagjson.KindDataclass:
		return tagjson.ClassDataclass, true
	case tagjson.KindEnum:
		return tagjson.ClassEnum, true
	case tagjson.KindList:
		return tagjson.ClassList, true
	case tagjson.KindTuple:
		return tagjson.ClassTuple, true
	case tagjson.KindSet:
		return tagjson.ClassSet, true
	case tagjson.KindFrozenSet:
		return tagjson.ClassFrozenSet, true
	default:
		return 0, false
	}
}

// ============================================================
// Quick Validation Functions
// ============================================================

// ValidateWithSchema validates a value against a schema.
func ValidateWithSchema(value *tagjson.Value, schema *Schema) *ValidationResult {
	return NewValidator(schema).Validate(value)
}

// ValidateAs validates a value as an instance of a specific class.
func ValidateAs(value *tagjson.Value, schema *Schema, className string) *ValidationResult {
	return NewValidator(schema).ValidateAs(value, className)
}

// IsValid returns true if a value passes schema validation.
func IsValid(value *tagjson.Value, schema *Schema) bool {
	return NewValidator(schema).Validate(value).Valid
}
