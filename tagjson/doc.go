// Package tagjson implements a tagged JSON codec: a JSON encoding that keeps
// type information JSON cannot express, so values round-trip with their
// original types.
//
// # Wire Format
//
// Output is ordinary UTF-8 JSON with sorted keys. Scalars JSON lacks are
// written as strings with a bracketed tag prefix:
//
//	[d]2024-01-02                              date
//	[dt]2024-01-02T03:04:05                    local datetime
//	[dt]2024-01-02T03:04:05+01:00[Europe/Paris] zoned datetime
//	[dt]2024-01-02T03:04:05+00:00[dt.UTC]      UTC datetime
//	[tm]03:04:05.5                             time of day
//	[td]PT1H30M                                duration (ISO 8601)
//	[uu]6ba7b810-9dad-11d1-80b4-00c04fd430c8   uuid
//	[p]/etc/hosts                              path
//	[fl]nan [fl]inf [fl]-inf                   non-finite floats
//
// Containers JSON lacks are single-key objects whose key is a tag, optionally
// qualified with a class name:
//
//	{"[tu]": [1, 2]}                tuple
//	{"[s]": [1, 2]}                 set
//	{"[fr]": [1, 2]}                frozenset
//	{"[l|Names]": ["a"]}            named list type
//	{"[dc|Example]": {"x": 1}}      dataclass (struct)
//	{"[e|Color]": "red"}            enum member
//
// Plain lists are bare JSON arrays and plain maps are bare JSON objects.
//
// # Encoding
//
// Serialize walks a Go value through an ordered classifier table; the first
// classifier that matches decides the encoding. Struct fields equal to their
// default are left out. Values no classifier accepts are encoded as an
// Unserializable record rather than failing.
//
// # Decoding
//
// Deserialize recognizes tagged strings and container keys. Class names are
// resolved through the Objects and Redirects given in DeserializeOptions, or
// through a custom Resolver. Nothing is looked up by reflection on its own.
//
//	obj, err := tagjson.DeserializeWithOptions(data, tagjson.DeserializeOptions{
//	    Objects: []*tagjson.Class{tagjson.DataclassOf[Example](), tagjson.EnumOf(Red, Green)},
//	})
//
// # Value Trees
//
// FromGo and DecodeValue expose the intermediate *Value tree; Encode writes
// it back out and Format renders it as text.
package tagjson
