// Package binding maps Go types onto documents.
//
// A Binding names the table a type is stored in and lists its fields, each
// with a Codec that converts the Go value to and from a value.Value.
// Bindings are built explicitly with New and Bind, or from struct tags with
// Reflect, and are immutable once built.
//
//	var people = binding.MustNew("person",
//		binding.Bind("name", binding.String(), func(p *Person) *string { return &p.Name }),
//		binding.Bind("age", binding.Uint[uint8](), func(p *Person) *uint8 { return &p.Age }),
//		binding.Bind("nickname", binding.Optional(binding.String()), func(p *Person) **string { return &p.Nickname }),
//	)
//
// Decoding requires every non-optional field to be present and stops at the
// first field that fails. Errors carry the field path, for example
// "owner.tags[2]: expected string but received 1".
package binding
