package tokenx

import (
	"fmt"
	"reflect"
)

// Token is a token value: typed attributes plus an open claims bag.
type Token interface {
	// Definition returns the definition of the token's kind. It must not
	// depend on the receiver's state; the decoder calls it on a zero value.
	Definition() Definition
	// Attribute returns the value of a declared attribute, or nil when the
	// attribute is absent.
	Attribute(name string) any
	// Claims returns the live claims bag.
	Claims() Claims
}

// Decodable is a pointer to a token type the decoder can reconstruct.
type Decodable[T any] interface {
	*T
	Token
	SetAttribute(name string, value any) error
}

// Base supplies the claims bag. Embed it in token types.
type Base struct {
	claims Claims
}

// Claims returns the claims bag, allocating it on first use.
func (b *Base) Claims() Claims {
	if b.claims == nil {
		b.claims = make(Claims)
	}
	return b.claims
}

// Value is a token whose attributes are held in a map. It suits callers
// that only know the definition at runtime.
type Value struct {
	Base
	def        Definition
	attributes map[string]any
}

// NewValue returns an empty token value for def.
func NewValue(def Definition) *Value {
	return &Value{def: def, attributes: make(map[string]any)}
}

func (v *Value) Definition() Definition { return v.def }

func (v *Value) Attribute(name string) any { return v.attributes[name] }

// SetAttribute stores an attribute value. A nil value clears it.
func (v *Value) SetAttribute(name string, value any) error {
	if v.attributes == nil {
		v.attributes = make(map[string]any)
	}
	if value == nil {
		delete(v.attributes, name)
		return nil
	}
	v.attributes[name] = value
	return nil
}

// Attributes returns a copy of the attribute values.
func (v *Value) Attributes() map[string]any {
	out := make(map[string]any, len(v.attributes))
	for k, val := range v.attributes {
		out[k] = val
	}
	return out
}

// Assign stores a decoded claim value into dst, failing when the value has a
// different type.
func Assign[V any](dst *V, value any) error {
	if value == nil {
		var zero V
		*dst = zero
		return nil
	}
	v, ok := value.(V)
	if !ok {
		return fmt.Errorf("cannot assign %T to %T", value, *dst)
	}
	*dst = v
	return nil
}

// AssignPtr is like Assign for optional attributes held as pointers.
func AssignPtr[V any](dst **V, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	v, ok := value.(V)
	if !ok {
		var zero V
		return fmt.Errorf("cannot assign %T to *%T", value, zero)
	}
	*dst = &v
	return nil
}

// NonEmpty returns nil for the empty string, so that it reads as absent.
func NonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Deref returns *p, or nil when p is nil.
func Deref[V any](p *V) any {
	if p == nil {
		return nil
	}
	return *p
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
