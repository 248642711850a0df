package tokenx

import (
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

// Definition describes one token kind. Implementations must return the same
// values on every call.
type Definition interface {
	Kind() string
	Algorithm() jwa.SignatureAlgorithm
	RequiredMapping() Mapping
	OptionalMapping() Mapping
}

// Field maps a domain attribute to its wire claim key.
type Field struct {
	Attribute string
	Claim     string
}

// Attr is shorthand for a Field.
func Attr(attribute, claim string) Field {
	return Field{Attribute: attribute, Claim: claim}
}

// Mapping is an ordered attribute to claim key table.
type Mapping []Field

// Claim returns the claim key mapped to attribute.
func (m Mapping) Claim(attribute string) (string, bool) {
	for _, f := range m {
		if f.Attribute == attribute {
			return f.Claim, true
		}
	}
	return "", false
}

// Attributes is a reusable attribute declaration that is independent of any
// token kind. Compose one or more with Define.
type Attributes struct {
	required Mapping
	optional Mapping
}

// Required declares attributes that must be present on every token.
func Required(fields ...Field) Attributes {
	return Attributes{required: append(Mapping(nil), fields...)}
}

// Optional declares attributes that may be absent.
func Optional(fields ...Field) Attributes {
	return Attributes{optional: append(Mapping(nil), fields...)}
}

// Optional returns a copy of a with fields added as optional attributes.
func (a Attributes) Optional(fields ...Field) Attributes {
	return Attributes{
		required: a.required,
		optional: append(append(Mapping(nil), a.optional...), fields...),
	}
}

// RequiredMapping returns the required attributes.
func (a Attributes) RequiredMapping() Mapping { return a.required }

// OptionalMapping returns the optional attributes.
func (a Attributes) OptionalMapping() Mapping { return a.optional }

// Schema is an immutable Definition assembled by Define.
type Schema struct {
	kind      string
	algorithm jwa.SignatureAlgorithm
	required  Mapping
	optional  Mapping
}

// Define assembles a Schema from a kind tag, an algorithm and any number of
// attribute declarations.
func Define(kind string, alg jwa.SignatureAlgorithm, sets ...Attributes) (*Schema, error) {
	s := &Schema{kind: kind, algorithm: alg}
	for _, set := range sets {
		s.required = append(s.required, set.required...)
		s.optional = append(s.optional, set.optional...)
	}
	if err := ValidateDefinition(s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustDefine is like Define but panics on an invalid declaration. Use it for
// package level definitions.
func MustDefine(kind string, alg jwa.SignatureAlgorithm, sets ...Attributes) *Schema {
	s, err := Define(kind, alg, sets...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Kind() string                      { return s.kind }
func (s *Schema) Algorithm() jwa.SignatureAlgorithm { return s.algorithm }
func (s *Schema) RequiredMapping() Mapping          { return s.required }
func (s *Schema) OptionalMapping() Mapping          { return s.optional }

// ValidateDefinition reports whether def can be used to encode and decode
// tokens.
func ValidateDefinition(def Definition) error {
	if def == nil {
		return newError(ErrCodeInvalidDefinition, "", errors.New("definition is nil"))
	}
	if def.Kind() == "" {
		return newError(ErrCodeInvalidDefinition, "", errors.New("kind is required"))
	}
	if _, err := keyTypeFor(def.Algorithm()); err != nil {
		return newError(ErrCodeInvalidDefinition, def.Kind(), err)
	}
	attributes := make(map[string]struct{})
	claims := make(map[string]struct{})
	for _, m := range []Mapping{def.RequiredMapping(), def.OptionalMapping()} {
		for _, f := range m {
			switch {
			case f.Attribute == "" || f.Claim == "":
				return newError(ErrCodeInvalidDefinition, def.Kind(), errors.New("attribute and claim names must be non-empty"))
			case f.Claim == KindKey:
				return newError(ErrCodeInvalidDefinition, def.Kind(), fmt.Errorf("attribute %q maps to reserved claim %q", f.Attribute, KindKey))
			}
			if _, dup := attributes[f.Attribute]; dup {
				return newError(ErrCodeInvalidDefinition, def.Kind(), fmt.Errorf("duplicate attribute %q", f.Attribute))
			}
			if _, dup := claims[f.Claim]; dup {
				return newError(ErrCodeInvalidDefinition, def.Kind(), fmt.Errorf("duplicate claim key %q", f.Claim))
			}
			attributes[f.Attribute] = struct{}{}
			claims[f.Claim] = struct{}{}
		}
	}
	return nil
}

// mappedClaims returns the set of claim keys owned by def.
func mappedClaims(def Definition) map[string]struct{} {
	out := map[string]struct{}{KindKey: {}}
	for _, f := range def.RequiredMapping() {
		out[f.Claim] = struct{}{}
	}
	for _, f := range def.OptionalMapping() {
		out[f.Claim] = struct{}{}
	}
	return out
}
