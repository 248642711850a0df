package tokenx

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Encode validates t and signs it with key under its definition's algorithm,
// returning the compact serialization.
//
// Checks run in order and the first failure wins: key, required attributes,
// presence of exp, exp strictly in the future, then the types of the
// registered claims. Mapped attributes take precedence over claims bag
// entries with the same key.
func Encode(key any, t Token, opts ...Option) (string, error) {
	if t == nil || isAbsent(t) {
		return "", newError(ErrCodeInvalidDefinition, "", errors.New("token is nil"))
	}
	def := t.Definition()
	if err := ValidateDefinition(def); err != nil {
		return "", err
	}
	o := newOptions(opts)

	signer, err := signingKey(def.Algorithm(), key)
	if err != nil {
		return "", err
	}

	for _, f := range def.RequiredMapping() {
		if isAbsent(t.Attribute(f.Attribute)) {
			return "", newError(ErrCodeMissingAttribute, f.Attribute, nil)
		}
	}

	claims := t.Claims()
	rawExp, ok := claims[ExpirationKey]
	if !ok || rawExp == nil {
		return "", newError(ErrCodeMissingExpiry, ExpirationKey, nil)
	}
	exp, err := numericDate(rawExp)
	if err != nil {
		return "", newError(ErrCodeInvalidExpiry, ExpirationKey, err)
	}
	if !exp.After(o.now()) {
		return "", newError(ErrCodeExpired, ExpirationKey, fmt.Errorf("exp %s is not in the future", exp.UTC()))
	}

	payload := assemble(def, t)
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", newError(ErrCodeMalformed, "", fmt.Errorf("marshal payload: %w", err))
	}
	if err := checkRegisteredClaims(payload); err != nil {
		return "", err
	}

	hdrs := jws.NewHeaders()
	if err := hdrs.Set(jws.TypeKey, "JWT"); err != nil {
		return "", fmt.Errorf("set typ header: %w", err)
	}
	if o.keyID != "" {
		if err := hdrs.Set(jws.KeyIDKey, o.keyID); err != nil {
			return "", fmt.Errorf("set kid header: %w", err)
		}
	}
	signed, err := jws.Sign(buf, jws.WithKey(def.Algorithm(), signer, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		return "", newError(ErrCodeKey, "", fmt.Errorf("sign token: %w", err))
	}
	return string(signed), nil
}

// registeredClaims are typed by jwt.Parse on decode.
var registeredClaims = []string{
	IssuerKey, SubjectKey, AudienceKey, JwtIDKey, ExpirationKey, IssuedAtKey, NotBeforeKey,
}

// checkRegisteredClaims refuses registered claim values the decoder could not
// parse back, for example a numeric iss or a textual iat.
func checkRegisteredClaims(payload map[string]any) error {
	for _, key := range registeredClaims {
		v, ok := payload[key]
		if !ok {
			continue
		}
		buf, err := json.Marshal(map[string]any{key: v})
		if err != nil {
			return newError(ErrCodeInvalidClaim, key, err)
		}
		if err := json.Unmarshal(buf, jwt.New()); err != nil {
			return newError(ErrCodeInvalidClaim, key, err)
		}
	}
	return nil
}

// assemble builds the wire payload: the claims bag without any key owned by
// the definition, the present attributes, and the kind tag.
func assemble(def Definition, t Token) map[string]any {
	owned := mappedClaims(def)
	claims := t.Claims()
	payload := make(map[string]any, len(claims)+len(owned))
	for k, v := range claims {
		if _, skip := owned[k]; skip {
			continue
		}
		payload[k] = wireValue(k, v)
	}
	for _, m := range []Mapping{def.RequiredMapping(), def.OptionalMapping()} {
		for _, f := range m {
			v := t.Attribute(f.Attribute)
			if isAbsent(v) {
				continue
			}
			payload[f.Claim] = v
		}
	}
	payload[KindKey] = def.Kind()
	return payload
}

// wireValue encodes time values of the registered time claims as NumericDate.
func wireValue(key string, v any) any {
	switch key {
	case ExpirationKey, IssuedAtKey, NotBeforeKey:
	default:
		return v
	}
	switch t := v.(type) {
	case time.Time:
		return t.Unix()
	case *time.Time:
		if t != nil {
			return t.Unix()
		}
	}
	return v
}
