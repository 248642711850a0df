package tokenx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type attributeSetter interface {
	Token
	SetAttribute(name string, value any) error
}

// Decode verifies encoded against key and reconstructs a token of type T.
// The target definition is taken from T, and its algorithm is the only one
// accepted regardless of the token header.
//
// Decoding stops at the first failure: malformed envelope, bad signature,
// malformed payload, kind mismatch, expiry, claim verifications, then
// reconstruction of the attributes. Every failure matches ErrDecode.
func Decode[T any, PT Decodable[T]](encoded string, key any, opts ...Option) (PT, error) {
	out := PT(new(T))
	if err := decodeInto(encoded, key, out.Definition(), out, opts); err != nil {
		var zero PT
		return zero, err
	}
	return out, nil
}

// DecodeValue is like Decode for a definition only known at runtime.
func DecodeValue(encoded string, key any, def Definition, opts ...Option) (*Value, error) {
	out := NewValue(def)
	if err := decodeInto(encoded, key, def, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(encoded string, key any, def Definition, out attributeSetter, opts []Option) error {
	if err := ValidateDefinition(def); err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Decode = true
		}
		return err
	}
	o := newOptions(opts)

	buf := bytes.TrimSpace([]byte(encoded))
	if len(buf) == 0 {
		return newDecodeError(ErrCodeMalformed, "", errors.New("token is empty"))
	}
	if bytes.Count(buf, []byte{'.'}) != 2 {
		return newDecodeError(ErrCodeMalformed, "", errors.New("token must have three segments"))
	}
	msg, err := jws.Parse(buf)
	if err != nil {
		return newDecodeError(ErrCodeMalformed, "", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return newDecodeError(ErrCodeMalformed, "", fmt.Errorf("expected one signature, got %d", len(sigs)))
	}
	alg := def.Algorithm()
	verifier, err := verificationKey(alg, key, sigs[0].ProtectedHeaders().KeyID())
	if err != nil {
		return err
	}
	if _, err := jws.Verify(buf, jws.WithKey(alg, verifier)); err != nil {
		return newDecodeError(ErrCodeSignature, "", err)
	}

	payload, err := decodeObject(msg.Payload())
	if err != nil {
		return newDecodeError(ErrCodeMalformed, "", fmt.Errorf("payload: %w", err))
	}
	parsed, err := jwt.Parse(buf, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return newDecodeError(ErrCodeMalformed, "", err)
	}

	if kind, _ := payload[KindKey].(string); kind != def.Kind() {
		return newDecodeError(ErrCodeKindMismatch, KindKey, fmt.Errorf("got %q, want %q", payload[KindKey], def.Kind()))
	}

	if rawExp, ok := payload[ExpirationKey]; ok {
		exp, err := numericDate(rawExp)
		if err != nil {
			return newDecodeError(ErrCodeMalformed, ExpirationKey, err)
		}
		// jwt.Validate ignores an exp of zero.
		if !exp.Add(o.skew).After(o.now()) {
			return newDecodeError(ErrCodeExpired, ExpirationKey, fmt.Errorf("expired at %s", exp.UTC()))
		}
	} else if !o.allowMissingExpiry {
		return newDecodeError(ErrCodeMissingExpiry, ExpirationKey, nil)
	}
	if err := jwt.Validate(parsed, jwt.WithClock(o.clock), jwt.WithAcceptableSkew(o.skew)); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired()):
			return newDecodeError(ErrCodeExpired, ExpirationKey, err)
		case errors.Is(err, jwt.ErrTokenNotYetValid()):
			return newDecodeError(ErrCodeNotYetValid, NotBeforeKey, err)
		case errors.Is(err, jwt.ErrInvalidIssuedAt()):
			return newDecodeError(ErrCodeClaimMismatch, IssuedAtKey, err)
		default:
			return newDecodeError(ErrCodeClaimMismatch, "", err)
		}
	}

	if err := verifyClaims(payload, o.verifications); err != nil {
		return err
	}

	return reconstruct(def, payload, out)
}

// reconstruct copies mapped claims into attributes and everything else,
// except the kind tag, into the claims bag.
func reconstruct(def Definition, payload map[string]any, out attributeSetter) error {
	consumed := map[string]struct{}{KindKey: {}}
	for _, f := range def.RequiredMapping() {
		consumed[f.Claim] = struct{}{}
		v, ok := payload[f.Claim]
		if !ok || v == nil {
			return newDecodeError(ErrCodeMissingClaim, f.Claim, fmt.Errorf("required attribute %q", f.Attribute))
		}
		if err := out.SetAttribute(f.Attribute, v); err != nil {
			return newDecodeError(ErrCodeMalformed, f.Claim, err)
		}
	}
	for _, f := range def.OptionalMapping() {
		consumed[f.Claim] = struct{}{}
		v, ok := payload[f.Claim]
		if !ok || v == nil {
			continue
		}
		if err := out.SetAttribute(f.Attribute, v); err != nil {
			return newDecodeError(ErrCodeMalformed, f.Claim, err)
		}
	}
	claims := out.Claims()
	for k, v := range payload {
		if _, skip := consumed[k]; skip {
			continue
		}
		claims[k] = v
	}
	return nil
}
