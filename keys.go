package tokenx

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

var algorithmKeyTypes = map[jwa.SignatureAlgorithm]jwa.KeyType{
	jwa.RS256: jwa.RSA,
	jwa.RS384: jwa.RSA,
	jwa.RS512: jwa.RSA,
	jwa.PS256: jwa.RSA,
	jwa.PS384: jwa.RSA,
	jwa.PS512: jwa.RSA,
	jwa.ES256: jwa.EC,
	jwa.ES384: jwa.EC,
	jwa.ES512: jwa.EC,
	jwa.EdDSA: jwa.OKP,
}

func keyTypeFor(alg jwa.SignatureAlgorithm) (jwa.KeyType, error) {
	kty, ok := algorithmKeyTypes[alg]
	if !ok {
		return "", fmt.Errorf("unsupported signature algorithm %q", alg)
	}
	return kty, nil
}

// ParseKey reads a PEM or JWK JSON encoded key.
func ParseKey(data []byte) (jwk.Key, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("key data is empty")
	}
	if trimmed[0] == '{' {
		return jwk.ParseKey(trimmed)
	}
	return jwk.ParseKey(trimmed, jwk.WithPEM(true))
}

// toJWK accepts raw crypto keys, jwk.Key values, and PEM or JWK JSON bytes.
func toJWK(key any) (jwk.Key, error) {
	switch k := key.(type) {
	case nil:
		return nil, errors.New("key is nil")
	case jwk.Key:
		return k, nil
	case []byte:
		return ParseKey(k)
	case string:
		return ParseKey([]byte(k))
	default:
		if isAbsent(key) {
			return nil, errors.New("key is nil")
		}
		return jwk.FromRaw(key)
	}
}

func isPrivate(k jwk.Key) bool {
	switch k.(type) {
	case jwk.RSAPrivateKey, jwk.ECDSAPrivateKey, jwk.OKPPrivateKey:
		return true
	}
	return false
}

// signingKey resolves key for signing with alg.
func signingKey(alg jwa.SignatureAlgorithm, key any) (jwk.Key, error) {
	kty, err := keyTypeFor(alg)
	if err != nil {
		return nil, newError(ErrCodeKey, "", err)
	}
	k, err := toJWK(key)
	if err != nil {
		return nil, newError(ErrCodeKey, "", err)
	}
	if k.KeyType() != kty {
		return nil, newError(ErrCodeKey, "", fmt.Errorf("%s key cannot sign %s", k.KeyType(), alg))
	}
	if !isPrivate(k) {
		return nil, newError(ErrCodeKey, "", errors.New("signing requires a private key"))
	}
	return k, nil
}

// verificationKey resolves key for verifying alg. Private keys are reduced to
// their public half; a set is searched by kid.
func verificationKey(alg jwa.SignatureAlgorithm, key any, kid string) (jwk.Key, error) {
	kty, err := keyTypeFor(alg)
	if err != nil {
		return nil, newDecodeError(ErrCodeKey, "", err)
	}
	if set, ok := key.(jwk.Set); ok {
		k, err := lookupKey(set, kid)
		if err != nil {
			return nil, newDecodeError(ErrCodeKey, "", err)
		}
		key = k
	}
	k, err := toJWK(key)
	if err != nil {
		return nil, newDecodeError(ErrCodeKey, "", err)
	}
	if k.KeyType() != kty {
		return nil, newDecodeError(ErrCodeKey, "", fmt.Errorf("%s key cannot verify %s", k.KeyType(), alg))
	}
	if isPrivate(k) {
		pub, err := jwk.PublicKeyOf(k)
		if err != nil {
			return nil, newDecodeError(ErrCodeKey, "", err)
		}
		k = pub
	}
	return k, nil
}

func lookupKey(set jwk.Set, kid string) (jwk.Key, error) {
	if set == nil {
		return nil, errors.New("key set is nil")
	}
	if kid != "" {
		if k, ok := set.LookupKeyID(kid); ok {
			return k, nil
		}
		return nil, fmt.Errorf("kid %q not found in key set", kid)
	}
	if set.Len() == 1 {
		if k, ok := set.Key(0); ok {
			return k, nil
		}
	}
	return nil, errors.New("token has no kid and key set does not hold exactly one key")
}

// PublicSet builds a JWKS holding the public half of every key, labelled with
// its kid and alg.
func PublicSet(alg jwa.SignatureAlgorithm, keys map[string]any) (jwk.Set, error) {
	kty, err := keyTypeFor(alg)
	if err != nil {
		return nil, err
	}
	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	set := jwk.NewSet()
	for _, kid := range kids {
		if kid == "" {
			return nil, errors.New("kid must be non-empty")
		}
		k, err := toJWK(keys[kid])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", kid, err)
		}
		if k.KeyType() != kty {
			return nil, fmt.Errorf("key %q: %s key cannot verify %s", kid, k.KeyType(), alg)
		}
		pub, err := jwk.PublicKeyOf(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", kid, err)
		}
		if err := pub.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("set kid: %w", err)
		}
		if err := pub.Set(jwk.AlgorithmKey, alg); err != nil {
			return nil, fmt.Errorf("set alg: %w", err)
		}
		if err := pub.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, fmt.Errorf("set use: %w", err)
		}
		if err := set.AddKey(pub); err != nil {
			return nil, fmt.Errorf("add key %q: %w", kid, err)
		}
	}
	return set, nil
}
