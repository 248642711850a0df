package tokenx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Registered claim keys and the kind tag key.
const (
	ExpirationKey = "exp"
	IssuedAtKey   = "iat"
	NotBeforeKey  = "nbf"
	IssuerKey     = "iss"
	SubjectKey    = "sub"
	AudienceKey   = "aud"
	JwtIDKey      = "jti"
	KindKey       = "knd"
)

// Claims is the open claims bag of a token: every claim not covered by an
// attribute mapping.
type Claims map[string]any

// Set stores value under key. The last write for a key wins.
func (c Claims) Set(key string, value any) Claims {
	c[key] = value
	return c
}

// Get returns the value stored under key.
func (c Claims) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// ExpiresAt returns the exp claim as a time, if present and well formed.
func (c Claims) ExpiresAt() (time.Time, bool) {
	v, ok := c[ExpirationKey]
	if !ok {
		return time.Time{}, false
	}
	t, err := numericDate(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a shallow copy of the claims bag.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// numericDate interprets v as a JWT NumericDate (seconds since the epoch).
func numericDate(v any) (time.Time, error) {
	switch n := v.(type) {
	case time.Time:
		return n, nil
	case *time.Time:
		if n == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *n, nil
	case int:
		return time.Unix(int64(n), 0), nil
	case int32:
		return time.Unix(int64(n), 0), nil
	case int64:
		return time.Unix(n, 0), nil
	case uint32:
		return time.Unix(int64(n), 0), nil
	case uint64:
		if n > math.MaxInt64 {
			return time.Time{}, fmt.Errorf("numeric date %d out of range", n)
		}
		return time.Unix(int64(n), 0), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, fmt.Errorf("numeric date %v is not finite", n)
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return time.Unix(i, 0), nil
		}
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("numeric date %q: %w", n, err)
		}
		return numericDate(f)
	default:
		return time.Time{}, fmt.Errorf("unsupported numeric date type %T", v)
	}
}

// decodeObject decodes a JSON object, turning integers into int64 and other
// numbers into float64.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after payload object")
	}
	for k, v := range raw {
		raw[k] = normalizeNumbers(v)
	}
	return raw, nil
}

// normalizeValue gives v the shape it would have after a round trip through
// the wire format.
func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalizeNumbers(out), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}
