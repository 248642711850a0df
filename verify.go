package tokenx

import (
	"errors"
	"fmt"
	"reflect"
)

// Verifications maps a claim key to its expected value. A value may be a
// Check, otherwise the claim must equal it after JSON normalization.
type Verifications map[string]any

// Check inspects a claim. ok reports whether the claim is present.
type Check func(value any, ok bool) error

// Present requires the claim to exist.
func Present() Check {
	return func(_ any, ok bool) error {
		if !ok {
			return errors.New("claim is missing")
		}
		return nil
	}
}

// NumericDate requires the claim to be a timestamp.
func NumericDate() Check {
	return func(value any, ok bool) error {
		if !ok {
			return errors.New("claim is missing")
		}
		switch value.(type) {
		case int64, float64:
			return nil
		}
		return fmt.Errorf("claim value %v is not a numeric date", value)
	}
}

// OneOf requires the claim to equal one of values.
func OneOf(values ...any) Check {
	return func(value any, ok bool) error {
		if !ok {
			return errors.New("claim is missing")
		}
		for _, candidate := range values {
			want, err := normalizeValue(candidate)
			if err != nil {
				return err
			}
			if reflect.DeepEqual(value, want) {
				return nil
			}
		}
		return fmt.Errorf("claim value %v is not allowed", value)
	}
}

// verifyClaims runs every verification against the decoded payload.
func verifyClaims(payload map[string]any, v Verifications) error {
	for key, expected := range v {
		value, ok := payload[key]
		if err := verifyClaim(key, value, ok, expected); err != nil {
			return newDecodeError(ErrCodeClaimMismatch, key, err)
		}
	}
	return nil
}

func verifyClaim(key string, value any, ok bool, expected any) error {
	switch check := expected.(type) {
	case Check:
		return check(value, ok)
	case func(any, bool) error:
		return check(value, ok)
	}
	if !ok {
		return errors.New("claim is missing")
	}
	want, err := normalizeValue(expected)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	if reflect.DeepEqual(value, want) {
		return nil
	}
	if key == AudienceKey {
		if list, isList := value.([]any); isList {
			for _, item := range list {
				if reflect.DeepEqual(item, want) {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("got %v, want %v", value, want)
}
