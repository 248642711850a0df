package tokenx

import (
	"errors"
	"fmt"
)

// ErrorCode represents encoder and decoder error categories.
type ErrorCode string

const (
	ErrCodeInvalidDefinition ErrorCode = "invalid_definition"
	ErrCodeKey               ErrorCode = "invalid_key"
	ErrCodeMissingAttribute  ErrorCode = "missing_attribute"
	ErrCodeMissingExpiry     ErrorCode = "missing_expiry"
	ErrCodeInvalidExpiry     ErrorCode = "invalid_expiry"
	ErrCodeInvalidClaim      ErrorCode = "invalid_claim"
	ErrCodeExpired           ErrorCode = "token_expired"
	ErrCodeNotYetValid       ErrorCode = "token_not_yet_valid"
	ErrCodeMalformed         ErrorCode = "malformed_token"
	ErrCodeSignature         ErrorCode = "invalid_signature"
	ErrCodeKindMismatch      ErrorCode = "kind_mismatch"
	ErrCodeClaimMismatch     ErrorCode = "claim_mismatch"
	ErrCodeMissingClaim      ErrorCode = "missing_claim"
	ErrCodeJWKSUnavailable   ErrorCode = "jwks_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeInvalidDefinition: "Invalid token definition",
	ErrCodeKey:               "Invalid key",
	ErrCodeMissingAttribute:  "Missing attribute",
	ErrCodeMissingExpiry:     "Missing expiry",
	ErrCodeInvalidExpiry:     "Invalid expiry",
	ErrCodeInvalidClaim:      "Invalid registered claim",
	ErrCodeExpired:           "Token expired",
	ErrCodeNotYetValid:       "Token not yet valid",
	ErrCodeMalformed:         "Malformed token",
	ErrCodeSignature:         "Invalid signature",
	ErrCodeKindMismatch:      "Token kind mismatch",
	ErrCodeClaimMismatch:     "Claim verification failed",
	ErrCodeMissingClaim:      "Missing claim",
	ErrCodeJWKSUnavailable:   "JWKS unavailable",
}

// Category sentinels. Match them with errors.Is against any error returned by
// Encode or Decode.
var (
	ErrKey              = errors.New("tokenx: key error")
	ErrMissingAttribute = errors.New("tokenx: missing attribute")
	ErrMissingExpiry    = errors.New("tokenx: missing expiry")
	ErrExpired          = errors.New("tokenx: expired token")
	ErrInvalidClaim     = errors.New("tokenx: invalid registered claim")

	// ErrDecode matches every failure produced while decoding.
	ErrDecode = errors.New("tokenx: decode error")
	// ErrMalformed matches structurally invalid tokens.
	ErrMalformed = errors.New("tokenx: malformed token")
	// ErrRejected matches well-formed tokens that failed verification.
	ErrRejected = errors.New("tokenx: token rejected")
)

// Error wraps encoder and decoder errors with a stable code and message.
type Error struct {
	Code    ErrorCode
	Message string
	// Field names the offending attribute or claim, if any.
	Field string
	// Decode is set for failures raised by the decoder.
	Decode bool
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Field != "" {
		base = fmt.Sprintf("%s %q", base, e.Field)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error belongs to the category named by target.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrKey:
		return e.Code == ErrCodeKey
	case ErrMissingAttribute:
		return e.Code == ErrCodeMissingAttribute
	case ErrMissingExpiry:
		return e.Code == ErrCodeMissingExpiry
	case ErrExpired:
		return e.Code == ErrCodeExpired
	case ErrInvalidClaim:
		return e.Code == ErrCodeInvalidClaim
	case ErrDecode:
		return e.Decode
	case ErrMalformed:
		return e.Decode && e.Code == ErrCodeMalformed
	case ErrRejected:
		if !e.Decode {
			return false
		}
		switch e.Code {
		case ErrCodeMalformed, ErrCodeKey, ErrCodeInvalidDefinition, ErrCodeJWKSUnavailable:
			return false
		}
		return true
	}
	return false
}

func newError(code ErrorCode, field string, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Field: field, Err: err}
}

func newDecodeError(code ErrorCode, field string, err error) error {
	e := newError(code, field, err).(*Error)
	e.Decode = true
	return e
}
