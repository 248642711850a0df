// Package access defines the access token kind: the caller's client, role and
// user, plus an optional session.
package access

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"

	tokenx "github.com/bionicotaku/lingo-utils-tokenx"
)

// Kind is the kind tag of access tokens.
const Kind = "access"

// Attribute names.
const (
	AttrClientID  = "client_id"
	AttrRole      = "role"
	AttrUserID    = "user_id"
	AttrSessionID = "session_id"
)

var (
	required = tokenx.Mapping{
		tokenx.Attr(AttrClientID, "cid"),
		tokenx.Attr(AttrRole, "role"),
		tokenx.Attr(AttrUserID, "uid"),
	}
	optional = tokenx.Mapping{
		tokenx.Attr(AttrSessionID, "sid"),
	}
)

type definition struct{}

func (definition) Kind() string                      { return Kind }
func (definition) Algorithm() jwa.SignatureAlgorithm { return jwa.RS256 }
func (definition) RequiredMapping() tokenx.Mapping   { return required }
func (definition) OptionalMapping() tokenx.Mapping   { return optional }

// Definition describes access tokens.
var Definition tokenx.Definition = definition{}

// Token is an access token value.
type Token struct {
	tokenx.Base

	ClientID  string
	Role      string
	UserID    string
	SessionID string
}

// New returns an access token without a session.
func New(clientID, role, userID string) *Token {
	return &Token{ClientID: clientID, Role: role, UserID: userID}
}

// WithSession sets the session id and returns t.
func (t *Token) WithSession(sessionID string) *Token {
	t.SessionID = sessionID
	return t
}

func (*Token) Definition() tokenx.Definition { return Definition }

// Attribute implements tokenx.Token. Empty strings read as absent.
func (t *Token) Attribute(name string) any {
	switch name {
	case AttrClientID:
		return tokenx.NonEmpty(t.ClientID)
	case AttrRole:
		return tokenx.NonEmpty(t.Role)
	case AttrUserID:
		return tokenx.NonEmpty(t.UserID)
	case AttrSessionID:
		return tokenx.NonEmpty(t.SessionID)
	}
	return nil
}

// SetAttribute implements tokenx.Decodable.
func (t *Token) SetAttribute(name string, value any) error {
	switch name {
	case AttrClientID:
		return tokenx.Assign(&t.ClientID, value)
	case AttrRole:
		return tokenx.Assign(&t.Role, value)
	case AttrUserID:
		return tokenx.Assign(&t.UserID, value)
	case AttrSessionID:
		return tokenx.Assign(&t.SessionID, value)
	}
	return fmt.Errorf("access token has no attribute %q", name)
}

// Encode signs t with key.
func Encode(key any, t *Token, opts ...tokenx.Option) (string, error) {
	return tokenx.Encode(key, t, opts...)
}

// Decode verifies encoded and returns the access token it carries.
func Decode(encoded string, key any, opts ...tokenx.Option) (*Token, error) {
	return tokenx.Decode[Token](encoded, key, opts...)
}
