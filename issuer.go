package tokenx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// BuildFunc returns a fresh token value to be issued.
type BuildFunc func() (Token, error)

// Issuer signs tokens with one private key and fills default claims.
// Token sources are cached per name.
type Issuer struct {
	mu      sync.RWMutex
	key     any
	cfg     IssuerConfig
	sources map[string]oauth2.TokenSource
}

// NewIssuer constructs an Issuer. key must be a private key.
func NewIssuer(key any, cfg IssuerConfig) (*Issuer, error) {
	k, err := toJWK(key)
	if err != nil {
		return nil, newError(ErrCodeKey, "", err)
	}
	if !isPrivate(k) {
		return nil, newError(ErrCodeKey, "", errors.New("issuer requires a private key"))
	}
	cfg.normalize()
	return &Issuer{
		key:     k,
		cfg:     cfg,
		sources: make(map[string]oauth2.TokenSource),
	}, nil
}

// Issue fills the claims of t that are still unset (exp, iat, jti, and iss and
// aud when configured) and encodes it. The defaults are applied to a copy, so
// the claims bag of t is left untouched.
func (i *Issuer) Issue(t Token, opts ...Option) (string, error) {
	encoded, _, err := i.issue(t, opts)
	return encoded, err
}

func (i *Issuer) issue(t Token, opts []Option) (string, Claims, error) {
	if t == nil || isAbsent(t) {
		return "", nil, newError(ErrCodeInvalidDefinition, "", errors.New("token is nil"))
	}
	now := i.cfg.Clock.Now()
	claims := t.Claims().Clone()
	setDefault(claims, ExpirationKey, now.Add(i.cfg.TTL).Unix())
	setDefault(claims, IssuedAtKey, now.Unix())
	setDefault(claims, JwtIDKey, uuid.NewString())
	if i.cfg.Issuer != "" {
		setDefault(claims, IssuerKey, i.cfg.Issuer)
	}
	if i.cfg.Audience != "" {
		setDefault(claims, AudienceKey, i.cfg.Audience)
	}

	base := []Option{WithClock(i.cfg.Clock)}
	if i.cfg.KeyID != "" {
		base = append(base, WithKeyID(i.cfg.KeyID))
	}
	encoded, err := Encode(i.key, withClaims{Token: t, claims: claims}, append(base, opts...)...)
	if err != nil {
		return "", nil, err
	}
	return encoded, claims, nil
}

// withClaims overrides the claims bag of a token.
type withClaims struct {
	Token
	claims Claims
}

func (w withClaims) Claims() Claims { return w.claims }

// TokenSource returns an oauth2.TokenSource that issues a token built by
// build and reuses it until it expires. Sources are cached by name; build is
// only consulted on the first call for a name.
func (i *Issuer) TokenSource(name string, build BuildFunc) oauth2.TokenSource {
	i.mu.RLock()
	ts, ok := i.sources[name]
	i.mu.RUnlock()
	if ok {
		return ts
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if ts, ok = i.sources[name]; ok {
		return ts
	}
	ts = oauth2.ReuseTokenSource(nil, &issuingSource{issuer: i, build: build})
	i.sources[name] = ts
	return ts
}

type issuingSource struct {
	issuer *Issuer
	build  BuildFunc
}

func (s *issuingSource) Token() (*oauth2.Token, error) {
	if s.build == nil {
		return nil, errors.New("token builder is nil")
	}
	t, err := s.build()
	if err != nil {
		return nil, fmt.Errorf("build token: %w", err)
	}
	encoded, claims, err := s.issuer.issue(t, nil)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: encoded, TokenType: "Bearer"}
	if exp, ok := claims.ExpiresAt(); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func setDefault(c Claims, key string, value any) {
	if v, ok := c[key]; ok && v != nil {
		return
	}
	c[key] = value
}
