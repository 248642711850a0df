package tokenx

import (
	"errors"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	maxClockSkew       = 5 * time.Minute
	defaultMinRefresh  = 5 * time.Minute
	defaultHTTPTimeout = 5 * time.Second
	defaultTTL         = time.Hour
)

// Option customizes a single Encode or Decode call.
type Option func(*options)

type options struct {
	clock              jwt.Clock
	skew               time.Duration
	keyID              string
	verifications      Verifications
	allowMissingExpiry bool
}

func newOptions(opts []Option) *options {
	o := &options{clock: jwt.ClockFunc(time.Now)}
	for _, opt := range opts {
		opt(o)
	}
	if o.skew < 0 {
		o.skew = 0
	}
	if o.skew > maxClockSkew {
		o.skew = maxClockSkew
	}
	return o
}

func (o *options) now() time.Time {
	return o.clock.Now()
}

// WithClock overrides the time source used for expiry checks.
func WithClock(clock jwt.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithClockSkew tolerates clock drift when decoding time based claims.
func WithClockSkew(d time.Duration) Option {
	return func(o *options) {
		o.skew = d
	}
}

// WithKeyID sets the kid header of encoded tokens.
func WithKeyID(kid string) Option {
	return func(o *options) {
		o.keyID = kid
	}
}

// WithVerifications adds claim verifications applied when decoding.
func WithVerifications(v Verifications) Option {
	return func(o *options) {
		if len(v) == 0 {
			return
		}
		if o.verifications == nil {
			o.verifications = make(Verifications, len(v))
		}
		for k, expected := range v {
			o.verifications[k] = expected
		}
	}
}

// WithClaim adds a single claim verification.
func WithClaim(key string, expected any) Option {
	return WithVerifications(Verifications{key: expected})
}

// AllowMissingExpiry accepts tokens without exp when decoding.
func AllowMissingExpiry() Option {
	return func(o *options) {
		o.allowMissingExpiry = true
	}
}

// KeySetConfig describes a remote JWKS endpoint.
type KeySetConfig struct {
	URL         string
	MinRefresh  time.Duration
	HTTPTimeout time.Duration
}

func (c *KeySetConfig) normalize() {
	if c.MinRefresh <= 0 {
		c.MinRefresh = defaultMinRefresh
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

func (c KeySetConfig) validate() error {
	if c.URL == "" {
		return errors.New("jwks url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("jwks url must be http or https")
	}
	return nil
}

// IssuerConfig contains the defaults an Issuer applies to every token.
type IssuerConfig struct {
	Issuer   string
	Audience string
	TTL      time.Duration
	KeyID    string
	// Clock overrides the time source, mostly for tests.
	Clock jwt.Clock
}

func (c *IssuerConfig) normalize() {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.Clock == nil {
		c.Clock = jwt.ClockFunc(time.Now)
	}
}
