package tokenx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// KeySet serves verification keys fetched from a remote JWKS endpoint and
// refreshes them in the background. The set returned by Get can be passed to
// Decode as the key; the token's kid header selects the key.
type KeySet struct {
	cfg   KeySetConfig
	cache *jwk.Cache
}

// NewKeySet registers the endpoint. The background refresher stops when ctx
// is cancelled.
func NewKeySet(ctx context.Context, cfg KeySetConfig) (*KeySet, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("key set: %w", err)
	}
	cfg.normalize()

	cache := jwk.NewCache(ctx)
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
	if err := cache.Register(
		cfg.URL,
		jwk.WithMinRefreshInterval(cfg.MinRefresh),
		jwk.WithHTTPClient(httpClient),
	); err != nil {
		return nil, fmt.Errorf("register jwks %q: %w", cfg.URL, err)
	}
	return &KeySet{cfg: cfg, cache: cache}, nil
}

// Warmup fetches the key set now.
func (k *KeySet) Warmup(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, k.cfg.HTTPTimeout)
	defer cancel()
	if _, err := k.cache.Refresh(refreshCtx, k.cfg.URL); err != nil {
		return newError(ErrCodeJWKSUnavailable, k.cfg.URL, err)
	}
	return nil
}

// Get returns the cached key set, fetching it if needed.
func (k *KeySet) Get(ctx context.Context) (jwk.Set, error) {
	set, err := k.cache.Get(ctx, k.cfg.URL)
	if err != nil {
		return nil, newError(ErrCodeJWKSUnavailable, k.cfg.URL, err)
	}
	return set, nil
}
