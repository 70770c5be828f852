package auth0

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/internal/observability"
)

// ErrJWKSFetchFailed is returned when the key set cannot be fetched or parsed
var ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

// maxJWKSSize bounds the key set document read from the network
const maxJWKSSize = 1 << 20

// KeyResolverConfig holds configuration for KeyResolver
type KeyResolverConfig struct {
	JWKSURL     string
	CacheTTL    time.Duration
	MinRefresh  time.Duration
	HTTPTimeout time.Duration
	Retries     int

	// Shared is an optional second cache tier holding the raw JWKS document
	Shared  KeySetCache
	Metrics *observability.Metrics
}

// KeyCacheStats describes the in-process key set cache
type KeyCacheStats struct {
	Cached    bool      `json:"cached"`
	KeyCount  int       `json:"key_count"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	LastFetch time.Time `json:"last_fetch,omitempty"`
}

// KeyResolver maps a key id to the provider's RSA public key. The key set is
// cached in process for CacheTTL and refetched once when an unknown kid shows
// up, at most every MinRefresh.
type KeyResolver struct {
	cfg    KeyResolverConfig
	client *retryablehttp.Client
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	lastFetch time.Time

	// fetchMu serializes refreshes; readers only take mu
	fetchMu sync.Mutex
}

// NewKeyResolver creates a new KeyResolver
func NewKeyResolver(cfg KeyResolverConfig, logger *zap.Logger) *KeyResolver {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.MinRefresh == 0 {
		cfg.MinRefresh = 30 * time.Second
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	client.Logger = newRetryLogger(logger)

	return &KeyResolver{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve returns the public key for kid. It returns ErrKeyNotFound when the
// kid is absent from a freshly loaded set and an error wrapping
// ErrJWKSFetchFailed when the set cannot be loaded.
func (r *KeyResolver) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fresh, found := r.lookup(kid)
	if found {
		return key, nil
	}

	force := false
	if fresh {
		// Cached set is valid but does not know the kid: the provider may have
		// rotated keys. Refetch, rate limited.
		if !r.refreshAllowed() {
			return nil, ErrKeyNotFound
		}
		force = true
	}

	if err := r.refresh(ctx, force); err != nil {
		return nil, err
	}

	if key, _, found := r.lookup(kid); found {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

// Keys returns a copy of the current key set, loading it if needed
func (r *KeyResolver) Keys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	r.mu.RLock()
	valid := r.keys != nil && r.now().Before(r.expiresAt)
	r.mu.RUnlock()

	if !valid {
		if err := r.refresh(ctx, false); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*rsa.PublicKey, len(r.keys))
	for kid, k := range r.keys {
		out[kid] = k
	}
	return out, nil
}

// Invalidate drops the in-process cache; the next lookup refetches
func (r *KeyResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = nil
	r.expiresAt = time.Time{}
	r.lastFetch = time.Time{}
}

// Stats returns cache statistics
func (r *KeyResolver) Stats() KeyCacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return KeyCacheStats{
		Cached:    r.keys != nil && r.now().Before(r.expiresAt),
		KeyCount:  len(r.keys),
		ExpiresAt: r.expiresAt,
		LastFetch: r.lastFetch,
	}
}

// lookup reports the key, whether the cached set is unexpired, and whether
// the kid was found in an unexpired set.
func (r *KeyResolver) lookup(kid string) (*rsa.PublicKey, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.keys == nil || !r.now().Before(r.expiresAt) {
		return nil, false, false
	}
	key, ok := r.keys[kid]
	return key, true, ok
}

func (r *KeyResolver) refreshAllowed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now().Sub(r.lastFetch) >= r.cfg.MinRefresh
}

// refresh loads the key set and swaps it in. force skips the shared tier,
// which would hold the same stale document.
func (r *KeyResolver) refresh(ctx context.Context, force bool) error {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	// Another caller may have refreshed while we waited
	r.mu.RLock()
	if force {
		force = r.now().Sub(r.lastFetch) >= r.cfg.MinRefresh
		if !force {
			r.mu.RUnlock()
			return nil
		}
	} else if r.keys != nil && r.now().Before(r.expiresAt) {
		r.mu.RUnlock()
		return nil
	}
	r.mu.RUnlock()

	var (
		keys map[string]*rsa.PublicKey
		err  error
	)
	if !force {
		keys = r.loadShared(ctx)
	}
	if keys == nil {
		keys, err = r.loadNetwork(ctx)
		if err != nil {
			return err
		}
	}

	now := r.now()
	r.mu.Lock()
	r.keys = keys
	r.expiresAt = now.Add(r.cfg.CacheTTL)
	r.lastFetch = now
	r.mu.Unlock()

	r.logger.Debug("signing key set loaded",
		zap.Int("keys", len(keys)),
		zap.Bool("forced", force))
	return nil
}

func (r *KeyResolver) loadShared(ctx context.Context) map[string]*rsa.PublicKey {
	if r.cfg.Shared == nil {
		return nil
	}
	doc, err := r.cfg.Shared.Get(ctx, r.cfg.JWKSURL)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("shared key set cache read failed", zap.Error(err))
		}
		return nil
	}
	keys, err := parseKeySet(doc)
	if err != nil {
		r.logger.Warn("shared key set cache holds an invalid document", zap.Error(err))
		return nil
	}
	r.cfg.Metrics.RecordJWKSFetch("shared", nil, 0)
	return keys
}

func (r *KeyResolver) loadNetwork(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	start := time.Now()
	doc, err := r.fetch(ctx)
	var keys map[string]*rsa.PublicKey
	if err == nil {
		keys, err = parseKeySet(doc)
	}
	r.cfg.Metrics.RecordJWKSFetch("network", err, time.Since(start))
	if err != nil {
		r.logger.Error("failed to fetch signing keys",
			zap.String("jwks_url", r.cfg.JWKSURL),
			zap.Error(err))
		return nil, err
	}

	if r.cfg.Shared != nil {
		if err := r.cfg.Shared.Set(ctx, r.cfg.JWKSURL, doc, r.cfg.CacheTTL); err != nil {
			r.logger.Warn("shared key set cache write failed", zap.Error(err))
		}
	}
	return keys, nil
}

func (r *KeyResolver) fetch(ctx context.Context) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, r.cfg.JWKSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	return doc, nil
}

// parseKeySet keeps the RSA keys of a JWKS document, indexed by kid
func parseKeySet(doc []byte) (map[string]*rsa.PublicKey, error) {
	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}

	keys := make(map[string]*rsa.PublicKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok || key.KeyType() != jwa.RSA || key.KeyID() == "" {
			continue
		}
		var raw interface{}
		if err := key.Raw(&raw); err != nil {
			continue
		}
		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[key.KeyID()] = pub
	}
	return keys, nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger
type retryLogger struct {
	s *zap.SugaredLogger
}

func newRetryLogger(logger *zap.Logger) retryablehttp.LeveledLogger {
	return retryLogger{s: logger.Named("jwks").Sugar()}
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
