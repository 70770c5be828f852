package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
)

const (
	gateAudience = "drink"
	gateIssuer   = "https://coffee-shop.test.auth0.com/"
)

// gateFixture wires the real verifier against a local key endpoint
type gateFixture struct {
	key  *rsa.PrivateKey
	gate *AuthMiddleware
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, "kid-1"))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	doc, err := json.Marshal(set)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)

	resolver := auth0.NewKeyResolver(auth0.KeyResolverConfig{JWKSURL: srv.URL}, zap.NewNop())
	verifier := auth0.NewVerifier(auth0.VerifierConfig{
		Audience: gateAudience,
		Issuer:   gateIssuer,
	}, resolver, zap.NewNop())

	return &gateFixture{key: key, gate: NewAuthMiddleware(verifier, zap.NewNop(), nil)}
}

func (f *gateFixture) token(t *testing.T, kid string, permissions ...string) string {
	t.Helper()
	now := time.Now()
	claims := &auth0.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    gateIssuer,
			Subject:   "auth0|barista-1",
			Audience:  jwt.ClaimStrings{gateAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Permissions: append([]string{}, permissions...),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func (f *gateFixture) serve(requirement, header string) (*httptest.ResponseRecorder, []string, bool) {
	var (
		gotScopes []string
		called    bool
	)
	h := f.gate.Guard(requirement, func(w http.ResponseWriter, r *http.Request, scopes []string) {
		called = true
		gotScopes = scopes
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, gotScopes, called
}

func TestGate_DrinksDetailWithoutScopes(t *testing.T) {
	f := newGateFixture(t)

	w, scopes, called := f.serve("get:drinks-detail", "Bearer "+f.token(t, "kid-1", "get:drinks-detail"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.Equal(t, []string{}, scopes)
}

func TestGate_ManagerScopes(t *testing.T) {
	f := newGateFixture(t)

	w, scopes, called := f.serve("manage:barista, manage:manager", "Bearer "+f.token(t, "kid-1", "manage:barista"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.Equal(t, []string{"barista"}, scopes)
}

func TestGate_BasicSchemeRejected(t *testing.T) {
	f := newGateFixture(t)

	w, _, called := f.serve("get:drinks-detail", "Basic abc123")

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_header", decodeErrorBody(t, w).Error)
}

func TestGate_UnknownKidRejected(t *testing.T) {
	f := newGateFixture(t)

	w, _, called := f.serve("get:drinks-detail", "Bearer "+f.token(t, "kid-rotated-away", "get:drinks-detail"))

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, "key_not_found", body.Error)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
}

func TestGate_PermissionNotGranted(t *testing.T) {
	f := newGateFixture(t)

	w, _, called := f.serve("delete:drinks", "Bearer "+f.token(t, "kid-1", "get:drinks-detail", "patch:drinks"))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "permission_denied", decodeErrorBody(t, w).Error)
}
