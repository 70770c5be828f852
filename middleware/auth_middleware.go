package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
	"github.com/upb/coffee-shop/internal/observability"
	"github.com/upb/coffee-shop/utils"
)

// TokenVerifier defines the interface for validating bearer tokens
type TokenVerifier interface {
	// VerifyToken validates a token and returns its claims
	VerifyToken(ctx context.Context, token string) (*auth0.Claims, error)
}

// ScopedHandler is a protected operation. scopes holds the role scopes
// derived from the matched permissions (empty, never nil, when there are none).
type ScopedHandler func(w http.ResponseWriter, r *http.Request, scopes []string)

// AuthMiddleware is the authorization gate in front of protected routes
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Guard wraps h so it only runs for requests whose token grants at least one
// permission of requirement. It panics on an empty requirement.
func (m *AuthMiddleware) Guard(requirement string, h ScopedHandler) http.HandlerFunc {
	req := mustParseRequirement(requirement)
	return func(w http.ResponseWriter, r *http.Request) {
		r, ok := m.authorize(w, r, req)
		if !ok {
			return
		}
		h(w, r, GetScopesFromContext(r.Context()))
	}
}

// RequirePermission is the chi middleware form of Guard
func (m *AuthMiddleware) RequirePermission(requirement string) func(http.Handler) http.Handler {
	req := mustParseRequirement(requirement)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ok := m.authorize(w, r, req)
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize runs extract, verify and check. On failure the error response
// has been written and ok is false.
func (m *AuthMiddleware) authorize(w http.ResponseWriter, r *http.Request, req auth0.Requirement) (*http.Request, bool) {
	ctx, requestID := ensureRequestID(r.Context())

	token, err := ExtractBearerToken(r)
	if err != nil {
		m.reject(w, requestID, req, err)
		return r, false
	}

	claims, err := m.verifier.VerifyToken(ctx, token)
	if err != nil {
		m.reject(w, requestID, req, err)
		return r, false
	}

	matched, err := auth0.CheckPermissions(req, claims)
	if err != nil {
		m.logger.Warn("permission check failed",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.Strings("granted", claims.Permissions))
		m.reject(w, requestID, req, err)
		return r, false
	}

	scopes := auth0.RoleScopes(matched)
	ctx = WithClaims(ctx, claims)
	ctx = WithPermissions(ctx, matched)
	ctx = WithScopes(ctx, scopes)

	m.metrics.RecordAuthDecision("ok")
	m.logger.Debug("authorization successful",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Subject),
		zap.Strings("matched", matched),
		zap.Strings("scopes", scopes))

	return r.WithContext(ctx), true
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, requestID string, req auth0.Requirement, err error) {
	ae := auth0.AsAuthError(err)
	m.metrics.RecordAuthDecision(string(ae.Code))

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("code", string(ae.Code)),
		zap.Int("status", ae.StatusCode),
		zap.String("requirement", req.String()),
	}
	if ae.Err != nil {
		fields = append(fields, zap.Error(ae.Err))
	}
	m.logger.Warn("request rejected", fields...)

	_ = utils.WriteErrorCode(w, ae.StatusCode, string(ae.Code), ae.Description, nil)
}

func mustParseRequirement(requirement string) auth0.Requirement {
	req := auth0.ParseRequirement(requirement)
	if len(req) == 0 {
		panic(fmt.Sprintf("middleware: empty permission requirement %q", requirement))
	}
	return req
}

// ExtractBearerToken returns the token of an "Authorization: Bearer <token>"
// header. The header is split on single spaces exactly as received.
func ExtractBearerToken(r *http.Request) (string, error) {
	return parseBearerHeader(r.Header.Get("Authorization"))
}

func parseBearerHeader(header string) (string, error) {
	if header == "" {
		return "", auth0.ErrMissingHeader
	}

	parts := strings.Split(header, " ")
	switch {
	case !strings.EqualFold(parts[0], "bearer"):
		return "", auth0.ErrMalformedHeader.WithDescription(`Authorization header must start with "Bearer".`)
	case len(parts) == 1, len(parts) == 2 && parts[1] == "":
		return "", auth0.ErrMalformedHeader.WithDescription("Token not found.")
	case len(parts) > 2:
		return "", auth0.ErrMalformedHeader.WithDescription("Authorization header must be bearer token.")
	}
	return parts[1], nil
}
