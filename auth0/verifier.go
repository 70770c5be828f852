package auth0

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// KeySource resolves a key id to a verification key
type KeySource interface {
	Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// VerifierConfig holds the expected token properties
type VerifierConfig struct {
	Audience   string
	Issuer     string // e.g. https://my-shop.eu.auth0.com/
	Algorithms []string
	Leeway     time.Duration
}

// Verifier validates Auth0 access tokens: signature, expiry, audience, issuer.
type Verifier struct {
	keys   KeySource
	parser *jwt.Parser
	logger *zap.Logger
}

// NewVerifier creates a new Verifier
func NewVerifier(cfg VerifierConfig, keys KeySource, logger *zap.Logger) *Verifier {
	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = []string{"RS256"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(cfg.Algorithms),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(cfg.Audience),
		jwt.WithIssuer(cfg.Issuer),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	return &Verifier{
		keys:   keys,
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

// VerifyToken validates tokenString and returns its claims. Every error is an
// *AuthError.
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrUnparsableToken.Wrap(err)
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, ErrInvalidHeader
	}

	key, err := v.keys.Resolve(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			v.logger.Debug("token signed with unknown key", zap.String("kid", kid))
			return nil, ErrKeyNotFound
		}
		v.logger.Error("signing key lookup failed",
			zap.String("kid", kid),
			zap.Error(err))
		return nil, ErrKeyNotFound.WithDescription("Unable to fetch signing keys.").Wrap(err)
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, mapValidationError(err)
	}
	return claims, nil
}

// mapValidationError translates jwt errors; first match wins
func mapValidationError(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken.Wrap(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrInvalidClaims.Wrap(err)
	default:
		return ErrUnparsableToken.Wrap(err)
	}
}
