package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
	"github.com/upb/coffee-shop/config"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the signing key ids the API accepts",
		Long: `keys fetches the tenant's JWKS the same way serve does and prints one
key id per line with its modulus size.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeys(cmd.Context(), opts.cfg.Auth0, cmd.OutOrStdout(), opts.logger)
		},
	}
}

func runKeys(ctx context.Context, cfg config.Auth0Config, out io.Writer, logger *zap.Logger) error {
	if cfg.Domain == "" && cfg.JWKSURL == "" {
		return errors.New("AUTH0_DOMAIN or AUTH0_JWKS_URL is required")
	}

	resolver := auth0.NewKeyResolver(auth0.KeyResolverConfig{
		JWKSURL:     cfg.JWKSEndpoint(),
		HTTPTimeout: cfg.HTTPTimeout,
		Retries:     cfg.JWKSRetries,
	}, logger.Named("jwks"))

	keys, err := resolver.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to load signing keys: %w", err)
	}

	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	for _, kid := range kids {
		if _, err := fmt.Fprintf(out, "%s\tRSA-%d\n", kid, keys[kid].N.BitLen()); err != nil {
			return err
		}
	}
	logger.Debug("signing keys listed", zap.Int("count", len(kids)))
	return nil
}
