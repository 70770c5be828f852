package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
	"github.com/upb/coffee-shop/config"
	"github.com/upb/coffee-shop/handlers"
	"github.com/upb/coffee-shop/internal/observability"
	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/repositories"
	"github.com/upb/coffee-shop/repositories/sqlstore"
	"github.com/upb/coffee-shop/services"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *sqlstore.DB
	Redis   *redis.Client
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *sqlstore.RepositoryFactory

	// Repositories
	Drinks    repositories.DrinkRepository
	TxManager repositories.TransactionManager

	// Identity provider
	Keys       *auth0.KeyResolver // nil when token verification is not configured
	Management *auth0.ManagementClient

	// Services
	DrinkService *services.DrinkService
	UserService  *services.UserService

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	DrinkHandler   *handlers.DrinkHandler
	UserHandler    *handlers.UserHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies opens the configured database and wires up everything else.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := sqlstore.NewRepositoryFactory(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromFactory wires the application around an already open
// repository factory.
func NewDependenciesFromFactory(ctx context.Context, cfg *config.Config, factory *sqlstore.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initRedis(ctx)
	deps.initAuth()
	deps.initManagement(ctx)
	deps.initServices()

	logger.Info("all dependencies initialized successfully",
		zap.Bool("auth_enabled", deps.Keys != nil),
		zap.Bool("management_enabled", deps.Management != nil),
		zap.Bool("shared_key_cache", deps.Redis != nil))
	return deps, nil
}

// initDatabase creates the schema when auto-migration is on
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if d.Config.Database.AutoMigrate {
		if err := d.DB.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("driver", string(d.DB.Driver())),
		zap.String("connection", d.Config.Database.LogString()))
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Drinks = repos.Drinks
	d.TxManager = repos.TxManager

	d.Logger.Info("repositories initialized")
}

// initRedis connects the optional shared key set cache. An unreachable Redis
// only costs the shared tier; verification still works from the network.
func (d *Dependencies) initRedis(ctx context.Context) {
	if d.Config.Redis.URL == "" {
		return
	}

	opts, err := redis.ParseURL(d.Config.Redis.URL)
	if err != nil {
		d.Logger.Warn("invalid REDIS_URL, shared key cache disabled", zap.Error(err))
		return
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		d.Logger.Warn("redis unreachable, shared key cache disabled", zap.Error(err))
		_ = client.Close()
		return
	}

	d.Redis = client
	d.Logger.Info("redis connection established", zap.String("addr", opts.Addr))
}

func (d *Dependencies) initAuth() {
	cfg := d.Config.Auth0
	if !cfg.AuthEnabled() {
		d.Logger.Warn("auth0 not configured, protected routes will reject every token")
		d.AuthMiddleware = middleware.NewAuthMiddleware(rejectAllVerifier{}, d.Logger, d.Metrics)
		return
	}

	keyCfg := auth0.KeyResolverConfig{
		JWKSURL:     cfg.JWKSEndpoint(),
		CacheTTL:    cfg.JWKSCacheTTL,
		MinRefresh:  cfg.JWKSMinRefresh,
		HTTPTimeout: cfg.HTTPTimeout,
		Retries:     cfg.JWKSRetries,
		Metrics:     d.Metrics,
	}
	if d.Redis != nil {
		keyCfg.Shared = auth0.NewRedisKeySetCache(d.Redis, d.Config.Redis.KeyPrefix)
	}
	d.Keys = auth0.NewKeyResolver(keyCfg, d.Logger.Named("jwks"))

	verifier := auth0.NewVerifier(auth0.VerifierConfig{
		Audience:   cfg.Audience,
		Issuer:     cfg.IssuerURL(),
		Algorithms: cfg.Algorithms,
		Leeway:     cfg.Leeway,
	}, d.Keys, d.Logger)

	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Logger, d.Metrics)
	d.Logger.Info("token verification initialized",
		zap.String("issuer", cfg.IssuerURL()),
		zap.String("audience", cfg.Audience))
}

// initManagement builds the management API client. Its token source outlives
// ctx, so cancellation is detached.
func (d *Dependencies) initManagement(ctx context.Context) {
	cfg := d.Config.Auth0
	if !cfg.ManagementEnabled() {
		d.Logger.Warn("auth0 management credentials not configured, user endpoints disabled")
		return
	}

	d.Management = auth0.NewManagementClient(context.WithoutCancel(ctx), auth0.ManagementConfig{
		BaseURL:      cfg.ManagementBaseURL(),
		TokenURL:     cfg.TokenURL(),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Connection:   cfg.Connection,
		HTTPTimeout:  cfg.HTTPTimeout,
		Retries:      cfg.JWKSRetries,
		Metrics:      d.Metrics,
	}, d.Logger)
}

func (d *Dependencies) initServices() {
	d.DrinkService = services.NewDrinkService(d.Drinks, d.TxManager, d.Metrics, d.Logger)

	// a nil *ManagementClient must reach the service as a nil interface
	var api services.ManagementAPI
	if d.Management != nil {
		api = d.Management
	}
	d.UserService = services.NewUserService(api, d.Logger)

	var keys handlers.KeyCacheReporter
	if d.Keys != nil {
		keys = d.Keys
	}

	d.DrinkHandler = handlers.NewDrinkHandler(d.DrinkService, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.UserService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, keys, d.Logger)
}

// rejectAllVerifier rejects all tokens (used when Auth0 is not configured)
type rejectAllVerifier struct{}

func (rejectAllVerifier) VerifyToken(context.Context, string) (*auth0.Claims, error) {
	return nil, auth0.ErrKeyNotFound.WithDescription("Token verification is not configured.")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
