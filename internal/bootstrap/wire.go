package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/baechuer/tokenauth/internal/application/auth"
	"github.com/baechuer/tokenauth/internal/audit"
	"github.com/baechuer/tokenauth/internal/config"
	"github.com/baechuer/tokenauth/internal/infrastructure/db/postgres"
	"github.com/baechuer/tokenauth/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/tokenauth/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/tokenauth/internal/infrastructure/redis"
	"github.com/baechuer/tokenauth/internal/infrastructure/security"
	"github.com/baechuer/tokenauth/internal/logger"
	http_handlers "github.com/baechuer/tokenauth/internal/transport/http/handlers"
	"github.com/baechuer/tokenauth/internal/transport/http/middleware"
	"github.com/baechuer/tokenauth/internal/transport/http/response"
	"github.com/baechuer/tokenauth/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(dsn string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (auth.EventPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) store
	var (
		store auth.UserStore
		sqlDB *sql.DB
	)
	switch cfg.Store {
	case config.StorePostgres:
		sqlDB, err = deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = sqlDB.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = deps.Migrate(ctx, sqlDB)
		cancel()
		if err != nil {
			return fail(err)
		}
		store = postgres.NewUserStore(sqlDB)
	default:
		logger.Logger.Warn().Msg("using in-memory user store; accounts are lost on restart")
		store = memory.NewUserStore()
	}

	// 2) redis token cache (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; token cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			store = redis.NewCachedUserStore(store, c, cfg.TokenCacheTTL)
		}
	}

	// 3) publisher
	var pub auth.EventPublisher = memory.NewNoopPublisher()
	if cfg.RabbitURL != "" {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			pub = p
			if c, ok := p.(interface{ Close() error }); ok {
				cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			}
		case cfg.Env == "dev":
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		default:
			return fail(err)
		}
	}

	// 4) security
	if cfg.TokenTTL == 0 {
		logger.Logger.Warn().Msg("TOKEN_TTL=0: issued tokens never expire")
	}
	logger.Logger.Info().
		Str("issuer", cfg.JWTIssuer).
		Dur("token_ttl", cfg.TokenTTL).
		Int("bcrypt_cost", cfg.BcryptCost).
		Msg("initializing token codec")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	codec := security.NewJWTCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	// 5) service
	authSvc := auth.NewService(store, hasher, codec, pub).
		WithAudit(audit.New(logger.Logger).Record)

	// 6) handlers + middleware
	readiness := map[string]http_handlers.Pinger{}
	if sqlDB != nil {
		readiness["postgres"] = sqlDB
	}
	if redisCli != nil {
		readiness["redis"] = http_handlers.PingFunc(redisCli.Ping)
	}

	mux, err := deps.NewRouter(router.Deps{
		Health:    http_handlers.NewHealthHandler(readiness),
		Users:     http_handlers.NewUsersHandler(authSvc),
		AuthMW:    middleware.Auth(authSvc, response.WriteError),
		RequestID: middleware.RequestID,
		Metrics:   middleware.Metrics,

		SecurityHeaders: middleware.SecurityHeaders(cfg.Env == "prod"),
	})
	if err != nil {
		return fail(err)
	}

	// 7) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (auth.EventPublisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
