// @title                       Education ERP Auth API
// @version                     1.0
// @description                 Authentication, session tokens and account administration for the education ERP.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/educationerp/erp-auth/internal/api"
	"github.com/educationerp/erp-auth/internal/api/handler"
	"github.com/educationerp/erp-auth/internal/core/policy"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/core/service"
	"github.com/educationerp/erp-auth/internal/core/token"
	"github.com/educationerp/erp-auth/internal/infrastructure/db/memory"
	mongostore "github.com/educationerp/erp-auth/internal/infrastructure/db/mongo"
	"github.com/educationerp/erp-auth/internal/infrastructure/db/postgres"
	redisstore "github.com/educationerp/erp-auth/internal/infrastructure/db/redis"
	"github.com/educationerp/erp-auth/internal/infrastructure/queue"
	"github.com/educationerp/erp-auth/internal/pkg/config"
	"github.com/educationerp/erp-auth/internal/pkg/secret"
	"github.com/educationerp/erp-auth/pkg/logger"
)

// stores is the account store selected by STORE_DRIVER plus the audit sink
// and readiness checks that come with it.
type stores struct {
	accounts ports.AccountRepository
	audit    ports.AuditSink
	checks   map[string]handler.Check
	close    func()
}

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.IsDevelopment(),
		Service: "erp-auth",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open account store")
	}
	defer st.close()

	var revocations ports.RevocationList
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		revocations = redisstore.NewRevocationList(rdb)
		st.checks["redis"] = redisCheck(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token revocation enabled")
	} else {
		log.Warn().Msg("redis disabled, logout is advisory")
	}

	hasher, err := secret.New(cfg.Auth.HashAlgorithm, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build password hasher")
	}

	key := []byte(cfg.JWT.Secret)
	tokenOpts := []token.Option{token.WithIssuer(cfg.JWT.Issuer), token.WithLifetimes(cfg.Lifetimes())}
	issuer, err := token.NewIssuer(key, tokenOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token issuer")
	}
	validator, err := token.NewValidator(key, tokenOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token validator")
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, st.audit, logger.Component("audit"))
	dispatcher.Start(ctx)

	verifier, err := service.NewCredentialVerifier(st.accounts, hasher, cfg.Auth.MaxFailedAttempts, dispatcher, logger.Component("verifier"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build credential verifier")
	}

	authCfg := service.DefaultAuthConfig()
	authCfg.DefaultTenant = cfg.Auth.DefaultTenant
	authCfg.RecheckOnRefresh = cfg.Auth.RefreshRecheck
	authOpts := []service.AuthOption{service.WithEventPublisher(dispatcher)}
	if revocations != nil {
		authOpts = append(authOpts, service.WithRevocationList(revocations))
	}
	authService := service.NewAuthService(verifier, st.accounts, hasher, issuer, validator, authCfg, logger.Component("auth"), authOpts...)
	accountService := service.NewAccountService(st.accounts, hasher, verifier, dispatcher, logger.Component("accounts"))

	if cfg.Seed.Demo {
		n, err := service.SeedAccounts(ctx, st.accounts, hasher, cfg.Seed.Password, service.DemoAccounts(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo accounts")
		}
		log.Info().Int("created", n).Msg("demo accounts ready")
	}

	rateLimit := api.RateLimit{}
	if cfg.RateLimit.Enabled {
		rateLimit = api.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	}

	e := api.NewRouter(api.Deps{
		Log:            logger.Component("http"),
		Policy:         policy.Default(),
		Tokens:         validator,
		Revocations:    revocations,
		AuthService:    authService,
		AccountService: accountService,
		HealthChecks:   st.checks,
		TenantType:     cfg.TenantType(),
		DefaultTenant:  cfg.Auth.DefaultTenant,
		RateLimit:      rateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("store", cfg.Store.Driver).
			Str("tenant_type", string(cfg.TenantType())).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// The dispatcher drains queued audit events once ctx is cancelled.
	dispatcher.Wait()
	log.Info().Msg("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "erp-auth",
		})
		if err != nil {
			return nil, err
		}
		repo := mongostore.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongodb account store")
		return &stores{
			accounts: repo,
			audit:    mongostore.NewAuditRepository(db),
			checks: map[string]handler.Check{
				"mongodb": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
			},
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:          cfg.Postgres.DSN,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("using postgres account store")
		return &stores{
			accounts: postgres.NewAccountRepository(db),
			audit:    postgres.NewAuditRepository(db),
			checks:   map[string]handler.Check{"postgres": sqlCheck(db)},
			close:    func() { _ = db.Close() },
		}, nil

	default:
		log.Warn().Msg("using in-memory account store, data is lost on restart")
		return &stores{
			accounts: memory.NewAccountRepository(),
			audit:    queue.NewLogSink(logger.Component("audit")),
			checks:   map[string]handler.Check{},
			close:    func() {},
		}, nil
	}
}

func sqlCheck(db *sql.DB) handler.Check {
	return db.PingContext
}

func redisCheck(rdb *goredis.Client) handler.Check {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
