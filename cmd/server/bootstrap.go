package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/api"
	"github.com/charlesng35/barangay/internal/app"
	"github.com/charlesng35/barangay/internal/app/maintenance"
	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/cache"
	"github.com/charlesng35/barangay/internal/database"
	"github.com/charlesng35/barangay/internal/middleware"
	"github.com/charlesng35/barangay/internal/monitoring/checks"
	"github.com/charlesng35/barangay/internal/storage"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/mail"
)

// newIdentityProvider performs OIDC discovery. Tests replace it to avoid the network.
var newIdentityProvider = func(ctx context.Context, cfg auth.OIDCConfig) (auth.IdentityProvider, error) {
	provider, err := auth.NewOIDCProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *cache.RedisClient
	Services *api.Services
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, object storage, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.NewOS(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("initialise document storage: %w", err)
	}

	routerOpts := []api.RouterOption{api.WithHealthChecks(checks.Storage(objects))}
	var counters middleware.RateStore
	dbCounters := cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		stack.Redis, err = cache.NewRedisClient(cfg.Cache.Redis.RedisClientConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise redis: %w", err)
		}
		counters = stack.Redis
		routerOpts = append(routerOpts, api.WithHealthChecks(checks.Redis(stack.Redis, cfg.Cache.Redis.Timeout)))
		log.Info("rate limit counters stored in redis", zap.String("address", cfg.Cache.Redis.Address))
	} else {
		counters = dbCounters
	}
	routerOpts = append(routerOpts, api.WithRateStore(counters))

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Info("smtp disabled; invitation codes will only be returned to the issuer")
	}

	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	provider, err := newIdentityProvider(ctx, cfg.OIDCConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise identity provider: %w", err)
	}

	stack.Services, err = api.NewServices(stack.DB, objects, mailer, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if cfg.Maintenance.Enabled {
		cleanerOpts := []maintenance.Option{
			maintenance.WithActivityRetentionDays(cfg.Maintenance.ActivityRetentionDays),
			maintenance.WithActivitySchedule(cfg.Maintenance.ActivitySchedule),
			maintenance.WithInvitationSchedule(cfg.Maintenance.InvitationSchedule),
		}
		if stack.Redis == nil {
			// Redis expires its own keys.
			cleanerOpts = append(cleanerOpts, maintenance.WithCounterPurger(dbCounters))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Services.Activity, stack.Services.Invitations, cleanerOpts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, tokens, provider, stack.Services, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		if stopCtx := s.Cleaner.Stop(); stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("failed to close redis connection", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg, err := cfg.Database.DatabaseSettings()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
