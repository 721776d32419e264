package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
	"github.com/jhoicas/Caja-api/internal/infrastructure/cache"
	"github.com/jhoicas/Caja-api/internal/infrastructure/memory"
	"github.com/jhoicas/Caja-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Caja-api/internal/interfaces/http"
	"github.com/jhoicas/Caja-api/pkg/config"
	"github.com/jhoicas/Caja-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Cash.StorageDriver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		txRunner     cashdrawer.TxRunner
		registerRepo repository.CashRegisterRepository
		sessionRepo  repository.CashSessionRepository
		movementRepo repository.CashMovementRepository
		health       func(context.Context) error
	)
	switch cfg.Cash.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		txRunner = store
		registerRepo, sessionRepo, movementRepo = store.Registers(), store.Sessions(), store.Movements()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones de caja")
			}
		}
		txRunner = postgres.NewTxRunner(pool, cfg.Cash.TxRetries, cfg.Cash.TxBackoff, log.Component("tx"))
		registerRepo = postgres.NewCashRegisterRepository(pool)
		sessionRepo = postgres.NewCashSessionRepository(pool)
		movementRepo = postgres.NewCashMovementRepository(pool)
		health = pool.Ping
	}

	// Caché de saldo: Redis si está configurado; si no, toda lectura va al almacenamiento.
	var balanceCache cashdrawer.BalanceCache = cache.NoopBalanceCache{}
	if cfg.Redis.Enabled() {
		rc := cache.NewRedisBalanceCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Cash.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis no disponible, se continúa sin caché de saldo")
			_ = rc.Close()
		} else {
			defer rc.Close()
			balanceCache = rc
		}
	}

	guard := cashdrawer.NewScopeGuard(registerRepo)
	lifecycleUC := cashdrawer.NewLifecycleUseCase(txRunner, balanceCache, log.Component("lifecycle"))
	reconUC := cashdrawer.NewReconciliationUseCase(txRunner, guard, sessionRepo, movementRepo, balanceCache, log.Component("reconciliation"))
	registerUC := cashdrawer.NewRegisterUseCase(txRunner, guard, registerRepo, sessionRepo, balanceCache, cfg.Cash.DefaultCurrency, log.Component("registers"))

	if cfg.Cash.AuditEnabled {
		auditor := cashdrawer.NewAuditWorker(registerRepo, reconUC, cashdrawer.AuditConfig{
			Interval:    cfg.Cash.AuditInterval,
			Concurrency: cfg.Cash.AuditConcurrency,
			BatchSize:   cfg.Cash.AuditBatchSize,
			AutoRepair:  cfg.Cash.AuditAutoRepair,
		}, log.Component("audit"))
		auditor.Start(ctx)
	}

	var limiter *httpRouter.OrgRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httpRouter.NewOrgRateLimiter(httpRouter.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RPS,
			Burst:             cfg.RateLimit.Burst,
		})
		defer limiter.Close()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs (requiere `swag init` previo)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Caja API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Registers:   registerUC,
		Lifecycle:   lifecycleUC,
		Recon:       reconUC,
		RateLimiter: limiter,
		Health:      health,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		ServiceName: cfg.App.Name,
		Log:         log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
