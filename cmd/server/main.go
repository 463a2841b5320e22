package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"patrimonio-inventory-backend/internal/config"
	handler "patrimonio-inventory-backend/internal/handlers"
	"patrimonio-inventory-backend/internal/metrics"
	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/notify"
	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/routes"
	"patrimonio-inventory-backend/internal/services/inventory"
	"patrimonio-inventory-backend/internal/services/reporting"
)

func main() {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	logger := config.GetLogger()
	ctx := context.Background()

	shutdownTracing, err := config.InitTracing(ctx, "patrimonio-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db := config.InitDB(cfg.DB)

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.WithError(err).Fatal("auto migration failed")
	}

	opts := []inventory.Option{inventory.WithLogger(logger)}

	var (
		feed   handler.ScanFeed
		locker *redislock.Client
	)
	if cfg.Redis.Enabled() {
		rdb, lock, err := config.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable; live feed and import lock disabled")
		} else {
			defer rdb.Close()
			notifier := notify.NewRedisNotifier(rdb)
			opts = append(opts, inventory.WithNotifier(notifier))
			feed = notifier
			locker = lock
		}
	}

	recorder := metrics.New(prometheus.DefaultRegisterer)
	opts = append(opts, inventory.WithRecorder(recorder))

	var store inventory.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("session store is in memory; sessions are lost on restart")
		store = inventory.NewMemoryStore()
	default:
		store = repository.NewSessionRepository(db)
	}

	engine := inventory.NewEngine(store, opts...)
	if err := engine.Load(ctx); err != nil {
		logger.WithError(err).Fatal("loading inventory sessions failed")
	}
	recorder.SetOpenSessions(len(engine.List(models.SessionStatusOpen)))

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Dependencies{
		DB:     db,
		Engine: engine,
		Feed:   feed,
		Locker: locker,
		Depreciation: reporting.DepreciationPolicy{
			UsefulLifeMonths: cfg.Depreciation.UsefulLifeMonths,
			ResidualRate:     cfg.Depreciation.ResidualRate,
		},
		Alerts: reporting.AlertPolicy{EscalateAfter: cfg.AlertEscalateAfter},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, "patrimonio-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}
