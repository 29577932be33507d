package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/auth"
	"github.com/xenking/promo-engine/internal/domain/loyalty"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/promotion"
	"github.com/xenking/promo-engine/internal/handler"
	"github.com/xenking/promo-engine/internal/storage/postgres"
	"github.com/xenking/promo-engine/pkg/health"
	"github.com/xenking/promo-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	srv, err := NewServer(ctx, pool, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	srv.Health.Start(ctx, 10*time.Second)
	srv.Health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		srv.Health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// Server is the assembled HTTP surface of the application.
type Server struct {
	Handler http.Handler
	// Health is registered but not started.
	Health *health.Health
}

// NewServer wires repositories, domain services and the middleware chain on
// top of a migrated pool. The logger is taken from ctx.
func NewServer(
	ctx context.Context,
	pool *pgxpool.Pool,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
) (*Server, error) {
	pointsRate, err := cfg.Loyalty.Rate()
	if err != nil {
		return nil, err
	}

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	promotionRepo := postgres.NewPromotionRepository(pool)
	rewardRepo := postgres.NewRewardRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Health checks.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("catalog", 5*time.Second, health.MinCountCheck("categories", 1,
		func(ctx context.Context) (int, error) {
			categories, err := categoryRepo.GetAll(ctx)
			return len(categories), err
		},
	))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	// Domain services.
	promotionService, err := promotion.NewService(
		promotionRepo,
		productRepo,
		categoryRepo,
		orderRepo,
		tp,
		mp,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create promotion service")
	}
	healthSvc.AddReadinessCheck("promotions", 5*time.Second, promotionService.CheckSnapshot)
	loyaltyService := loyalty.NewService(rewardRepo, pointsRate)
	orderService := order.NewService(productRepo, promotionService, loyaltyService, orderRepo)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		promotionService,
		loyaltyService,
		orderService,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, handler.RequireAPIKey(apikeyRepo, []byte(cfg.APIKeyPepper), auth.ScopeCreateOrder))

	return &Server{
		Health: healthSvc,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Policies: ratePolicies(cfg.RateLimit),
				Key:      rateLimitKey([]byte(cfg.APIKeyPepper)),
				Skip:     isHealthEndpoint,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("promo-api", tp, mp),
			httpmiddleware.LogRequests(),
		),
	}, nil
}

// ratePolicies gives promo code checks their own budget ahead of the general
// one, so exhausting code attempts never blocks browsing or ordering.
func ratePolicies(cfg RateLimitConfig) []httpmiddleware.RatePolicy {
	return []httpmiddleware.RatePolicy{
		{
			Name:  "promo-code",
			Match: isPromoCodeCheck,
			Limit: httpmiddleware.Limit{Max: cfg.CodeAttempts, Window: cfg.Window},
		},
		{
			Name:  "api",
			Limit: httpmiddleware.Limit{Max: cfg.Max, Window: cfg.Window},
		},
	}
}

func isPromoCodeCheck(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/api/promo-code"
}

// rateLimitKey buckets callers presenting an API key by key, and everyone
// else by client IP. Raw keys never become map keys.
func rateLimitKey(pepper []byte) func(*http.Request) string {
	return func(r *http.Request) string {
		if key := r.Header.Get(handler.APIKeyHeader); key != "" {
			return "key:" + auth.HashKey(key, pepper)[:16]
		}
		return "ip:" + httpmiddleware.ClientIP(r)
	}
}

// isHealthEndpoint matches the paths polled by the orchestrator.
func isHealthEndpoint(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
