package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
	"studentattendance/internal/config"
	"studentattendance/internal/events"
	"studentattendance/internal/httpmiddleware"
	"studentattendance/internal/metrics"
	"studentattendance/internal/session"
	"studentattendance/internal/store"
	"studentattendance/internal/supabase"
	"studentattendance/internal/web"
)

func newServeCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Production() {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runHTTP(ctx, cfg, log, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply database migrations before serving (postgres backend)")
	return cmd
}

// backend is the selected auth provider and attendance table.
type backend struct {
	provider auth.Provider
	repo     attendance.Repository
	closers  []func() error
}

func openBackend(ctx context.Context, cfg config.App, log *zap.Logger, migrateFirst bool, health map[string]web.HealthCheck) (*backend, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		client := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPTimeout)
		health["supabase"] = client.Health
		return &backend{provider: client, repo: client}, nil

	case config.BackendPostgres:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrateFirst {
			if err := store.Migrate(db.Client, log); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		health["postgres"] = db.Healthy
		provider := auth.NewLocalProvider(auth.NewPGUserStore(db.Client), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		return &backend{provider: provider, repo: attendance.NewPGRepository(db.Client), closers: []func() error{db.Close}}, nil

	case config.BackendMemory:
		log.Warn("memory backend: accounts and entries are lost on restart")
		provider := auth.NewLocalProvider(auth.NewMemoryUserStore(), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		return &backend{provider: provider, repo: attendance.NewMemoryRepository()}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func runHTTP(ctx context.Context, cfg config.App, log *zap.Logger, migrateFirst bool) error {
	health := map[string]web.HealthCheck{}

	be, err := openBackend(ctx, cfg, log, migrateFirst, health)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range be.closers {
			_ = c()
		}
	}()

	var (
		sessStore session.Store
		broker    events.Broker
	)
	if cfg.RedisAddr != "" {
		rdb := store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		sessStore = session.NewRedisStore(rdb.Client, "")
		broker = events.NewRedis(rdb.Client, "")
		health["redis"] = rdb.Healthy
	} else {
		log.Info("REDIS_ADDR not set, keeping sessions in memory")
		sessStore = session.NewMemoryStore()
		broker = events.NewInMemory()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	provider := m.Provider(be.provider)
	svc := attendance.NewService(m.Repository(be.repo), attendance.ParseDivisions(cfg.Divisions))

	cookies := session.NewCookieStore(cfg.SessionSecret, cfg.Production(), cfg.SessionTTL)
	sessions := session.NewManager(cookies, sessStore, provider, m.Broker(broker), cfg.SessionTTL, log)

	router := web.NewRouter(web.New(sessions, provider, svc, health, log), web.Options{
		Limiter:     httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	// Cancelled on shutdown so open session streams end.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the session event stream is long-lived.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server")
	cancelBase()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}
