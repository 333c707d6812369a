package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/access"
	"github.com/Ksenialiashchuk/test-portal/internal/api"
	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/bootstrap"
	"github.com/Ksenialiashchuk/test-portal/internal/config"
	"github.com/Ksenialiashchuk/test-portal/internal/metrics"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/ratelimit"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Portal API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		slog.Warn("using the built-in development JWT secret; set auth.jwt_secret or PORTAL_JWT_SECRET")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.Bootstrap.Enabled || cfg.Database.Driver == config.DriverMemory {
		if _, err := bootstrap.Run(ctx, s.roles); err != nil {
			return err
		}
	}

	m := metrics.New()
	if s.pool != nil {
		pool := s.pool
		m.RegisterDBPoolCollector(func() (int32, int32, int32) {
			st := pool.Stat()
			return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
		})
	}

	roles := role.NewService(s.roles)
	users := user.NewService(s.users, s.roles)
	promoter := user.NewPromoter(s.users, s.roles, m.IncRolePromotion)
	orgs := organization.NewService(s.orgs, s.users, promoter, m.IncRolePromotionFailure)
	missions := mission.NewService(s.missions, s.orgs, s.users, m)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.PerMinute > 0 {
		limiter = ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		go pruneLimiter(ctx, limiter)
	}

	router := api.NewRouter(api.RouterDeps{
		Users:          users,
		Roles:          roles,
		Organizations:  orgs,
		Missions:       missions,
		Gate:           access.NewGate(roles, cfg.Permissions.CacheSize, cfg.Permissions.CacheTTL),
		OrgPolicy:      access.NewOrgManagerPolicy(orgs),
		Tokens:         auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Callers:        user.NewAuthAdapter(s.users),
		Limiter:        limiter,
		Metrics:        m,
		DB:             s.pinger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// pruneLimiter drops idle rate limit buckets until ctx is done.
func pruneLimiter(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(10 * time.Minute); n > 0 {
				slog.Debug("pruned rate limit buckets", "count", n)
			}
		}
	}
}
