package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avonfire/stationhouse/internal/api"
	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/avonfire/stationhouse/internal/blog"
	"github.com/avonfire/stationhouse/internal/config"
	"github.com/avonfire/stationhouse/internal/contact"
	"github.com/avonfire/stationhouse/internal/email"
	"github.com/avonfire/stationhouse/internal/metrics"
	"github.com/avonfire/stationhouse/internal/ratelimit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Stationhouse API server",
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
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	authStore := auth.NewPostgresStore(pool)
	blogStore := blog.NewStore(pool)
	contactStore := contact.NewStore(pool)

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		smtpSender, err := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.FromName)
		if err != nil {
			return err
		}
		sender = smtpSender
		slog.Info("using smtp sender", "host", cfg.SMTP.Host)
	} else {
		sender = email.NewLogSender()
		slog.Warn("no smtp host configured, codes will be logged")
	}
	sender = meteredSender{inner: sender, metrics: m}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		limiter = ratelimit.New(rdb, cfg.Auth.CodeRateWindow, cfg.Auth.CodeRateLimit)
		slog.Info("code rate limiter enabled", "addr", cfg.Redis.Addr)
	} else {
		slog.Warn("no redis configured, code rate limiting disabled")
	}

	authService := auth.NewService(authStore, sender, limiter, auth.Options{
		SessionTTL:          cfg.Auth.SessionTTL,
		VerificationCodeTTL: cfg.Auth.VerificationCodeTTL,
		ResetCodeTTL:        cfg.Auth.ResetCodeTTL,
		InvitationTTL:       cfg.Auth.InvitationTTL,
	})

	go sweepSessions(ctx, authStore, m, cfg.Auth.SessionSweepEvery)

	router := api.NewRouter(api.RouterDeps{
		Auth:           authService,
		BlogStore:      blogStore,
		ContactStore:   contactStore,
		Metrics:        m,
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

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// meteredSender counts failed dispatches without changing delivery semantics.
type meteredSender struct {
	inner   email.Sender
	metrics *metrics.Metrics
}

func (s meteredSender) SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	err := s.inner.SendVerificationCode(ctx, to, code, expiresAt)
	if err != nil {
		s.metrics.IncEmailFailure("verification")
	}
	return err
}

func (s meteredSender) SendResetCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	err := s.inner.SendResetCode(ctx, to, code, expiresAt)
	if err != nil {
		s.metrics.IncEmailFailure("reset")
	}
	return err
}

// sweepSessions periodically deletes expired sessions. Expired sessions are
// already inert; the sweep just keeps the table from growing without bound.
func sweepSessions(ctx context.Context, store auth.Store, m *metrics.Metrics, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpiredSessions(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.AddSessionsSwept(n)
				slog.Info("swept expired sessions", "count", n)
			}
		}
	}
}
