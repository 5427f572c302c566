package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tom2tomtomtom/refer-ify-sub003/config"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/analytics"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/billing"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/candidates"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/dashboard"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/jobs"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/notifications"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/referrals"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/settings"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/tiers"
	"github.com/tom2tomtomtom/refer-ify-sub003/metrics"
	"github.com/tom2tomtomtom/refer-ify-sub003/notify"
	"github.com/tom2tomtomtom/refer-ify-sub003/realtime"
	"github.com/tom2tomtomtom/refer-ify-sub003/scheduler"
	"github.com/tom2tomtomtom/refer-ify-sub003/storage"
	"github.com/tom2tomtomtom/refer-ify-sub003/store"
	"github.com/tom2tomtomtom/refer-ify-sub003/utils"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	if err := handlers.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(db)

	hub := realtime.NewHub()
	var events realtime.Publisher = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bridge := realtime.NewRedisBridge(rdb, cfg.RedisChannel, hub, log)
		if err := bridge.Start(ctx); err != nil {
			return err
		}
		events = bridge
	}

	notifier := notify.NewService(
		st,
		utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender),
		utils.NewWhatsApp(cfg.WatiURL, cfg.WatiAPIKey),
		utils.NewPusher(cfg.PushURL),
		events,
		log,
	)

	var jobsRunner *scheduler.Scheduler
	if cfg.CronEnabled {
		jobsRunner = scheduler.New(st, log)
		if err := jobsRunner.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	router, err := newRouter(cfg, log, st, hub, events, notifier)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	if jobsRunner != nil {
		jobsRunner.Stop(shutdownCtx)
	}
	notifier.Wait()
	return nil
}

func newRouter(cfg config.App, log *logrus.Logger, st *store.Store, hub *realtime.Hub, events realtime.Publisher, notifier *notify.Service) (*gin.Engine, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(log), metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limit, err := auth.RateLimit(cfg.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}

	authHandler := auth.New(st, utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL), utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender), auth.Config{
		BaseURL:      cfg.BaseURL,
		CookieDomain: cfg.CookieDomain,
		CookieSecure: cfg.CookieSecure,
		RefreshTTL:   cfg.RefreshTTL,
		OAuth:        auth.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
	})
	authenticated := authHandler.Middleware()

	api := r.Group("/api")
	authHandler.Routes(api, limit)
	api.GET("/tiers", tiers.List(st))

	jobs.New(st, events).Routes(api, authenticated)
	referrals.New(st, notifier, events, storage.New(cfg.StorageURL, cfg.StorageServiceKey), referrals.Config{
		Bucket:       cfg.ResumeBucket,
		SignedURLTTL: cfg.SignedURLTTL,
	}).Routes(api, authenticated)
	candidates.New(st).Routes(api, authenticated)
	billing.New(st, utils.NewStripe(cfg.StripeSecretKey), billing.Config{
		BaseURL:       cfg.BaseURL,
		WebhookSecret: cfg.StripeWebhookSecret,
	}).Routes(api, authenticated)
	settings.New(st).Routes(api, authenticated)
	analytics.New(st).Routes(api, authenticated)
	notifications.New(st, realtime.NewFeed(hub, cfg.AllowedOrigins, log)).Routes(api, authenticated)

	dashboard.Routes(r, authHandler)
	return r, nil
}
