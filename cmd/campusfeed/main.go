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

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/adapter/driven/ecampus"
	"github.com/luoyuxi/campusfeed/internal/adapter/driven/edu"
	"github.com/luoyuxi/campusfeed/internal/adapter/driven/mail"
	"github.com/luoyuxi/campusfeed/internal/adapter/driven/market"
	sqliteadapter "github.com/luoyuxi/campusfeed/internal/adapter/driven/sqlite"
	httphandler "github.com/luoyuxi/campusfeed/internal/adapter/driving/http"
	"github.com/luoyuxi/campusfeed/internal/application"
	"github.com/luoyuxi/campusfeed/internal/config"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration; .env is optional and loses to real env vars.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"mfa_wait", cfg.MFAWait,
		"username", cfg.Username,
	)

	// 2. Signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 4. One shared session per process lifetime; every adapter runs on it.
	sess, err := campus.NewSession()
	if err != nil {
		return err
	}

	logger := slog.Default()
	prompter := &timeoutPrompter{
		inner: &campus.StdinPrompter{In: os.Stdin, Out: os.Stderr},
		wait:  cfg.MFAWait,
	}
	idp := campus.NewClient(sess, ecampusServiceURL, prompter, logger)

	sources := []driven.NotificationSource{
		mail.NewSource(sess, logger),
		edu.NewSource(sess, logger),
		ecampus.NewSource(sess, logger),
		market.NewSource(sess, logger),
	}

	store := sqliteadapter.NewNotificationRepo(db)

	feedSvc := application.NewFeedService(idp, sources, store, model.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, logger)

	// 5. HTTP API. The first read triggers the login-and-fetch run.
	apiHandler := httphandler.NewHandler(store, feedSvc, logger)
	handler := httphandler.NewServeMux(apiHandler, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Minute, // first read waits out the whole login, MFA included
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("campusfeed started", "listen_addr", cfg.ListenAddr)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// ecampusServiceURL is the relying-party redirect presented to the identity
// provider at login. The portal is the least restrictive relying party, so
// the initial login runs against it.
const ecampusServiceURL = "https://ecampus.nwpu.edu.cn/portal/"

// timeoutPrompter bounds how long a login attempt waits for the out-of-band
// verification code.
type timeoutPrompter struct {
	inner driven.MFAPrompter
	wait  time.Duration
}

func (p *timeoutPrompter) Code(ctx context.Context, channel model.MFAChannel) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.wait)
	defer cancel()
	return p.inner.Code(ctx, channel)
}
