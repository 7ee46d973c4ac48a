package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/auth"
	"github.com/DoyleJ11/insane-brain-backend/internal/config"
	"github.com/DoyleJ11/insane-brain-backend/internal/httpapi"
	"github.com/DoyleJ11/insane-brain-backend/internal/hub"
	"github.com/DoyleJ11/insane-brain-backend/internal/relay"
	"github.com/DoyleJ11/insane-brain-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cobra.CheckErr(config.NewCommand(&config.Config{}, run).Execute())
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := openStore(ctx, cfg, log)

	var (
		publisher hub.Publisher
		archive   httpapi.Archive
	)
	if rl := openRelay(cfg, log); rl != nil {
		publisher, archive = rl, rl
	}

	tokens, err := auth.NewIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, hub.Config{
		Logger:      log,
		Rules:       cfg.Rules(),
		Recorder:    repo,
		Publisher:   publisher,
		IdleTimeout: cfg.IdleTimeout,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Tokens:         tokens,
			Repo:           repo,
			Archive:        archive,
			Logger:         log,
			PublicURL:      cfg.PublicURL,
			OriginPatterns: cfg.OriginPatterns,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		h.Shutdown()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Closing the hub ends every session, which closes the websockets that
	// Shutdown would otherwise wait on.
	h.Shutdown()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects to Postgres. Without a database the server still runs
// games; accounts, history and results writes report PersistenceUnavailable.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) store.Repository {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, persistence disabled")
		return store.Unavailable{}
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database unavailable, persistence disabled", zap.Error(err))
		return store.Unavailable{}
	}
	repo, err := store.NewPostgres(&store.Config{DB: db})
	if err != nil {
		log.Error("database unavailable, persistence disabled", zap.Error(err))
		return store.Unavailable{}
	}
	return repo
}

func openRelay(cfg *config.Config, log *zap.Logger) *relay.Relay {
	if cfg.RedisAddr == "" {
		return nil
	}
	rl, err := relay.New(&relay.Config{
		RedisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		ArchiveTTL: cfg.ArchiveTTL,
		Logger:     log,
	})
	if err != nil {
		log.Error("redis unavailable, snapshot relay disabled", zap.Error(err))
		return nil
	}
	return rl
}
