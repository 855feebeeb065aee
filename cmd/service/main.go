package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/logger"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/service"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/store"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the time in-flight requests get after a termination signal.
const shutdownTimeout = 10 * time.Second

// Usage example on the command line:
// > TOURISTS_SERVER_PORT=8080 TOURISTS_DATABASE_DSN=tourists.db TOURISTS_SERVER_REQUEST_LOGGING=false go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(config.Default().Log)
		boot.Fatal().Err(err).Msg("could not load configuration")
	}
	log := logger.New(cfg.Log)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	touristStore, err := store.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to the database")
	}
	defer touristStore.Close()

	// The schema must exist before the first request is accepted.
	if err := touristStore.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the database")
	}

	router := service.New(touristStore, log, cfg.Server.RequestLogging).SetupHttpRouter()
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeoutDuration(),
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:       cfg.Server.IdleTimeoutDuration(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with an error")
		touristStore.Close()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
