package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/member-portal/internal/config"
	"github.com/jrsteele09/member-portal/internal/logging"
	"github.com/jrsteele09/member-portal/internal/store"
	"github.com/jrsteele09/member-portal/internal/telemetry"
	"github.com/jrsteele09/member-portal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	displayAppname(c.GetAppName())

	shutdownTracing, err := telemetry.InitProvider(ctx, c.GetServiceName(), c.GetOTLPEndpoint(), c.GetEnv())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Err(err).Msg("tracer shutdown failed")
		}
	}()

	stores, err := store.Open(ctx, c, c.GetSessionRetention())
	if err != nil {
		return fmt.Errorf("stores: %w", err)
	}
	defer stores.Close()

	srv, err := server.New(c, stores.Repos)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	purgeDone := srv.StartPurgeJob(ctx, c.GetSessionPurgeInterval(), c.GetSessionRetention())

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		returnError = err
	case <-ctx.Done():
		returnError = shutdown(httpServer)
	}

	stop()
	<-purgeDone
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
