package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stylefuse/internal/http/handlers"
	httpapi "stylefuse/internal/http/httpapi"
	"stylefuse/internal/i18n"
	"stylefuse/internal/infra"
	"stylefuse/internal/infra/geoip"
	"stylefuse/internal/providers/prompt"
	"stylefuse/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer func() {
		_ = resolver.Close()
	}()

	generator, err := prompt.NewGeminiGenerator(ctx, prompt.GeminiOptions{
		APIKey: cfg.APIKey,
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}
	if cfg.APIKey == "" {
		logger.Warn().Msg("API_KEY is not set; generation requests will fail")
	}

	catalog := i18n.Default()
	store := session.NewStore(session.StoreOptions{
		Generator: generator,
		Logger:    &logger,
		TTL:       cfg.SessionTTL,
	})
	go store.RunJanitor(ctx, time.Minute)

	app := handlers.NewApp(ctx, store, catalog, &logger, cfg.MaxUploadBytes)

	var lookup func(string) (string, error)
	if resolver != nil {
		lookup = resolver.Lookup()
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router, logger, ctx)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	store.Close()
	logger.Info().Msg("server stopped")
}
