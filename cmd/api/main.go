package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/charts"
	server "review_insights/internal/adapters/http_server"
	"review_insights/internal/adapters/observability"
	redisad "review_insights/internal/adapters/redis"
	"review_insights/internal/app"
	"review_insights/internal/domain"
	"review_insights/internal/emoji"
	"review_insights/internal/shared"
	"review_insights/internal/storage/csvstore"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// emoji labels for the read models follow the same lexicon as the pipeline
	policy, err := emoji.ParsePolicy(cfg.EmojiPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid emoji policy")
	}
	lex := emoji.DefaultLexicon()
	if cfg.EmojiLexiconFile != "" {
		if lex, err = emoji.LoadLexicon(cfg.EmojiLexiconFile); err != nil {
			log.Fatal().Err(err).Msg("failed to load emoji lexicon")
		}
	}

	// deps
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; serving uncached")
	} else {
		cache = rc
		defer rc.Close()
		log.Info().Msg("redis connection ok")
	}
	cancel()

	q := app.NewQueryService(csvstore.New(), cache, cfg.CacheTTL, cfg.OutputDir, cfg.FiguresDir,
		emoji.NewClassifier(lex, policy), charts.New())

	// http
	srv := server.New(15 * time.Second)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("output", cfg.OutputDir).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}
