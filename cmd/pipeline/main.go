package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/charts"
	"review_insights/internal/adapters/observability"
	redisad "review_insights/internal/adapters/redis"
	"review_insights/internal/adapters/watch"
	"review_insights/internal/app"
	"review_insights/internal/domain"
	"review_insights/internal/emoji"
	"review_insights/internal/sentiment"
	"review_insights/internal/shared"
	"review_insights/internal/storage/csvstore"
)

func main() {
	watchMode := flag.Bool("watch", false, "re-run whenever an input export changes")
	noCache := flag.Bool("no-cache", false, "skip cache invalidation after publishing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.RegisterDefault()
	if ms := observability.Serve(cfg.MetricsAddr); ms != nil {
		defer ms.Close()
	}

	sources, err := shared.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load sources")
	}
	policy, err := emoji.ParsePolicy(cfg.EmojiPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid emoji policy")
	}
	lex := emoji.DefaultLexicon()
	if cfg.EmojiLexiconFile != "" {
		if lex, err = emoji.LoadLexicon(cfg.EmojiLexiconFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.EmojiLexiconFile).Msg("failed to load emoji lexicon")
		}
	}

	opts := sentiment.Options{
		Strategy:     cfg.Classifier,
		MaxRunes:     cfg.MaxTextRunes,
		ModelBaseURL: cfg.ModelBaseURL,
		ModelName:    cfg.ModelName,
		ModelAPIKey:  cfg.ModelAPIKey,
		ModelRPS:     cfg.ModelRPS,
		ModelLabels:  cfg.ModelLabels,
		LLMBaseURL:   cfg.LLMBaseURL,
		LLMAPIKey:    cfg.LLMAPIKey,
		LLMModel:     cfg.LLMModel,
	}
	// fail on a bad strategy before any file is read
	if _, err := sentiment.New(opts); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize text classifier")
	}
	factory := func() (domain.TextClassifier, error) { return sentiment.New(opts) }

	for _, dir := range []string{cfg.OutputDir, cfg.FiguresDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create output directory")
		}
	}

	var cache domain.Cache
	if !*noCache {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; cached API views will expire on their own")
		} else {
			cache = rc
			defer rc.Close()
		}
		cancel()
	}

	p := app.NewPipelineService(csvstore.New(), cache, charts.New(), emoji.NewExtractor(lex), emoji.NewClassifier(lex, policy), factory,
		app.PipelineConfig{
			OutputDir:   cfg.OutputDir,
			FiguresDir:  cfg.FiguresDir,
			Workers:     cfg.Workers,
			Classifier:  cfg.Classifier,
			EmojiPolicy: string(policy),
		})

	run := func(ctx context.Context) error {
		runID := uuid.NewString()
		l := log.With().Str("run_id", runID).Logger()
		l.Info().
			Int("apps", len(sources)).
			Str("classifier", cfg.Classifier).
			Str("emoji_policy", string(policy)).
			Int("workers", cfg.Workers).
			Msg("pipeline starting")
		m, err := p.Run(ctx, runID, sources)
		if err != nil {
			return err
		}
		for _, a := range m.Apps {
			l.Info().
				Str("app", string(a.App)).
				Int("rows", a.Stats.Output).
				Int("unparsed_time", a.Stats.UnparsedTime).
				Str("enriched", a.Enriched).
				Msg("app published")
		}
		return nil
	}

	if err := run(ctx); err != nil {
		if !*watchMode {
			log.Fatal().Err(err).Msg("pipeline failed")
		}
		log.Error().Err(err).Msg("pipeline failed; waiting for changes")
	}
	if !*watchMode {
		log.Info().Msg("pipeline completed")
		return
	}

	inputs := make([]string, len(sources))
	for i, s := range sources {
		inputs[i] = s.Input
	}
	w := watch.New(inputs, watch.DefaultDebounce, run)
	if err := w.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to watch inputs")
	}
	<-w.Done()
	log.Info().Msg("watch stopped")
}
