package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

// ClassifierFactory builds a fresh text classifier for one app run.
type ClassifierFactory func() (domain.TextClassifier, error)

type PipelineConfig struct {
	OutputDir   string
	FiguresDir  string
	Workers     int
	Classifier  string
	EmojiPolicy string
}

// AppResult is everything one app run computed, held in memory until publish.
type AppResult struct {
	Source     domain.Source
	Rows       []domain.EnrichedReview
	Aggregates []domain.AggregateRow
	Stats      domain.CleanStats
}

type PipelineService struct {
	store   domain.ReviewStore
	cache   domain.Cache
	charts  domain.ChartRenderer
	x       domain.EmojiExtractor
	emo     domain.EmojiClassifier
	newText ClassifierFactory
	cfg     PipelineConfig
}

func NewPipelineService(store domain.ReviewStore, cache domain.Cache, charts domain.ChartRenderer,
	x domain.EmojiExtractor, emo domain.EmojiClassifier, newText ClassifierFactory, cfg PipelineConfig) *PipelineService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &PipelineService{store: store, cache: cache, charts: charts, x: x, emo: emo, newText: newText, cfg: cfg}
}

func ManifestPath(outDir string) string { return filepath.Join(outDir, "manifest.json") }

// Run processes every source (bounded by Workers) and publishes only when all
// of them succeeded.
func (s *PipelineService) Run(ctx context.Context, runID string, sources []domain.Source) (m domain.Manifest, err error) {
	defer func() { observability.ObserveRun(err) }()
	if len(sources) == 0 {
		return domain.Manifest{}, fmt.Errorf("%w: no sources configured", domain.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		key := strings.ToLower(string(src.App))
		if _, dup := seen[key]; dup {
			return domain.Manifest{}, fmt.Errorf("%w: app %q configured twice", domain.ErrInvalidArgument, src.App)
		}
		seen[key] = struct{}{}
	}

	results := make([]AppResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := s.Process(gctx, src)
			if err != nil {
				return fmt.Errorf("%s: %w", src.App, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Manifest{}, err
	}
	return s.Publish(ctx, runID, results)
}

// Process runs clean, classify and aggregate for one app without writing anything.
func (s *PipelineService) Process(ctx context.Context, src domain.Source) (AppResult, error) {
	l := log.With().Str("app", string(src.App)).Logger()
	start := time.Now()

	raw, err := s.store.ReadRaw(ctx, src.Input)
	if err != nil {
		return AppResult{}, err
	}
	canon, stats := NewCleaner(src.App, s.x).Clean(raw)
	app := string(src.App)
	observability.ObserveRows(app, "input", stats.Input)
	observability.ObserveRows(app, "missing_content", stats.MissingContent)
	observability.ObserveRows(app, "missing_score", stats.MissingScore)
	observability.ObserveRows(app, "duplicate", stats.Duplicates)
	observability.ObserveRows(app, "output", stats.Output)
	if stats.Output == 0 {
		return AppResult{}, fmt.Errorf("%w: %s has no usable reviews", domain.ErrEmptyDataset, src.Input)
	}
	if stats.UnparsedTime > 0 {
		l.Warn().Int("rows", stats.UnparsedTime).Msg("timestamps could not be parsed; rows kept and excluded from monthly views")
	}

	tc, err := s.newText()
	if err != nil {
		return AppResult{}, err
	}
	rows := make([]domain.EnrichedReview, len(canon))
	for i, c := range canon {
		ts, err := tc.Classify(ctx, c.Content)
		if err != nil {
			return AppResult{}, err
		}
		rows[i] = domain.EnrichedReview{
			CanonicalReview: c,
			TextSentiment:   ts.Label,
			SentimentScore:  ts.Score,
			EmojiSentiment:  s.emo.Classify(c.Emojis),
		}
	}

	l.Info().
		Int("input", stats.Input).
		Int("rows", stats.Output).
		Int("duplicates", stats.Duplicates).
		Dur("took", time.Since(start)).
		Msg("app processed")
	return AppResult{Source: src, Rows: rows, Aggregates: AggregateAll(rows), Stats: stats}, nil
}

// Publish writes every artifact, the manifest last, then drops cached views.
func (s *PipelineService) Publish(ctx context.Context, runID string, results []AppResult) (domain.Manifest, error) {
	m := domain.Manifest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Classifier:  s.cfg.Classifier,
		EmojiPolicy: s.cfg.EmojiPolicy,
	}
	tables := make([]domain.SourceTable, 0, len(results))
	for _, r := range results {
		app := string(r.Source.App)
		a := domain.AppArtifacts{
			App:        r.Source.App,
			Input:      r.Source.Input,
			Enriched:   filepath.Join(s.cfg.OutputDir, app+"_with_sentiment.csv"),
			Aggregates: filepath.Join(s.cfg.OutputDir, app+"_aggregates.csv"),
			Figures:    []string{},
			Stats:      r.Stats,
		}
		if err := s.store.WriteEnriched(ctx, a.Enriched, r.Rows); err != nil {
			return domain.Manifest{}, err
		}
		if err := s.store.WriteAggregates(ctx, a.Aggregates, r.Aggregates); err != nil {
			return domain.Manifest{}, err
		}
		if s.charts != nil {
			for _, f := range AppFigures(r.Source.App, r.Rows) {
				if err := s.charts.Render(filepath.Join(s.cfg.FiguresDir, f.Name), f.Chart); err != nil {
					return domain.Manifest{}, fmt.Errorf("render %s: %w", f.Name, err)
				}
				a.Figures = append(a.Figures, f.Name)
			}
		}
		m.Apps = append(m.Apps, a)
		tables = append(tables, domain.SourceTable{Source: r.Source.App, Rows: r.Aggregates})
	}

	cmp, err := Compare(tables)
	if err != nil {
		return domain.Manifest{}, err
	}
	m.Comparison = filepath.Join(s.cfg.OutputDir, "comparison.csv")
	if err := s.store.WriteComparison(ctx, m.Comparison, cmp); err != nil {
		return domain.Manifest{}, err
	}
	if s.charts != nil {
		if err := s.charts.Render(filepath.Join(s.cfg.FiguresDir, ComparisonFigure), ComparisonChart(cmp)); err != nil {
			return domain.Manifest{}, fmt.Errorf("render %s: %w", ComparisonFigure, err)
		}
		m.ComparisonChart = ComparisonFigure
	}

	if err := s.store.WriteManifest(ctx, ManifestPath(s.cfg.OutputDir), m); err != nil {
		return domain.Manifest{}, err
	}
	if s.cache != nil {
		s.invalidate(ctx, results)
	}
	log.Info().Str("run_id", runID).Int("apps", len(results)).Msg("run published")
	return m, nil
}

func (s *PipelineService) invalidate(ctx context.Context, results []AppResult) {
	_ = s.cache.Del(ctx, appsKey)
	for _, by := range domain.GroupBys {
		for _, dim := range []domain.Dimension{domain.DimText, domain.DimEmoji} {
			_ = s.cache.Del(ctx, comparisonKey(by, dim))
			for _, r := range results {
				_ = s.cache.Del(ctx, aggregatesKey(r.Source.App, by, dim))
			}
		}
	}
	for _, r := range results {
		_ = s.cache.Del(ctx, insightsKey(r.Source.App))
		_ = s.cache.Del(ctx, versionsKey(r.Source.App))
		for _, v := range VersionCounts(r.Rows) {
			_ = s.cache.Del(ctx, versionKey(r.Source.App, v.Key))
		}
	}
}
