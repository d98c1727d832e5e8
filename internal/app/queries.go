package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"review_insights/internal/domain"
)

const appsKey = "apps"

func aggregatesKey(app domain.SourceTag, by domain.GroupBy, dim domain.Dimension) string {
	return fmt.Sprintf("agg:%s:%s:%s", strings.ToLower(string(app)), by, dim)
}

func comparisonKey(by domain.GroupBy, dim domain.Dimension) string {
	return fmt.Sprintf("cmp:%s:%s", by, dim)
}

func insightsKey(app domain.SourceTag) string {
	return "insights:" + strings.ToLower(string(app))
}

func versionsKey(app domain.SourceTag) string {
	return "versions:" + strings.ToLower(string(app))
}

func versionKey(app domain.SourceTag, v string) string {
	return fmt.Sprintf("version:%s:%s", strings.ToLower(string(app)), v)
}

// QueryService answers the HTTP read side from the published artifacts,
// caching computed views.
type QueryService struct {
	store    domain.ReviewStore
	cache    domain.Cache
	cacheTTL time.Duration
	outDir   string
	figDir   string
	emo      domain.EmojiClassifier
	charts   domain.ChartRenderer
}

func NewQueryService(store domain.ReviewStore, c domain.Cache, ttl time.Duration, outDir, figDir string,
	emo domain.EmojiClassifier, charts domain.ChartRenderer) *QueryService {
	return &QueryService{store: store, cache: c, cacheTTL: ttl, outDir: outDir, figDir: figDir, emo: emo, charts: charts}
}

func (s *QueryService) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, dst); ok {
			return nil
		}
	}
	v, err := load()
	if err != nil {
		return err
	}
	// round-trip through JSON so dst never aliases the freshly computed value
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return err
	}
	if s.cache != nil && len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
	return nil
}

func (s *QueryService) manifest(ctx context.Context) (domain.Manifest, error) {
	return s.store.ReadManifest(ctx, ManifestPath(s.outDir))
}

// resolveApp matches the app name case-insensitively against the manifest.
func (s *QueryService) resolveApp(ctx context.Context, app string) (domain.AppArtifacts, error) {
	m, err := s.manifest(ctx)
	if err != nil {
		return domain.AppArtifacts{}, err
	}
	for _, a := range m.Apps {
		if strings.EqualFold(string(a.App), app) {
			return a, nil
		}
	}
	return domain.AppArtifacts{}, fmt.Errorf("%w: app %q", domain.ErrNotFound, app)
}

func (s *QueryService) rows(ctx context.Context, app string) (domain.AppArtifacts, []domain.EnrichedReview, error) {
	a, err := s.resolveApp(ctx, app)
	if err != nil {
		return a, nil, err
	}
	rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
	return a, rows, err
}

func (s *QueryService) Apps(ctx context.Context) ([]domain.AppArtifacts, error) {
	var out []domain.AppArtifacts
	err := s.cached(ctx, appsKey, &out, func() (any, error) {
		m, err := s.manifest(ctx)
		if err != nil {
			return nil, err
		}
		return m.Apps, nil
	})
	return out, err
}

func (s *QueryService) Aggregates(ctx context.Context, app string, by domain.GroupBy, dim domain.Dimension) ([]domain.AggregateRow, error) {
	a, err := s.resolveApp(ctx, app)
	if err != nil {
		return nil, err
	}
	out := []domain.AggregateRow{}
	err = s.cached(ctx, aggregatesKey(a.App, by, dim), &out, func() (any, error) {
		rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
		if err != nil {
			return nil, err
		}
		return Aggregate(rows, by, dim), nil
	})
	return out, err
}

func (s *QueryService) Insights(ctx context.Context, app string) (domain.Insights, error) {
	a, err := s.resolveApp(ctx, app)
	if err != nil {
		return domain.Insights{}, err
	}
	var out domain.Insights
	err = s.cached(ctx, insightsKey(a.App), &out, func() (any, error) {
		rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
		if err != nil {
			return nil, err
		}
		return BuildInsights(a.App, rows, s.emo, DefaultTopEmojis), nil
	})
	return out, err
}

func (s *QueryService) Versions(ctx context.Context, app string) ([]domain.KV, error) {
	a, err := s.resolveApp(ctx, app)
	if err != nil {
		return nil, err
	}
	out := []domain.KV{}
	err = s.cached(ctx, versionsKey(a.App), &out, func() (any, error) {
		rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
		if err != nil {
			return nil, err
		}
		return VersionCounts(rows), nil
	})
	return out, err
}

func (s *QueryService) Version(ctx context.Context, app, version string) (domain.VersionBreakdown, error) {
	a, err := s.resolveApp(ctx, app)
	if err != nil {
		return domain.VersionBreakdown{}, err
	}
	var out domain.VersionBreakdown
	err = s.cached(ctx, versionKey(a.App, version), &out, func() (any, error) {
		rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
		if err != nil {
			return nil, err
		}
		return BuildVersionBreakdown(a.App, version, rows, s.emo, DefaultTopEmojis, DefaultSamples)
	})
	return out, err
}

// Comparison aggregates every published app and concatenates the tables.
func (s *QueryService) Comparison(ctx context.Context, by domain.GroupBy, dim domain.Dimension) ([]domain.ComparisonRow, error) {
	out := []domain.ComparisonRow{}
	err := s.cached(ctx, comparisonKey(by, dim), &out, func() (any, error) {
		m, err := s.manifest(ctx)
		if err != nil {
			return nil, err
		}
		tables := make([]domain.SourceTable, 0, len(m.Apps))
		for _, a := range m.Apps {
			rows, err := s.store.ReadEnriched(ctx, a.Enriched, a.App)
			if err != nil {
				return nil, err
			}
			tables = append(tables, domain.SourceTable{Source: a.App, Rows: Aggregate(rows, by, dim)})
		}
		return Compare(tables)
	})
	return out, err
}

// Explore reads an uploaded table and recomputes the requested view. It is
// never cached.
func (s *QueryService) Explore(ctx context.Context, r io.Reader, req ExploreRequest) (ExploreResult, error) {
	t, err := s.store.ReadTable(ctx, r)
	if err != nil {
		return ExploreResult{}, err
	}
	return Explore(t, req)
}

func (s *QueryService) RenderChart(w io.Writer, c domain.Chart) error {
	if s.charts == nil {
		return fmt.Errorf("%w: chart rendering disabled", domain.ErrInvalidArgument)
	}
	return s.charts.Encode(w, c)
}

// FigurePath resolves a published figure name. Only names listed in the
// manifest are served.
func (s *QueryService) FigurePath(ctx context.Context, name string) (string, error) {
	m, err := s.manifest(ctx)
	if err != nil {
		return "", err
	}
	if name != "" && name == m.ComparisonChart {
		return filepath.Join(s.figDir, name), nil
	}
	for _, a := range m.Apps {
		for _, f := range a.Figures {
			if f == name {
				return filepath.Join(s.figDir, name), nil
			}
		}
	}
	return "", fmt.Errorf("%w: figure %q", domain.ErrNotFound, name)
}
