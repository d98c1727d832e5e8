package app_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"review_insights/internal/app"
	"review_insights/internal/domain"
	"review_insights/internal/emoji"
)

// published runs the pipeline against the fake store so queries read real artifacts.
func published(t *testing.T) (*fakeStore, *fakeCache, *app.QueryService) {
	t.Helper()
	store, cache := seededStore(), &fakeCache{}
	var built int32
	if _, err := newPipeline(store, cache, &fakeCharts{}, &built, nil).Run(context.Background(), "run", sources); err != nil {
		t.Fatal(err)
	}
	emo := emoji.NewClassifier(emoji.DefaultLexicon(), emoji.Majority)
	return store, cache, app.NewQueryService(store, cache, time.Minute, "out", "figs", emo, &fakeCharts{})
}

func TestAggregates_CacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	store, cache, svc := published(t)

	// 1) miss → computed from the enriched table and cached
	got, err := svc.Aggregates(ctx, "zoom", domain.GroupAll, domain.DimText)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Count != 1 || got[2].Count != 1 {
		t.Fatalf("unexpected aggregates: %+v", got)
	}
	if _, ok := cache.store["agg:zoom:all:text"]; !ok {
		t.Fatalf("expected cache set, keys=%v", cache.store)
	}

	// 2) change the backing table; cached value must still be served
	path := filepath.Join("out", "Zoom_with_sentiment.csv")
	store.enriched[path] = store.enriched[path][:1]
	got, err = svc.Aggregates(ctx, "Zoom", domain.GroupAll, domain.DimText)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].GroupTotal != 2 {
		t.Fatalf("expected cached total 2, got %d", got[0].GroupTotal)
	}
}

func TestQueries_UnknownAppAndVersion(t *testing.T) {
	ctx := context.Background()
	_, _, svc := published(t)
	if _, err := svc.Insights(ctx, "Teams"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Version(ctx, "Zoom", "0.0.1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	vb, err := svc.Version(ctx, "zoom", "5.9.1")
	if err != nil || vb.Reviews != 1 || vb.App != "Zoom" {
		t.Fatalf("version: %+v %v", vb, err)
	}
}

func TestQueries_NothingPublished(t *testing.T) {
	svc := app.NewQueryService(newFakeStore(), nil, time.Minute, "out", "figs", nil, nil)
	if _, err := svc.Apps(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RenderChart(&bytes.Buffer{}, domain.Chart{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("rendering without a renderer: %v", err)
	}
}

func TestQueries_AppsVersionsComparison(t *testing.T) {
	ctx := context.Background()
	_, _, svc := published(t)

	apps, err := svc.Apps(ctx)
	if err != nil || len(apps) != 2 {
		t.Fatalf("apps: %+v %v", apps, err)
	}
	vs, err := svc.Versions(ctx, "webex")
	if err != nil || len(vs) != 1 || vs[0] != (domain.KV{Key: "unknown", Count: 2}) {
		t.Fatalf("versions: %+v %v", vs, err)
	}
	cmp, err := svc.Comparison(ctx, domain.GroupAll, domain.DimEmoji)
	if err != nil || len(cmp) != 6 || cmp[0].Source != "Zoom" || cmp[3].Source != "Webex" {
		t.Fatalf("comparison: %+v %v", cmp, err)
	}
	in, err := svc.Insights(ctx, "Zoom")
	if err != nil || in.Reviews != 2 || len(in.TopEmojis) == 0 || in.TopEmojis[0].Emoji != "😊" {
		t.Fatalf("insights: %+v %v", in, err)
	}
}

func TestQueries_ExploreAndFigures(t *testing.T) {
	ctx := context.Background()
	_, _, svc := published(t)

	csv := "month,score\n2023-01,5\n2023-01,1\n2023-02,3\n"
	res, err := svc.Explore(ctx, strings.NewReader(csv), app.ExploreRequest{X: "month", Y: "score", Kind: domain.ChartBar})
	if err != nil {
		t.Fatal(err)
	}
	floats(t, res.Series[0].Values, 6, 3)

	var buf bytes.Buffer
	if err := svc.RenderChart(&buf, res.Chart()); err != nil || !strings.HasPrefix(buf.String(), "PNG:") {
		t.Fatalf("render: %q %v", buf.String(), err)
	}

	p, err := svc.FigurePath(ctx, "Zoom_rating_distribution.png")
	if err != nil || p != filepath.Join("figs", "Zoom_rating_distribution.png") {
		t.Fatalf("figure: %s %v", p, err)
	}
	if _, err := svc.FigurePath(ctx, "../../etc/passwd"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unlisted figure must be rejected, got %v", err)
	}
	if _, err := svc.FigurePath(ctx, app.ComparisonFigure); err != nil {
		t.Fatalf("comparison figure: %v", err)
	}
}
