package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"review_insights/internal/domain"
	"review_insights/internal/storage/csvstore"
)

// ---- fakes ----

// fakeStore keeps raw inputs and written artifacts in memory.
type fakeStore struct {
	mu         sync.Mutex
	raw        map[string][]domain.RawReview
	enriched   map[string][]domain.EnrichedReview
	aggregates map[string][]domain.AggregateRow
	comparison map[string][]domain.ComparisonRow
	manifest   *domain.Manifest
	writes     []string
	failWrite  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raw:        map[string][]domain.RawReview{},
		enriched:   map[string][]domain.EnrichedReview{},
		aggregates: map[string][]domain.AggregateRow{},
		comparison: map[string][]domain.ComparisonRow{},
	}
}

func (f *fakeStore) ReadRaw(ctx context.Context, path string) ([]domain.RawReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.raw[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, errors.New("no such file"))
	}
	return rows, nil
}

func (f *fakeStore) record(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != "" && strings.HasSuffix(path, f.failWrite) {
		return errors.New("disk full")
	}
	f.writes = append(f.writes, path)
	return nil
}

func (f *fakeStore) WriteEnriched(ctx context.Context, path string, rows []domain.EnrichedReview) error {
	if err := f.record(path); err != nil {
		return err
	}
	f.enriched[path] = rows
	return nil
}

func (f *fakeStore) ReadEnriched(ctx context.Context, path string, src domain.SourceTag) ([]domain.EnrichedReview, error) {
	rows, ok := f.enriched[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return rows, nil
}

func (f *fakeStore) WriteAggregates(ctx context.Context, path string, rows []domain.AggregateRow) error {
	if err := f.record(path); err != nil {
		return err
	}
	f.aggregates[path] = rows
	return nil
}

func (f *fakeStore) WriteComparison(ctx context.Context, path string, rows []domain.ComparisonRow) error {
	if err := f.record(path); err != nil {
		return err
	}
	f.comparison[path] = rows
	return nil
}

func (f *fakeStore) WriteManifest(ctx context.Context, path string, m domain.Manifest) error {
	if err := f.record(path); err != nil {
		return err
	}
	f.manifest = &m
	return nil
}

func (f *fakeStore) ReadManifest(ctx context.Context, path string) (domain.Manifest, error) {
	if f.manifest == nil {
		return domain.Manifest{}, domain.ErrNotFound
	}
	return *f.manifest, nil
}

func (f *fakeStore) ReadTable(ctx context.Context, r io.Reader) (domain.Table, error) {
	return csvstore.New().ReadTable(ctx, r)
}

// fakeCache stores JSON like the real adapter, so any dst type works.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type fakeCharts struct {
	mu       sync.Mutex
	rendered map[string]domain.Chart
}

func (f *fakeCharts) Render(path string, c domain.Chart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rendered == nil {
		f.rendered = map[string]domain.Chart{}
	}
	f.rendered[path] = c
	return nil
}

func (f *fakeCharts) Encode(w io.Writer, c domain.Chart) error {
	_, err := io.WriteString(w, "PNG:"+c.Title)
	return err
}

// keywordClassifier labels by keyword and scores like a polarity strategy.
type keywordClassifier struct {
	calls int
	err   error
}

func (k *keywordClassifier) Classify(ctx context.Context, text string) (domain.TextSentiment, error) {
	k.calls++
	if k.err != nil {
		return domain.TextSentiment{}, k.err
	}
	score := 0.0
	label := domain.Neutral
	switch {
	case strings.Contains(text, "love"), strings.Contains(text, "great"):
		score, label = 0.8, domain.Positive
	case strings.Contains(text, "hate"), strings.Contains(text, "crash"):
		score, label = -0.7, domain.Negative
	}
	return domain.TextSentiment{Label: label, Score: &score}, nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func raw(id, content string, score float64, at, version string) domain.RawReview {
	r := domain.RawReview{ReviewID: id, Content: ptr(content), Score: ptr(score), At: at}
	if version != "" {
		r.AppVersion = ptr(version)
		r.ReviewCreatedVersion = ptr(version)
	}
	return r
}
