package domain

import (
	"context"
	"io"
	"time"
)

// TextClassifier is the pluggable text sentiment capability.
type TextClassifier interface {
	Classify(ctx context.Context, text string) (TextSentiment, error)
}

type EmojiExtractor interface {
	Extract(text string) []string
}

type EmojiClassifier interface {
	Classify(emojis []string) SentimentLabel
	Lookup(emoji string) (SentimentLabel, bool)
}

// ReviewStore reads exports and writes derived tables. Everything is a flat file.
type ReviewStore interface {
	ReadRaw(ctx context.Context, path string) ([]RawReview, error)
	WriteEnriched(ctx context.Context, path string, rows []EnrichedReview) error
	ReadEnriched(ctx context.Context, path string, src SourceTag) ([]EnrichedReview, error)
	WriteAggregates(ctx context.Context, path string, rows []AggregateRow) error
	WriteComparison(ctx context.Context, path string, rows []ComparisonRow) error
	WriteManifest(ctx context.Context, path string, m Manifest) error
	ReadManifest(ctx context.Context, path string) (Manifest, error)
	ReadTable(ctx context.Context, r io.Reader) (Table, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartScatter ChartKind = "scatter"
	ChartPie     ChartKind = "pie"
	ChartHeatmap ChartKind = "heatmap"
)

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-neutral description. Values[i] of every series belongs to
// Categories[i]; for heatmaps each series is one row.
type Chart struct {
	Kind       ChartKind `json:"kind"`
	Title      string    `json:"title"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Categories []string  `json:"categories"`
	Series     []Series  `json:"series"`
}

type ChartRenderer interface {
	Render(path string, c Chart) error
	Encode(w io.Writer, c Chart) error
}

// Manifest lists what one pipeline run produced; the API reads it to find artifacts.
type Manifest struct {
	RunID           string         `json:"run_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	Classifier      string         `json:"classifier"`
	EmojiPolicy     string         `json:"emoji_policy"`
	Apps            []AppArtifacts `json:"apps"`
	Comparison      string         `json:"comparison"`
	ComparisonChart string         `json:"comparison_chart,omitempty"`
}

type AppArtifacts struct {
	App        SourceTag  `json:"app"`
	Input      string     `json:"input"`
	Enriched   string     `json:"enriched"`
	Aggregates string     `json:"aggregates"`
	Figures    []string   `json:"figures"`
	Stats      CleanStats `json:"stats"`
}

func (m Manifest) App(app SourceTag) (AppArtifacts, bool) {
	for _, a := range m.Apps {
		if a.App == app {
			return a, true
		}
	}
	return AppArtifacts{}, false
}

// Read models

type KV struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type MonthScore struct {
	Month string  `json:"month"`
	Mean  float64 `json:"mean"`
	N     int     `json:"n"`
}

type EmojiCount struct {
	Emoji string         `json:"emoji"`
	Count int            `json:"count"`
	Label SentimentLabel `json:"label"`
}

type CrosstabCell struct {
	Text  SentimentLabel `json:"text"`
	Emoji SentimentLabel `json:"emoji"`
	Count int            `json:"count"`
}

type Insights struct {
	App                SourceTag      `json:"app"`
	Reviews            int            `json:"reviews"`
	UnparsedTime       int            `json:"unparsed_time"`
	RatingDistribution []KV           `json:"rating_distribution"`
	ReviewsPerMonth    []KV           `json:"reviews_per_month"`
	MeanScorePerMonth  []MonthScore   `json:"mean_score_per_month"`
	TopEmojis          []EmojiCount   `json:"top_emojis"`
	Crosstab           []CrosstabCell `json:"crosstab"`
	Agreement          float64        `json:"agreement"`
}

type LabelComparison struct {
	Label SentimentLabel `json:"label"`
	Text  int            `json:"text"`
	Emoji int            `json:"emoji"`
}

type MonthlyPositive struct {
	Month string `json:"month"`
	Text  int    `json:"text"`
	Emoji int    `json:"emoji"`
}

type SampleReview struct {
	ReviewID string         `json:"review_id"`
	Content  string         `json:"content"`
	Emojis   string         `json:"emojis"`
	Text     SentimentLabel `json:"text"`
	Emoji    SentimentLabel `json:"emoji"`
}

type VersionBreakdown struct {
	App             SourceTag         `json:"app"`
	Version         string            `json:"version"`
	Reviews         int               `json:"reviews"`
	Comparison      []LabelComparison `json:"comparison"`
	Agreement       float64           `json:"agreement"`
	TopEmojis       []EmojiCount      `json:"top_emojis"`
	MonthlyPositive []MonthlyPositive `json:"monthly_positive"`
	Samples         []SampleReview    `json:"samples"`
}
