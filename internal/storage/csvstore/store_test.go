package csvstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"review_insights/internal/domain"
	"review_insights/internal/storage/csvstore"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadRaw_NullsAliasesAndExtras(t *testing.T) {
	body := "\uFEFFreviewId,userName,content,score,at,appVersion,review_created_version,country\n" +
		"r1,ann,Great 😊,5,2023-04-01 10:00:00,5.1,,US\n" +
		"r2,,,4,,,,\n" +
		"r3,bob,  ,abc,not a date,5.2,5.0,DE\n" +
		"r4,cy,nice,NaN,,,,\n" +
		"r5,dee,meh,+Inf,,,,\n" +
		"r6,eve,ok,-inf,,,,\n"
	p := writeFile(t, "zoom.csv", body)

	rows, err := csvstore.New().ReadRaw(context.Background(), p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}

	r1 := rows[0]
	if r1.ReviewID != "r1" || r1.Content == nil || *r1.Content != "Great 😊" || r1.Score == nil || *r1.Score != 5 {
		t.Fatalf("r1: %+v", r1)
	}
	if r1.ReviewCreatedVersion != nil {
		t.Fatalf("empty created version should be nil")
	}
	if r1.AppVersion == nil || *r1.AppVersion != "5.1" {
		t.Fatalf("appVersion: %v", r1.AppVersion)
	}
	if len(r1.Extra) != 1 || r1.Extra[0].Name != "country" || r1.Extra[0].Value != "US" {
		t.Fatalf("extra: %+v", r1.Extra)
	}
	if r1.Line != 2 {
		t.Fatalf("line = %d", r1.Line)
	}

	if rows[1].Content != nil || rows[1].UserName != nil || rows[1].At != "" {
		t.Fatalf("r2 should have null content/user/at: %+v", rows[1])
	}

	r3 := rows[2]
	if r3.Content == nil || *r3.Content != "  " {
		t.Fatalf("whitespace content must stay non-null: %+v", r3.Content)
	}
	if r3.Score != nil {
		t.Fatalf("unparseable score should be nil, got %v", *r3.Score)
	}
	if r3.At != "not a date" {
		t.Fatalf("raw at: %q", r3.At)
	}
	for _, r := range rows[3:] {
		if r.Score != nil {
			t.Fatalf("%s: non-finite score should be nil, got %v", r.ReviewID, *r.Score)
		}
	}
}

func TestReadRaw_Errors(t *testing.T) {
	s := csvstore.New()
	ctx := context.Background()

	if _, err := s.ReadRaw(ctx, filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
	p := writeFile(t, "nocontent.csv", "reviewId,score\nr1,5\n")
	if _, err := s.ReadRaw(ctx, p); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("missing content column: %v", err)
	}
	p = writeFile(t, "empty.csv", "")
	if _, err := s.ReadRaw(ctx, p); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("empty file: %v", err)
	}
}

func TestEnrichedRoundTrip(t *testing.T) {
	score := 0.6249
	at := time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	rows := []domain.EnrichedReview{
		{
			CanonicalReview: domain.CanonicalReview{
				Source: "Zoom", ReviewID: "r1", Content: "great 😊😊", Score: 5,
				ReviewCreatedVersion: "5.0", AppVersion: "5.1",
				At:     domain.Timestamp{Raw: "2023-04-01 10:00:00", Time: at, Status: domain.TimeParsed},
				Emojis: []string{"😊", "😊"},
				Extra:  []domain.Column{{Name: "country", Value: "US"}},
			},
			TextSentiment: domain.Positive, SentimentScore: &score, EmojiSentiment: domain.Positive,
		},
		{
			CanonicalReview: domain.CanonicalReview{
				Source: "Zoom", ReviewID: "r2", Content: "meh", Score: 3,
				ReviewCreatedVersion: domain.UnknownVersion, AppVersion: domain.UnknownVersion,
				At:     domain.Timestamp{Raw: "yesterday", Status: domain.TimeUnparsed},
				Emojis: []string{},
				Extra:  []domain.Column{{Name: "country", Value: "DE"}},
			},
			TextSentiment: domain.Neutral, EmojiSentiment: domain.Neutral,
		},
	}
	p := filepath.Join(t.TempDir(), "out", "Zoom_with_sentiment.csv")
	s := csvstore.New()
	if err := s.WriteEnriched(context.Background(), p, rows); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, _ := os.ReadFile(p)
	head := strings.SplitN(string(b), "\n", 2)[0]
	if !strings.HasSuffix(head, "country,emojis,emoji_sentiment,sentiment_label,sentiment_score") {
		t.Fatalf("unexpected header: %s", head)
	}

	got, err := s.ReadEnriched(context.Background(), p, "Zoom")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if !got[0].At.Valid() || !got[0].At.Time.Equal(at) {
		t.Fatalf("timestamp: %+v", got[0].At)
	}
	if got[0].SentimentScore == nil || *got[0].SentimentScore != 0.6249 {
		t.Fatalf("score: %v", got[0].SentimentScore)
	}
	if len(got[0].Emojis) != 2 || got[0].Emojis[0] != "😊" {
		t.Fatalf("emojis: %q", got[0].Emojis)
	}
	if got[1].At.Status != domain.TimeUnparsed || got[1].At.Raw != "yesterday" {
		t.Fatalf("unparsed timestamp lost: %+v", got[1].At)
	}
	if got[1].SentimentScore != nil || got[1].Emojis == nil {
		t.Fatalf("row 2: %+v", got[1])
	}
}

func TestWriteAggregatesAndComparison(t *testing.T) {
	dir := t.TempDir()
	s := csvstore.New()
	row := domain.AggregateRow{
		GroupBy: domain.GroupMonth, Key: domain.GroupKey{Month: "2023-04"}, Dimension: domain.DimText,
		Label: domain.Positive, Count: 2, GroupTotal: 4, Proportion: 0.5,
	}
	if err := s.WriteAggregates(context.Background(), filepath.Join(dir, "a.csv"), []domain.AggregateRow{row}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteComparison(context.Background(), filepath.Join(dir, "c.csv"), []domain.ComparisonRow{{Source: "Webex", AggregateRow: row}}); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "c.csv"))
	want := "source,group_by,month,version,rating,dimension,label,count,group_total,proportion\n" +
		"Webex,month,2023-04,,,text,positive,2,4,0.500000\n"
	if string(b) != want {
		t.Fatalf("comparison csv:\n%s\nwant:\n%s", b, want)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestManifest(t *testing.T) {
	s := csvstore.New()
	p := filepath.Join(t.TempDir(), "manifest.json")
	if _, err := s.ReadManifest(context.Background(), p); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	m := domain.Manifest{RunID: "run-1", Classifier: "vader", Apps: []domain.AppArtifacts{{App: "Zoom", Stats: domain.CleanStats{Input: 3, Output: 2}}}}
	if err := s.WriteManifest(context.Background(), p, m); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadManifest(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := got.App("Zoom")
	if got.RunID != "run-1" || !ok || a.Stats.Output != 2 {
		t.Fatalf("manifest: %+v", got)
	}
}

func TestReadTable(t *testing.T) {
	s := csvstore.New()
	tbl, err := s.ReadTable(context.Background(), strings.NewReader("Month,Users\n2023-01,10\n2023-02,12\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	if i, err := tbl.Index("users"); err != nil || i != 1 {
		t.Fatalf("index: %d %v", i, err)
	}
	if _, err := tbl.Index("revenue"); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := s.ReadTable(context.Background(), strings.NewReader("")); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}
