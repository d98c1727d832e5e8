package app_test

import (
	"errors"
	"testing"

	"review_insights/internal/app"
	"review_insights/internal/domain"
)

func enriched(id, month, version string, score float64, text, emo domain.SentimentLabel) domain.EnrichedReview {
	r := domain.EnrichedReview{
		CanonicalReview: domain.CanonicalReview{
			Source: "Zoom", ReviewID: id, Content: id, Score: score,
			AppVersion: version, ReviewCreatedVersion: version, Emojis: []string{},
		},
		TextSentiment:  text,
		EmojiSentiment: emo,
	}
	switch month {
	case "":
		r.At = domain.Timestamp{Status: domain.TimeMissing}
	case "bad":
		r.At = domain.Timestamp{Raw: "not-a-date", Status: domain.TimeUnparsed}
	default:
		r.At = app.ParseTimestamp(month + "-15")
	}
	return r
}

func sampleRows() []domain.EnrichedReview {
	return []domain.EnrichedReview{
		enriched("a", "2023-02", "5.10.0", 5, domain.Positive, domain.Positive),
		enriched("b", "2023-02", "5.9.1", 1, domain.Negative, domain.Neutral),
		enriched("c", "2023-01", "5.9.1", 4, domain.Positive, domain.Neutral),
		enriched("d", "bad", "unknown", 3, domain.Neutral, domain.Negative),
	}
}

func TestAggregate_DenseAndSorted(t *testing.T) {
	got := app.Aggregate(sampleRows(), domain.GroupMonth, domain.DimText)

	// unparsed row is excluded from month buckets: two months, three labels each
	if len(got) != 6 {
		t.Fatalf("rows = %d, want 6: %+v", len(got), got)
	}
	wantMonths := []string{"2023-01", "2023-01", "2023-01", "2023-02", "2023-02", "2023-02"}
	for i, r := range got {
		if r.Key.Month != wantMonths[i] {
			t.Fatalf("row %d month = %s, want %s", i, r.Key.Month, wantMonths[i])
		}
		if r.Label != domain.Labels[i%3] {
			t.Fatalf("row %d label = %s", i, r.Label)
		}
	}
	// 2023-01: one positive, zero neutral, zero negative
	if got[0].Count != 1 || got[1].Count != 0 || got[2].Count != 0 || got[0].GroupTotal != 1 {
		t.Fatalf("2023-01 counts: %+v", got[:3])
	}
	if got[3].Proportion != 0.5 || got[5].Proportion != 0.5 {
		t.Fatalf("2023-02 proportions: %+v", got[3:])
	}
}

func TestAggregate_DensityProperty(t *testing.T) {
	rows := sampleRows()
	for _, by := range domain.GroupBys {
		for _, dim := range []domain.Dimension{domain.DimText, domain.DimEmoji} {
			got := app.Aggregate(rows, by, dim)
			if len(got)%3 != 0 {
				t.Fatalf("%s/%s: %d rows is not dense", by, dim, len(got))
			}
			for i := 0; i < len(got); i += 3 {
				sum := got[i].Count + got[i+1].Count + got[i+2].Count
				if sum != got[i].GroupTotal {
					t.Fatalf("%s/%s: counts %d != total %d", by, dim, sum, got[i].GroupTotal)
				}
				for j := 0; j < 3; j++ {
					if got[i+j].Key != got[i].Key || got[i+j].Label != domain.Labels[j] || got[i+j].Count < 0 {
						t.Fatalf("%s/%s: group %v malformed", by, dim, got[i].Key)
					}
				}
			}
		}
	}
}

func TestAggregate_UnparsedIncludedInVersionBuckets(t *testing.T) {
	got := app.Aggregate(sampleRows(), domain.GroupAppVersion, domain.DimEmoji)
	var versions []string
	for i := 0; i < len(got); i += 3 {
		versions = append(versions, got[i].Key.Version)
	}
	want := []string{"5.9.1", "5.10.0", "unknown"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("versions = %v, want %v", versions, want)
		}
	}
	// unknown bucket holds the unparsed row with emoji sentiment negative
	if got[8].Label != domain.Negative || got[8].Count != 1 {
		t.Fatalf("unknown bucket: %+v", got[6:])
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := app.Aggregate(nil, domain.GroupAll, domain.DimText)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil table, got %v", got)
	}
}

func TestAggregate_MonthAppVersionAndRating(t *testing.T) {
	got := app.Aggregate(sampleRows(), domain.GroupMonthAppVersion, domain.DimText)
	if len(got) != 9 {
		t.Fatalf("rows = %d, want 9", len(got))
	}
	if got[3].Key.Month != "2023-02" || got[3].Key.Version != "5.9.1" || got[6].Key.Version != "5.10.0" {
		t.Fatalf("order: %+v", got)
	}
	rating := app.Aggregate(sampleRows(), domain.GroupRating, domain.DimText)
	if rating[0].Key.Rating != "1" || rating[len(rating)-1].Key.Rating != "5" {
		t.Fatalf("rating order: %+v", rating)
	}
}

func TestCompare_NeverMerges(t *testing.T) {
	row := domain.AggregateRow{GroupBy: domain.GroupMonth, Key: domain.GroupKey{Month: "2023-01"}, Dimension: domain.DimText, Label: domain.Positive, Count: 3, GroupTotal: 3, Proportion: 1}
	tables := []domain.SourceTable{
		{Source: "Zoom", Rows: []domain.AggregateRow{row}},
		{Source: "Webex", Rows: []domain.AggregateRow{row}},
	}
	got, err := app.Compare(tables)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Source != "Zoom" || got[1].Source != "Webex" {
		t.Fatalf("unexpected comparison: %+v", got)
	}
	if got[0].Count != 3 || got[1].Count != 3 {
		t.Fatalf("counts must be preserved per source: %+v", got)
	}
}

func TestCompare_RejectsAmbiguousSources(t *testing.T) {
	if _, err := app.Compare([]domain.SourceTable{{Source: ""}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty tag: %v", err)
	}
	if _, err := app.Compare([]domain.SourceTable{{Source: "Zoom"}, {Source: "Zoom"}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("repeated tag: %v", err)
	}
	if _, err := app.Compare([]domain.SourceTable{{Source: "Zoom"}, {Source: "zoom"}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("tags differing only in case: %v", err)
	}
	got, err := app.Compare(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty input: %v %v", got, err)
	}
}
