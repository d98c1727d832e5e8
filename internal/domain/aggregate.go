package domain

import (
	"fmt"
	"strings"
)

// SourceTag names the app a dataset came from.
type SourceTag string

type GroupBy string

const (
	GroupMonth           GroupBy = "month"
	GroupAppVersion      GroupBy = "app_version"
	GroupCreatedVersion  GroupBy = "created_version"
	GroupMonthAppVersion GroupBy = "month_app_version"
	GroupRating          GroupBy = "rating"
	GroupAll             GroupBy = "all"
)

var GroupBys = []GroupBy{GroupMonth, GroupAppVersion, GroupCreatedVersion, GroupMonthAppVersion, GroupRating, GroupAll}

func ParseGroupBy(s string) (GroupBy, error) {
	g := GroupBy(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range GroupBys {
		if v == g {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: group_by %q", ErrInvalidArgument, s)
}

// TimeBased reports whether rows without a parsed timestamp are excluded.
func (g GroupBy) TimeBased() bool { return g == GroupMonth || g == GroupMonthAppVersion }

type Dimension string

const (
	DimText  Dimension = "text"
	DimEmoji Dimension = "emoji"
)

func ParseDimension(s string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(s))) {
	case DimText, "text_sentiment", "sentiment_label":
		return DimText, nil
	case DimEmoji, "emoji_sentiment":
		return DimEmoji, nil
	}
	return "", fmt.Errorf("%w: dimension %q", ErrInvalidArgument, s)
}

// Of returns the label the review carries for the dimension.
func (d Dimension) Of(r EnrichedReview) SentimentLabel {
	if d == DimEmoji {
		return r.EmojiSentiment
	}
	return r.TextSentiment
}

// GroupKey holds whichever parts of the key the grouping uses; unused parts are empty.
type GroupKey struct {
	Month   string `json:"month,omitempty"`
	Version string `json:"version,omitempty"`
	Rating  string `json:"rating,omitempty"`
}

func (k GroupKey) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{k.Month, k.Version, k.Rating} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " / ")
}

type AggregateRow struct {
	GroupBy    GroupBy        `json:"group_by"`
	Key        GroupKey       `json:"key"`
	Dimension  Dimension      `json:"dimension"`
	Label      SentimentLabel `json:"label"`
	Count      int            `json:"count"`
	GroupTotal int            `json:"group_total"`
	Proportion float64        `json:"proportion"`
}

type SourceTable struct {
	Source SourceTag
	Rows   []AggregateRow
}

type ComparisonRow struct {
	Source SourceTag `json:"source"`
	AggregateRow
}

// Source is one configured input: an app and the path of its export.
type Source struct {
	App   SourceTag
	Input string
}
