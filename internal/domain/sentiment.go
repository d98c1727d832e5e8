package domain

import "strings"

type SentimentLabel string

const (
	Positive SentimentLabel = "positive"
	Neutral  SentimentLabel = "neutral"
	Negative SentimentLabel = "negative"
)

// Labels is the canonical label order used by every dense table.
var Labels = []SentimentLabel{Positive, Neutral, Negative}

func (l SentimentLabel) Valid() bool {
	switch l {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

func (l SentimentLabel) Index() int {
	switch l {
	case Positive:
		return 0
	case Neutral:
		return 1
	case Negative:
		return 2
	}
	return -1
}

// ParseLabel accepts the three canonical names in any case and surrounding whitespace.
func ParseLabel(s string) (SentimentLabel, bool) {
	l := SentimentLabel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// TextSentiment is what a text classifier returns. Score is the compound
// polarity in [-1, 1] for scoring strategies and nil for categorical ones.
type TextSentiment struct {
	Label SentimentLabel
	Score *float64
}
