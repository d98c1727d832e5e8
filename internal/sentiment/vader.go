// Package sentiment holds the text sentiment strategies and the guard that
// makes any of them total.
package sentiment

import (
	"context"

	"github.com/jonreiter/govader"

	"review_insights/internal/domain"
)

// Compound thresholds of the VADER convention.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// PolarityScorer returns a compound polarity in [-1, 1].
type PolarityScorer interface {
	Compound(text string) float64
}

type vaderScorer struct {
	a *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon. The analyzer is not shared across runs.
func NewVaderScorer() PolarityScorer {
	return &vaderScorer{a: govader.NewSentimentIntensityAnalyzer()}
}

func (v *vaderScorer) Compound(text string) float64 {
	return v.a.PolarityScores(text).Compound
}

// LabelForCompound applies the thresholds; both bounds are inclusive.
func LabelForCompound(c float64) domain.SentimentLabel {
	switch {
	case c >= PositiveThreshold:
		return domain.Positive
	case c <= NegativeThreshold:
		return domain.Negative
	}
	return domain.Neutral
}

// PolarityClassifier is the lexicon-based scoring strategy.
type PolarityClassifier struct {
	s PolarityScorer
}

func NewPolarityClassifier(s PolarityScorer) *PolarityClassifier {
	return &PolarityClassifier{s: s}
}

func (p *PolarityClassifier) Classify(ctx context.Context, text string) (domain.TextSentiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.TextSentiment{}, err
	}
	c := p.s.Compound(text)
	return domain.TextSentiment{Label: LabelForCompound(c), Score: &c}, nil
}
