package sentiment

import (
	"fmt"
	"strings"

	"review_insights/internal/domain"
)

const (
	StrategyVader = "vader"
	StrategyModel = "model"
	StrategyLLM   = "llm"
)

type Options struct {
	Strategy string
	MaxRunes int

	ModelBaseURL string
	ModelName    string
	ModelAPIKey  string
	ModelRPS     int
	ModelLabels  string // "LABEL_0=negative,..."; empty keeps the default map

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
}

// New builds a fresh guarded classifier. Call it once per pipeline run.
func New(o Options) (*Guard, error) {
	strategy := strings.ToLower(strings.TrimSpace(o.Strategy))
	var inner domain.TextClassifier
	switch strategy {
	case "", StrategyVader:
		strategy = StrategyVader
		inner = NewPolarityClassifier(NewVaderScorer())
	case StrategyModel:
		var labels map[string]domain.SentimentLabel
		if o.ModelLabels != "" {
			m, err := ParseLabelMap(o.ModelLabels)
			if err != nil {
				return nil, err
			}
			labels = m
		}
		mc, err := NewModelClassifier(o.ModelBaseURL, o.ModelName, o.ModelAPIKey, o.ModelRPS, labels)
		if err != nil {
			return nil, err
		}
		inner = mc
	case StrategyLLM:
		lc, err := NewLLMClassifier(o.LLMBaseURL, o.LLMAPIKey, o.LLMModel)
		if err != nil {
			return nil, err
		}
		inner = lc
	default:
		return nil, fmt.Errorf("%w: classifier strategy %q", domain.ErrInvalidArgument, o.Strategy)
	}
	return NewGuard(inner, strategy, o.MaxRunes), nil
}
