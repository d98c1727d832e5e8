package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

const DefaultMaxRunes = 512

// Guard wraps a strategy so that classification never fails for a single
// review: blank input is neutral without calling the strategy, long input is
// truncated, and errors, panics or out-of-set labels become neutral. Only a
// cancelled context is reported as an error.
type Guard struct {
	inner    domain.TextClassifier
	strategy string
	maxRunes int
}

func NewGuard(inner domain.TextClassifier, strategy string, maxRunes int) *Guard {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &Guard{inner: inner, strategy: strategy, maxRunes: maxRunes}
}

func (g *Guard) Strategy() string { return g.strategy }

func (g *Guard) Classify(ctx context.Context, text string) (res domain.TextSentiment, err error) {
	if strings.TrimSpace(text) == "" {
		return domain.TextSentiment{Label: domain.Neutral}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.TextSentiment{}, err
	}
	text = truncateRunes(text, g.maxRunes)

	defer func() {
		if r := recover(); r != nil {
			g.fallback("panic", fmt.Errorf("panic: %v", r))
			res, err = domain.TextSentiment{Label: domain.Neutral}, nil
		}
	}()

	start := time.Now()
	out, cerr := g.inner.Classify(ctx, text)
	observability.ObserveClassify(g.strategy, time.Since(start))
	switch {
	case cerr != nil:
		if ctx.Err() != nil {
			return domain.TextSentiment{}, ctx.Err()
		}
		g.fallback("error", cerr)
		return domain.TextSentiment{Label: domain.Neutral}, nil
	case !out.Label.Valid():
		g.fallback("invalid_label", fmt.Errorf("label %q", out.Label))
		return domain.TextSentiment{Label: domain.Neutral}, nil
	}
	return out, nil
}

func (g *Guard) fallback(reason string, err error) {
	observability.ObserveFallback(g.strategy, reason)
	log.Warn().Err(err).Str("strategy", g.strategy).Str("reason", reason).Msg("text classification fell back to neutral")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
