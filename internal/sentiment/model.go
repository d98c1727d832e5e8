package sentiment

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

var (
	ErrUnauthorized = errors.New("model: unauthorized")
	ErrForbidden    = errors.New("model: forbidden")
	ErrNoPrediction = errors.New("model: empty prediction")
)

// DefaultLabelMap is the output head of the three-class review models.
var DefaultLabelMap = map[string]domain.SentimentLabel{
	"label_0": domain.Negative,
	"label_1": domain.Neutral,
	"label_2": domain.Positive,
}

// ParseLabelMap reads "LABEL_0=negative,LABEL_1=neutral,..." pairs.
func ParseLabelMap(s string) (map[string]domain.SentimentLabel, error) {
	out := make(map[string]domain.SentimentLabel)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		label, valid := domain.ParseLabel(v)
		if !ok || strings.TrimSpace(k) == "" || !valid {
			return nil, fmt.Errorf("%w: label mapping %q", domain.ErrInvalidArgument, pair)
		}
		out[strings.ToLower(strings.TrimSpace(k))] = label
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty label mapping", domain.ErrInvalidArgument)
	}
	return out, nil
}

// ModelClassifier calls a hosted text-classification model (inference API
// shape: POST {"inputs": text} -> [[{"label","score"}]]).
type ModelClassifier struct {
	url    string
	hc     *http.Client
	key    string
	rl     *rate.Limiter
	labels map[string]domain.SentimentLabel
}

func NewModelClassifier(base, model, key string, rps int, labels map[string]domain.SentimentLabel) (*ModelClassifier, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: model base URL is required", domain.ErrInvalidArgument)
	}
	if rps <= 0 {
		rps = 5
	}
	if len(labels) == 0 {
		labels = DefaultLabelMap
	}
	url := strings.TrimRight(base, "/")
	if model != "" {
		url += "/models/" + model
	}
	return &ModelClassifier{
		url:    url,
		hc:     &http.Client{Timeout: 20 * time.Second},
		key:    key,
		rl:     rate.NewLimiter(rate.Limit(rps), rps),
		labels: labels,
	}, nil
}

type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *ModelClassifier) Classify(ctx context.Context, text string) (domain.TextSentiment, error) {
	preds, err := c.predict(ctx, text)
	if err != nil {
		return domain.TextSentiment{}, err
	}
	if len(preds) == 0 {
		return domain.TextSentiment{}, ErrNoPrediction
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return domain.TextSentiment{Label: c.mapLabel(best.Label)}, nil
}

// mapLabel goes through the label map first, then accepts canonical names.
// Anything else is passed through and rejected by the guard.
func (c *ModelClassifier) mapLabel(raw string) domain.SentimentLabel {
	if l, ok := c.labels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return l
	}
	if l, ok := domain.ParseLabel(raw); ok {
		return l
	}
	return domain.SentimentLabel(raw)
}

// predict posts with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided.
func (c *ModelClassifier) predict(ctx context.Context, text string) ([]prediction, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]any{
		"inputs":  text,
		"options": map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("model", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			raw, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			return decodePredictions(raw)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("model: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("model: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return nil, lastErr
}

// decodePredictions accepts both the nested (one list per input) and the flat shape.
func decodePredictions(raw []byte) ([]prediction, error) {
	var nested [][]prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("model: decode response: %w", err)
	}
	return flat, nil
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
