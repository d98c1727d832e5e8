package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"review_insights/internal/domain"
)

const (
	DefaultTopEmojis = 20
	DefaultSamples   = 5
)

// BuildInsights computes the general per-app read model.
func BuildInsights(app domain.SourceTag, rows []domain.EnrichedReview, emo domain.EmojiClassifier, topN int) domain.Insights {
	in := domain.Insights{
		App:                app,
		Reviews:            len(rows),
		RatingDistribution: ratingDistribution(rows),
		ReviewsPerMonth:    []domain.KV{},
		MeanScorePerMonth:  meanScorePerMonth(rows),
		TopEmojis:          topEmojis(rows, emo, topN),
		Crosstab:           crosstab(rows),
		Agreement:          agreement(rows),
	}
	perMonth := make(map[string]int)
	for _, r := range rows {
		if r.At.Status == domain.TimeUnparsed {
			in.UnparsedTime++
		}
		if m, ok := r.At.Bucket(); ok {
			perMonth[m.String()]++
		}
	}
	for _, m := range sortedKeys(perMonth) {
		in.ReviewsPerMonth = append(in.ReviewsPerMonth, domain.KV{Key: m, Count: perMonth[m]})
	}
	return in
}

// VersionCounts lists reviewCreatedVersion values with their review counts.
func VersionCounts(rows []domain.EnrichedReview) []domain.KV {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.ReviewCreatedVersion]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return compareVersions(keys[i], keys[j]) < 0 })
	out := make([]domain.KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.KV{Key: k, Count: counts[k]})
	}
	return out
}

// BuildVersionBreakdown compares text and emoji sentiment for the reviews
// written against one app version. Samples are the first n rows in table order.
func BuildVersionBreakdown(app domain.SourceTag, version string, rows []domain.EnrichedReview, emo domain.EmojiClassifier, topN, samples int) (domain.VersionBreakdown, error) {
	var sel []domain.EnrichedReview
	for _, r := range rows {
		if r.ReviewCreatedVersion == version {
			sel = append(sel, r)
		}
	}
	if len(sel) == 0 {
		return domain.VersionBreakdown{}, fmt.Errorf("%w: %s version %q", domain.ErrNotFound, app, version)
	}

	vb := domain.VersionBreakdown{
		App:       app,
		Version:   version,
		Reviews:   len(sel),
		Agreement: agreement(sel),
		TopEmojis: topEmojis(sel, emo, topN),
		Samples:   []domain.SampleReview{},
	}
	var text, emoji [3]int
	for _, r := range sel {
		if i := r.TextSentiment.Index(); i >= 0 {
			text[i]++
		}
		if i := r.EmojiSentiment.Index(); i >= 0 {
			emoji[i]++
		}
	}
	for i, l := range domain.Labels {
		vb.Comparison = append(vb.Comparison, domain.LabelComparison{Label: l, Text: text[i], Emoji: emoji[i]})
	}

	pos := make(map[string]*domain.MonthlyPositive)
	for _, r := range sel {
		m, ok := r.At.Bucket()
		if !ok {
			continue
		}
		mp, ok := pos[m.String()]
		if !ok {
			mp = &domain.MonthlyPositive{Month: m.String()}
			pos[m.String()] = mp
		}
		if r.TextSentiment == domain.Positive {
			mp.Text++
		}
		if r.EmojiSentiment == domain.Positive {
			mp.Emoji++
		}
	}
	vb.MonthlyPositive = make([]domain.MonthlyPositive, 0, len(pos))
	for _, m := range sortedKeys(pos) {
		vb.MonthlyPositive = append(vb.MonthlyPositive, *pos[m])
	}

	if samples <= 0 {
		samples = DefaultSamples
	}
	for i := 0; i < len(sel) && i < samples; i++ {
		r := sel[i]
		vb.Samples = append(vb.Samples, domain.SampleReview{
			ReviewID: r.ReviewID,
			Content:  r.Content,
			Emojis:   strings.Join(r.Emojis, ""),
			Text:     r.TextSentiment,
			Emoji:    r.EmojiSentiment,
		})
	}
	return vb, nil
}

func ratingDistribution(rows []domain.EnrichedReview) []domain.KV {
	counts := make(map[float64]int)
	for _, r := range rows {
		counts[r.Score]++
	}
	scores := make([]float64, 0, len(counts))
	for s := range counts {
		scores = append(scores, s)
	}
	sort.Float64s(scores)
	out := make([]domain.KV, 0, len(scores))
	for _, s := range scores {
		out = append(out, domain.KV{Key: strconv.FormatFloat(s, 'f', -1, 64), Count: counts[s]})
	}
	return out
}

// meanScorePerMonth averages the compound score; rows from categorical
// classifiers carry no score and are left out.
func meanScorePerMonth(rows []domain.EnrichedReview) []domain.MonthScore {
	type acc struct {
		sum float64
		n   int
	}
	by := make(map[string]*acc)
	for _, r := range rows {
		if r.SentimentScore == nil {
			continue
		}
		m, ok := r.At.Bucket()
		if !ok {
			continue
		}
		a, ok := by[m.String()]
		if !ok {
			a = &acc{}
			by[m.String()] = a
		}
		a.sum += *r.SentimentScore
		a.n++
	}
	out := make([]domain.MonthScore, 0, len(by))
	for _, m := range sortedKeys(by) {
		a := by[m]
		out = append(out, domain.MonthScore{Month: m, Mean: a.sum / float64(a.n), N: a.n})
	}
	return out
}

// topEmojis counts emoji occurrences, most frequent first; ties break on the
// emoji itself so the order is stable. Unmapped emoji are labelled neutral.
func topEmojis(rows []domain.EnrichedReview, emo domain.EmojiClassifier, n int) []domain.EmojiCount {
	counts := make(map[string]int)
	for _, r := range rows {
		for _, e := range r.Emojis {
			counts[e]++
		}
	}
	out := make([]domain.EmojiCount, 0, len(counts))
	for e, c := range counts {
		label := domain.Neutral
		if emo != nil {
			if l, ok := emo.Lookup(e); ok {
				label = l
			}
		}
		out = append(out, domain.EmojiCount{Emoji: e, Count: c, Label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emoji < out[j].Emoji
	})
	if n <= 0 {
		n = DefaultTopEmojis
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// crosstab is dense: nine cells in label order, text-major.
func crosstab(rows []domain.EnrichedReview) []domain.CrosstabCell {
	var m [3][3]int
	for _, r := range rows {
		ti, ei := r.TextSentiment.Index(), r.EmojiSentiment.Index()
		if ti < 0 || ei < 0 {
			continue
		}
		m[ti][ei]++
	}
	out := make([]domain.CrosstabCell, 0, 9)
	for i, t := range domain.Labels {
		for j, e := range domain.Labels {
			out = append(out, domain.CrosstabCell{Text: t, Emoji: e, Count: m[i][j]})
		}
	}
	return out
}

func agreement(rows []domain.EnrichedReview) float64 {
	if len(rows) == 0 {
		return 0
	}
	n := 0
	for _, r := range rows {
		if r.TextSentiment == r.EmojiSentiment {
			n++
		}
	}
	return float64(n) / float64(len(rows))
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
