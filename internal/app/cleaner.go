package app

import (
	"math"
	"strings"
	"time"

	"review_insights/internal/domain"
)

// Cleaner turns raw export rows of one app into canonical reviews.
type Cleaner struct {
	src domain.SourceTag
	x   domain.EmojiExtractor
}

func NewCleaner(src domain.SourceTag, x domain.EmojiExtractor) *Cleaner {
	return &Cleaner{src: src, x: x}
}

type dedupKey struct{ id, content string }

// Clean applies, in order: drop userImage/replyContent/repliedAt, reject rows
// without content or score, lowercase and trim content, extract emoji,
// default versions to "unknown", drop repeated (reviewId, content) pairs and
// parse the timestamp. Row problems never fail the call; they are counted.
func (c *Cleaner) Clean(raw []domain.RawReview) ([]domain.CanonicalReview, domain.CleanStats) {
	st := domain.CleanStats{Input: len(raw)}
	out := make([]domain.CanonicalReview, 0, len(raw))
	seen := make(map[dedupKey]struct{}, len(raw))

	for _, r := range raw {
		if r.Content == nil {
			st.MissingContent++
			continue
		}
		if r.Score == nil || math.IsNaN(*r.Score) || math.IsInf(*r.Score, 0) {
			st.MissingScore++
			continue
		}
		content := strings.ToLower(strings.TrimSpace(*r.Content))

		k := dedupKey{id: r.ReviewID, content: content}
		if _, dup := seen[k]; dup {
			st.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		cr := domain.CanonicalReview{
			Source:               c.src,
			ReviewID:             r.ReviewID,
			UserName:             r.UserName,
			Content:              content,
			Score:                *r.Score,
			ThumbsUpCount:        r.ThumbsUpCount,
			ReviewCreatedVersion: versionOrUnknown(r.ReviewCreatedVersion),
			AppVersion:           versionOrUnknown(r.AppVersion),
			At:                   ParseTimestamp(r.At),
			Emojis:               c.x.Extract(content),
			Extra:                r.Extra,
		}
		switch cr.At.Status {
		case domain.TimeMissing:
			st.MissingTime++
		case domain.TimeUnparsed:
			st.UnparsedTime++
		}
		out = append(out, cr)
	}
	st.Output = len(out)
	return out, st
}

func versionOrUnknown(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return domain.UnknownVersion
	}
	return strings.TrimSpace(*v)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp never invents a date: empty input is missing, anything no
// layout accepts is unparsed with the raw text kept. Zone-less values are UTC.
func ParseTimestamp(raw string) domain.Timestamp {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Timestamp{Raw: raw, Status: domain.TimeMissing}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return domain.Timestamp{Raw: raw, Time: t, Status: domain.TimeParsed}
		}
	}
	return domain.Timestamp{Raw: raw, Status: domain.TimeUnparsed}
}
