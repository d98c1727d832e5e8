// Package csvstore keeps every pipeline input and artifact as flat files:
// CSV tables and a JSON run manifest.
package csvstore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/domain"
)

// TimeLayout is how parsed timestamps are written to derived tables.
const TimeLayout = "2006-01-02 15:04:05"

type Store struct{}

func New() *Store { return &Store{} }

var _ domain.ReviewStore = (*Store)(nil)

func openCSV(path string) (*os.File, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return f, r, nil
}

// ReadRaw reads a store export. Empty cells become nil; an unparseable score
// is treated as missing so the cleaner rejects the row.
func (s *Store) ReadRaw(ctx context.Context, path string) ([]domain.RawReview, error) {
	f, r, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s has no header", domain.ErrEmptyDataset, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	h := parseHeader(cols)
	for _, req := range []string{colContent, colScore} {
		if !h.has(req) {
			return nil, fmt.Errorf("%w: %s is missing column %q", domain.ErrUnknownColumn, path, req)
		}
	}

	var out []domain.RawReview
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, h.raw(rec, line))
	}
	return out, nil
}

func (h header) raw(rec []string, line int) domain.RawReview {
	rr := domain.RawReview{
		Line:                 line,
		ReviewID:             h.str(rec, colReviewID),
		UserName:             h.cell(rec, colUserName),
		UserImage:            h.cell(rec, colUserImage),
		Content:              h.cell(rec, colContent),
		ThumbsUpCount:        h.cell(rec, colThumbsUp),
		ReviewCreatedVersion: h.cell(rec, colCreatedVersion),
		At:                   h.str(rec, colAt),
		ReplyContent:         h.cell(rec, colReplyContent),
		RepliedAt:            h.cell(rec, colRepliedAt),
		AppVersion:           h.cell(rec, colAppVersion),
	}
	if p := h.cell(rec, colScore); p != nil {
		if v, ok := parseNumber(*p); ok {
			rr.Score = &v
		} else {
			log.Debug().Int("line", line).Str("score", *p).Msg("unparseable score treated as missing")
		}
	}
	rr.Extra = h.extraColumns(rec)
	return rr
}

// parseNumber rejects NaN and infinities, which exports use as null markers.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (h header) extraColumns(rec []string) []domain.Column {
	if len(h.extra) == 0 {
		return nil
	}
	out := make([]domain.Column, 0, len(h.extra))
	for _, i := range h.extra {
		c := domain.Column{Name: h.names[i]}
		if i < len(rec) {
			c.Value = rec[i]
		}
		out = append(out, c)
	}
	return out
}

var enrichedHead = []string{
	colReviewID, colUserName, colContent, colScore, colThumbsUp,
	colCreatedVersion, colAt, colAtStatus, colAppVersion,
}

var derivedHead = []string{colEmojis, colEmojiSentiment, colSentimentLabel, colSentimentScore}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatScore(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatTime(t domain.Timestamp) string {
	if t.Valid() {
		return t.Time.UTC().Format(TimeLayout)
	}
	return t.Raw
}

// WriteEnriched writes the canonical columns, pass-through columns in their
// original order, then the derived sentiment columns.
func (s *Store) WriteEnriched(ctx context.Context, path string, rows []domain.EnrichedReview) error {
	var extraNames []string
	if len(rows) > 0 {
		for _, c := range rows[0].Extra {
			extraNames = append(extraNames, c.Name)
		}
	}
	head := make([]string, 0, len(enrichedHead)+len(extraNames)+len(derivedHead))
	head = append(append(append(head, enrichedHead...), extraNames...), derivedHead...)

	return writeCSV(ctx, path, head, len(rows), func(i int) []string {
		r := rows[i]
		rec := []string{
			r.ReviewID, deref(r.UserName), r.Content, formatScore(r.Score), deref(r.ThumbsUpCount),
			r.ReviewCreatedVersion, formatTime(r.At), string(r.At.Status), r.AppVersion,
		}
		for j := range extraNames {
			v := ""
			if j < len(r.Extra) {
				v = r.Extra[j].Value
			}
			rec = append(rec, v)
		}
		score := ""
		if r.SentimentScore != nil {
			score = strconv.FormatFloat(*r.SentimentScore, 'f', 4, 64)
		}
		return append(rec, strings.Join(r.Emojis, ""), string(r.EmojiSentiment), string(r.TextSentiment), score)
	})
}

// ReadEnriched loads a table written by WriteEnriched.
func (s *Store) ReadEnriched(ctx context.Context, path string, src domain.SourceTag) ([]domain.EnrichedReview, error) {
	f, r, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	h := parseHeader(cols)
	for _, req := range []string{colContent, colSentimentLabel, colEmojiSentiment} {
		if !h.has(req) {
			return nil, fmt.Errorf("%w: %s is missing column %q", domain.ErrUnknownColumn, path, req)
		}
	}

	var out []domain.EnrichedReview
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, h.enriched(rec, src))
	}
	return out, nil
}

func (h header) enriched(rec []string, src domain.SourceTag) domain.EnrichedReview {
	e := domain.EnrichedReview{
		CanonicalReview: domain.CanonicalReview{
			Source:               src,
			ReviewID:             h.str(rec, colReviewID),
			UserName:             h.cell(rec, colUserName),
			Content:              h.str(rec, colContent),
			ThumbsUpCount:        h.cell(rec, colThumbsUp),
			ReviewCreatedVersion: orUnknown(h.str(rec, colCreatedVersion)),
			AppVersion:           orUnknown(h.str(rec, colAppVersion)),
			At:                   readTimestamp(h.str(rec, colAt), h.str(rec, colAtStatus)),
			Emojis:               splitEmojis(h.str(rec, colEmojis)),
		},
	}
	e.Score, _ = parseNumber(h.str(rec, colScore))
	e.TextSentiment, _ = domain.ParseLabel(h.str(rec, colSentimentLabel))
	e.EmojiSentiment, _ = domain.ParseLabel(h.str(rec, colEmojiSentiment))
	if !e.TextSentiment.Valid() {
		e.TextSentiment = domain.Neutral
	}
	if !e.EmojiSentiment.Valid() {
		e.EmojiSentiment = domain.Neutral
	}
	if p := h.cell(rec, colSentimentScore); p != nil {
		if v, ok := parseNumber(*p); ok {
			e.SentimentScore = &v
		}
	}
	return e
}

func orUnknown(s string) string {
	if s == "" {
		return domain.UnknownVersion
	}
	return s
}

func readTimestamp(raw, status string) domain.Timestamp {
	if raw == "" {
		return domain.Timestamp{Status: domain.TimeMissing}
	}
	if domain.TimeStatus(status) == domain.TimeUnparsed {
		return domain.Timestamp{Raw: raw, Status: domain.TimeUnparsed}
	}
	t, err := time.Parse(TimeLayout, raw)
	if err != nil {
		return domain.Timestamp{Raw: raw, Status: domain.TimeUnparsed}
	}
	return domain.Timestamp{Raw: raw, Time: t, Status: domain.TimeParsed}
}

// splitEmojis undoes the concatenation; extracted emoji are single code points.
func splitEmojis(s string) []string {
	out := []string{}
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

var aggregateHead = []string{"group_by", "month", "version", "rating", "dimension", "label", "count", "group_total", "proportion"}

func aggregateRecord(r domain.AggregateRow) []string {
	return []string{
		string(r.GroupBy), r.Key.Month, r.Key.Version, r.Key.Rating, string(r.Dimension), string(r.Label),
		strconv.Itoa(r.Count), strconv.Itoa(r.GroupTotal), strconv.FormatFloat(r.Proportion, 'f', 6, 64),
	}
}

func (s *Store) WriteAggregates(ctx context.Context, path string, rows []domain.AggregateRow) error {
	return writeCSV(ctx, path, aggregateHead, len(rows), func(i int) []string {
		return aggregateRecord(rows[i])
	})
}

func (s *Store) WriteComparison(ctx context.Context, path string, rows []domain.ComparisonRow) error {
	head := append([]string{"source"}, aggregateHead...)
	return writeCSV(ctx, path, head, len(rows), func(i int) []string {
		return append([]string{string(rows[i].Source)}, aggregateRecord(rows[i].AggregateRow)...)
	})
}

func writeCSV(ctx context.Context, path string, head []string, n int, row func(int) []string) error {
	af, err := createAtomic(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer af.abort()

	w := csv.NewWriter(af.tmp)
	if err := w.Write(head); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("write %s row %d: %w", path, i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return af.commit()
}

func (s *Store) WriteManifest(ctx context.Context, path string, m domain.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	af, err := createAtomic(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer af.abort()
	enc := json.NewEncoder(af.tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return af.commit()
}

// ReadManifest returns domain.ErrNotFound when no run has published yet.
func (s *Store) ReadManifest(ctx context.Context, path string) (domain.Manifest, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Manifest{}, fmt.Errorf("%w: manifest %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return domain.Manifest{}, err
	}
	var m domain.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

// ReadTable reads any CSV with a header row.
func (s *Store) ReadTable(ctx context.Context, src io.Reader) (domain.Table, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	cols, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, fmt.Errorf("%w: no header row", domain.ErrEmptyDataset)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: read header: %v", domain.ErrInvalidArgument, err)
	}
	if len(cols) > 0 {
		cols[0] = strings.TrimPrefix(cols[0], "\uFEFF")
	}
	t := domain.Table{Columns: cols}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		if len(t.Rows)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return domain.Table{}, err
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
