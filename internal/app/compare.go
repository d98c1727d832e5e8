package app

import (
	"fmt"
	"strings"

	"review_insights/internal/domain"
)

// Compare concatenates per-source tables in input order and tags every row
// with its source. Rows are never merged, even when keys coincide. Tags that
// differ only in case are rejected as repeats.
func Compare(tables []domain.SourceTable) ([]domain.ComparisonRow, error) {
	seen := make(map[string]struct{}, len(tables))
	n := 0
	for _, t := range tables {
		if strings.TrimSpace(string(t.Source)) == "" {
			return nil, fmt.Errorf("%w: empty source tag", domain.ErrInvalidArgument)
		}
		key := strings.ToLower(string(t.Source))
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: source %q given twice", domain.ErrInvalidArgument, t.Source)
		}
		seen[key] = struct{}{}
		n += len(t.Rows)
	}

	out := make([]domain.ComparisonRow, 0, n)
	for _, t := range tables {
		for _, r := range t.Rows {
			out = append(out, domain.ComparisonRow{Source: t.Source, AggregateRow: r})
		}
	}
	return out, nil
}
