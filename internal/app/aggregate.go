package app

import (
	"sort"
	"strconv"
	"strings"

	"review_insights/internal/domain"
)

// keyOf returns the group key of r, or false when r has no place in the grouping.
func keyOf(r domain.EnrichedReview, by domain.GroupBy) (domain.GroupKey, bool) {
	switch by {
	case domain.GroupMonth, domain.GroupMonthAppVersion:
		m, ok := r.At.Bucket()
		if !ok {
			return domain.GroupKey{}, false
		}
		k := domain.GroupKey{Month: m.String()}
		if by == domain.GroupMonthAppVersion {
			k.Version = r.AppVersion
		}
		return k, true
	case domain.GroupAppVersion:
		return domain.GroupKey{Version: r.AppVersion}, true
	case domain.GroupCreatedVersion:
		return domain.GroupKey{Version: r.ReviewCreatedVersion}, true
	case domain.GroupRating:
		return domain.GroupKey{Rating: strconv.FormatFloat(r.Score, 'f', -1, 64)}, true
	case domain.GroupAll:
		return domain.GroupKey{}, true
	}
	return domain.GroupKey{}, false
}

// Aggregate counts labels per group. The result is dense (three rows per
// group, zero counts included) and sorted by key, then label order.
func Aggregate(rows []domain.EnrichedReview, by domain.GroupBy, dim domain.Dimension) []domain.AggregateRow {
	counts := make(map[domain.GroupKey]*[3]int)
	for _, r := range rows {
		k, ok := keyOf(r, by)
		if !ok {
			continue
		}
		i := dim.Of(r).Index()
		if i < 0 {
			continue
		}
		c, ok := counts[k]
		if !ok {
			c = new([3]int)
			counts[k] = c
		}
		c[i]++
	}

	keys := make([]domain.GroupKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	out := make([]domain.AggregateRow, 0, len(keys)*len(domain.Labels))
	for _, k := range keys {
		c := counts[k]
		total := c[0] + c[1] + c[2]
		for i, label := range domain.Labels {
			row := domain.AggregateRow{
				GroupBy: by, Key: k, Dimension: dim, Label: label,
				Count: c[i], GroupTotal: total,
			}
			if total > 0 {
				row.Proportion = float64(c[i]) / float64(total)
			}
			out = append(out, row)
		}
	}
	return out
}

// AggregateAll runs every grouping for both dimensions.
func AggregateAll(rows []domain.EnrichedReview) []domain.AggregateRow {
	var out []domain.AggregateRow
	for _, by := range domain.GroupBys {
		for _, dim := range []domain.Dimension{domain.DimText, domain.DimEmoji} {
			out = append(out, Aggregate(rows, by, dim)...)
		}
	}
	return out
}

func lessKey(a, b domain.GroupKey) bool {
	if a.Month != b.Month {
		return a.Month < b.Month
	}
	if a.Version != b.Version {
		return compareVersions(a.Version, b.Version) < 0
	}
	fa, _ := strconv.ParseFloat(a.Rating, 64)
	fb, _ := strconv.ParseFloat(b.Rating, 64)
	if fa != fb {
		return fa < fb
	}
	return a.Rating < b.Rating
}

// compareVersions orders dotted versions segment by segment: numeric segments
// by value and before any non-numeric segment, non-numeric ones as strings.
// "unknown" sorts after every real version.
func compareVersions(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == domain.UnknownVersion:
		return 1
	case b == domain.UnknownVersion:
		return -1
	}
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, ea := strconv.Atoi(pa[i])
		nb, eb := strconv.Atoi(pb[i])
		switch {
		case ea == nil && eb == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case ea == nil:
			return -1
		case eb == nil:
			return 1
		case pa[i] != pb[i]:
			return strings.Compare(pa[i], pb[i])
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return strings.Compare(a, b)
}
