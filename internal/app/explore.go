package app

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"review_insights/internal/domain"
)

type ExploreRequest struct {
	X    string
	Y    string
	Kind domain.ChartKind
}

// ExploreResult is one recomputed view of an uploaded table.
type ExploreResult struct {
	Kind        domain.ChartKind `json:"kind"`
	X           string           `json:"x"`
	Y           string           `json:"y"`
	Rows        int              `json:"rows"`
	Skipped     int              `json:"skipped"`
	Categories  []string         `json:"categories"`
	Series      []domain.Series  `json:"series"`
	YCategories []string         `json:"y_categories,omitempty"`
}

func (r ExploreResult) Chart() domain.Chart {
	return domain.Chart{
		Kind:       r.Kind,
		Title:      fmt.Sprintf("%s: %s vs %s", r.Kind, r.X, r.Y),
		XLabel:     r.X,
		YLabel:     r.Y,
		Categories: r.Categories,
		Series:     r.Series,
	}
}

func ParseChartKind(s string) (domain.ChartKind, error) {
	k := domain.ChartKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case domain.ChartLine, domain.ChartBar, domain.ChartScatter, domain.ChartPie, domain.ChartHeatmap:
		return k, nil
	case "":
		return domain.ChartLine, nil
	}
	return "", fmt.Errorf("%w: chart kind %q", domain.ErrInvalidArgument, s)
}

// Explore builds the chart data for columns x and y:
//   - line, scatter: one point per row in table order; a non-numeric y column
//     is plotted by category index
//   - bar: y summed per x value, or counted per (x, y) when y is non-numeric
//   - pie: value counts of y
//   - heatmap: mean of y per x, or an x by y count matrix when y is non-numeric
//
// Rows with an empty x or y cell are skipped, and so are NaN or infinite y
// cells, which exports use to mark missing values.
func Explore(t domain.Table, req ExploreRequest) (ExploreResult, error) {
	if len(t.Rows) == 0 {
		return ExploreResult{}, fmt.Errorf("%w: uploaded table has no rows", domain.ErrEmptyDataset)
	}
	xi, err := t.Index(req.X)
	if err != nil {
		return ExploreResult{}, err
	}
	yi, err := t.Index(req.Y)
	if err != nil {
		return ExploreResult{}, err
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.ChartLine
	}

	res := ExploreResult{Kind: kind, X: t.Columns[xi], Y: t.Columns[yi], Rows: len(t.Rows)}
	type pair struct{ x, y string }
	pairs := make([]pair, 0, len(t.Rows))
	for i := range t.Rows {
		x, y := strings.TrimSpace(t.Cell(i, xi)), strings.TrimSpace(t.Cell(i, yi))
		if y == "" || nonFinite(y) || (x == "" && kind != domain.ChartPie) {
			res.Skipped++
			continue
		}
		pairs = append(pairs, pair{x, y})
	}
	if len(pairs) == 0 {
		return ExploreResult{}, fmt.Errorf("%w: no rows with both %q and %q", domain.ErrEmptyDataset, req.X, req.Y)
	}

	numeric := true
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		v, ok := number(p.y)
		if !ok {
			numeric = false
			break
		}
		ys[i] = v
	}

	switch kind {
	case domain.ChartLine, domain.ChartScatter:
		var codes map[string]int
		if !numeric {
			res.YCategories, codes = categoriesOf(len(pairs), func(i int) string { return pairs[i].y })
		}
		s := domain.Series{Name: res.Y, Values: make([]float64, len(pairs))}
		res.Categories = make([]string, len(pairs))
		for i, p := range pairs {
			res.Categories[i] = p.x
			if numeric {
				s.Values[i] = ys[i]
			} else {
				s.Values[i] = float64(codes[p.y])
			}
		}
		res.Series = []domain.Series{s}

	case domain.ChartBar:
		xs, xIdx := firstSeen(len(pairs), func(i int) string { return pairs[i].x })
		res.Categories = xs
		if numeric {
			s := domain.Series{Name: res.Y, Values: make([]float64, len(xs))}
			for i, p := range pairs {
				s.Values[xIdx[p.x]] += ys[i]
			}
			res.Series = []domain.Series{s}
		} else {
			res.Series = countMatrix(len(pairs), xIdx, len(xs), func(i int) (string, string) { return pairs[i].x, pairs[i].y })
		}

	case domain.ChartPie:
		ycats, yIdx := firstSeen(len(pairs), func(i int) string { return pairs[i].y })
		s := domain.Series{Name: res.Y, Values: make([]float64, len(ycats))}
		for _, p := range pairs {
			s.Values[yIdx[p.y]]++
		}
		order := make([]int, len(ycats))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return s.Values[order[a]] > s.Values[order[b]] })
		res.Categories = make([]string, len(order))
		vals := make([]float64, len(order))
		for i, o := range order {
			res.Categories[i] = ycats[o]
			vals[i] = s.Values[o]
		}
		s.Values = vals
		res.Series = []domain.Series{s}

	case domain.ChartHeatmap:
		xs, xIdx := categoriesOf(len(pairs), func(i int) string { return pairs[i].x })
		res.Categories = xs
		if numeric {
			sum := make([]float64, len(xs))
			n := make([]int, len(xs))
			for i, p := range pairs {
				sum[xIdx[p.x]] += ys[i]
				n[xIdx[p.x]]++
			}
			s := domain.Series{Name: "mean " + res.Y, Values: make([]float64, len(xs))}
			for i := range xs {
				s.Values[i] = sum[i] / float64(n[i])
			}
			res.Series = []domain.Series{s}
		} else {
			res.Series = countMatrix(len(pairs), xIdx, len(xs), func(i int) (string, string) { return pairs[i].x, pairs[i].y })
		}

	default:
		return ExploreResult{}, fmt.Errorf("%w: chart kind %q", domain.ErrInvalidArgument, kind)
	}
	return res, nil
}

// number parses finite floats only.
func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func nonFinite(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && (math.IsNaN(v) || math.IsInf(v, 0))
}

// firstSeen returns distinct values in order of first appearance.
func firstSeen(n int, at func(int) string) ([]string, map[string]int) {
	idx := make(map[string]int)
	var out []string
	for i := 0; i < n; i++ {
		v := at(i)
		if _, ok := idx[v]; !ok {
			idx[v] = len(out)
			out = append(out, v)
		}
	}
	return out, idx
}

// categoriesOf returns distinct values sorted, numerically when all parse.
func categoriesOf(n int, at func(int) string) ([]string, map[string]int) {
	vals, _ := firstSeen(n, at)
	allNum := true
	nums := make(map[string]float64, len(vals))
	for _, v := range vals {
		f, ok := number(v)
		if !ok {
			allNum = false
			break
		}
		nums[v] = f
	}
	sort.SliceStable(vals, func(i, j int) bool {
		if allNum {
			return nums[vals[i]] < nums[vals[j]]
		}
		return vals[i] < vals[j]
	})
	idx := make(map[string]int, len(vals))
	for i, v := range vals {
		idx[v] = i
	}
	return vals, idx
}

// countMatrix has one series per distinct y, each indexed like the x categories.
func countMatrix(n int, xIdx map[string]int, nx int, at func(int) (string, string)) []domain.Series {
	ycats, yIdx := categoriesOf(n, func(i int) string { _, y := at(i); return y })
	out := make([]domain.Series, len(ycats))
	for i, y := range ycats {
		out[i] = domain.Series{Name: y, Values: make([]float64, nx)}
	}
	for i := 0; i < n; i++ {
		x, y := at(i)
		out[yIdx[y]].Values[xIdx[x]]++
	}
	return out
}
