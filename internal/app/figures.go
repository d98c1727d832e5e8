package app

import (
	"fmt"

	"review_insights/internal/domain"
)

// Figure is a chart with the file name it is published under.
type Figure struct {
	Name  string
	Chart domain.Chart
}

const ComparisonFigure = "sentiment_comparison_all_apps.png"

// labelSeries turns a dense aggregate table into one series per label over the group keys.
func labelSeries(rows []domain.AggregateRow) ([]string, []domain.Series) {
	var cats []string
	idx := make(map[string]int)
	for _, r := range rows {
		k := r.Key.String()
		if _, ok := idx[k]; !ok {
			idx[k] = len(cats)
			cats = append(cats, k)
		}
	}
	series := make([]domain.Series, len(domain.Labels))
	for i, l := range domain.Labels {
		series[i] = domain.Series{Name: string(l), Values: make([]float64, len(cats))}
	}
	for _, r := range rows {
		if i := r.Label.Index(); i >= 0 {
			series[i].Values[idx[r.Key.String()]] = float64(r.Count)
		}
	}
	return cats, series
}

// AppFigures builds the static charts of one app. The mean score chart is
// only produced when the classifier emitted scores.
func AppFigures(app domain.SourceTag, rows []domain.EnrichedReview) []Figure {
	var figs []Figure
	add := func(suffix string, c domain.Chart) {
		figs = append(figs, Figure{Name: fmt.Sprintf("%s_%s.png", app, suffix), Chart: c})
	}

	cats, series := labelSeries(Aggregate(rows, domain.GroupMonth, domain.DimText))
	add("sentiment_over_time", domain.Chart{
		Kind: domain.ChartLine, Title: fmt.Sprintf("%s sentiment over time", app),
		XLabel: "month", YLabel: "reviews", Categories: cats, Series: series,
	})

	cats, series = labelSeries(Aggregate(rows, domain.GroupAppVersion, domain.DimText))
	add("sentiment_by_version", domain.Chart{
		Kind: domain.ChartBar, Title: fmt.Sprintf("%s sentiment by app version", app),
		XLabel: "app version", YLabel: "reviews", Categories: cats, Series: series,
	})

	emoji := Aggregate(rows, domain.GroupAll, domain.DimEmoji)
	pie := domain.Series{Name: "emoji sentiment"}
	var pieCats []string
	for _, r := range emoji {
		pieCats = append(pieCats, string(r.Label))
		pie.Values = append(pie.Values, float64(r.Count))
	}
	add("emoji_sentiment", domain.Chart{
		Kind: domain.ChartPie, Title: fmt.Sprintf("%s emoji sentiment", app),
		Categories: pieCats, Series: []domain.Series{pie},
	})

	ct := crosstab(rows)
	heat := make([]domain.Series, len(domain.Labels))
	for i, t := range domain.Labels {
		heat[i] = domain.Series{Name: "text " + string(t), Values: make([]float64, len(domain.Labels))}
	}
	for _, c := range ct {
		heat[c.Text.Index()].Values[c.Emoji.Index()] = float64(c.Count)
	}
	emojiCats := make([]string, len(domain.Labels))
	for i, l := range domain.Labels {
		emojiCats[i] = "emoji " + string(l)
	}
	add("text_vs_emoji_heatmap", domain.Chart{
		Kind: domain.ChartHeatmap, Title: fmt.Sprintf("%s text vs emoji sentiment", app),
		XLabel: "emoji sentiment", YLabel: "text sentiment", Categories: emojiCats, Series: heat,
	})

	dist := ratingDistribution(rows)
	rating := domain.Series{Name: "reviews"}
	var ratingCats []string
	for _, kv := range dist {
		ratingCats = append(ratingCats, kv.Key)
		rating.Values = append(rating.Values, float64(kv.Count))
	}
	add("rating_distribution", domain.Chart{
		Kind: domain.ChartBar, Title: fmt.Sprintf("%s rating distribution", app),
		XLabel: "rating", YLabel: "reviews", Categories: ratingCats, Series: []domain.Series{rating},
	})

	if ms := meanScorePerMonth(rows); len(ms) > 0 {
		mean := domain.Series{Name: "mean compound"}
		var months []string
		for _, m := range ms {
			months = append(months, m.Month)
			mean.Values = append(mean.Values, m.Mean)
		}
		add("mean_score_over_time", domain.Chart{
			Kind: domain.ChartLine, Title: fmt.Sprintf("%s mean sentiment score", app),
			XLabel: "month", YLabel: "compound", Categories: months, Series: []domain.Series{mean},
		})
	}
	return figs
}

// ComparisonChart puts the overall text label proportions of every app side by side.
func ComparisonChart(rows []domain.ComparisonRow) domain.Chart {
	c := domain.Chart{
		Kind: domain.ChartBar, Title: "sentiment across apps",
		XLabel: "sentiment", YLabel: "share of reviews",
	}
	for _, l := range domain.Labels {
		c.Categories = append(c.Categories, string(l))
	}
	idx := make(map[domain.SourceTag]int)
	for _, r := range rows {
		if r.GroupBy != domain.GroupAll || r.Dimension != domain.DimText {
			continue
		}
		i, ok := idx[r.Source]
		if !ok {
			i = len(c.Series)
			idx[r.Source] = i
			c.Series = append(c.Series, domain.Series{Name: string(r.Source), Values: make([]float64, len(domain.Labels))})
		}
		if li := r.Label.Index(); li >= 0 {
			c.Series[i].Values[li] = r.Proportion
		}
	}
	return c
}
