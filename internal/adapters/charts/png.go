// Package charts draws domain.Chart values as PNG images with gonum/plot.
package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"review_insights/internal/domain"
)

const (
	DefaultWidth  = 900
	DefaultHeight = 540

	dpi      = 96
	maxTicks = 14
	maxLabel = 12
)

var (
	palette = []color.RGBA{
		{0x15, 0x65, 0xc0, 0xff},
		{0xef, 0x6c, 0x00, 0xff},
		{0x6a, 0x1b, 0x9a, 0xff},
		{0x00, 0x83, 0x8f, 0xff},
		{0x5d, 0x40, 0x37, 0xff},
		{0xad, 0x14, 0x57, 0xff},
		{0x55, 0x8b, 0x2f, 0xff},
		{0x45, 0x5a, 0x64, 0xff},
	}

	// sentiment series keep the same colour in every chart
	labelColors = map[string]color.RGBA{
		string(domain.Positive): {0x2e, 0x7d, 0x32, 0xff},
		string(domain.Neutral):  {0x9e, 0x9e, 0x9e, 0xff},
		string(domain.Negative): {0xc6, 0x28, 0x28, 0xff},
	}
)

// Renderer satisfies domain.ChartRenderer.
type Renderer struct {
	Width, Height int
}

var _ domain.ChartRenderer = (*Renderer)(nil)

func New() *Renderer { return &Renderer{Width: DefaultWidth, Height: DefaultHeight} }

// Render writes the chart to path through a temp file, creating the directory.
func (r *Renderer) Render(path string, c domain.Chart) error {
	img, err := r.draw(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}

func (r *Renderer) Encode(w io.Writer, c domain.Chart) error {
	img, err := r.draw(c)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// px converts device pixels to canvas points at the renderer's DPI.
func px(n int) vg.Length { return vg.Length(n) * vg.Inch / dpi }

func (r *Renderer) draw(c domain.Chart) (image.Image, error) {
	w, h := r.Width, r.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	p, err := build(c, px(w))
	if err != nil {
		return nil, err
	}
	cv := vgimg.NewWith(vgimg.UseWH(px(w), px(h)), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))
	p.Draw(draw.New(cv))
	return cv.Image(), nil
}

func build(c domain.Chart, width vg.Length) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Legend.Top = true

	if empty(c) {
		return placeholder(p)
	}
	var err error
	switch c.Kind {
	case domain.ChartBar:
		err = addBars(p, c, width)
	case domain.ChartLine:
		err = addPoints(p, c, true)
	case domain.ChartScatter:
		err = addPoints(p, c, false)
	case domain.ChartPie:
		return addPie(p, c)
	case domain.ChartHeatmap:
		addHeatmap(p, c)
	default:
		return nil, fmt.Errorf("%w: chart kind %q", domain.ErrInvalidArgument, c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("plot %q: %w", c.Title, err)
	}
	return p, nil
}

func placeholder(p *plot.Plot) (*plot.Plot, error) {
	p.HideAxes()
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: plotter.XYs{{X: 0, Y: 0}}, Labels: []string{"no data"}})
	if err != nil {
		return nil, err
	}
	p.Add(l)
	return p, nil
}

func empty(c domain.Chart) bool {
	if len(c.Categories) == 0 || len(c.Series) == 0 {
		return true
	}
	for _, s := range c.Series {
		if len(s.Values) > 0 {
			return false
		}
	}
	return true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func seriesColor(i int, name string) color.RGBA {
	if c, ok := labelColors[name]; ok {
		return c
	}
	return palette[i%len(palette)]
}

// valueRange always includes zero and never collapses to a point.
func valueRange(series []domain.Series) (lo, hi float64) {
	for _, s := range series {
		for _, v := range s.Values {
			if !finite(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// categoryTicks puts a tick on every category but labels at most maxTicks of them.
func categoryTicks(cats []string) plot.ConstantTicks {
	step := (len(cats) + maxTicks - 1) / maxTicks
	if step < 1 {
		step = 1
	}
	ticks := make(plot.ConstantTicks, 0, len(cats))
	for i, s := range cats {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = short(s)
		}
		ticks = append(ticks, t)
	}
	return ticks
}

// addBars groups one bar per series around each category.
func addBars(p *plot.Plot, c domain.Chart, width vg.Length) error {
	n, k := len(c.Categories), len(c.Series)
	barW := width * 0.7 / vg.Length(n*k)
	if barW < 1 {
		barW = 1
	}
	for j, s := range c.Series {
		vals := make(plotter.Values, n)
		for i := range vals {
			if i < len(s.Values) && finite(s.Values[i]) {
				vals[i] = s.Values[i]
			}
		}
		b, err := plotter.NewBarChart(vals, barW)
		if err != nil {
			return err
		}
		b.Color = seriesColor(j, s.Name)
		b.LineStyle.Color = b.Color
		b.Offset = (vg.Length(j) - vg.Length(k-1)/2) * barW
		p.Add(b)
		p.Legend.Add(s.Name, b)
	}
	p.X.Tick.Marker = categoryTicks(c.Categories)
	return nil
}

// addPoints plots each series at category positions; non-finite values are skipped.
func addPoints(p *plot.Plot, c domain.Chart, connect bool) error {
	p.Add(plotter.NewGrid())
	for j, s := range c.Series {
		xys := make(plotter.XYs, 0, len(s.Values))
		for i, v := range s.Values {
			if i >= len(c.Categories) {
				break
			}
			if finite(v) {
				xys = append(xys, plotter.XY{X: float64(i), Y: v})
			}
		}
		if len(xys) == 0 {
			continue
		}
		col := seriesColor(j, s.Name)
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: col, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		if !connect {
			p.Add(sc)
			p.Legend.Add(s.Name, sc)
			continue
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = col
		l.LineStyle.Width = vg.Points(2)
		p.Add(l, sc)
		p.Legend.Add(s.Name, l, sc)
	}
	p.X.Tick.Marker = categoryTicks(c.Categories)
	return nil
}

// grid exposes a chart as columns (categories) by rows (series).
type grid struct{ c domain.Chart }

func (g grid) Dims() (int, int) { return len(g.c.Categories), len(g.c.Series) }
func (g grid) X(c int) float64  { return float64(c) }
func (g grid) Y(r int) float64  { return float64(r) }

func (g grid) Z(c, r int) float64 {
	if vs := g.c.Series[r].Values; c < len(vs) && finite(vs[c]) {
		return vs[c]
	}
	return math.NaN()
}

// blues runs from near white to dark blue.
type blues int

func (n blues) Colors() []color.Color {
	out := make([]color.Color, int(n))
	for i := range out {
		t := float64(i) / float64(len(out)-1)
		lerp := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*t) }
		out[i] = color.RGBA{lerp(0xf5, 0x0d), lerp(0xf9, 0x47), lerp(0xff, 0xa1), 0xff}
	}
	return out
}

func addHeatmap(p *plot.Plot, c domain.Chart) {
	h := plotter.NewHeatMap(grid{c}, blues(24))
	h.Min, h.Max = valueRange(c.Series)
	p.Add(h)

	names := make([]string, len(c.Series))
	for i, s := range c.Series {
		names[i] = short(s.Name)
	}
	p.NominalY(names...)
	p.X.Tick.Marker = categoryTicks(c.Categories)
}

// pie draws the first series as wedges around the centre of the data area.
type pie struct {
	values []float64
	colors []color.Color
	total  float64
}

func (pc pie) Plot(c draw.Canvas, _ *plot.Plot) {
	w, h := c.Max.X-c.Min.X, c.Max.Y-c.Min.Y
	ctr := vg.Point{X: c.Min.X + w*0.4, Y: c.Min.Y + h/2}
	rad := min(w*0.8, h) / 2 * 0.9
	start := math.Pi / 2
	for i, v := range pc.values {
		if v <= 0 || !finite(v) {
			continue
		}
		sweep := 2 * math.Pi * v / pc.total
		var path vg.Path
		path.Move(ctr)
		path.Arc(ctr, rad, start, sweep)
		path.Close()
		c.SetColor(pc.colors[i])
		c.Fill(path)
		start += sweep
	}
}

// swatch is a filled legend thumbnail.
type swatch struct{ color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.Color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y}, {X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y}, {X: c.Max.X, Y: c.Min.Y},
	})
}

func addPie(p *plot.Plot, c domain.Chart) (*plot.Plot, error) {
	vals := c.Series[0].Values
	pc := pie{values: vals, colors: make([]color.Color, len(vals))}
	for i, v := range vals {
		pc.colors[i] = seriesColor(i, label(c.Categories, i))
		if v > 0 && finite(v) {
			pc.total += v
		}
	}
	if pc.total == 0 || math.IsInf(pc.total, 0) {
		return placeholder(p)
	}
	p.HideAxes()
	p.Add(pc)
	for i, v := range vals {
		share := 0.0
		if v > 0 && finite(v) {
			share = 100 * v / pc.total
		}
		p.Legend.Add(fmt.Sprintf("%s %.1f%%", short(label(c.Categories, i)), share), swatch{pc.colors[i]})
	}
	return p, nil
}

func label(cats []string, i int) string {
	if i < len(cats) {
		return cats[i]
	}
	return ""
}

func short(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-1]) + "~"
}
