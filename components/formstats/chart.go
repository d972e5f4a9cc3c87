package formstats

import (
	"bytes"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ChartElementID is the DOM id of the page views chart.
const ChartElementID = "pageViewsChart"

const defaultChartHeight = "360px"

// SeriesStyle is the legend label and colour of a chart series.
type SeriesStyle struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

var (
	SeriesPageViews   = SeriesStyle{Label: "# of page views"}
	SeriesSessions    = SeriesStyle{Label: "# of sessions", Color: "#005ea5"}
	SeriesSubmissions = SeriesStyle{Label: "# of submissions", Color: "#00823b"}
	SeriesErrors      = SeriesStyle{Label: "# of errors", Color: "#b10e1e"}
)

// ChartOptions configures chart markup.
type ChartOptions struct {
	Theme      string
	AssetsHost string
	Height     string
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Theme == "" {
		o.Theme = types.ThemeWesteros
	}
	if o.Height == "" {
		o.Height = defaultChartHeight
	}
	return o
}

// ChartSeries is a plotted timeline.
type ChartSeries struct {
	Style  SeriesStyle `json:"style"`
	Values []float64   `json:"values"`
}

// LineChart is one live line chart.
type LineChart struct {
	line   *charts.Line
	labels []string
	series []ChartSeries
}

// Labels returns the x axis keys.
func (c *LineChart) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Series returns the plotted series in insertion order.
func (c *LineChart) Series() []ChartSeries {
	return append([]ChartSeries(nil), c.series...)
}

// HTML renders the chart markup.
func (c *LineChart) HTML() (string, error) {
	return renderChart(c.line)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ChartCanvas owns at most one live chart. Rendering again destroys the
// previous chart first.
type ChartCanvas struct {
	mu        sync.Mutex
	opts      ChartOptions
	current   *LineChart
	created   int
	destroyed int
	revision  uint64
}

// NewChartCanvas returns an empty canvas.
func NewChartCanvas(opts ChartOptions) *ChartCanvas {
	return &ChartCanvas{opts: opts.withDefaults()}
}

// Render replaces the live chart with a new one plotting t as page views.
func (c *ChartCanvas) Render(t Timeline) *LineChart {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:    ChartElementID,
			Theme:      c.opts.Theme,
			Width:      "100%",
			Height:     c.opts.Height,
			AssetsHost: c.opts.AssetsHost,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	labels := t.Keys()
	line.SetXAxis(labels)

	chart := &LineChart{line: line, labels: labels}
	addSeries(chart, SeriesPageViews, t)
	c.current = chart
	c.created++
	c.revision++
	return chart
}

// AddSeries plots t on the live chart. It reports false when no chart is
// live.
func (c *ChartCanvas) AddSeries(style SeriesStyle, t Timeline) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false
	}
	addSeries(c.current, style, t)
	c.revision++
	return true
}

func addSeries(chart *LineChart, style SeriesStyle, t Timeline) {
	values := t.Values()
	data := make([]opts.LineData, len(values))
	keys := t.Keys()
	for i, v := range values {
		data[i] = opts.LineData{Name: keys[i], Value: v}
	}
	var seriesOpts []charts.SeriesOpts
	if style.Color != "" {
		seriesOpts = append(seriesOpts,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: style.Color}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: style.Color}),
		)
	}
	chart.line.AddSeries(style.Label, data, seriesOpts...)
	chart.series = append(chart.series, ChartSeries{Style: style, Values: values})
}

// Destroy drops the live chart, if any.
func (c *ChartCanvas) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked()
}

func (c *ChartCanvas) destroyLocked() {
	if c.current == nil {
		return
	}
	c.current = nil
	c.destroyed++
	c.revision++
}

// Current returns the live chart or nil.
func (c *ChartCanvas) Current() *LineChart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Revision changes whenever the live chart is replaced, extended or
// destroyed.
func (c *ChartCanvas) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Live returns the number of charts created and not yet destroyed.
func (c *ChartCanvas) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created - c.destroyed
}

// chartPlan records the series a cycle wants plotted. It is applied to the
// session canvas when the cycle commits.
type chartPlan struct {
	base   Timeline
	series []plannedSeries
}

type plannedSeries struct {
	style    SeriesStyle
	timeline Timeline
}

func (p *chartPlan) add(style SeriesStyle, t Timeline) {
	if p == nil {
		return
	}
	p.series = append(p.series, plannedSeries{style: style, timeline: t})
}

func (p *chartPlan) apply(canvas *ChartCanvas) {
	canvas.Render(p.base)
	for _, s := range p.series {
		canvas.AddSeries(s.style, s.timeline)
	}
}
