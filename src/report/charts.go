package report

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"AirQualityReport/src/processor"
)

// ErrNoData 聚合表中没有可画的数据
var ErrNoData = errors.New("no data to plot")

// ChartSize 图表尺寸，单位英寸
type ChartSize struct {
	Width  float64
	Height float64
}

var barColor = color.RGBA{R: 0x3a, G: 0x6e, B: 0xa5, A: 0xff}

// BarChart 柱状图：分类按表中顺序排列，柱高为均值，不画误差线。
// 均值为 NaN 的分组画成高度 0
func BarChart(t *processor.AggregateTable, title, xLabel string, size ChartSize) ([]byte, error) {
	if t.Len() == 0 {
		return nil, ErrNoData
	}
	values := make(plotter.Values, t.Len())
	labels := make([]string, t.Len())
	valid := 0
	for i, r := range t.Rows {
		labels[i] = r.Label
		if !math.IsNaN(r.Mean) {
			values[i] = r.Mean
			valid++
		}
	}
	if valid == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Mean " + t.Metric

	width := vg.Length(size.Width) * vg.Inch * 0.7 / vg.Length(t.Len())
	bars, err := plotter.NewBarChart(values, width)
	if err != nil {
		return nil, err
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0

	return renderPNG(p, size)
}

// LineChart 折线图：按表中顺序（已按数值升序）连线，x 轴只标整数刻度
func LineChart(t *processor.AggregateTable, title, xLabel string, size ChartSize) ([]byte, error) {
	rows := make([]processor.AggregateRow, 0, t.Len())
	for _, r := range t.Rows {
		if r.Numeric && !math.IsNaN(r.Mean) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	xys := make(plotter.XYs, len(rows))
	for i, r := range rows {
		xys[i].X = r.KeyNum
		xys[i].Y = r.Mean
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Mean " + t.Metric
	p.X.Tick.Marker = integerTicks{}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	line.Color = barColor
	line.Width = vg.Points(2)
	points.Color = barColor
	p.Add(line, points, plotter.NewGrid())

	return renderPNG(p, size)
}

func renderPNG(p *plot.Plot, size ChartSize) ([]byte, error) {
	w, err := p.WriterTo(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// integerTicks 只在整数位置放刻度，刻度过多时按步长抽稀
type integerTicks struct{}

func (integerTicks) Ticks(min, max float64) []plot.Tick {
	lo, hi := math.Ceil(min), math.Floor(max)
	if hi < lo {
		return nil
	}
	step := math.Max(1, math.Ceil((hi-lo)/10))
	var ticks []plot.Tick
	for v := lo; v <= hi; v += step {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	return ticks
}

// chartFileName 例如 mean_pm2_5_by_station.png
func chartFileName(metric, column string) string {
	return "mean_" + slug(metric) + "_by_" + slug(column) + ".png"
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
