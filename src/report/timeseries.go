package report

import (
	"bytes"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-gota/gota/dataframe"

	"AirQualityReport/src/schema"
	"AirQualityReport/src/utils"
)

const (
	StepHour = "hour"
	StepDay  = "day"
)

// TimeSeriesFile 交互折线图的文件名
const TimeSeriesFile = "timeseries.html"

// Point 时间序列上的一个点
type Point struct {
	Date  string
	Value float64
}

// StationSeries 一个站点的时间序列
type StationSeries struct {
	Station string
	Points  []Point
}

// BuildSeries 按站点拆分 metric 的时间序列，跳过缺失值。
// step 为 day 时按日期取均值，否则保留逐小时读数
func BuildSeries(df dataframe.DataFrame, metric, step string) ([]StationSeries, error) {
	for _, col := range []string{schema.Station, schema.Date, metric} {
		if !utils.HasColumn(df, col) {
			return nil, &schema.SchemaError{Column: col, Reason: "is missing"}
		}
	}
	stations := df.Col(schema.Station).Records()
	dates := df.Col(schema.Date).Records()
	values := df.Col(metric).Float()

	index := make(map[string]int)
	var out []StationSeries
	// 按日聚合时的累加器，与 out[i].Points 一一对应
	var sums [][]float64
	var counts [][]int
	dayIndex := make([]map[string]int, 0)

	for i, st := range stations {
		s, ok := index[st]
		if !ok {
			s = len(out)
			index[st] = s
			out = append(out, StationSeries{Station: st})
			sums = append(sums, nil)
			counts = append(counts, nil)
			dayIndex = append(dayIndex, make(map[string]int))
		}
		if math.IsNaN(values[i]) {
			continue
		}
		if step != StepDay {
			out[s].Points = append(out[s].Points, Point{Date: dates[i], Value: values[i]})
			continue
		}
		day := dates[i]
		if len(day) >= len("2006-01-02") {
			day = day[:len("2006-01-02")]
		}
		j, ok := dayIndex[s][day]
		if !ok {
			j = len(out[s].Points)
			dayIndex[s][day] = j
			out[s].Points = append(out[s].Points, Point{Date: day})
			sums[s] = append(sums[s], 0)
			counts[s] = append(counts[s], 0)
		}
		sums[s][j] += values[i]
		counts[s][j]++
	}

	if step == StepDay {
		for s := range out {
			for j := range out[s].Points {
				out[s].Points[j].Value = sums[s][j] / float64(counts[s][j])
			}
		}
	}
	return out, nil
}

// TimeSeriesChart 渲染 go-echarts 交互折线图：每个站点一条线，支持缩放、平移和悬停提示
func TimeSeriesChart(series []StationSeries, title, metric string) ([]byte, error) {
	points := 0
	for _, s := range series {
		points += len(s.Points)
	}
	if points == 0 {
		return nil, ErrNoData
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1100px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: metric}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", Start: 0, End: 100},
			opts.DataZoom{Type: "slider", Start: 0, End: 100},
		),
	)
	for _, s := range series {
		data := make([]opts.LineData, len(s.Points))
		for i, p := range s.Points {
			data[i] = opts.LineData{Value: []interface{}{p.Date, p.Value}}
		}
		line.AddSeries(s.Station, data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
