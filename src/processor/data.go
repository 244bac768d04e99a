package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"

	"AirQualityReport/src/schema"
	"AirQualityReport/src/utils"
)

// Summary 清洗后数据集的整体指标，用于报告开头
type Summary struct {
	Readings   int
	Stations   []string
	FirstDate  string
	LastDate   string
	Metric     string
	MetricMean float64
}

// Summarize 计算整体指标；空表返回零值和 NaN 均值
func Summarize(df dataframe.DataFrame, metric string) Summary {
	s := Summary{Readings: df.Nrow(), Metric: metric, MetricMean: math.NaN()}

	for _, c := range ValueCounts(df, schema.Station) {
		s.Stations = append(s.Stations, c.Name)
	}

	if utils.HasColumn(df, schema.Date) {
		// date 格式固定，字符串比较即时间先后
		for _, d := range df.Col(schema.Date).Records() {
			if s.FirstDate == "" || d < s.FirstDate {
				s.FirstDate = d
			}
			if d > s.LastDate {
				s.LastDate = d
			}
		}
	}

	if utils.HasColumn(df, metric) {
		var xs []float64
		for _, v := range df.Col(metric).Float() {
			if !math.IsNaN(v) {
				xs = append(xs, v)
			}
		}
		if len(xs) > 0 {
			s.MetricMean, _ = meanStd(xs)
		}
	}
	return s
}
