package report

import (
	"fmt"
	"math"

	"AirQualityReport/src/processor"
	"AirQualityReport/src/schema"
)

// Extremes 均值最低（空气最好）和最高的分组；均值为 NaN 的分组不参与比较
func Extremes(t *processor.AggregateTable) (best, worst processor.AggregateRow, ok bool) {
	for _, r := range t.Rows {
		if math.IsNaN(r.Mean) {
			continue
		}
		if !ok {
			best, worst, ok = r, r, true
			continue
		}
		if r.Mean < best.Mean {
			best = r
		}
		if r.Mean > worst.Mean {
			worst = r
		}
	}
	return best, worst, ok
}

var conclusionAxes = []string{schema.Station, schema.Hour, schema.Day, schema.Weekday}

// Conclusions 根据站点、小时、日期和星期的统计结果给出结论
func Conclusions(results []processor.AxisResult, metric string) []string {
	var lines []string
	for _, col := range conclusionAxes {
		for _, res := range results {
			if res.Axis.Column != col {
				continue
			}
			best, worst, ok := Extremes(res.Table)
			if !ok {
				lines = append(lines, fmt.Sprintf("No %s readings to compare by %s.", metric, res.Axis.Title))
				continue
			}
			lines = append(lines, fmt.Sprintf(
				"By %s: the lowest mean %s is at %s %s (%.2f), the highest at %s %s (%.2f).",
				res.Axis.Title, metric,
				res.Axis.Label, best.Label, best.Mean,
				res.Axis.Label, worst.Label, worst.Mean))
		}
	}
	return lines
}
