package processor

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"AirQualityReport/src/schema"
	"AirQualityReport/src/utils"
)

// AggregateRow 一个分组的统计结果
type AggregateRow struct {
	Key     string  // 分组值
	Label   string  // 展示用名称，通常与 Key 相同
	Numeric bool    // Key 是否为数值
	KeyNum  float64 // Numeric 为 true 时有效
	Count   int     // 参与计算的非缺失样本数
	Mean    float64
	Std     float64 // 样本标准差（n-1），单样本为 NaN
}

// AggregateTable 按某一维度分组后的均值/标准差表，行按分组值升序排列
type AggregateTable struct {
	Dimension string
	Metric    string
	Rows      []AggregateRow
}

func (t *AggregateTable) Len() int { return len(t.Rows) }

// Find 按分组值查找
func (t *AggregateTable) Find(key string) (AggregateRow, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return AggregateRow{}, false
}

// DataFrame 转换为展示用的表：<dimension>, mean, std
func (t *AggregateTable) DataFrame() dataframe.DataFrame {
	labels := make([]string, len(t.Rows))
	means := make([]string, len(t.Rows))
	stds := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		labels[i] = r.Label
		means[i] = formatStat(r.Mean)
		stds[i] = formatStat(r.Std)
	}
	return dataframe.New(
		series.New(labels, series.String, t.Dimension),
		series.New(means, series.Float, "mean"),
		series.New(stds, series.Float, "std"),
	)
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Aggregate 按 by 列分组，计算 metric 的均值和样本标准差，忽略 metric 缺失的行。
// 结果按分组值升序：数值列按数值，其余按字符串
func Aggregate(df dataframe.DataFrame, by, metric string) (*AggregateTable, error) {
	for _, name := range []string{by, metric} {
		if !utils.HasColumn(df, name) {
			return nil, &schema.SchemaError{Column: name, Reason: "is missing"}
		}
	}

	keyCol := df.Col(by)
	keys := utils.CellKeys(keyCol)
	values := df.Col(metric).Float()
	numeric := keyCol.Type() == series.Int || keyCol.Type() == series.Float

	index := make(map[string]int)
	var groups [][]float64
	table := &AggregateTable{Dimension: by, Metric: metric}

	for i, k := range keys {
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
			row := AggregateRow{Key: k, Label: k}
			if numeric && !keyCol.Elem(i).IsNA() {
				row.Numeric = true
				row.KeyNum = keyCol.Elem(i).Float()
			}
			table.Rows = append(table.Rows, row)
		}
		if !math.IsNaN(values[i]) {
			groups[g] = append(groups[g], values[i])
		}
	}

	for g, xs := range groups {
		r := &table.Rows[g]
		r.Count = len(xs)
		r.Mean, r.Std = meanStd(xs)
	}
	sortRows(table.Rows)
	return table, nil
}

// sortRows 数值分组按数值升序，缺失分组排在最后，字符串分组按字典序
func sortRows(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Numeric && b.Numeric:
			return a.KeyNum < b.KeyNum
		case a.Numeric != b.Numeric:
			return a.Numeric
		default:
			return a.Key < b.Key
		}
	})
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(xs) == 1 {
		return xs[0], math.NaN()
	}
	return stat.MeanStdDev(xs, nil)
}

// WeekdayNames 周一为 0
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// LabelWeekdays 把 weekday 分组的 0-6 编码替换为英文名称
func LabelWeekdays(t *AggregateTable) *AggregateTable {
	for i := range t.Rows {
		r := &t.Rows[i]
		if n, err := strconv.Atoi(r.Key); err == nil && n >= 0 && n < len(WeekdayNames) {
			r.Label = WeekdayNames[n]
		}
	}
	return t
}

// ChartKind 图表类型
type ChartKind int

const (
	BarChart ChartKind = iota
	LineChart
)

// Axis 一个固定的统计维度
type Axis struct {
	Column string
	Title  string // 图表标题中的维度名，如 "station"
	Label  string // 坐标轴名称，如 "Station"
	Kind   ChartKind
}

// Axes 报告需要的七个维度，顺序即报告顺序
func Axes() []Axis {
	return []Axis{
		{Column: schema.Station, Title: "station", Label: "Station", Kind: BarChart},
		{Column: schema.Year, Title: "year", Label: "Year", Kind: LineChart},
		{Column: schema.Month, Title: "month", Label: "Month", Kind: BarChart},
		{Column: schema.Day, Title: "day", Label: "Day", Kind: BarChart},
		{Column: schema.Hour, Title: "hour", Label: "Hour", Kind: BarChart},
		{Column: schema.Weekday, Title: "weekday", Label: "Weekday", Kind: BarChart},
		{Column: schema.WindDir, Title: "wind direction", Label: "Wind Direction", Kind: BarChart},
	}
}

// AxisResult 一个维度的统计表
type AxisResult struct {
	Axis  Axis
	Table *AggregateTable
}

// AggregateAll 对所有固定维度做统计，weekday 维度已替换为名称
func AggregateAll(df dataframe.DataFrame, metric string) ([]AxisResult, error) {
	axes := Axes()
	out := make([]AxisResult, 0, len(axes))
	for _, a := range axes {
		t, err := Aggregate(df, a.Column, metric)
		if err != nil {
			return nil, err
		}
		if a.Column == schema.Weekday {
			LabelWeekdays(t)
		}
		out = append(out, AxisResult{Axis: a, Table: t})
	}
	return out, nil
}
