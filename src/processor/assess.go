package processor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"AirQualityReport/src/utils"
)

var printer = message.NewPrinter(language.English)

// ColumnCount 列名与计数
type ColumnCount struct {
	Name  string
	Count int
}

// MissingCounts 每列缺失值个数，顺序与列顺序一致
func MissingCounts(df dataframe.DataFrame) []ColumnCount {
	out := make([]ColumnCount, 0, df.Ncol())
	for _, name := range df.Names() {
		out = append(out, ColumnCount{Name: name, Count: utils.MissingCount(df.Col(name))})
	}
	return out
}

// ColumnsWithMissing 含缺失值的列
func ColumnsWithMissing(counts []ColumnCount) []string {
	var names []string
	for _, c := range counts {
		if c.Count > 0 {
			names = append(names, c.Name)
		}
	}
	return names
}

// CountsFrame 把计数转换成两列的表
func CountsFrame(counts []ColumnCount, keyName, countName string) dataframe.DataFrame {
	keys := make([]string, len(counts))
	vals := make([]int, len(counts))
	for i, c := range counts {
		keys[i] = c.Name
		vals[i] = c.Count
	}
	return dataframe.New(
		series.New(keys, series.String, keyName),
		series.New(vals, series.Int, countName),
	)
}

// DuplicateCount 与前面某行完全相同的行数
func DuplicateCount(df dataframe.DataFrame) int {
	_, n := Deduplicate(df)
	return n
}

// RowsWithMissing 指定列缺失的行
func RowsWithMissing(df dataframe.DataFrame, col string) dataframe.DataFrame {
	if !utils.HasColumn(df, col) {
		return df
	}
	var idx []int
	for i, na := range df.Col(col).IsNaN() {
		if na {
			idx = append(idx, i)
		}
	}
	return utils.SelectRows(df, idx)
}

// ValueCounts 统计各取值出现次数，按次数降序，次数相同按第一次出现的顺序
func ValueCounts(df dataframe.DataFrame, col string) []ColumnCount {
	if !utils.HasColumn(df, col) {
		return nil
	}
	s := df.Col(col)
	keys := utils.CellKeys(s)
	index := make(map[string]int)
	var out []ColumnCount
	for i, k := range keys {
		if s.Elem(i).IsNA() {
			continue
		}
		j, ok := index[k]
		if !ok {
			j = len(out)
			index[k] = j
			out = append(out, ColumnCount{Name: k})
		}
		out[j].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// MostFrequent 列中出现次数最多的非缺失值
func MostFrequent(df dataframe.DataFrame, col string) (string, bool) {
	if !utils.HasColumn(df, col) {
		return "", false
	}
	s := df.Col(col)
	at, ok := ModeIndex(s)
	if !ok {
		return "", false
	}
	return utils.CellKeys(s.Subset([]int{at}))[0], true
}

// Info 类似 pandas DataFrame.info 的文字摘要
func Info(df dataframe.DataFrame) string {
	var b strings.Builder
	n := df.Nrow()
	b.WriteString("<DataFrame>\n")
	if n == 0 {
		b.WriteString("Index: 0 entries\n")
	} else {
		printer.Fprintf(&b, "RangeIndex: %d entries, 0 to %d\n", n, n-1)
	}
	printer.Fprintf(&b, "Data columns (total %d columns):\n", df.Ncol())

	width := len("Column")
	for _, name := range df.Names() {
		width = max(width, len(name))
	}
	fmt.Fprintf(&b, " %-3s %-*s %-16s %s\n", "#", width, "Column", "Non-Null Count", "Dtype")
	fmt.Fprintf(&b, " %-3s %-*s %-16s %s\n", "---", width, "------", "--------------", "-----")
	types := df.Types()
	for i, name := range df.Names() {
		nonNull := n - utils.MissingCount(df.Col(name))
		fmt.Fprintf(&b, " %-3d %-*s %-16s %s\n", i, width, name, printer.Sprintf("%d non-null", nonNull), dtype(types[i]))
	}
	fmt.Fprintf(&b, "dtypes: %s\n", dtypeSummary(types))
	return b.String()
}

func dtype(t series.Type) string {
	switch t {
	case series.Int:
		return "int64"
	case series.Float:
		return "float64"
	case series.Bool:
		return "bool"
	default:
		return "object"
	}
}

func dtypeSummary(types []series.Type) string {
	counts := make(map[string]int)
	var order []string
	for _, t := range types {
		d := dtype(t)
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}
	sort.Strings(order)
	parts := make([]string, len(order))
	for i, d := range order {
		parts[i] = d + "(" + strconv.Itoa(counts[d]) + ")"
	}
	return strings.Join(parts, ", ")
}

var describeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe 数值列的描述统计：count, mean, std, min, 四分位数, max
func Describe(df dataframe.DataFrame) dataframe.DataFrame {
	cols := []series.Series{series.New(describeStats, series.String, "stat")}
	for i, name := range df.Names() {
		t := df.Types()[i]
		if t != series.Int && t != series.Float {
			continue
		}
		cols = append(cols, series.New(describeColumn(df.Col(name)), series.Float, name))
	}
	return dataframe.New(cols...)
}

func describeColumn(s series.Series) []string {
	var xs []float64
	for _, v := range s.Float() {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}
	out := make([]string, len(describeStats))
	out[0] = strconv.Itoa(len(xs))
	if len(xs) == 0 {
		for i := 1; i < len(out); i++ {
			out[i] = "NaN"
		}
		return out
	}
	sort.Float64s(xs)
	_, std := meanStd(xs)
	vals := []float64{
		stat.Mean(xs, nil),
		std,
		floats.Min(xs),
		quantile(xs, 0.25),
		quantile(xs, 0.5),
		quantile(xs, 0.75),
		floats.Max(xs),
	}
	for i, v := range vals {
		out[i+1] = formatStat(v)
	}
	return out
}

// quantile 线性插值分位数，xs 已排序
func quantile(xs []float64, p float64) float64 {
	h := float64(len(xs)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return xs[int(lo)] + (h-lo)*(xs[int(hi)]-xs[int(lo)])
}
