package utils

import (
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回 df 中缺少的列
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	have := df.Names()
	for _, n := range names {
		if !Contains(have, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// SelectRows 按行号取子集，保持给定顺序；每列保留原类型和缺失标记
func SelectRows(df dataframe.DataFrame, idx []int) dataframe.DataFrame {
	if df.Ncol() == 0 {
		return df
	}
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, df.Col(name).Subset(idx))
	}
	return dataframe.New(cols...)
}

// Head 返回前 n 行
func Head(df dataframe.DataFrame, n int) dataframe.DataFrame {
	return SelectRows(df, rowRange(0, min(n, df.Nrow())))
}

// Tail 返回后 n 行
func Tail(df dataframe.DataFrame, n int) dataframe.DataFrame {
	start := max(df.Nrow()-n, 0)
	return SelectRows(df, rowRange(start, df.Nrow()))
}

func rowRange(from, to int) []int {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}

// CellKeys 把一列转成可比较的字符串，缺失值统一为 "NaN"。
// 浮点数使用最短精确表示，避免 gota 默认 "%f" 格式丢失精度
func CellKeys(s series.Series) []string {
	keys := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			keys[i] = "NaN"
			continue
		}
		switch s.Type() {
		case series.Float:
			keys[i] = strconv.FormatFloat(e.Float(), 'g', -1, 64)
		default:
			keys[i] = e.String()
		}
	}
	return keys
}

// MissingCount 统计一列中的缺失值个数
func MissingCount(s series.Series) int {
	n := 0
	for _, na := range s.IsNaN() {
		if na {
			n++
		}
	}
	return n
}
