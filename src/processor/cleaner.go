package processor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"AirQualityReport/src/schema"
	"AirQualityReport/src/utils"
)

var ErrInvalidCalendarValue = errors.New("invalid calendar value")

// CalendarError 某一行的年月日时无法组成合法时间
type CalendarError struct {
	Row                    int
	Year, Month, Day, Hour int
	Reason                 string
}

func (e *CalendarError) Error() string {
	return fmt.Sprintf("row %d: year=%d month=%d day=%d hour=%d: %s",
		e.Row, e.Year, e.Month, e.Day, e.Hour, e.Reason)
}

func (e *CalendarError) Unwrap() error { return ErrInvalidCalendarValue }

// Imputation 记录一列的填充结果
type Imputation struct {
	Column string
	Value  string
	Filled int
}

// CleanReport 清洗过程的统计
type CleanReport struct {
	RowsBefore     int
	RowsAfter      int
	Duplicates     int
	Deduplicated   dataframe.DataFrame // 去重后、填充前的表
	MissingBefore  []ColumnCount
	MissingAfter   []ColumnCount
	Imputations    []Imputation
	Unfilled       []string // 整列缺失，无法求众数
	ColumnsMissing []string // 清洗前含缺失值的列
}

// Clean 依次执行去重、缺失值填充和日期字段派生
func Clean(df dataframe.DataFrame, cols []schema.Column) (dataframe.DataFrame, *CleanReport, error) {
	rep := &CleanReport{RowsBefore: df.Nrow()}

	df, rep.Duplicates = Deduplicate(df)
	rep.Deduplicated = df

	rep.MissingBefore = MissingCounts(df)
	rep.ColumnsMissing = ColumnsWithMissing(rep.MissingBefore)

	df, imputations, err := Impute(df, cols)
	if err != nil {
		return df, rep, err
	}
	rep.Imputations = imputations
	rep.MissingAfter = MissingCounts(df)
	for _, c := range rep.MissingAfter {
		if c.Count > 0 && c.Count == df.Nrow() {
			rep.Unfilled = append(rep.Unfilled, c.Name)
		}
	}

	df, err = DeriveCalendar(df)
	if err != nil {
		return df, rep, err
	}
	rep.RowsAfter = df.Nrow()
	return df, rep, nil
}

// Deduplicate 删除与前面某行完全相同的行，保留第一次出现的行，行的相对顺序不变。
// 返回去重后的表和删除的行数
func Deduplicate(df dataframe.DataFrame) (dataframe.DataFrame, int) {
	if df.Nrow() == 0 {
		return df, 0
	}

	columns := make([][]string, 0, df.Ncol())
	for _, name := range df.Names() {
		columns = append(columns, utils.CellKeys(df.Col(name)))
	}

	seen := make(map[string]struct{}, df.Nrow())
	keep := make([]int, 0, df.Nrow())
	row := make([]string, len(columns))
	for i := 0; i < df.Nrow(); i++ {
		for j, col := range columns {
			row[j] = col[i]
		}
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	dropped := df.Nrow() - len(keep)
	if dropped == 0 {
		return df, 0
	}
	return utils.SelectRows(df, keep), dropped
}

// Impute 对声明的可空列逐列用该列的众数填充缺失值，只看本列，不做插值
func Impute(df dataframe.DataFrame, cols []schema.Column) (dataframe.DataFrame, []Imputation, error) {
	var done []Imputation
	for _, c := range schema.Nullable(cols) {
		if !utils.HasColumn(df, c.Name) {
			return df, done, &schema.SchemaError{Column: c.Name, Reason: "is missing"}
		}
		s := df.Col(c.Name)
		missing := utils.MissingCount(s)
		if missing == 0 {
			continue
		}

		at, ok := ModeIndex(s)
		if !ok {
			// 整列缺失
			continue
		}

		filled, err := fillNA(s, at)
		if err != nil {
			return df, done, fmt.Errorf("impute %s: %w", c.Name, err)
		}
		df = df.Mutate(filled)
		if df.Err != nil {
			return df, done, fmt.Errorf("impute %s: %w", c.Name, df.Err)
		}
		done = append(done, Imputation{Column: c.Name, Value: utils.CellKeys(s.Subset([]int{at}))[0], Filled: missing})
	}
	return df, done, nil
}

// ModeIndex 返回列中出现次数最多的非缺失值第一次出现的位置。
// 次数相同时取先出现的值；没有非缺失值时 ok 为 false
func ModeIndex(s series.Series) (int, bool) {
	keys := utils.CellKeys(s)
	counts := make(map[string]int)
	first := make(map[string]int)
	var order []string
	for i, k := range keys {
		if s.Elem(i).IsNA() {
			continue
		}
		if _, ok := first[k]; !ok {
			first[k] = i
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return 0, false
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best], true
}

// fillNA 用第 at 个元素替换所有缺失值，返回同名同类型的新列
func fillNA(s series.Series, at int) (series.Series, error) {
	mode := s.Elem(at)
	n := s.Len()
	switch s.Type() {
	case series.Float:
		vals := s.Float()
		for i := 0; i < n; i++ {
			if s.Elem(i).IsNA() {
				vals[i] = mode.Float()
			}
		}
		return series.New(vals, series.Float, s.Name), nil
	case series.Int:
		m, err := mode.Int()
		if err != nil {
			return s, err
		}
		vals := make([]int, n)
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				vals[i] = m
				continue
			}
			if vals[i], err = e.Int(); err != nil {
				return s, err
			}
		}
		return series.New(vals, series.Int, s.Name), nil
	default:
		vals := make([]string, n)
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				vals[i] = mode.String()
			} else {
				vals[i] = e.String()
			}
		}
		return series.New(vals, s.Type(), s.Name), nil
	}
}

// DeriveCalendar 由 year/month/day/hour 生成 date 列，并由 date 得到 weekday（周一为 0）
func DeriveCalendar(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if missing := utils.MissingColumns(df, schema.CalendarColumns...); len(missing) > 0 {
		return df, &schema.SchemaError{Column: missing[0], Reason: "is missing"}
	}

	n := df.Nrow()
	dates := make([]string, n)
	weekdays := make([]int, n)
	parts := make([]series.Series, len(schema.CalendarColumns))
	for i, name := range schema.CalendarColumns {
		parts[i] = df.Col(name)
	}

	for i := 0; i < n; i++ {
		var v [4]int
		for j, s := range parts {
			e := s.Elem(i)
			x, err := e.Int()
			if err != nil || e.IsNA() {
				return df, &CalendarError{Row: i, Reason: fmt.Sprintf("%s is missing", schema.CalendarColumns[j])}
			}
			v[j] = x
		}
		t, err := calendarTime(i, v[0], v[1], v[2], v[3])
		if err != nil {
			return df, err
		}
		dates[i] = t.Format(schema.DateLayout)
		weekdays[i] = MondayIndex(t.Weekday())
	}

	df = df.Mutate(series.New(dates, series.String, schema.Date)).
		Mutate(series.New(weekdays, series.Int, schema.Weekday))
	if df.Err != nil {
		return df, fmt.Errorf("derive calendar fields: %w", df.Err)
	}
	return df, nil
}

func calendarTime(row, year, month, day, hour int) (time.Time, error) {
	bad := func(reason string) error {
		return &CalendarError{Row: row, Year: year, Month: month, Day: day, Hour: hour, Reason: reason}
	}
	if month < 1 || month > 12 {
		return time.Time{}, bad("month out of range")
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, bad("hour out of range")
	}
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day < 1 || day > last {
		return time.Time{}, bad("day out of range")
	}
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC), nil
}

// MondayIndex 把 time.Weekday（周日为 0）转换为周一为 0 的序号
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
