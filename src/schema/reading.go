package schema

import "github.com/go-gota/gota/series"

// Strategy 缺失值填充策略
type Strategy int

const (
	NoImputation   Strategy = iota // 不填充（必填列）
	ModeImputation                 // 使用整列众数填充
)

func (s Strategy) String() string {
	switch s {
	case ModeImputation:
		return "mode"
	default:
		return "none"
	}
}

// Column 描述一列的名称、类型以及是否允许缺失
type Column struct {
	Name     string
	Type     series.Type
	Nullable bool
	Impute   Strategy
}

// 列名常量
const (
	No      = "No"
	Year    = "year"
	Month   = "month"
	Day     = "day"
	Hour    = "hour"
	PM25    = "PM2.5"
	PM10    = "PM10"
	SO2     = "SO2"
	NO2     = "NO2"
	CO      = "CO"
	O3      = "O3"
	Temp    = "TEMP"
	Pres    = "PRES"
	Dewp    = "DEWP"
	Rain    = "RAIN"
	WindDir = "wd"
	WSPM    = "WSPM"
	Station = "station"

	// 清洗后派生的列
	Date    = "date"
	Weekday = "weekday"
)

// DateLayout date 列的字符串格式
const DateLayout = "2006-01-02 15:04:05"

func measurement(name string) Column {
	return Column{Name: name, Type: series.Float, Nullable: true, Impute: ModeImputation}
}

// Readings PRSA 站点小时数据的列定义，顺序与源文件表头一致
var Readings = []Column{
	{Name: No, Type: series.Int},
	{Name: Year, Type: series.Int},
	{Name: Month, Type: series.Int},
	{Name: Day, Type: series.Int},
	{Name: Hour, Type: series.Int},
	measurement(PM25),
	measurement(PM10),
	measurement(SO2),
	measurement(NO2),
	measurement(CO),
	measurement(O3),
	measurement(Temp),
	measurement(Pres),
	measurement(Dewp),
	measurement(Rain),
	{Name: WindDir, Type: series.String, Nullable: true, Impute: ModeImputation},
	measurement(WSPM),
	{Name: Station, Type: series.String},
}

// CalendarColumns 构造 date 所需的列
var CalendarColumns = []string{Year, Month, Day, Hour}

// Names 返回列名列表
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Types 返回 gota 读取时使用的列类型映射
func Types(cols []Column) map[string]series.Type {
	types := make(map[string]series.Type, len(cols))
	for _, c := range cols {
		types[c.Name] = c.Type
	}
	return types
}

// Nullable 返回声明了填充策略的列
func Nullable(cols []Column) []Column {
	var out []Column
	for _, c := range cols {
		if c.Nullable && c.Impute != NoImputation {
			out = append(out, c)
		}
	}
	return out
}

// Lookup 按列名查找列定义
func Lookup(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
