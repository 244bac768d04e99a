package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	chartsSheet  = "Charts"
	// Excel 工作表名最长 31 个字符
	maxSheetName = 31
	// 每张图在 Charts 表中占用的行数
	chartRows = 22
)

// ExcelSink 把报告写成工作簿：文字写在 Summary 表，每个表格一张工作表，图表嵌入 Charts 表
type ExcelSink struct {
	path     string
	f        *excelize.File
	bold     int
	row      int // Summary 表下一行
	chartRow int // Charts 表下一行
	sheets   map[string]bool
}

func NewExcelSink(path string) (*ExcelSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 40); err != nil {
		f.Close()
		return nil, err
	}
	return &ExcelSink{
		path:     path,
		f:        f,
		bold:     bold,
		row:      1,
		chartRow: 1,
		sheets:   map[string]bool{strings.ToLower(summarySheet): true},
	}, nil
}

func (x *ExcelSink) Section(title string) error {
	if x.row > 1 {
		x.row++
	}
	return x.summaryLine(title, "", true)
}

func (x *ExcelSink) Text(title, body string) error {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if err := x.summaryLine(title, lines[0], false); err != nil {
		return err
	}
	for _, l := range lines[1:] {
		if err := x.summaryLine("", l, false); err != nil {
			return err
		}
	}
	return nil
}

func (x *ExcelSink) summaryLine(a, b string, bold bool) error {
	cell, _ := excelize.CoordinatesToCellName(1, x.row)
	if err := x.f.SetSheetRow(summarySheet, cell, &[]interface{}{a, b}); err != nil {
		return err
	}
	if bold {
		if err := x.f.SetCellStyle(summarySheet, cell, cell, x.bold); err != nil {
			return err
		}
	}
	x.row++
	return nil
}

// Table 每个表格一张工作表，数值列写成数字，缺失值留空
func (x *ExcelSink) Table(title string, df dataframe.DataFrame) error {
	sheet := x.sheetName(title)
	if _, err := x.f.NewSheet(sheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, df.Ncol())
	for _, name := range df.Names() {
		header = append(header, name)
	}
	if err := x.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if df.Ncol() > 0 {
		if err := x.f.SetCellStyle(sheet, "A1", cellName(df.Ncol(), 1), x.bold); err != nil {
			return err
		}
	}

	cols := make([]series.Series, df.Ncol())
	for i, name := range df.Names() {
		cols[i] = df.Col(name)
	}
	for r := 0; r < df.Nrow(); r++ {
		row := make([]interface{}, len(cols))
		for c, s := range cols {
			row[c] = cellValue(s, r)
		}
		if err := x.f.SetSheetRow(sheet, cellName(1, r+2), &row); err != nil {
			return err
		}
	}

	return x.summaryLine(title, "see sheet "+sheet, false)
}

func cellValue(s series.Series, i int) interface{} {
	e := s.Elem(i)
	if e.IsNA() {
		return nil
	}
	switch s.Type() {
	case series.Int:
		v, err := e.Int()
		if err != nil {
			return e.String()
		}
		return v
	case series.Float:
		return e.Float()
	default:
		return e.String()
	}
}

func (x *ExcelSink) Image(title, name string, png []byte) error {
	if x.chartRow == 1 {
		if _, err := x.f.NewSheet(chartsSheet); err != nil {
			return err
		}
		x.sheets[strings.ToLower(chartsSheet)] = true
	}
	titleCell := cellName(1, x.chartRow)
	if err := x.f.SetCellValue(chartsSheet, titleCell, title); err != nil {
		return err
	}
	if err := x.f.SetCellStyle(chartsSheet, titleCell, titleCell, x.bold); err != nil {
		return err
	}
	err := x.f.AddPictureFromBytes(chartsSheet, cellName(1, x.chartRow+1), &excelize.Picture{
		Extension: filepath.Ext(name),
		File:      png,
		Format: &excelize.GraphicOptions{
			AltText: title,
			ScaleX:  0.6,
			ScaleY:  0.6,
		},
	})
	if err != nil {
		return fmt.Errorf("嵌入图表 %s 失败: %w", name, err)
	}
	x.chartRow += chartRows
	return nil
}

// Interactive 工作簿无法嵌入 HTML 图表，只记录文件名
func (x *ExcelSink) Interactive(title, name string, _ []byte) error {
	return x.summaryLine(title, "see "+name, false)
}

func (x *ExcelSink) Close() error {
	defer x.f.Close()
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// sheetName 去掉 Excel 不允许的字符，截断到 31 个字符，重名时加序号
func (x *ExcelSink) sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(truncate(name, maxSheetName), "' ")
	if name == "" {
		name = "Table"
	}

	base := name
	for i := 2; x.sheets[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	x.sheets[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}
