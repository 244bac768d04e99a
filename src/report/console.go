package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/mattn/go-runewidth"

	"AirQualityReport/src/utils"
)

// ConsoleSink 以纯文本输出报告，表格完整打印所有行和列
type ConsoleSink struct {
	w io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) Section(title string) error {
	bar := strings.Repeat("=", runewidth.StringWidth(title)+8)
	_, err := fmt.Fprintf(c.w, "\n%s\n==  %s  ==\n%s\n", bar, title, bar)
	return err
}

func (c *ConsoleSink) Text(title, body string) error {
	_, err := fmt.Fprintf(c.w, "\n%s:\n%s\n", title, strings.TrimRight(body, "\n"))
	return err
}

func (c *ConsoleSink) Table(title string, df dataframe.DataFrame) error {
	_, err := fmt.Fprintf(c.w, "\n%s:\n%s", title, formatTable(df))
	return err
}

func (c *ConsoleSink) Image(title, name string, _ []byte) error {
	_, err := fmt.Fprintf(c.w, "\n[chart] %s -> %s\n", title, name)
	return err
}

func (c *ConsoleSink) Interactive(title, name string, _ []byte) error {
	_, err := fmt.Fprintf(c.w, "\n[interactive] %s -> %s\n", title, name)
	return err
}

func (c *ConsoleSink) Close() error { return nil }

// formatTable 打印表头、类型行和全部数据行；数值列右对齐
func formatTable(df dataframe.DataFrame) string {
	names := df.Names()
	types := df.Types()
	cells := make([][]string, len(names))
	widths := make([]int, len(names))
	for i, name := range names {
		cells[i] = utils.CellKeys(df.Col(name))
		widths[i] = max(runewidth.StringWidth(name), len(typeTag(types[i])))
		for _, v := range cells[i] {
			widths[i] = max(widths[i], runewidth.StringWidth(v))
		}
	}
	// 行号列
	idxWidth := len(fmt.Sprint(df.Nrow()))

	var b strings.Builder
	line := func(idx string, vals func(i int) string) {
		b.WriteString(runewidth.FillLeft(idx, idxWidth))
		for i := range names {
			b.WriteString("  ")
			v := vals(i)
			if types[i] == series.Int || types[i] == series.Float {
				b.WriteString(runewidth.FillLeft(v, widths[i]))
			} else {
				b.WriteString(runewidth.FillRight(v, widths[i]))
			}
		}
		b.WriteString("\n")
	}

	line("", func(i int) string { return names[i] })
	for r := 0; r < df.Nrow(); r++ {
		line(fmt.Sprint(r), func(i int) string { return cells[i][r] })
	}
	line("", func(i int) string { return typeTag(types[i]) })
	fmt.Fprintf(&b, "[%d rows x %d columns]\n", df.Nrow(), df.Ncol())
	return b.String()
}

func typeTag(t series.Type) string {
	return "<" + string(t) + ">"
}
