package report

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"AirQualityReport/src/datasource/file"
	"AirQualityReport/src/processor"
	"AirQualityReport/src/schema"
	"AirQualityReport/src/utils"
)

var printer = message.NewPrinter(language.English)

// 取值分布只展示前 topValues 个
const topValues = 10

// Options 报告参数
type Options struct {
	Metric      string
	PreviewRows int
	Chart       ChartSize
	Step        string // 交互折线图粒度：hour 或 day
}

// Input 一次运行的全部结果
type Input struct {
	ReportID string
	Files    []file.FileInfo
	Raw      dataframe.DataFrame // 合并后、清洗前
	Cleaned  dataframe.DataFrame
	Clean    *processor.CleanReport
	Results  []processor.AxisResult
}

type Reporter struct {
	sink   Sink
	opts   Options
	logger *slog.Logger
}

func New(sink Sink, opts Options, logger *slog.Logger) *Reporter {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.Step == "" {
		opts.Step = StepHour
	}
	return &Reporter{sink: sink, opts: opts, logger: logger}
}

// Render 按固定叙述顺序输出报告。第一次写入失败后停止输出并返回该错误
func (r *Reporter) Render(in Input) error {
	n := &narrative{sink: r.sink}

	r.header(n, in)
	r.gathering(n, in)
	r.assessment(n, in)
	r.cleaning(n, in)
	r.questionOne(n, in)
	r.questionTwo(n, in)

	n.section("Conclusions")
	n.text("Findings", strings.Join(Conclusions(in.Results, r.opts.Metric), "\n"))
	return n.err
}

func (r *Reporter) header(n *narrative, in Input) {
	s := processor.Summarize(in.Cleaned, r.opts.Metric)
	var b strings.Builder
	fmt.Fprintf(&b, "Report ID: %s\n", in.ReportID)
	printer.Fprintf(&b, "Readings: %d\n", s.Readings)
	fmt.Fprintf(&b, "Stations (%d): %s\n", len(s.Stations), strings.Join(s.Stations, ", "))
	if s.FirstDate != "" {
		fmt.Fprintf(&b, "Period: %s to %s\n", s.FirstDate, s.LastDate)
	}
	fmt.Fprintf(&b, "Mean %s: %s\n", s.Metric, formatMean(s.MetricMean))

	n.section("Air quality across monitoring stations")
	n.text("Summary", b.String())
}

func (r *Reporter) gathering(n *narrative, in Input) {
	n.section("Gathering data")
	if len(in.Files) == 0 {
		n.text("Files", "No input files matched; the report below is empty.")
	} else {
		var b strings.Builder
		total := 0
		for _, f := range in.Files {
			printer.Fprintf(&b, "%s: %d rows\n", f.Name, f.Rows)
			total += f.Rows
		}
		printer.Fprintf(&b, "%d files, %d rows in total\n", len(in.Files), total)
		n.text("Files", b.String())
	}
	n.table(fmt.Sprintf("First %d rows", r.opts.PreviewRows), utils.Head(in.Raw, r.opts.PreviewRows))
	n.table(fmt.Sprintf("Last %d rows", r.opts.PreviewRows), utils.Tail(in.Raw, r.opts.PreviewRows))
}

func (r *Reporter) assessment(n *narrative, in Input) {
	n.section("Assessing data")
	n.text("Info", processor.Info(in.Raw))
	n.table("Missing values per column", processor.CountsFrame(processor.MissingCounts(in.Raw), "column", "missing"))
	n.text("Duplicated rows", printer.Sprintf("%d", processor.DuplicateCount(in.Raw)))
	n.table("Descriptive statistics", processor.Describe(in.Raw))
}

func (r *Reporter) cleaning(n *narrative, in Input) {
	metric := r.opts.Metric
	rep := in.Clean
	if rep == nil {
		rep = &processor.CleanReport{}
	}

	// 缺失和取值统计基于去重后的表
	deduped := in.Raw
	if rep.Deduplicated.Ncol() > 0 {
		deduped = rep.Deduplicated
	}

	n.section("Cleaning data")
	n.text("Duplicates dropped", printer.Sprintf("%d", rep.Duplicates))

	missing := processor.RowsWithMissing(deduped, metric)
	n.text(fmt.Sprintf("Rows with missing %s", metric), printer.Sprintf("%d", missing.Nrow()))
	n.table(fmt.Sprintf("Rows with missing %s (first %d)", metric, r.opts.PreviewRows), utils.Head(missing, r.opts.PreviewRows))

	n.table("Readings per station", processor.CountsFrame(processor.ValueCounts(in.Cleaned, schema.Station), schema.Station, "count"))

	counts := processor.ValueCounts(deduped, metric)
	if len(counts) > topValues {
		counts = counts[:topValues]
	}
	n.table(fmt.Sprintf("Most common %s values", metric), processor.CountsFrame(counts, metric, "count"))
	if v, ok := processor.MostFrequent(deduped, metric); ok {
		n.text(fmt.Sprintf("Most frequent %s value", metric), v)
	} else {
		n.text(fmt.Sprintf("Most frequent %s value", metric), "none (no readings)")
	}

	cols := "none"
	if len(rep.ColumnsMissing) > 0 {
		cols = strings.Join(rep.ColumnsMissing, ", ")
	}
	n.text("Columns with missing values", cols)
	n.table("Missing values before imputation", processor.CountsFrame(rep.MissingBefore, "column", "missing"))
	n.table("Imputed values", imputationFrame(rep.Imputations))
	if len(rep.Unfilled) > 0 {
		n.text("Columns left unfilled", strings.Join(rep.Unfilled, ", ")+" (no non-missing value to take the mode from)")
	}
	n.table("Missing values after imputation", processor.CountsFrame(rep.MissingAfter, "column", "missing"))
	n.table(fmt.Sprintf("First %d rows with date and weekday", r.opts.PreviewRows), utils.Head(in.Cleaned, r.opts.PreviewRows))
}

func imputationFrame(imps []processor.Imputation) dataframe.DataFrame {
	cols := make([]string, len(imps))
	vals := make([]string, len(imps))
	filled := make([]int, len(imps))
	for i, imp := range imps {
		cols[i] = imp.Column
		vals[i] = imp.Value
		filled[i] = imp.Filled
	}
	return dataframe.New(
		series.New(cols, series.String, "column"),
		series.New(vals, series.String, "value"),
		series.New(filled, series.Int, "filled"),
	)
}

func (r *Reporter) questionOne(n *narrative, in Input) {
	n.section("Question 1: how does air quality compare across stations?")
	for _, res := range in.Results {
		if res.Axis.Column == schema.Station {
			r.axis(n, res)
		}
	}

	title := fmt.Sprintf("%s over time by station", r.opts.Metric)
	lines, err := BuildSeries(in.Cleaned, r.opts.Metric, r.opts.Step)
	if err != nil {
		n.fail(err)
		return
	}
	html, err := TimeSeriesChart(lines, title, r.opts.Metric)
	switch {
	case errors.Is(err, ErrNoData):
		n.text(title, "No readings to plot.")
	case err != nil:
		n.fail(fmt.Errorf("渲染时间序列失败: %w", err))
	default:
		n.interactive(title, TimeSeriesFile, html)
	}
}

func (r *Reporter) questionTwo(n *narrative, in Input) {
	n.section("Question 2: how does air quality change over time?")
	for _, res := range in.Results {
		if res.Axis.Column != schema.Station {
			r.axis(n, res)
		}
	}
}

// axis 输出一个维度的统计表和图表；没有数据时用文字说明代替图表
func (r *Reporter) axis(n *narrative, res processor.AxisResult) {
	title := fmt.Sprintf("Mean %s by %s", r.opts.Metric, res.Axis.Title)
	n.table(title, res.Table.DataFrame())

	var png []byte
	var err error
	switch res.Axis.Kind {
	case processor.LineChart:
		png, err = LineChart(res.Table, title, res.Axis.Label, r.opts.Chart)
	default:
		png, err = BarChart(res.Table, title, res.Axis.Label, r.opts.Chart)
	}
	switch {
	case errors.Is(err, ErrNoData):
		n.text(title+" (chart)", "No data to plot.")
	case err != nil:
		n.fail(fmt.Errorf("绘制 %s 失败: %w", title, err))
	default:
		n.image(title, chartFileName(r.opts.Metric, res.Axis.Column), png)
		if r.logger != nil {
			r.logger.Debug("chart rendered", "axis", res.Axis.Column, "bytes", len(png))
		}
	}
}

func formatMean(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// narrative 记录第一次失败，之后的写入全部跳过
type narrative struct {
	sink Sink
	err  error
}

func (n *narrative) fail(err error) {
	if n.err == nil {
		n.err = err
	}
}

func (n *narrative) section(title string) {
	if n.err == nil {
		n.err = n.sink.Section(title)
	}
}

func (n *narrative) text(title, body string) {
	if n.err == nil {
		n.err = n.sink.Text(title, body)
	}
}

func (n *narrative) table(title string, df dataframe.DataFrame) {
	if n.err != nil {
		return
	}
	if df.Err != nil {
		n.err = fmt.Errorf("%s: %w", title, df.Err)
		return
	}
	n.err = n.sink.Table(title, df)
}

func (n *narrative) image(title, name string, png []byte) {
	if n.err == nil {
		n.err = n.sink.Image(title, name, png)
	}
}

func (n *narrative) interactive(title, name string, html []byte) {
	if n.err == nil {
		n.err = n.sink.Interactive(title, name, html)
	}
}
