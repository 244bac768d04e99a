package report

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"AirQualityReport/src/datasource/file"
	"AirQualityReport/src/processor"
	"AirQualityReport/src/schema"
)

var testColumns = []schema.Column{
	{Name: schema.Year, Type: series.Int},
	{Name: schema.Month, Type: series.Int},
	{Name: schema.Day, Type: series.Int},
	{Name: schema.Hour, Type: series.Int},
	{Name: schema.PM25, Type: series.Float, Nullable: true, Impute: schema.ModeImputation},
	{Name: schema.WindDir, Type: series.String, Nullable: true, Impute: schema.ModeImputation},
	{Name: schema.Station, Type: series.String},
}

func fixture(t *testing.T, rows ...[]string) dataframe.DataFrame {
	t.Helper()
	records := append([][]string{{"year", "month", "day", "hour", "PM2.5", "wd", "station"}}, rows...)
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(schema.Types(testColumns)),
		dataframe.NaNValues(file.NaNValues),
	)
	if df.Err != nil {
		t.Fatalf("LoadRecords: %v", df.Err)
	}
	return df
}

func sampleRows() [][]string {
	return [][]string{
		{"2013", "3", "1", "0", "10", "N", "Aotizhongxin"},
		{"2013", "3", "1", "1", "20", "N", "Aotizhongxin"},
		{"2013", "3", "2", "0", "30", "E", "Aotizhongxin"},
		{"2014", "3", "1", "0", "40", "E", "Dingling"},
		{"2014", "3", "1", "1", "NA", "", "Dingling"},
		{"2014", "3", "1", "1", "NA", "", "Dingling"},
	}
}

func runPipeline(t *testing.T, raw dataframe.DataFrame) Input {
	t.Helper()
	cleaned, rep, err := processor.Clean(raw, testColumns)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	results, err := processor.AggregateAll(cleaned, schema.PM25)
	if err != nil {
		t.Fatalf("AggregateAll: %v", err)
	}
	return Input{
		ReportID: "test-report",
		Files:    []file.FileInfo{{Name: "PRSA_test.csv", Rows: raw.Nrow()}},
		Raw:      raw,
		Cleaned:  cleaned,
		Clean:    rep,
		Results:  results,
	}
}

var testOptions = Options{
	Metric:      schema.PM25,
	PreviewRows: 3,
	Chart:       ChartSize{Width: 6, Height: 4},
	Step:        StepHour,
}

// recordSink 记录调用顺序和文字内容
type recordSink struct {
	events []string
	texts  map[string]string
	closed bool
}

func (r *recordSink) Section(title string) error {
	r.events = append(r.events, "section:"+title)
	return nil
}

func (r *recordSink) Text(title, body string) error {
	r.events = append(r.events, "text:"+title)
	if r.texts == nil {
		r.texts = make(map[string]string)
	}
	r.texts[title] = body
	return nil
}

func (r *recordSink) Table(title string, _ dataframe.DataFrame) error {
	r.events = append(r.events, "table:"+title)
	return nil
}

func (r *recordSink) Image(_, name string, png []byte) error {
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		return errors.New("not a png: " + name)
	}
	r.events = append(r.events, "image:"+name)
	return nil
}

func (r *recordSink) Interactive(_, name string, _ []byte) error {
	r.events = append(r.events, "interactive:"+name)
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

func indexOf(events []string, want string) int {
	for i, e := range events {
		if e == want {
			return i
		}
	}
	return -1
}

func TestRenderFollowsNarrativeOrder(t *testing.T) {
	sink := &recordSink{}
	in := runPipeline(t, fixture(t, sampleRows()...))
	if err := New(sink, testOptions, nil).Render(in); err != nil {
		t.Fatalf("Render: %v", err)
	}

	order := []string{
		"text:Summary",
		"text:Files",
		"table:First 3 rows",
		"table:Last 3 rows",
		"text:Info",
		"table:Descriptive statistics",
		"text:Duplicates dropped",
		"table:Readings per station",
		"table:Missing values after imputation",
		"table:Mean PM2.5 by station",
		"image:mean_pm2_5_by_station.png",
		"interactive:" + TimeSeriesFile,
		"image:mean_pm2_5_by_year.png",
		"image:mean_pm2_5_by_month.png",
		"image:mean_pm2_5_by_day.png",
		"image:mean_pm2_5_by_hour.png",
		"image:mean_pm2_5_by_weekday.png",
		"image:mean_pm2_5_by_wd.png",
		"text:Findings",
	}
	last := -1
	for _, want := range order {
		at := indexOf(sink.events, want)
		if at < 0 {
			t.Fatalf("missing event %q in %v", want, sink.events)
		}
		if at < last {
			t.Fatalf("event %q out of order in %v", want, sink.events)
		}
		last = at
	}
}

func TestRenderEmptyInput(t *testing.T) {
	raw := file.EmptyFrame(testColumns)
	in := runPipeline(t, raw)
	in.Files = nil

	sink := &recordSink{}
	if err := New(sink, testOptions, nil).Render(in); err != nil {
		t.Fatalf("Render on empty input: %v", err)
	}
	for _, e := range sink.events {
		if strings.HasPrefix(e, "image:") || strings.HasPrefix(e, "interactive:") {
			t.Fatalf("unexpected chart for empty input: %s", e)
		}
	}
	if indexOf(sink.events, "text:Mean PM2.5 by station (chart)") < 0 {
		t.Fatalf("expected a note instead of the station chart: %v", sink.events)
	}
}

func TestBarChartAndLineChart(t *testing.T) {
	table := &processor.AggregateTable{Dimension: schema.Year, Metric: schema.PM25, Rows: []processor.AggregateRow{
		{Key: "2013", Label: "2013", Numeric: true, KeyNum: 2013, Mean: 90},
		{Key: "2014", Label: "2014", Numeric: true, KeyNum: 2014, Mean: math.NaN()},
		{Key: "2015", Label: "2015", Numeric: true, KeyNum: 2015, Mean: 80},
	}}
	size := ChartSize{Width: 4, Height: 3}

	for name, render := range map[string]func() ([]byte, error){
		"bar":  func() ([]byte, error) { return BarChart(table, "t", "Year", size) },
		"line": func() ([]byte, error) { return LineChart(table, "t", "Year", size) },
	} {
		png, err := render()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.HasPrefix(png, []byte("\x89PNG")) {
			t.Fatalf("%s: output is not a PNG", name)
		}
	}

	empty := &processor.AggregateTable{Dimension: schema.Station, Metric: schema.PM25}
	if _, err := BarChart(empty, "t", "Station", size); !errors.Is(err, ErrNoData) {
		t.Fatalf("BarChart(empty) err = %v; want ErrNoData", err)
	}
	labels := &processor.AggregateTable{Rows: []processor.AggregateRow{{Key: "N", Label: "N", Mean: 3}}}
	if _, err := LineChart(labels, "t", "Wind", size); !errors.Is(err, ErrNoData) {
		t.Fatalf("LineChart(non-numeric) err = %v; want ErrNoData", err)
	}
}

func TestIntegerTicks(t *testing.T) {
	ticks := integerTicks{}.Ticks(2012.6, 2016.2)
	var got []string
	for _, tk := range ticks {
		got = append(got, tk.Label)
	}
	if strings.Join(got, ",") != "2013,2014,2015,2016" {
		t.Fatalf("ticks = %v", got)
	}
	if n := len(integerTicks{}.Ticks(0, 1000)); n > 11 {
		t.Fatalf("ticks over a wide range = %d; want at most 11", n)
	}
}

func TestChartFileName(t *testing.T) {
	if got := chartFileName("PM2.5", "wd"); got != "mean_pm2_5_by_wd.png" {
		t.Fatalf("chartFileName = %q", got)
	}
}

func TestBuildSeries(t *testing.T) {
	in := runPipeline(t, fixture(t, sampleRows()...))

	hourly, err := BuildSeries(in.Cleaned, schema.PM25, StepHour)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if len(hourly) != 2 || hourly[0].Station != "Aotizhongxin" || len(hourly[0].Points) != 3 {
		t.Fatalf("hourly = %+v", hourly)
	}

	daily, err := BuildSeries(in.Cleaned, schema.PM25, StepDay)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	first := daily[0].Points
	if len(first) != 2 || first[0].Date != "2013-03-01" || first[0].Value != 15 {
		t.Fatalf("daily = %+v", first)
	}

	if _, err := BuildSeries(in.Raw, schema.PM25, StepHour); !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("BuildSeries without date err = %v; want schema mismatch", err)
	}
}

func TestTimeSeriesChart(t *testing.T) {
	html, err := TimeSeriesChart([]StationSeries{
		{Station: "Dongsi", Points: []Point{{Date: "2013-03-01 00:00:00", Value: 9}}},
		{Station: "Tiantan", Points: []Point{{Date: "2013-03-01 00:00:00", Value: 6}}},
	}, "PM2.5 over time", schema.PM25)
	if err != nil {
		t.Fatalf("TimeSeriesChart: %v", err)
	}
	for _, want := range []string{"echarts", "Dongsi", "Tiantan", "dataZoom"} {
		if !bytes.Contains(html, []byte(want)) {
			t.Fatalf("html missing %q", want)
		}
	}
	if _, err := TimeSeriesChart([]StationSeries{{Station: "Dongsi"}}, "t", schema.PM25); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v; want ErrNoData", err)
	}
}

func TestConclusions(t *testing.T) {
	in := runPipeline(t, fixture(t, sampleRows()...))
	lines := Conclusions(in.Results, schema.PM25)
	if len(lines) != len(conclusionAxes) {
		t.Fatalf("lines = %v", lines)
	}
	// Aotizhongxin: 10,20,30 -> 20; Dingling: 40 and the imputed mode 10 -> 25
	if !strings.Contains(lines[0], "Station Aotizhongxin (20.00)") || !strings.Contains(lines[0], "Station Dingling (25.00)") {
		t.Fatalf("station conclusion = %q", lines[0])
	}

	best, worst, ok := Extremes(&processor.AggregateTable{Rows: []processor.AggregateRow{
		{Key: "a", Mean: math.NaN()}, {Key: "b", Mean: 2}, {Key: "c", Mean: 1},
	}})
	if !ok || best.Key != "c" || worst.Key != "b" {
		t.Fatalf("Extremes = %v %v %v", best.Key, worst.Key, ok)
	}
}

func TestHTMLSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewHTMLSink(dir, "Air quality <report>")
	if err != nil {
		t.Fatal(err)
	}
	df := dataframe.New(
		series.New([]string{"Dongsi"}, series.String, "station"),
		series.New([]string{"NaN"}, series.Float, "std"),
	)
	steps := []error{
		sink.Section("Question 1"),
		sink.Table("Mean PM2.5 by station", df),
		sink.Image("chart", "chart.png", []byte("\x89PNG")),
		sink.Interactive("series", TimeSeriesFile, []byte("<html></html>")),
		sink.Close(),
	}
	if err := errors.Join(steps...); err != nil {
		t.Fatal(err)
	}

	page, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Air quality &lt;report&gt;", "<td>Dongsi</td>", "<td>NaN</td>", `src="chart.png"`, `<iframe src="timeseries.html"`} {
		if !strings.Contains(string(page), want) {
			t.Fatalf("index.html missing %q", want)
		}
	}
	for _, name := range []string{"chart.png", TimeSeriesFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
}

func TestExcelSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	sink, err := NewExcelSink(path)
	if err != nil {
		t.Fatal(err)
	}
	in := runPipeline(t, fixture(t, sampleRows()...))
	table := in.Results[0].Table.DataFrame()
	png, err := BarChart(in.Results[0].Table, "Mean PM2.5 by station", "Station", ChartSize{Width: 4, Height: 3})
	if err != nil {
		t.Fatal(err)
	}
	steps := []error{
		sink.Section("Question 1"),
		sink.Text("Summary", "line one\nline two"),
		sink.Table("Mean PM2.5 by station", table),
		sink.Table("Mean PM2.5 by station", table),
		sink.Image("Mean PM2.5 by station", "mean_pm2_5_by_station.png", png),
		sink.Close(),
	}
	if err := errors.Join(steps...); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := []string{summarySheet, "Mean PM2.5 by station", "Mean PM2.5 by station (2)", chartsSheet}
	if got := f.GetSheetList(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("sheets = %v; want %v", got, want)
	}
	rows, err := f.GetRows("Mean PM2.5 by station")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != schema.Station || rows[1][0] != "Aotizhongxin" || rows[1][1] != "20" {
		t.Fatalf("rows = %v", rows)
	}
	pics, err := f.GetPictures(chartsSheet, "A2")
	if err != nil || len(pics) != 1 {
		t.Fatalf("pictures = %d, %v; want 1", len(pics), err)
	}
}

func TestSheetNameSanitized(t *testing.T) {
	x := &ExcelSink{sheets: map[string]bool{"summary": true}}
	if got := x.sheetName("Rows with missing PM2.5 [first 5] / all stations"); got != "Rows with missing PM2.5 _first" {
		t.Fatalf("sheetName = %q", got)
	}
	if got := x.sheetName("Summary"); got != "Summary (2)" {
		t.Fatalf("sheetName = %q", got)
	}
}

func TestCleaningSectionCountsAfterDeduplication(t *testing.T) {
	// 两行 Dingling 缺失读数完全相同，去重后只剩一行
	sink := &recordSink{}
	in := runPipeline(t, fixture(t, sampleRows()...))
	if err := New(sink, testOptions, nil).Render(in); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := sink.texts["Rows with missing PM2.5"]; got != "1" {
		t.Fatalf("rows with missing PM2.5 = %q; want 1", got)
	}
	if got := sink.texts["Duplicates dropped"]; got != "1" {
		t.Fatalf("duplicates dropped = %q; want 1", got)
	}
	if got := sink.texts["Most frequent PM2.5 value"]; got != "10" {
		t.Fatalf("most frequent value = %q; want 10", got)
	}
}

func TestConsoleSinkPrintsEveryRow(t *testing.T) {
	hours := make([]int, 24)
	means := make([]string, 24)
	for i := range hours {
		hours[i] = i
		means[i] = fmt.Sprintf("%d.5", 60+i)
	}
	df := dataframe.New(
		series.New(hours, series.Int, schema.Hour),
		series.New(means, series.Float, "mean"),
	)

	var buf bytes.Buffer
	if err := NewConsoleSink(&buf).Table("Mean PM2.5 by hour", df); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Mean PM2.5 by hour:", "60.5", "83.5", "[24 rows x 2 columns]", "<int>", "<float>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "...") {
		t.Fatalf("console table was truncated:\n%s", out)
	}
	// 标题 + 表头 + 24 行 + 类型行 + 尺寸行
	if n := strings.Count(strings.TrimRight(out, "\n"), "\n"); n != 28 {
		t.Fatalf("lines = %d; want 28:\n%s", n, out)
	}
}
