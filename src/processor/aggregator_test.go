package processor

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"AirQualityReport/src/schema"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestAggregateMeanAndSampleStd(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"B", "A", "A"}, series.String, "group"),
		series.New([]float64{30, 10, 20}, series.Float, "metric"),
	)

	table, err := Aggregate(df, "group", "metric")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d; want 2", table.Len())
	}
	if table.Rows[0].Key != "A" || table.Rows[1].Key != "B" {
		t.Fatalf("order = %q, %q; want sorted order A, B", table.Rows[0].Key, table.Rows[1].Key)
	}

	a, _ := table.Find("A")
	if !almostEqual(a.Mean, 15) || !almostEqual(a.Std, 7.0710678118654755) {
		t.Fatalf("A = mean %v std %v; want 15, 7.0710678", a.Mean, a.Std)
	}
	b, _ := table.Find("B")
	if !almostEqual(b.Mean, 30) || !math.IsNaN(b.Std) {
		t.Fatalf("B = mean %v std %v; want 30, NaN", b.Mean, b.Std)
	}
}

func TestAggregateIgnoresMissingMetric(t *testing.T) {
	df := dataframe.New(
		series.New([]int{1, 1, 2}, series.Int, "k"),
		series.New([]string{"2", "NaN", "NaN"}, series.Float, "v"),
	)
	table, err := Aggregate(df, "k", "v")
	if err != nil {
		t.Fatal(err)
	}
	one, _ := table.Find("1")
	if one.Count != 1 || one.Mean != 2 || !one.Numeric || one.KeyNum != 1 {
		t.Fatalf("group 1 = %+v", one)
	}
	two, ok := table.Find("2")
	if !ok || two.Count != 0 || !math.IsNaN(two.Mean) {
		t.Fatalf("group 2 = %+v; want present with NaN mean", two)
	}
}

func TestAggregateUnknownColumn(t *testing.T) {
	df := dataframe.New(series.New([]int{1}, series.Int, "k"))
	if _, err := Aggregate(df, "k", "nope"); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestLabelWeekdays(t *testing.T) {
	df := dataframe.New(
		series.New([]int{6, 0, 3}, series.Int, schema.Weekday),
		series.New([]float64{1, 2, 3}, series.Float, schema.PM25),
	)
	table, err := Aggregate(df, schema.Weekday, schema.PM25)
	if err != nil {
		t.Fatal(err)
	}
	LabelWeekdays(table)

	want := []string{"Monday", "Thursday", "Sunday"}
	for i, r := range table.Rows {
		if r.Label != want[i] {
			t.Fatalf("row %d label = %q; want %q", i, r.Label, want[i])
		}
	}
	labels := table.DataFrame().Col(schema.Weekday).Records()
	if labels[0] != "Monday" || labels[2] != "Sunday" {
		t.Fatalf("label column = %v", labels)
	}
}

func TestAggregateAllOnEmptyTable(t *testing.T) {
	cols := make([]series.Series, 0)
	for _, name := range []string{schema.Station, schema.WindDir} {
		cols = append(cols, series.New([]string{}, series.String, name))
	}
	for _, name := range []string{schema.Year, schema.Month, schema.Day, schema.Hour, schema.Weekday} {
		cols = append(cols, series.New([]string{}, series.Int, name))
	}
	cols = append(cols, series.New([]string{}, series.Float, schema.PM25))
	df := dataframe.New(cols...)

	results, err := AggregateAll(df, schema.PM25)
	if err != nil {
		t.Fatalf("AggregateAll: %v", err)
	}
	if len(results) != 7 {
		t.Fatalf("axes = %d; want 7", len(results))
	}
	for _, r := range results {
		if r.Table.Len() != 0 {
			t.Fatalf("%s table has %d rows; want 0", r.Axis.Column, r.Table.Len())
		}
		if r.Table.DataFrame().Nrow() != 0 {
			t.Fatalf("%s frame not empty", r.Axis.Column)
		}
	}
}

// 2013-03-01 是周五，数据从年中开始
func TestAggregateAllSortsGroupKeys(t *testing.T) {
	records := [][]string{header}
	day := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	winds := []string{"NW", "E", "N"}
	stations := []string{"Wanliu", "Aotizhongxin"}
	for i := 0; i < 365; i++ {
		d := day.AddDate(0, 0, i)
		records = append(records, []string{
			fmt.Sprint(d.Year()), fmt.Sprint(int(d.Month())), fmt.Sprint(d.Day()), "0",
			fmt.Sprint(10 + i%7), winds[i%len(winds)], stations[i%len(stations)],
		})
	}
	df, _, err := Clean(load(records), testColumns)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	results, err := AggregateAll(df, schema.PM25)
	if err != nil {
		t.Fatalf("AggregateAll: %v", err)
	}

	want := map[string]string{
		schema.Station: "Aotizhongxin Wanliu",
		schema.Year:    "2013 2014",
		schema.Month:   "1 2 3 4 5 6 7 8 9 10 11 12",
		schema.Weekday: strings.Join(WeekdayNames[:], " "),
		schema.WindDir: "E N NW",
	}
	for _, res := range results {
		labels := make([]string, 0, res.Table.Len())
		for _, r := range res.Table.Rows {
			labels = append(labels, r.Label)
		}
		if w, ok := want[res.Axis.Column]; ok && strings.Join(labels, " ") != w {
			t.Errorf("%s order = %v; want %s", res.Axis.Column, labels, w)
		}
	}
}
