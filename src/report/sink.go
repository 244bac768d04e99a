package report

import (
	"errors"

	"github.com/go-gota/gota/dataframe"
)

// Sink 报告的输出目标。Reporter 按叙述顺序依次调用
type Sink interface {
	Section(title string) error
	Text(title, body string) error
	Table(title string, df dataframe.DataFrame) error
	// Image 静态图表，name 为文件名，例如 mean_pm2_5_by_station.png
	Image(title, name string, png []byte) error
	// Interactive 可交互的 HTML 图表
	Interactive(title, name string, html []byte) error
	Close() error
}

// MultiSink 把每次调用转发给所有 Sink
type MultiSink []Sink

func (m MultiSink) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Section(title string) error {
	return m.each(func(s Sink) error { return s.Section(title) })
}

func (m MultiSink) Text(title, body string) error {
	return m.each(func(s Sink) error { return s.Text(title, body) })
}

func (m MultiSink) Table(title string, df dataframe.DataFrame) error {
	return m.each(func(s Sink) error { return s.Table(title, df) })
}

func (m MultiSink) Image(title, name string, png []byte) error {
	return m.each(func(s Sink) error { return s.Image(title, name, png) })
}

func (m MultiSink) Interactive(title, name string, html []byte) error {
	return m.each(func(s Sink) error { return s.Interactive(title, name, html) })
}

func (m MultiSink) Close() error {
	return m.each(func(s Sink) error { return s.Close() })
}
