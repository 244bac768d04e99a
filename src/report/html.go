package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"

	"AirQualityReport/src/utils"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index.html").Parse(indexHTML))

// IndexFile 仪表盘页面的文件名
const IndexFile = "index.html"

type blockKind string

const (
	kindSection     blockKind = "section"
	kindText        blockKind = "text"
	kindTable       blockKind = "table"
	kindImage       blockKind = "image"
	kindInteractive blockKind = "interactive"
)

type block struct {
	Kind   blockKind
	Title  string
	Body   string
	Header []string
	Rows   [][]string
	Src    string
}

type page struct {
	Title     string
	Generated string
	Blocks    []block
}

// HTMLSink 生成静态仪表盘：图表文件立即写入输出目录，Close 时渲染 index.html
type HTMLSink struct {
	dir    string
	title  string
	blocks []block
}

func NewHTMLSink(dir, title string) (*HTMLSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录 %s 失败: %w", dir, err)
	}
	return &HTMLSink{dir: dir, title: title}, nil
}

func (h *HTMLSink) Section(title string) error {
	h.blocks = append(h.blocks, block{Kind: kindSection, Title: title})
	return nil
}

func (h *HTMLSink) Text(title, body string) error {
	h.blocks = append(h.blocks, block{Kind: kindText, Title: title, Body: body})
	return nil
}

func (h *HTMLSink) Table(title string, df dataframe.DataFrame) error {
	b := block{Kind: kindTable, Title: title, Header: df.Names()}
	cols := make([][]string, df.Ncol())
	for i, name := range b.Header {
		cols[i] = utils.CellKeys(df.Col(name))
	}
	for r := 0; r < df.Nrow(); r++ {
		row := make([]string, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}
		b.Rows = append(b.Rows, row)
	}
	h.blocks = append(h.blocks, b)
	return nil
}

func (h *HTMLSink) Image(title, name string, png []byte) error {
	if err := h.writeFile(name, png); err != nil {
		return err
	}
	h.blocks = append(h.blocks, block{Kind: kindImage, Title: title, Src: name})
	return nil
}

func (h *HTMLSink) Interactive(title, name string, html []byte) error {
	if err := h.writeFile(name, html); err != nil {
		return err
	}
	h.blocks = append(h.blocks, block{Kind: kindInteractive, Title: title, Src: name})
	return nil
}

func (h *HTMLSink) writeFile(name string, data []byte) error {
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// Close 渲染并写入 index.html
func (h *HTMLSink) Close() error {
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, page{
		Title:     h.title,
		Generated: time.Now().Format(time.DateTime),
		Blocks:    h.blocks,
	})
	if err != nil {
		return fmt.Errorf("渲染 %s 失败: %w", IndexFile, err)
	}
	return h.writeFile(IndexFile, buf.Bytes())
}
