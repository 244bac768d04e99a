// reader.go
package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"AirQualityReport/src/schema"
)

const DefaultPattern = "PRSA*.csv"

// NaNValues 源文件中表示缺失的写法
var NaNValues = []string{"NA", "NaN", "<nil>", ""}

// Config 读取配置
type Config struct {
	Dir      string
	Pattern  string          // 文件名匹配，区分大小写，不递归
	Encoding string          // IANA 字符集名称，空表示 UTF-8
	Columns  []schema.Column // 声明的列，nil 表示 schema.Readings
}

// FileInfo 单个源文件的读取结果
type FileInfo struct {
	Name string
	Rows int
}

// LoadResult 合并后的统一数据表
type LoadResult struct {
	DF    dataframe.DataFrame
	Files []FileInfo
}

// Empty 没有匹配到任何文件
func (r *LoadResult) Empty() bool { return len(r.Files) == 0 }

// Rows 合并前各文件行数之和
func (r *LoadResult) Rows() int {
	n := 0
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

func (c Config) columns() []schema.Column {
	if c.Columns == nil {
		return schema.Readings
	}
	return c.Columns
}

// ListMatching 列出目录下匹配的文件名，顺序为目录列举顺序
func ListMatching(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// LoadDir 读取目录下所有匹配文件并按行拼接成一张表。
// 没有匹配文件时返回带声明列的空表，不返回错误
func LoadDir(cfg Config) (*LoadResult, error) {
	names, err := ListMatching(cfg.Dir, cfg.Pattern)
	if err != nil {
		return nil, err
	}

	dec, err := lookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	cols := cfg.columns()
	result := &LoadResult{}
	var header []string
	var rows [][]string

	for _, name := range names {
		path := filepath.Join(cfg.Dir, name)
		records, err := readCSV(path, dec)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, &schema.SchemaError{File: name, Reason: "missing header row"}
		}

		if err := validateHeader(name, records[0], cols); err != nil {
			return nil, err
		}
		if header == nil {
			header = records[0]
		} else if err := sameHeader(name, header, records[0]); err != nil {
			return nil, err
		}

		rows = append(rows, records[1:]...)
		result.Files = append(result.Files, FileInfo{Name: name, Rows: len(records) - 1})
	}

	if len(rows) == 0 {
		result.DF = EmptyFrame(cols)
		return result, nil
	}

	df := dataframe.LoadRecords(
		append([][]string{header}, rows...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(schema.Types(cols)),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to build dataframe from %d files: %w", len(result.Files), df.Err)
	}
	if err := checkRequired(df, cols, result.Files); err != nil {
		return nil, err
	}
	result.DF = df
	return result, nil
}

// checkRequired 不可为空的列不允许缺失；整数列里无法解析的值读入后同样是缺失
func checkRequired(df dataframe.DataFrame, cols []schema.Column, files []FileInfo) error {
	for _, c := range cols {
		if c.Nullable {
			continue
		}
		for i, na := range df.Col(c.Name).IsNaN() {
			if !na {
				continue
			}
			name, row := locate(files, i)
			return &schema.SchemaError{
				File:   name,
				Column: c.Name,
				Reason: fmt.Sprintf("has a missing or invalid value in data row %d", row),
			}
		}
	}
	return nil
}

// locate 把合并后的行号换算成源文件名和文件内的数据行号（从 1 开始）
func locate(files []FileInfo, i int) (string, int) {
	for _, f := range files {
		if i < f.Rows {
			return f.Name, i + 1
		}
		i -= f.Rows
	}
	return "", i + 1
}

// EmptyFrame 零行但带有声明列的表
func EmptyFrame(cols []schema.Column) dataframe.DataFrame {
	list := make([]series.Series, len(cols))
	for i, c := range cols {
		list[i] = series.New([]string{}, c.Type, c.Name)
	}
	return dataframe.New(list...)
}

func readCSV(path string, dec transform.Transformer) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, dec))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// lookupEncoding 返回源文件字符集的解码器，UTF-8 时去掉 BOM
func lookupEncoding(name string) (transform.Transformer, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// validateHeader 检查表头与声明的列是否一致
func validateHeader(file string, header []string, cols []schema.Column) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return &schema.SchemaError{File: file, Column: h, Reason: "is duplicated"}
		}
		seen[h] = true
		if _, ok := schema.Lookup(cols, h); !ok {
			return &schema.SchemaError{File: file, Column: h, Reason: "is not declared"}
		}
	}
	for _, c := range cols {
		if !seen[c.Name] {
			return &schema.SchemaError{File: file, Column: c.Name, Reason: "is missing"}
		}
	}
	return nil
}

func sameHeader(file string, want, got []string) error {
	for i := range want {
		if want[i] != got[i] {
			return &schema.SchemaError{File: file, Column: got[i], Reason: fmt.Sprintf("at position %d differs from %q in earlier files", i+1, want[i])}
		}
	}
	return nil
}
