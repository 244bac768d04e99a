package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir      string `json:"data_dir" validate:"required"`      // PRSA*.csv 所在目录
	FilePattern  string `json:"file_pattern" validate:"required"`  // 文件名匹配
	Encoding     string `json:"encoding"`                          // 源文件字符集，空为 UTF-8
	TargetMetric string `json:"target_metric" validate:"required"` // 统计的污染物列
	OutputDir    string `json:"output_dir" validate:"required"`    // 报告输出目录
	PreviewRows  int    `json:"preview_rows" validate:"gte=1"`     // head/tail 行数

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"` // 例如 "10 * 1024 * 1024"
	LogLevel   string `json:"log_level" validate:"oneof=debug info warn error"`

	Chart struct {
		Width  float64 `json:"width" validate:"gt=0"`  // 英寸
		Height float64 `json:"height" validate:"gt=0"` // 英寸
	} `json:"chart"`

	TimeSeries struct {
		Step string `json:"step" validate:"oneof=hour day"` // 交互折线图的时间粒度
	} `json:"timeseries"`

	Excel struct {
		Enabled  bool   `json:"enabled"`
		FileName string `json:"file_name" validate:"required_if=Enabled true"`
	} `json:"excel"`

	Serve struct {
		Enabled         bool     `json:"enabled"`
		Addr            string   `json:"addr" validate:"required_if=Enabled true"`
		ShutdownTimeout Duration `json:"shutdown_timeout"`
	} `json:"serve"`
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
	validate = validator.New()
)

// Default 没有配置文件时使用的默认配置
func Default() *Config {
	cfg := &Config{
		DataDir:      "./data",
		FilePattern:  "PRSA*.csv",
		TargetMetric: "PM2.5",
		OutputDir:    "./report",
		PreviewRows:  5,
		LogName:      "app.log",
		LogMaxSize:   "10 * 1024 * 1024",
		LogLevel:     "info",
	}
	cfg.Chart.Width = 10
	cfg.Chart.Height = 6
	cfg.TimeSeries.Step = "hour"
	cfg.Excel.FileName = "report.xlsx"
	cfg.Serve.Addr = ":8080"
	cfg.Serve.ShutdownTimeout = Duration(10 * time.Second)
	return cfg
}

// LoadConfig 只加载一次配置：配置文件不存在时使用默认值，之后应用 .env 和环境变量覆盖并校验
func LoadConfig(jsonFolder, jsonFile string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = load(filepath.Join(jsonFolder, jsonFile))
	})
	return instance, loadErr
}

func load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	data, err := os.ReadFile(configFile)
	var cfg *Config
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	case err != nil:
		return nil, fmt.Errorf("无法读取文件 %s: %w", configFile, err)
	default:
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", configFile, err)
		}
	}

	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 在默认配置之上解析 JSON，文件里没写的字段保留默认值
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用 AQ_* 环境变量覆盖配置
func applyEnv(cfg *Config) {
	if v := getenv("AQ_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := getenv("AQ_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("AQ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("AQ_SERVE_ADDR"); v != "" {
		cfg.Serve.Enabled = true
		cfg.Serve.Addr = v
	}
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate 校验配置，错误信息列出所有不合法的字段
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msg := "配置校验失败:"
	for _, fe := range verrs {
		msg = fmt.Sprintf("%s\n- %s: failed %q (value %v)", msg, fe.Namespace(), fe.Tag(), fe.Value())
	}
	return errors.New(msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
