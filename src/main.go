package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"AirQualityReport/src/config"
	"AirQualityReport/src/datasource/file"
	"AirQualityReport/src/processor"
	"AirQualityReport/src/report"
	"AirQualityReport/src/schema"
	"AirQualityReport/src/server"
	"AirQualityReport/src/storage"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	cfg, err := config.LoadConfig(jsonFolder, jsonFile)
	if err != nil {
		log.Fatal("加载配置失败: ", err)
	}

	// 初始化日志系统
	logger, logFile, err := storage.NewLogger(cfg, os.Stderr)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	reportID := uuid.NewString()
	logger = logger.With("report_id", reportID)

	if err := run(cfg, reportID, logger, logFile); err != nil {
		logErr(logger, err)
		if logFile != nil {
			logFile.Close()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, reportID string, logger *slog.Logger, logFile *storage.LogFile) error {
	t1 := time.Now()

	// 读取并合并所有站点文件
	loaded, err := file.LoadDir(file.Config{
		Dir:      cfg.DataDir,
		Pattern:  cfg.FilePattern,
		Encoding: cfg.Encoding,
		Columns:  schema.Readings,
	})
	if err != nil {
		return err
	}
	if loaded.Empty() {
		logger.Warn("no input files matched, continuing with an empty dataset",
			"err", file.ErrEmptyInput, "dir", cfg.DataDir, "pattern", cfg.FilePattern)
	} else {
		logger.Info("data loaded", "files", len(loaded.Files), "rows", loaded.Rows())
	}

	cleaned, cleanRep, err := processor.Clean(loaded.DF, schema.Readings)
	if err != nil {
		return err
	}
	logger.Info("data cleaned",
		"rows_before", cleanRep.RowsBefore,
		"duplicates", cleanRep.Duplicates,
		"imputed_columns", len(cleanRep.Imputations),
		"rows_after", cleanRep.RowsAfter)
	if len(cleanRep.Unfilled) > 0 {
		logger.Warn("columns without any value were left unfilled", "columns", cleanRep.Unfilled)
	}

	results, err := processor.AggregateAll(cleaned, cfg.TargetMetric)
	if err != nil {
		return err
	}

	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	rep := report.New(sink, report.Options{
		Metric:      cfg.TargetMetric,
		PreviewRows: cfg.PreviewRows,
		Chart:       report.ChartSize{Width: cfg.Chart.Width, Height: cfg.Chart.Height},
		Step:        cfg.TimeSeries.Step,
	}, logger)
	renderErr := rep.Render(report.Input{
		ReportID: reportID,
		Files:    loaded.Files,
		Raw:      loaded.DF,
		Cleaned:  cleaned,
		Clean:    cleanRep,
		Results:  results,
	})
	if err := errors.Join(renderErr, sink.Close()); err != nil {
		return fmt.Errorf("生成报告失败: %w", err)
	}
	logger.Info("report written", "dir", cfg.OutputDir, "elapsed", time.Since(t1))

	if !cfg.Serve.Enabled {
		return nil
	}
	return serve(cfg, reportID, logger, logFile)
}

func buildSink(cfg *config.Config) (report.Sink, error) {
	htmlSink, err := report.NewHTMLSink(cfg.OutputDir, fmt.Sprintf("Air quality report: %s", cfg.TargetMetric))
	if err != nil {
		return nil, err
	}
	sinks := report.MultiSink{report.NewConsoleSink(os.Stdout), htmlSink}
	if cfg.Excel.Enabled {
		excelSink, err := report.NewExcelSink(filepath.Join(cfg.OutputDir, cfg.Excel.FileName))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, excelSink)
	}
	return sinks, nil
}

// serve 提供报告页面直到收到 SIGINT/SIGTERM；SIGHUP 时重新打开日志文件
func serve(cfg *config.Config, reportID string, logger *slog.Logger, logFile *storage.LogFile) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if logFile == nil {
					continue
				}
				if err := logFile.Reopen(); err != nil {
					logger.Error("reopen log file failed", "err", err)
				} else {
					logger.Info("log file reopened")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := server.New(server.Options{
		Addr:            cfg.Serve.Addr,
		Dir:             cfg.OutputDir,
		ReportID:        reportID,
		ShutdownTimeout: time.Duration(cfg.Serve.ShutdownTimeout),
	}, logger)
	return srv.Run(ctx)
}

// logErr 记录错误，并带上出错的文件、列或行
func logErr(logger *slog.Logger, err error) {
	attrs := []any{"err", err}

	var se *schema.SchemaError
	if errors.As(err, &se) {
		attrs = append(attrs, "file", se.File, "column", se.Column)
	}
	var ce *processor.CalendarError
	if errors.As(err, &ce) {
		attrs = append(attrs, "row", ce.Row)
	}
	switch {
	case errors.Is(err, file.ErrDirectoryNotFound):
		logger.Error("data directory not found", attrs...)
	case errors.Is(err, schema.ErrSchemaMismatch):
		logger.Error("input does not match the declared schema", attrs...)
	case errors.Is(err, processor.ErrInvalidCalendarValue):
		logger.Error("invalid calendar value", attrs...)
	default:
		logger.Error("run failed", attrs...)
	}
}
