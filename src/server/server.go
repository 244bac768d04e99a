package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options 仪表盘服务配置
type Options struct {
	Addr            string
	Dir             string // 报告输出目录
	ReportID        string
	ShutdownTimeout time.Duration
}

// Server 以静态文件方式提供生成好的报告
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-report",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start))
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"report_id": opts.ReportID,
		})
	})

	app.Static("/", opts.Dir, fiber.Static{
		Index:         "index.html",
		CacheDuration: -1,
	})

	return &Server{app: app, opts: opts, logger: logger}
}

// App 供测试直接发请求
func (s *Server) App() *fiber.App { return s.app }

// Run 启动服务，ctx 结束后在 ShutdownTimeout 内优雅退出
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving report", "addr", s.opts.Addr, "dir", s.opts.Dir)
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down server", "timeout", timeout)
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return nil
}
