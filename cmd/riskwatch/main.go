package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/VarshithGaddam/risk-predictor/internal/config"
	logpkg "github.com/VarshithGaddam/risk-predictor/internal/logger"
	"github.com/VarshithGaddam/risk-predictor/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "riskwatch"

// app 每次命令执行共享的依赖
type app struct {
	cfg *config.Config
	log *zap.Logger
	svc *service.ConsoleService
}

func main() {
	a := &app{}

	var (
		apiURL   string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Console client for the patient risk analytics service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 加载配置
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if apiURL != "" {
				cfg.Service.BaseURL = apiURL
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			// 初始化日志
			log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			svc, err := service.NewConsoleService(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to create console service: %w", err)
			}

			a.cfg, a.log, a.svc = cfg, log, svc
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "analytics service base URL (overrides RISK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(dashboardCmd(a))
	rootCmd.AddCommand(patientsCmd(a))
	rootCmd.AddCommand(detailCmd(a))
	rootCmd.AddCommand(analyzeCmd(a))
	rootCmd.AddCommand(dataCmd(a))
	rootCmd.AddCommand(mlCmd(a))
	rootCmd.AddCommand(healthCmd(a))

	ctx, stop := signalContext()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		a.close()
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		if a.log != nil {
			a.log.Debug("Command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}

// close 停止服务（可重复调用）
func (a *app) close() {
	if a.svc == nil {
		return
	}
	if err := a.svc.Stop(context.Background()); err != nil {
		a.log.Error("Error stopping service", zap.Error(err))
	}
	a.svc = nil
	_ = a.log.Sync()
}

// signalContext 收到 SIGINT / SIGTERM 时取消
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
