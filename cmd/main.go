// 本文件用于程序启动入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pool-watch/internal/alert"
	"pool-watch/internal/api"
	"pool-watch/internal/config"
	"pool-watch/internal/history"
	"pool-watch/internal/logger"
	"pool-watch/internal/metrics"
	"pool-watch/internal/models"
	"pool-watch/internal/monitor"
	"pool-watch/internal/slack"
	"pool-watch/internal/sysinfo"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("程序退出: %v", err)
	}
}

func run() error {
	configPath := parseFlags()
	log.Printf("程序启动，配置文件: %s", configPath)

	cfg, err := loadAndValidateConfig(configPath)
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()

	logConfig(lg, cfg)

	collector := metrics.NewCollector()
	alertState := alert.NewState()
	timeout := models.DurationOr(cfg.AlertTimeout, 5*time.Second)

	opts := alert.Options{
		Gate:          alert.NewGate(cfg.Cooldown(), cfg.MaintenanceMode),
		State:         alertState,
		Metrics:       collector,
		Logger:        lg.With("component", "alert"),
		PrimaryPool:   cfg.PrimaryPool,
		SecondaryPool: cfg.SecondaryPool,
		Timeout:       timeout,
	}
	if cfg.WebhookConfigured() {
		opts.Notifier = slack.NewWebhook(cfg.SlackWebhookURL, timeout)
	}

	var store *history.Store
	if cfg.AlertHistoryDB != "" {
		store, err = history.Open(cfg.AlertHistoryDB)
		if err != nil {
			lg.Error("打开告警流水库失败: %v", err)
			return err
		}
		defer store.Close()
		opts.Journal = store
		lg.Info("告警流水落盘: %s", store.DBPath())
	}

	dispatcher, err := alert.NewDispatcher(opts)
	if err != nil {
		lg.Error("创建告警分发器失败: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostSummary := sysinfo.CollectHost()
	if cfg.StartupNotify {
		// 上线通知失败不影响后续采集
		_ = dispatcher.NotifyStartup(ctx, startupDetails(cfg, hostSummary))
	}

	var apiServer *api.Server
	if cfg.APIBind != "" {
		deps := api.Deps{
			Metrics: collector,
			Alerts:  alertState,
			Host:    hostSummary,
			Logger:  lg.With("component", "api"),
		}
		if store != nil {
			deps.History = store
		}
		apiServer = api.NewServer(cfg.APIBind, deps)
		apiServer.Start()
	}

	ingestor, err := monitor.NewIngestor(monitor.IngestorOptions{
		Config:     cfg,
		Dispatcher: dispatcher,
		Metrics:    collector,
		Logger:     lg.With("component", "monitor"),
	})
	if err != nil {
		lg.Error("创建日志采集器失败: %v", err)
		return err
	}

	runErr := ingestor.Run(ctx)
	if runErr == nil {
		lg.Info("收到退出信号，正在关闭服务...")
	} else {
		lg.Error("日志采集异常退出: %v", runErr)
	}

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			lg.Warn("关闭 API 服务失败: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	lg.Info("程序已退出")
	return nil
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()
	return configPath
}

func loadAndValidateConfig(configPath string) (*models.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logConfig(lg *logger.Logger, cfg *models.Config) {
	lg.Info("配置加载成功")
	lg.Info("访问日志: %s", cfg.LogPath)
	lg.Info("错误率阈值: %v%%", cfg.ErrorRateThreshold)
	lg.Info("窗口大小: %d", cfg.WindowSize)
	lg.Info("告警冷却: %ds", cfg.AlertCooldownSec)
	lg.Info("维护模式: %v", cfg.MaintenanceMode)
	lg.Info("主备 pool: %s / %s", cfg.PrimaryPool, cfg.SecondaryPool)
	if cfg.WebhookConfigured() {
		lg.Info("Slack 告警: 已配置")
	} else {
		lg.Warn("Slack webhook 未配置，告警仅写日志")
	}
	lg.Info("日志级别: %s", cfg.LogLevel)
	if cfg.LogFile != "" {
		lg.Info("日志文件: %s", cfg.LogFile)
	}
	if cfg.APIBind != "" {
		lg.Info("状态接口: %s", cfg.APIBind)
	}
}

func startupDetails(cfg *models.Config, host sysinfo.HostSummary) []alert.Detail {
	maintenance := "Disabled"
	if cfg.MaintenanceMode {
		maintenance = "Enabled"
	}
	return []alert.Detail{
		{Key: "Error Threshold", Value: fmt.Sprintf("%v%%", cfg.ErrorRateThreshold)},
		{Key: "Window Size", Value: fmt.Sprintf("%d requests", cfg.WindowSize)},
		{Key: "Alert Cooldown", Value: fmt.Sprintf("%ds", cfg.AlertCooldownSec)},
		{Key: "Maintenance Mode", Value: maintenance},
		{Key: "Host", Value: host.Hostname},
		{Key: "Platform", Value: host.Platform},
	}
}
