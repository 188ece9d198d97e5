// 本文件用于定义配置与业务模型
package models

import (
	"strings"
	"time"
)

// Config 配置结构体 启动时加载一次 之后只读
type Config struct {
	LogPath            string  `yaml:"log_path" koanf:"log_path" validate:"required"`
	SlackWebhookURL    string  `yaml:"slack_webhook_url" koanf:"slack_webhook_url" validate:"omitempty,url"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold" koanf:"error_rate_threshold" validate:"gte=0,lte=100"`
	WindowSize         int     `yaml:"window_size" koanf:"window_size" validate:"min=1"`               // 滑动窗口容量
	AlertCooldownSec   int     `yaml:"alert_cooldown_sec" koanf:"alert_cooldown_sec" validate:"gte=0"` // 同类告警最小间隔
	MaintenanceMode    bool    `yaml:"maintenance_mode" koanf:"maintenance_mode"`
	PrimaryPool        string  `yaml:"primary_pool" koanf:"primary_pool" validate:"required"`
	SecondaryPool      string  `yaml:"secondary_pool" koanf:"secondary_pool" validate:"required,nefield=PrimaryPool"`
	SourceWaitInterval string  `yaml:"source_wait_interval" koanf:"source_wait_interval"`
	IdlePollInterval   string  `yaml:"idle_poll_interval" koanf:"idle_poll_interval"`
	AlertTimeout       string  `yaml:"alert_timeout" koanf:"alert_timeout"`
	StartupNotify      bool    `yaml:"startup_notify" koanf:"startup_notify"`
	LogLevel           string  `yaml:"log_level" koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat          string  `yaml:"log_format" koanf:"log_format" validate:"oneof=console json"`
	LogFile            string  `yaml:"log_file" koanf:"log_file"`
	APIBind            string  `yaml:"api_bind" koanf:"api_bind"`                 // 为空表示不启动状态接口
	AlertHistoryDB     string  `yaml:"alert_history_db" koanf:"alert_history_db"` // 为空表示不落盘告警流水
}

// Cooldown 返回告警冷却时长
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.AlertCooldownSec) * time.Second
}

// WebhookConfigured 表示是否配置了告警投递地址
func (c *Config) WebhookConfigured() bool {
	return strings.TrimSpace(c.SlackWebhookURL) != ""
}

// DurationOr 解析时长字符串 为空或非法时返回 fallback
func DurationOr(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// StatsSnapshot 表示运行计数快照
type StatsSnapshot struct {
	State          string  `json:"state"`
	TotalRequests  uint64  `json:"totalRequests"`
	TotalErrors    uint64  `json:"totalErrors"`
	MalformedLines uint64  `json:"malformedLines"`
	WindowLength   int     `json:"windowLength"`
	WindowErrors   int     `json:"windowErrors"`
	WindowRate     float64 `json:"windowErrorRate"`
	WindowReady    bool    `json:"windowReady"`
	ActivePool     string  `json:"activePool"`
	Failovers      uint64  `json:"failovers"`
}
