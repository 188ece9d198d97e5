package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v2"

	"pool-watch/internal/models"
)

const (
	defaultLogPath            = "/var/log/nginx/access.log"
	defaultSourceWaitInterval = "2s"
	defaultIdlePollInterval   = "100ms"
	defaultAlertTimeout       = "5s"
)

// Defaults 返回填充默认值的配置
func Defaults() *models.Config {
	return &models.Config{
		LogPath:            defaultLogPath,
		ErrorRateThreshold: 2,
		WindowSize:         200,
		AlertCooldownSec:   300,
		PrimaryPool:        "blue",
		SecondaryPool:      "green",
		SourceWaitInterval: defaultSourceWaitInterval,
		IdlePollInterval:   defaultIdlePollInterval,
		AlertTimeout:       defaultAlertTimeout,
		StartupNotify:      true,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// LoadConfig 加载配置 默认值 < 配置文件 < 环境变量(.env 也计入环境变量)
func LoadConfig(configFile string) (*models.Config, error) {
	config := Defaults()

	if strings.TrimSpace(configFile) != "" {
		data, err := os.ReadFile(configFile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// 容器部署通常只有环境变量 配置文件缺失不算错误
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := loadDotEnv(configFile); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	config.LogPath = strings.TrimSpace(config.LogPath)
	config.SlackWebhookURL = strings.TrimSpace(config.SlackWebhookURL)
	config.PrimaryPool = strings.TrimSpace(config.PrimaryPool)
	config.SecondaryPool = strings.TrimSpace(config.SecondaryPool)
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))
	return config, nil
}

// loadDotEnv 读取工作目录与配置文件同级目录下的 .env 已存在的环境变量不会被覆盖
func loadDotEnv(configFile string) error {
	candidates := []string{".env"}
	if dir := filepath.Dir(strings.TrimSpace(configFile)); configFile != "" && dir != "." {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("读取 .env 失败: %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides 用环境变量覆盖配置 变量名为配置键的大写形式 例如 WINDOW_SIZE
func applyEnvOverrides(config *models.Config) error {
	known := configKeys()
	k := koanf.New(".")
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return fmt.Errorf("读取环境变量失败: %w", err)
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	if err := k.Unmarshal("", config); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	return nil
}

// configKeys 从 koanf 标签收集可被环境变量覆盖的键
func configKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	typ := reflect.TypeOf(models.Config{})
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = struct{}{}
	}
	return keys
}

// ValidateConfig 验证配置
func ValidateConfig(config *models.Config) error {
	if config == nil {
		return fmt.Errorf("配置为空")
	}
	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("配置项 %s 不合法: 规则 %s", first.Field(), first.Tag())
		}
		return fmt.Errorf("配置校验失败: %w", err)
	}
	durations := map[string]string{
		"source_wait_interval": config.SourceWaitInterval,
		"idle_poll_interval":   config.IdlePollInterval,
		"alert_timeout":        config.AlertTimeout,
	}
	for key, raw := range durations {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("配置项 %s 时长格式无效: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("配置项 %s 必须大于 0", key)
		}
	}
	return nil
}
