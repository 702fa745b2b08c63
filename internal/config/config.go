package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config riskwatch 客户端配置
type Config struct {
	// Analytics Service（远端风险预测 / 笔记分析服务）
	Service struct {
		BaseURL string
		Timeout int // 请求超时（秒），默认 30 秒
	}

	Dashboard struct {
		RefreshInterval int // 仪表盘轮询间隔（秒），默认 30 秒
	}

	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	// 仪表盘快照发布（供外部大屏读取，客户端本身不回读）
	Snapshot struct {
		Enabled bool
		Key     string
	}

	// 破坏性操作审计（Redis Streams）
	Audit struct {
		Enabled bool
		Stream  string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量优先，其次为默认值）
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("RISK_API_URL", "http://localhost:5000")
	v.SetDefault("RISK_API_TIMEOUT", 30)
	v.SetDefault("DASHBOARD_REFRESH_INTERVAL", 30)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SNAPSHOT_ENABLED", false)
	v.SetDefault("SNAPSHOT_KEY", "risk-dashboard:snapshot")
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("AUDIT_STREAM", "risk-console:audit")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	cfg := &Config{}

	cfg.Service.BaseURL = v.GetString("RISK_API_URL")
	cfg.Service.Timeout = positiveOr(v.GetInt("RISK_API_TIMEOUT"), 30)

	cfg.Dashboard.RefreshInterval = positiveOr(v.GetInt("DASHBOARD_REFRESH_INTERVAL"), 30)

	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Snapshot.Enabled = v.GetBool("SNAPSHOT_ENABLED")
	cfg.Snapshot.Key = v.GetString("SNAPSHOT_KEY")

	cfg.Audit.Enabled = v.GetBool("AUDIT_ENABLED")
	cfg.Audit.Stream = v.GetString("AUDIT_STREAM")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")

	return cfg, nil
}

// RequestTimeout 单次请求超时
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.Timeout) * time.Second
}

// RefreshInterval 仪表盘轮询间隔
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshInterval) * time.Second
}

// NeedsRedis 快照或审计任一开启且 Redis 可用时才需要连接
func (c *Config) NeedsRedis() bool {
	return c.Redis.Enabled && (c.Snapshot.Enabled || c.Audit.Enabled)
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
