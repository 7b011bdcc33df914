package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// 主配置结构
type Config struct {
	App       App       `yaml:"app"`
	Server    Server    `yaml:"server"`
	Database  DB        `yaml:"database"`
	Cache     Cache     `yaml:"cache"`
	Auth      Auth      `yaml:"auth"`
	RateLimit Limit     `yaml:"rate_limit"`
	Geo       Geo       `yaml:"geo"`
	Notify    Notify    `yaml:"notify"`
	Analytics Analytics `yaml:"analytics"`
	Cron      Cron      `yaml:"cron"`
	Log       Log       `yaml:"log"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
	// BaseURL 用于生成动态二维码的短链接, 例如 https://qr.example.com
	BaseURL string `yaml:"base_url"`
}

// 服务器配置
type Server struct {
	Port         int `yaml:"port"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
	// TrustedProxies 允许设置 X-Forwarded-For 的反向代理, 为空时只使用连接地址
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// 数据库配置
type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// 认证配置
type Auth struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
	// 登录/注册按账号限流, 每小时窗口内的最大次数
	AttemptsPerHour int64 `yaml:"attempts_per_hour"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// IP 地理位置查询配置
type Geo struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheHours     int    `yaml:"cache_hours"`
}

// 实时推送配置
type Notify struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
	// 允许建立 websocket 的来源, 为空时不限制
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// 统计配置
type Analytics struct {
	TopN        int `yaml:"top_n"`
	RecentScans int `yaml:"recent_scans"`
}

// 定时任务配置
type Cron struct {
	Secret string `yaml:"secret"`
}

// 日志配置
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// 加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 内容并补齐默认值和环境变量覆盖
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.App.BaseURL == "" {
		c.App.BaseURL = "http://localhost:" + strconv.Itoa(c.Server.Port)
	}
	c.App.BaseURL = strings.TrimRight(c.App.BaseURL, "/")
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "qrcode-platform"
	}
	if c.Auth.ExpirationHours == 0 {
		c.Auth.ExpirationHours = 24
	}
	if c.Auth.AttemptsPerHour == 0 {
		c.Auth.AttemptsPerHour = 10
	}
	if c.Geo.BaseURL == "" {
		c.Geo.BaseURL = "https://ipinfo.io"
	}
	// 地理位置查询最多等待 5 秒
	if c.Geo.TimeoutSeconds <= 0 || c.Geo.TimeoutSeconds > 5 {
		c.Geo.TimeoutSeconds = 5
	}
	if c.Geo.CacheHours == 0 {
		c.Geo.CacheHours = 24
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 1024
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 2
	}
	if c.Analytics.TopN <= 0 {
		c.Analytics.TopN = 10
	}
	if c.Analytics.RecentScans <= 0 {
		c.Analytics.RecentScans = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "./logs/app.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}

// 敏感配置允许通过环境变量覆盖, 避免写入配置文件
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"QR_BASE_URL":    &c.App.BaseURL,
		"QR_DB_PASSWORD": &c.Database.Password,
		"QR_JWT_SECRET":  &c.Auth.Secret,
		"QR_GEO_TOKEN":   &c.Geo.Token,
		"QR_CRON_SECRET": &c.Cron.Secret,
		"QR_REDIS_HOST":  &c.Cache.Host,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
}
