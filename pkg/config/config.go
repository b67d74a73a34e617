package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// OtelConfig 链路追踪配置
type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// ProgressConfig 进度聚合配置
type ProgressConfig struct {
	// CacheTTL 进度缓存过期时间
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// StageScope 分配后同步重算的阶段范围: affected | project
	StageScope string `yaml:"stage_scope"`
	// EnforceSameProject 为 true 时拒绝跨项目的阶段分配
	EnforceSameProject bool `yaml:"enforce_same_project"`
	// RefreshCron worker 定时全量刷新
	RefreshCron string `yaml:"refresh_cron"`
	// SlowQueryThreshold 慢查询阈值
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

const (
	StageScopeAffected = "affected"
	StageScopeProject  = "project"
)

// ApplyDefaults 填充未配置的进度参数
func (p *ProgressConfig) ApplyDefaults() {
	if p.CacheTTL <= 0 {
		p.CacheTTL = 5 * time.Minute
	}
	if p.StageScope != StageScopeProject {
		p.StageScope = StageScopeAffected
	}
	if p.RefreshCron == "" {
		p.RefreshCron = "@every 10m"
	}
	if p.SlowQueryThreshold <= 0 {
		p.SlowQueryThreshold = 100 * time.Millisecond
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.DB = n
		}
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
	if name := os.Getenv("JWT_COOKIE_NAME"); name != "" {
		cfg.CookieName = name
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideOtelFromEnv 从环境变量覆盖追踪配置
func OverrideOtelFromEnv(cfg *OtelConfig) {
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if enabled := os.Getenv("OTEL_ENABLED"); enabled != "" {
		cfg.Enabled = strings.EqualFold(enabled, "true")
	}
}

// OverrideProgressFromEnv 从环境变量覆盖进度配置
func OverrideProgressFromEnv(cfg *ProgressConfig) {
	if ttl := os.Getenv("PROGRESS_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.CacheTTL = d
		}
	}
	if scope := os.Getenv("PROGRESS_STAGE_SCOPE"); scope != "" {
		cfg.StageScope = scope
	}
	if strict := os.Getenv("PROGRESS_ENFORCE_SAME_PROJECT"); strict != "" {
		cfg.EnforceSameProject = strings.EqualFold(strict, "true")
	}
	if spec := os.Getenv("PROGRESS_REFRESH_CRON"); spec != "" {
		cfg.RefreshCron = spec
	}
}
