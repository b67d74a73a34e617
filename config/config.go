package config

import (
	"fmt"

	pkgconfig "github.com/fosware/conecta-toolv1-sub004/pkg/config"
)

type Config struct {
	DB       pkgconfig.DBConfig       `yaml:"db"`
	MQ       pkgconfig.MQConfig       `yaml:"mq"`
	Redis    pkgconfig.RedisConfig    `yaml:"redis"`
	JWT      pkgconfig.JWTConfig      `yaml:"jwt"`
	Server   pkgconfig.ServerConfig   `yaml:"server"`
	Otel     pkgconfig.OtelConfig     `yaml:"otel"`
	Progress pkgconfig.ProgressConfig `yaml:"progress"`
	LogLevel string                   `yaml:"log_level"`
}

// Load 读取 CONFIG_FILE（默认 config.yaml）及 CONFIG_ENV 对应的覆盖文件，
// 然后用环境变量覆盖（生产环境使用）
func Load() (*Config, error) {
	path := pkgconfig.GetEnv("CONFIG_FILE", "config.yaml")

	var cfg Config
	if err := pkgconfig.LoadFile(path, pkgconfig.GetConfigEnv(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideOtelFromEnv(&cfg.Otel)
	pkgconfig.OverrideProgressFromEnv(&cfg.Progress)
	cfg.LogLevel = pkgconfig.GetEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Progress.ApplyDefaults()
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Otel.ServiceName == "" {
		cfg.Otel.ServiceName = "conecta-progress"
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &cfg, nil
}
