// Package config 加载评分流水线与查询服务的配置。
//
// 优先级（低 → 高）：内置默认值 → YAML 文件 → 环境变量。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 是顶层配置
type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Output  string        `yaml:"output" env:"CHURN_OUTPUT_PATH"`
	Model   ModelConfig   `yaml:"model"`
	Query   QueryConfig   `yaml:"query"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourcesConfig 两张原始表的位置
type SourcesConfig struct {
	Customer string `yaml:"customer" env:"CHURN_CUSTOMER_PATH"`
	Personal string `yaml:"personal" env:"CHURN_PERSONAL_PATH"`
}

// ModelConfig Newton 迭代参数
type ModelConfig struct {
	MaxIter int     `yaml:"max_iter" env:"CHURN_MODEL_MAX_ITER"`
	Tol     float64 `yaml:"tol" env:"CHURN_MODEL_TOL"`
}

// QueryConfig 查询服务参数
type QueryConfig struct {
	TopN int `yaml:"top_n" env:"CHURN_QUERY_TOP_N"`
}

// RedisConfig 评分发布目标；Enabled=false 时不发布
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled" env:"CHURN_REDIS_ENABLED"`
	Addr      string `yaml:"addr" env:"CHURN_REDIS_ADDR"`
	Password  string `yaml:"password" env:"CHURN_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"CHURN_REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"CHURN_REDIS_KEY_PREFIX"`
}

// LoggingConfig 日志级别与格式（console / json）
type LoggingConfig struct {
	Level  string `yaml:"level" env:"CHURN_LOG_LEVEL"`
	Format string `yaml:"format" env:"CHURN_LOG_FORMAT"`
}

// MetricsConfig 指标导出；Textfile 为空时不导出
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"CHURN_METRICS_TEXTFILE"`
}

// Default 返回内置默认值
func Default() Config {
	return Config{
		Sources: SourcesConfig{
			Customer: "Data/data_customer.csv",
			Personal: "Data/data_personal.csv",
		},
		Output: "data_with_churn_prob.csv",
		Model:  ModelConfig{MaxIter: 35, Tol: 1e-8},
		Query:  QueryConfig{TopN: 10},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "churn:",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load 按优先级加载配置。path 为空时跳过 YAML 文件。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadYAML 把 YAML 文件合并到 target（文件中未出现的字段保持原值）
func LoadYAML(path string, target *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ParseEnv 用环境变量覆盖配置。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Sources.Customer) == "" {
		errs = append(errs, errors.New("sources.customer is required"))
	}
	if strings.TrimSpace(c.Sources.Personal) == "" {
		errs = append(errs, errors.New("sources.personal is required"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.Model.MaxIter <= 0 {
		errs = append(errs, fmt.Errorf("model.max_iter must be positive, got %d", c.Model.MaxIter))
	}
	if c.Model.Tol <= 0 {
		errs = append(errs, fmt.Errorf("model.tol must be positive, got %g", c.Model.Tol))
	}
	if c.Query.TopN <= 0 {
		errs = append(errs, fmt.Errorf("query.top_n must be positive, got %d", c.Query.TopN))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Exitf 把错误写到 stderr 并以退出码 1 结束进程，供 CLI 入口使用。
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
