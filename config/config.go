// Package config 加载服务配置：yaml 文件 + 环境变量覆盖。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/recall"
)

// Config 是服务的全量配置。字段通过 mapstructure 标签映射 yaml 键，
// 环境变量用 TASTEKIT_ 前缀、点号换下划线（如 TASTEKIT_SERVER_ADDR）。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Model    ModelConfig    `mapstructure:"model"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"` // 空串表示不启用画像缓存
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// EngineConfig 是推荐引擎的行为参数。
type EngineConfig struct {
	ColdStartThreshold int           `mapstructure:"cold_start_threshold"`
	ScorerTimeout      time.Duration `mapstructure:"scorer_timeout"`
	// Rules 是可选的 CEL 候选过滤表达式，作用于知识打分源。
	Rules []string `mapstructure:"rules"`
	// DietConstraintsFile 指向 yaml 饮食约束表，覆盖内置表。
	DietConstraintsFile string `mapstructure:"diet_constraints_file"`
}

type ModelConfig struct {
	VAEWeightsPath string `mapstructure:"vae_weights_path"`
	GRUWeightsPath string `mapstructure:"gru_weights_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 读取配置：可选 .env → yaml 文件（path 为空时找 ./config.yaml）→ 环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TASTEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("engine.cold_start_threshold", core.DefaultColdStartThreshold)
	v.SetDefault("engine.scorer_timeout", 2*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 检查取值范围；DSN 留到连接时再报错，便于纯内存运行测试。
func (c *Config) Validate() error {
	if c.Engine.ColdStartThreshold <= 0 {
		return fmt.Errorf("config: engine.cold_start_threshold must be positive, got %d", c.Engine.ColdStartThreshold)
	}
	if c.Engine.ScorerTimeout < 0 {
		return fmt.Errorf("config: engine.scorer_timeout must not be negative")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("config: redis.ttl must not be negative")
	}
	return nil
}

// DietConstraints 返回生效的饮食约束表：配置了覆盖文件就加载它，
// 否则用内置表。覆盖文件是 diet 类型 → 约束 的 yaml 映射。
func (c *Config) DietConstraints() (map[core.DietType]recall.DietConstraint, error) {
	if c.Engine.DietConstraintsFile == "" {
		return recall.DefaultDietConstraints(), nil
	}
	raw, err := os.ReadFile(c.Engine.DietConstraintsFile)
	if err != nil {
		return nil, fmt.Errorf("config: diet constraints: %w", err)
	}
	constraints := make(map[core.DietType]recall.DietConstraint)
	if err := yaml.Unmarshal(raw, &constraints); err != nil {
		return nil, fmt.Errorf("config: diet constraints: %w", err)
	}
	return constraints, nil
}
