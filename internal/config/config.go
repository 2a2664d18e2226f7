package config

import (
	"github.com/blues/sps/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Task       TaskConfig       `mapstructure:"task"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// GatewayConfig 外部支付网关配置
type GatewayConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // 网关地址
	APIKey         string `mapstructure:"api_key"`         // 网关密钥
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 单次调用超时（秒）
	MaxRetries     int    `mapstructure:"max_retries"`     // 5xx/超时的最大重试次数
}

// SettlementConfig 结算参数
type SettlementConfig struct {
	FeeRateBps int `mapstructure:"fee_rate_bps"` // 平台手续费率，万分比
}

type TaskConfig struct {
	Interval          int `mapstructure:"interval"`            // 自动结算周期（秒）
	ReconInterval     int `mapstructure:"recon_interval"`      // 支付对账周期（秒）
	StaleAfterSeconds int `mapstructure:"stale_after_seconds"` // 超过该时长的pending支付进入对账
	WorkerPoolSize    int `mapstructure:"worker_pool_size"`    // 批量结算协程池大小
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sps")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "sponsorship")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("gateway.base_url", "http://localhost:9090")
	viper.SetDefault("gateway.timeout_seconds", 10)
	viper.SetDefault("gateway.max_retries", 3)
	viper.SetDefault("settlement.fee_rate_bps", 500)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("task.recon_interval", 300)
	viper.SetDefault("task.stale_after_seconds", 600)
	viper.SetDefault("task.worker_pool_size", 4)
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
