package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"30"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Facility struct {
		Timezone string `env:"TIMEZONE" envDefault:"America/Winnipeg"`
	} `envPrefix:"FACILITY_"`
	Feed struct {
		URL          string `env:"URL"` // 允许为空，请求时再报配置错误
		FetchTimeout int    `env:"FETCH_TIMEOUT" envDefault:"15"`
		MaxBytes     int64  `env:"MAX_BYTES" envDefault:"8388608"` // 8 MiB
	} `envPrefix:"FEED_"`
	Trade struct {
		MinRestHours int `env:"MIN_REST_HOURS" envDefault:"12"`
	} `envPrefix:"TRADE_"`
	Upload struct {
		MaxBytes int64 `env:"MAX_BYTES" envDefault:"10485760"` // 10 MiB
	} `envPrefix:"UPLOAD_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Access struct {
		CodeHash    string `env:"CODE_HASH,required"` // bcrypt 哈希
		MaxAttempts int    `env:"MAX_ATTEMPTS" envDefault:"5"`
		Lockout     int    `env:"LOCKOUT" envDefault:"900"` // 15 分钟
	} `envPrefix:"ACCESS_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"43200"` // 12 小时
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		ContactsFile string `env:"CONTACTS_FILE" envDefault:"data/contacts.csv"`
	} `envPrefix:"SEED_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
}

// LoadConfig 先尝试加载工作目录下的 .env（不存在时忽略，已经设置的环境变量不会被覆盖），再解析环境变量
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("无法读取 .env 文件: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.Trade.MinRestHours <= 0 {
		return nil, fmt.Errorf("TRADE_MIN_REST_HOURS 必须大于 0，当前为 %d", cfg.Trade.MinRestHours)
	}

	return cfg, nil
}

// Location 院区所在时区，所有班次的日期和时刻都以它为准
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Facility.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无法加载时区 %q: %w", c.Facility.Timezone, err)
	}
	return loc, nil
}

func (c *Config) MinRest() time.Duration {
	return time.Duration(c.Trade.MinRestHours) * time.Hour
}
