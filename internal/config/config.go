package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"60"` // 生成整月报表可能比较慢
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Holiday struct {
		APIBaseURL     string `env:"API_BASE_URL,required"`
		RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"10"`
		CacheTTL       int    `env:"CACHE_TTL" envDefault:"86400"` // 节假日数据一天内不会变化
	} `envPrefix:"HOLIDAY_"`
	Scheduler struct {
		MaxDayRetries          int `env:"MAX_DAY_RETRIES" envDefault:"10"`
		BusinessDaySearchLimit int `env:"BUSINESS_DAY_SEARCH_LIMIT" envDefault:"10"`
	} `envPrefix:"SCHEDULER_"`
	Rotation struct {
		MinExperience   int32    `env:"MIN_EXPERIENCE" envDefault:"5"`
		MaxRetries      int      `env:"MAX_RETRIES" envDefault:"3"`
		SpacingDays     int      `env:"SPACING_DAYS" envDefault:"3"`
		FragileDept     string   `env:"FRAGILE_DEPT"`
		DutyDepartments []string `env:"DUTY_DEPARTMENTS" envSeparator:","`
		// 科室权重，形如 "内科:0.5,外科:1.5"，未出现的科室按 1.0 计
		DeptWeights map[string]float64 `env:"DEPT_WEIGHTS"`
	} `envPrefix:"ROTATION_"`
	Notify struct {
		Email string `env:"EMAIL,required"` // 报表生成完成后的通知收件人
	} `envPrefix:"NOTIFY_"`
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
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Seed struct {
		StaffDepartments []string `env:"STAFF_DEPARTMENTS" envDefault:"内科,外科,小儿科,放射科" envSeparator:","`
	} `envPrefix:"SEED_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
