package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultHttpPort             = 8080
	defaultDbDriver             = "sqlite"
	defaultSqlitePath           = "leads.db"
	defaultNudgeIntervalMinutes = 240
	defaultTickInterval         = "1m"
	defaultNudgeBatchSize       = 50
	defaultSmtpPort             = 587
)

type SmtpConfig struct {
	Host     string `json:"host" env:"HOST"`
	Port     int    `json:"port" env:"PORT"`
	User     string `json:"user" env:"USER"`
	Password string `json:"password" env:"PASSWORD"`
	From     string `json:"from" env:"FROM"`
}

type Config struct {
	HttpPort             int           `json:"http_port" env:"HTTP_PORT"`
	DbDriver             string        `json:"db_driver" env:"DB_DRIVER"`
	DbConnString         string        `json:"db_conn_string" env:"DATABASE_URL"`
	RedisAddr            string        `json:"redis_addr" env:"REDIS_ADDR"`
	SchedulingURL        string        `json:"scheduling_url" env:"SCHEDULING_URL"`
	NudgeIntervalMinutes int           `json:"nudge_interval_minutes" env:"NUDGE_INTERVAL_MINUTES"`
	TickIntervalStr      string        `json:"tick_interval" env:"TICK_INTERVAL"`
	TickInterval         time.Duration `json:"-"`
	NudgeBatchSize       int           `json:"nudge_batch_size" env:"NUDGE_BATCH_SIZE"`
	AdvanceOnSendFailure *bool         `json:"advance_on_send_failure" env:"ADVANCE_ON_SEND_FAILURE"`
	Origins              []string      `json:"origins" env:"ORIGINS" envSeparator:","`
	SmsWebhookUrl        string        `json:"sms_webhook_url" env:"SMS_WEBHOOK_URL"`
	SendMaxRetry         *int          `json:"send_max_retry" env:"SEND_MAX_RETRY"`
	Smtp                 SmtpConfig    `json:"smtp" envPrefix:"SMTP_"`
}

// LoadConfig reads the optional json config file, then lets the environment
// (and a .env file, when present) override it and fills in defaults.
func LoadConfig(configFile string) (*Config, error) {
	cfg := new(Config)

	if configFile != "" {
		if err := ReadConfigJson(configFile, cfg); err != nil {
			return nil, err
		}
	}

	// a missing .env file is fine
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadConfigJson reads json formatted configuration from the given file
func ReadConfigJson(configFile string, cfg *Config) error {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}

	return json.Unmarshal(content, cfg)
}

func (c *Config) NudgeInterval() time.Duration {
	return time.Duration(c.NudgeIntervalMinutes) * time.Minute
}

func (c *Config) applyDefaults() error {
	if c.HttpPort == 0 {
		c.HttpPort = defaultHttpPort
	}
	if c.DbDriver == "" {
		c.DbDriver = defaultDbDriver
	}
	if c.DbDriver == "sqlite" && c.DbConnString == "" {
		c.DbConnString = defaultSqlitePath
	}
	if c.DbDriver != "sqlite" && c.DbDriver != "postgres" {
		return fmt.Errorf("unsupported db driver %q", c.DbDriver)
	}
	if c.NudgeIntervalMinutes <= 0 {
		c.NudgeIntervalMinutes = defaultNudgeIntervalMinutes
	}
	if c.TickIntervalStr == "" {
		c.TickIntervalStr = defaultTickInterval
	}
	if c.NudgeBatchSize <= 0 {
		c.NudgeBatchSize = defaultNudgeBatchSize
	}
	if c.AdvanceOnSendFailure == nil {
		advance := true
		c.AdvanceOnSendFailure = &advance
	}
	if len(c.Origins) == 0 {
		c.Origins = []string{"*"}
	}
	if c.Smtp.Port == 0 {
		c.Smtp.Port = defaultSmtpPort
	}

	var err error
	c.TickInterval, err = time.ParseDuration(c.TickIntervalStr)
	if err != nil {
		return fmt.Errorf("invalid tick interval: %w", err)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}

	return nil
}
