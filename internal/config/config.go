package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
	Monitor  MonitorConfig  `json:"monitor"`
	Alerting AlertingConfig `json:"alerting"`
}

type ServerConfig struct {
	BindAddr  string `json:"bindAddr"`
	AuthToken string `json:"authToken"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type MonitorConfig struct {
	ReportTTL        string   `json:"reportTTL"` // e.g. "60s"
	FleetTTL         string   `json:"fleetTTL"`
	Workers          int      `json:"workers"`
	RecentAlertLimit int      `json:"recentAlertLimit"`
	ScanInterval     string   `json:"scanInterval"` // periodic fleet scan, e.g. "5m"
	Tenants          []string `json:"tenants"`      // tenants scanned by the background scheduler
}

type AlertingConfig struct {
	RulesFile string `json:"rulesFile"` // optional YAML rule overrides
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr:  getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
			AuthToken: getEnv("SERVER_AUTH_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "fleethealth"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Monitor: MonitorConfig{
			ReportTTL:        getEnv("MONITOR_REPORT_TTL", "60s"),
			FleetTTL:         getEnv("MONITOR_FLEET_TTL", "120s"),
			Workers:          getEnvInt("MONITOR_WORKERS", 8),
			RecentAlertLimit: getEnvInt("MONITOR_RECENT_ALERT_LIMIT", 10),
			ScanInterval:     getEnv("MONITOR_SCAN_INTERVAL", "5m"),
		},
		Alerting: AlertingConfig{
			RulesFile: getEnv("ALERT_RULES_FILE", ""),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Monitor.ReportTTL == "" {
		cfg.Monitor.ReportTTL = "60s"
	}
	if cfg.Monitor.FleetTTL == "" {
		cfg.Monitor.FleetTTL = "120s"
	}
	if cfg.Monitor.Workers == 0 {
		cfg.Monitor.Workers = 8
	}
	if cfg.Monitor.RecentAlertLimit == 0 {
		cfg.Monitor.RecentAlertLimit = 10
	}
	if cfg.Monitor.ScanInterval == "" {
		cfg.Monitor.ScanInterval = "5m"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
