package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	LogLevel      string              `yaml:"log_level"`
}

// ServerConfig holds the listening ports.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// DatabaseConfig describes the database of record.
type DatabaseConfig struct {
	Dialect         string        `yaml:"dialect"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	HostBackup      string        `yaml:"host_backup"`
	PortBackup      int           `yaml:"port_backup"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AuthConfig configures bearer-token checks on /api. An empty secret disables them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// NotificationsConfig selects where change signals come from.
type NotificationsConfig struct {
	Mode         string        `yaml:"mode"`
	MinReconnect time.Duration `yaml:"min_reconnect"`
	MaxReconnect time.Duration `yaml:"max_reconnect"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// KafkaConfig enables relaying change events to a topic when Brokers is set.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"

	NotifyPostgres = "postgres"
	NotifyLocal    = "local"
	NotifyOff      = "off"
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, MetricsPort: 9090},
		Database: DatabaseConfig{
			Dialect:         DialectPostgres,
			Host:            "localhost",
			Port:            5432,
			PortBackup:      5432,
			Name:            "brigade",
			SSLMode:         "disable",
			Path:            "brigade.db",
			MaxOpenConns:    100,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Notifications: NotificationsConfig{
			Mode:         NotifyPostgres,
			MinReconnect: 10 * time.Second,
			MaxReconnect: time.Minute,
			PingInterval: 90 * time.Second,
		},
		Kafka:    KafkaConfig{Topic: "kds.changes"},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (a missing file is not an error), then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return fmt.Errorf("unsupported database dialect %q", c.Database.Dialect)
	}

	switch c.Notifications.Mode {
	case NotifyPostgres:
		if c.Database.Dialect != DialectPostgres {
			return fmt.Errorf("notifications mode %q requires the postgres dialect", NotifyPostgres)
		}
	case NotifyLocal, NotifyOff:
	default:
		return fmt.Errorf("unsupported notifications mode %q", c.Notifications.Mode)
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("environment variable %s must be a valid number", key)
		}
		*dst = n
		return nil
	}

	setString("DB_HOST", &c.Database.Host)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_HOST_BACKUP", &c.Database.HostBackup)
	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("KAFKA_BROKERS", &c.Kafka.Brokers)

	for key, dst := range map[string]*int{
		"PORT":           &c.Server.Port,
		"DB_PORT":        &c.Database.Port,
		"DB_PORT_BACKUP": &c.Database.PortBackup,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Debug reports whether verbose logging was requested.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}
