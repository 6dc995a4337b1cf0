package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type ConfigSchema struct {
	Databases struct {
		Driver          string        `yaml:"driver"`
		Path            string        `yaml:"path"` // файл базы для sqlite
		Master          DBConfig      `yaml:"master"`
		Replicas        []DBConfig    `yaml:"replicas"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"db"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"logs"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
		RateLimit float64       `yaml:"rate_limit"` // запросов в секунду на IP для signin/signup
		RateBurst int           `yaml:"rate_burst"`
	} `yaml:"auth"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		FeedTTL  time.Duration `yaml:"feed_ttl"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Cleanup struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"cleanup"`
}

var AppConfig *ConfigSchema

// NewDefault - конфигурация со значениями по умолчанию
func NewDefault() *ConfigSchema {
	conf := &ConfigSchema{}
	conf.Databases.Driver = DriverPostgres
	conf.Databases.Path = "connekta.db"
	conf.Databases.Master.Host = "localhost"
	conf.Databases.Master.Port = 5432
	conf.Databases.Master.DBName = "connekta"
	conf.Databases.MaxOpenConns = 20
	conf.Databases.MaxIdleConns = 5
	conf.Databases.ConnMaxLifetime = 30 * time.Minute
	conf.Backend.Host = "0.0.0.0"
	conf.Backend.Port = 8080
	conf.Logs.Level = "info"
	conf.Logs.Encoding = "json"
	conf.Auth.TokenTTL = 24 * time.Hour
	conf.Auth.RateLimit = 5
	conf.Auth.RateBurst = 10
	conf.Redis.Host = "localhost"
	conf.Redis.Port = 6379
	conf.Redis.FeedTTL = 30 * time.Second
	conf.RabbitMQ.Exchange = "social_events"
	conf.RabbitMQ.Queue = "social_events_ws"
	conf.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	conf.Cleanup.Schedule = "@every 1h"
	return conf
}

// LoadConfig читает YAML-файл поверх значений по умолчанию,
// затем применяет переменные окружения CONNEKTA_*
func LoadConfig(filePath string) error {
	conf := NewDefault()
	data, err := os.ReadFile(filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		if err = yaml.Unmarshal(data, conf); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}
	}

	applyEnv(conf)

	if err = conf.Validate(); err != nil {
		return err
	}
	AppConfig = conf
	return nil
}

func (c *ConfigSchema) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or CONNEKTA_JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	switch c.Databases.Driver {
	case DriverPostgres:
		if c.Databases.Master.Host == "" {
			return fmt.Errorf("master database configuration is missing")
		}
	case DriverSQLite:
		if c.Databases.Path == "" {
			return fmt.Errorf("db.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.Databases.Driver)
	}
	return nil
}

func (c *ConfigSchema) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Backend.Host, c.Backend.Port)
}

func applyEnv(conf *ConfigSchema) {
	v := viper.New()
	v.SetEnvPrefix("CONNEKTA")
	v.AutomaticEnv()

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("db_driver", &conf.Databases.Driver)
	setString("db_path", &conf.Databases.Path)
	setString("db_host", &conf.Databases.Master.Host)
	setInt("db_port", &conf.Databases.Master.Port)
	setString("db_user", &conf.Databases.Master.User)
	setString("db_password", &conf.Databases.Master.Password)
	setString("db_name", &conf.Databases.Master.DBName)
	setString("backend_host", &conf.Backend.Host)
	setInt("backend_port", &conf.Backend.Port)
	setString("log_level", &conf.Logs.Level)
	setString("log_encoding", &conf.Logs.Encoding)
	setString("jwt_secret", &conf.Auth.JWTSecret)
	setString("redis_host", &conf.Redis.Host)
	setInt("redis_port", &conf.Redis.Port)
	setString("redis_password", &conf.Redis.Password)
	setString("rabbitmq_url", &conf.RabbitMQ.URL)

	if v.IsSet("token_ttl") {
		conf.Auth.TokenTTL = v.GetDuration("token_ttl")
	}
	if v.IsSet("redis_enabled") {
		conf.Redis.Enabled = v.GetBool("redis_enabled")
	}
	if v.IsSet("cors_origins") {
		var origins []string
		for _, o := range strings.Split(v.GetString("cors_origins"), ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			conf.CORS.AllowedOrigins = origins
		}
	}
}
