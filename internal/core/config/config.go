package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	CORSOrigins       []string
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxInflight       int64
	MaxBodyBytes      int64
}

type App struct {
	Name      string
	Version   string
	Debug     bool
	SecretKey string
	HTTP      HTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string // empty = stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type DB struct {
	Driver             string
	URL                string // DATABASE_URL, wins over the discrete fields
	Host               string
	Port               int
	User               string
	Password           string
	Name               string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App App
	Log Log
	DB  DB
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// DefaultSecretKey is what SECRET_KEY falls back to; main warns when it is
	// still in use outside debug mode.
	DefaultSecretKey = "change-me"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 3306)
	v.SetDefault("db_user", "root")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "fastapi_db")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("db_conn_max_lifetime_min", 30)
	v.SetDefault("auto_migrate", true)

	v.SetDefault("app_name", "User Service")
	v.SetDefault("app_version", "1.0.0")
	v.SetDefault("debug", true)
	v.SetDefault("secret_key", DefaultSecretKey)

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("http_read_timeout_sec", 5)
	v.SetDefault("http_write_timeout_sec", 10)
	v.SetDefault("http_idle_timeout_sec", 60)
	v.SetDefault("request_timeout_sec", 10)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("rate_limit_rps", 200)
	v.SetDefault("rate_limit_burst", 400)
	v.SetDefault("max_inflight", 300)
	v.SetDefault("max_body_bytes", 1<<20)

	v.SetDefault("log_json", false)
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 100)
	v.SetDefault("log_max_backups", 7)
	v.SetDefault("log_max_age_days", 30)
}

// Load reads settings from the environment, optionally layered over a YAML
// file (path argument or CONFIG_PATH). Keys are unprefixed: db_host in YAML,
// DB_HOST in the environment. Structurally invalid values are reported
// together in the returned error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	v.AutomaticEnv()

	r := &reader{v: v}
	var c Config

	c.App.Name = v.GetString("app_name")
	c.App.Version = v.GetString("app_version")
	c.App.Debug = r.bool("debug")
	c.App.SecretKey = v.GetString("secret_key")
	c.App.HTTP = HTTP{
		Host:              v.GetString("host"),
		Port:              r.port("port"),
		ReadTimeoutSec:    r.int("http_read_timeout_sec"),
		WriteTimeoutSec:   r.int("http_write_timeout_sec"),
		IdleTimeoutSec:    r.int("http_idle_timeout_sec"),
		RequestTimeoutSec: r.int("request_timeout_sec"),
		CORSOrigins:       r.origins("cors_origins"),
		RateLimitRPS:      r.float("rate_limit_rps"),
		RateLimitBurst:    r.int("rate_limit_burst"),
		MaxInflight:       int64(r.int("max_inflight")),
		MaxBodyBytes:      int64(r.int("max_body_bytes")),
	}

	c.Log = Log{
		Level:      v.GetString("log_level"),
		JSON:       r.bool("log_json"),
		File:       v.GetString("log_file"),
		MaxSizeMB:  r.int("log_max_size_mb"),
		MaxBackups: r.int("log_max_backups"),
		MaxAgeDays: r.int("log_max_age_days"),
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
		if c.App.Debug {
			c.Log.Level = "debug"
		}
	}

	c.DB = DB{
		URL:                strings.TrimSpace(v.GetString("database_url")),
		Host:               v.GetString("db_host"),
		Port:               r.port("db_port"),
		User:               v.GetString("db_user"),
		Password:           v.GetString("db_password"),
		Name:               v.GetString("db_name"),
		MaxOpenConns:       r.int("db_max_open_conns"),
		MaxIdleConns:       r.int("db_max_idle_conns"),
		ConnMaxLifetimeMin: r.int("db_conn_max_lifetime_min"),
		AutoMigrate:        r.bool("auto_migrate"),
		LogLevel:           v.GetString("db_log_level"),
	}
	if c.DB.LogLevel == "" {
		c.DB.LogLevel = "warn"
		if c.App.Debug {
			c.DB.LogLevel = "info"
		}
	}
	c.DB.Driver = r.driver(v.GetString("db_driver"), c.DB.URL)

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// reader collects every parse failure so a bad deployment sees all of them at once.
type reader struct {
	v    *viper.Viper
	errs []error
}

func (r *reader) int(key string) int {
	raw := strings.TrimSpace(r.v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", strings.ToUpper(key), raw))
		return 0
	}
	if n < 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: must not be negative", strings.ToUpper(key)))
	}
	return n
}

func (r *reader) port(key string) int {
	n := r.int(key)
	if n < 1 || n > 65535 {
		r.errs = append(r.errs, fmt.Errorf("%s: %d is out of range 1-65535", strings.ToUpper(key), n))
	}
	return n
}

func (r *reader) float(key string) float64 {
	raw := strings.TrimSpace(r.v.GetString(key))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", strings.ToUpper(key), raw))
	}
	return f
}

func (r *reader) bool(key string) bool {
	raw := strings.TrimSpace(r.v.GetString(key))
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", strings.ToUpper(key), raw))
	}
	return b
}

func (r *reader) driver(explicit, url string) string {
	d := strings.ToLower(strings.TrimSpace(explicit))
	if d == "" {
		d = driverFromURL(url)
	}
	switch d {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return d
	case "postgresql", "pgx":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	}
	r.errs = append(r.errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", d))
	return d
}

func (r *reader) origins(key string) []string {
	list := splitList(r.v.GetString(key))
	for _, o := range list {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			r.errs = append(r.errs, fmt.Errorf("%s: origin %q must be \"*\" or start with http:// or https://", strings.ToUpper(key), o))
		}
	}
	return list
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
