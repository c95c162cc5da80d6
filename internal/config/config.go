package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/schema"
)

const redactedPassword = "<redacted>"

// Database holds the destination connection settings.
type Database struct {
	Driver   schema.Dialect
	Username string
	Password string
	Host     string
	Port     int
	// Name is the database name, or the database file path for sqlite.
	Name    string
	SSLMode string
}

// Config is the runtime configuration of a cleaning run. It is built once at startup.
type Config struct {
	Database Database

	CSVPath      string
	CSVDelimiter rune

	Table          string
	BatchSize      int
	WriteRateLimit float64
	ConnectTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
//
// Example:
//
//	database:
//	  driver: mysql
//	  host: db.internal
//	  port: 3306
//	  name: shop
//	input:
//	  path: /data/products.csv
//	output:
//	  table: products
//	  batch_size: 500
type fileConfig struct {
	Database struct {
		Driver   string `yaml:"driver"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Input struct {
		Path      string `yaml:"path"`
		Delimiter string `yaml:"delimiter"`
	} `yaml:"input"`
	Output struct {
		Table     string  `yaml:"table"`
		BatchSize int     `yaml:"batch_size"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"output"`
	ConnectTimeout string `yaml:"connect_timeout"`
	Log            struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Defaults returns the configuration used when neither the file nor the environment sets a value.
func Defaults() Config {
	return Config{
		Database:       Database{Driver: schema.DialectMySQL, SSLMode: "disable"},
		CSVDelimiter:   ',',
		Table:          "products",
		BatchSize:      500,
		ConnectTimeout: 10 * time.Second,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds the configuration from defaults, then the YAML file named by CONFIG_FILE (if
// any), then the environment variables read through getenv. Later sources win. The result is
// not validated: modes that never touch the database skip Validate.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	e := env(getenv)

	if path := e.str("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(e); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse CONFIG_FILE YAML: %w", err)
	}

	if fc.Database.Driver != "" {
		d, err := schema.NormalizeDialect(fc.Database.Driver)
		if err != nil {
			return fmt.Errorf("CONFIG_FILE database.driver: %w", err)
		}
		c.Database.Driver = d
	}
	setString(&c.Database.Username, fc.Database.Username)
	setString(&c.Database.Password, fc.Database.Password)
	setString(&c.Database.Host, fc.Database.Host)
	setString(&c.Database.Name, fc.Database.Name)
	setString(&c.Database.SSLMode, fc.Database.SSLMode)
	if fc.Database.Port != 0 {
		c.Database.Port = fc.Database.Port
	}
	setString(&c.CSVPath, fc.Input.Path)
	if fc.Input.Delimiter != "" {
		r, err := parseDelimiter(fc.Input.Delimiter)
		if err != nil {
			return fmt.Errorf("CONFIG_FILE input.delimiter: %w", err)
		}
		c.CSVDelimiter = r
	}
	setString(&c.Table, fc.Output.Table)
	if fc.Output.BatchSize != 0 {
		c.BatchSize = fc.Output.BatchSize
	}
	if fc.Output.RateLimit != 0 {
		c.WriteRateLimit = fc.Output.RateLimit
	}
	if fc.ConnectTimeout != "" {
		d, err := time.ParseDuration(strings.TrimSpace(fc.ConnectTimeout))
		if err != nil {
			return fmt.Errorf("CONFIG_FILE connect_timeout: %w", err)
		}
		c.ConnectTimeout = d
	}
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	return nil
}

func (c *Config) applyEnv(e env) error {
	if v := e.str("DB_DRIVER"); v != "" {
		d, err := schema.NormalizeDialect(v)
		if err != nil {
			return fmt.Errorf("invalid DB_DRIVER=%q: %w", v, err)
		}
		c.Database.Driver = d
	}
	setString(&c.Database.Username, e.str("USERNAME"))
	// Passwords may legitimately carry surrounding spaces.
	if v := e.raw("PASSWORD"); v != "" {
		c.Database.Password = v
	}
	setString(&c.Database.Host, e.str("HOST"))
	setString(&c.Database.Name, e.str("DATABASE"))
	setString(&c.Database.SSLMode, e.str("DB_SSLMODE"))
	setString(&c.CSVPath, e.str("CSV_PATH"))
	setString(&c.Table, e.str("TABLE_NAME"))
	setString(&c.LogLevel, e.str("LOG_LEVEL"))
	setString(&c.LogFormat, e.str("LOG_FORMAT"))

	var err error
	if c.Database.Port, err = e.intVar("PORT", c.Database.Port); err != nil {
		return err
	}
	if c.BatchSize, err = e.intVar("WRITE_BATCH_SIZE", c.BatchSize); err != nil {
		return err
	}
	if c.WriteRateLimit, err = e.floatVar("WRITE_RATE_LIMIT", c.WriteRateLimit); err != nil {
		return err
	}
	if c.ConnectTimeout, err = e.durationVar("CONNECT_TIMEOUT", c.ConnectTimeout); err != nil {
		return err
	}
	if v := e.raw("CSV_DELIMITER"); v != "" {
		r, err := parseDelimiter(v)
		if err != nil {
			return fmt.Errorf("invalid CSV_DELIMITER=%q: %w", v, err)
		}
		c.CSVDelimiter = r
	}
	return nil
}

// Validate rejects configurations that could only fail later, at connection time.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("TABLE_NAME must not be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("WRITE_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.WriteRateLimit < 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must not be negative, got %g", c.WriteRateLimit)
	}
	return c.Database.Validate()
}

// Validate checks the settings required by the selected driver.
func (d Database) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("DATABASE is required")
	}
	if d.Driver == schema.DialectSQLite {
		return nil
	}
	if d.Username == "" {
		return fmt.Errorf("USERNAME is required for %s", d.Driver)
	}
	if d.Host == "" {
		return fmt.Errorf("HOST is required for %s", d.Driver)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", d.Port)
	}
	return nil
}

// DSN returns the driver-specific connection string.
func (d Database) DSN(timeout time.Duration) string {
	return d.dsn(timeout, false)
}

// RedactedDSN returns the connection string with the password masked, for logging.
func (d Database) RedactedDSN(timeout time.Duration) string {
	return d.dsn(timeout, true)
}

func (d Database) dsn(timeout time.Duration, masked bool) string {
	switch d.Driver {
	case schema.DialectSQLite:
		return d.Name
	case schema.DialectPostgres:
		q := url.Values{}
		if d.SSLMode != "" {
			q.Set("sslmode", d.SSLMode)
		}
		if timeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(timeout.Round(time.Second)/time.Second)))
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.Username, d.Password),
			Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.port())),
			Path:     "/" + d.Name,
			RawQuery: q.Encode(),
		}
		if masked {
			return u.Redacted()
		}
		return u.String()
	default:
		mc := mysql.NewConfig()
		mc.User = d.Username
		mc.Passwd = d.Password
		if masked && mc.Passwd != "" {
			mc.Passwd = redactedPassword
		}
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.port()))
		mc.DBName = d.Name
		mc.Timeout = timeout
		return mc.FormatDSN()
	}
}

func (d Database) port() int {
	if d.Port != 0 {
		return d.Port
	}
	if d.Driver == schema.DialectPostgres {
		return 5432
	}
	return 3306
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseDelimiter(v string) (rune, error) {
	if v == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character")
	}
	r, _ := utf8.DecodeRuneInString(v)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", r)
	}
	return r, nil
}

type env func(string) string

func (e env) raw(varName string) string {
	return e(varName)
}

func (e env) str(varName string) string {
	return strings.TrimSpace(e(varName))
}

func (e env) intVar(varName string, fallback int) (int, error) {
	v := e.str(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func (e env) floatVar(varName string, fallback float64) (float64, error) {
	v := e.str(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func (e env) durationVar(varName string, fallback time.Duration) (time.Duration, error) {
	v := e.str(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
