package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute

	defaultPGHost    = "localhost"
	defaultPGPort    = 5432
	defaultPGSSLMode = "disable"
)

// ErrDatabaseNotConfigured is returned when neither DATABASE_URL nor the
// individual PG_* variables are set.
var ErrDatabaseNotConfigured = errors.New("database not configured: set DATABASE_URL or PG_HOST/PG_USER/PG_DATABASE")

// Config holds PostgreSQL connection configuration with production-ready
// defaults. DATABASE_URL wins when set; otherwise the URL is assembled from
// the individual PG_* variables.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads PostgreSQL configuration from environment variables.
func LoadConfig() *Config {
	databaseURL := config.GetEnvStr("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = assemblePGURL()
	}

	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// NewConfig builds a Config around an explicit database URL. Used by tests
// and the migrator.
func NewConfig(databaseURL string) *Config {
	return &Config{
		databaseURL:     databaseURL,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}

// assemblePGURL builds a postgres URL from individual PG_* variables.
// Returns "" when the required pieces are absent.
func assemblePGURL() string {
	user := config.GetEnvStr("PG_USER", "")
	database := config.GetEnvStr("PG_DATABASE", "")

	if user == "" || database == "" {
		return ""
	}

	host := config.GetEnvStr("PG_HOST", defaultPGHost)
	port := config.GetEnvInt("PG_PORT", defaultPGPort)
	password := config.GetEnvStr("PG_PASSWORD", "")
	sslMode := config.GetEnvStr("PG_SSLMODE", defaultPGSSLMode)

	userInfo := url.User(user)
	if password != "" {
		userInfo = url.UserPassword(user, password)
	}

	built := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}

	return built.String()
}

// Validate checks if the PostgreSQL configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseNotConfigured
	}

	return nil
}

// DatabaseURL exposes the connection string to the connection layer and the
// migrator. Never log this value directly; use MaskDatabaseURL.
func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	afterScheme := c.databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return c.databaseURL
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return c.databaseURL
	}

	username := userInfo[:colonIndex]
	password := userInfo[colonIndex+1:]

	if password == "" {
		return c.databaseURL
	}

	scheme := c.databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
