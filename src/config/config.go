// Copyright (c) 2026 Khaled Abbas
//
// This source code is licensed under the Business Source License 1.1.
//
// Change Date: 4 years after the first public release of this version.
// Change License: MIT
//
// On the Change Date, this version of the code automatically converts
// to the MIT License. Prior to that date, use is subject to the
// Additional Use Grant. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"todoservice/src/model"
)

// Required settings, checked before any connection attempt.
var requiredVars = []string{
	"POSTGRES_DB",
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
	"POSTGRES_HOST",
	"POSTGRES_PORT",
}

type DatabaseConfig struct {
	Name           string
	User           string
	Password       string
	Host           string
	Port           int
	SSLMode        string
	ConnectTimeout time.Duration
}

type Config struct {
	APIPort         string
	Environment     string
	SkipSchemaInit  bool
	StdoutTraces    bool
	StdoutMetrics   bool
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	Database        DatabaseConfig
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &model.ConfigurationError{Err: fmt.Errorf("load .env: %w", err)}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Every missing required
// setting is reported in a single ConfigurationError.
func FromEnv(getenv func(string) string) (*Config, error) {
	var missing []string
	for _, key := range requiredVars {
		if strings.TrimSpace(getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &model.ConfigurationError{Missing: missing}
	}

	port, err := strconv.Atoi(getenv("POSTGRES_PORT"))
	if err != nil || port < 1 || port > 65535 {
		return nil, &model.ConfigurationError{Err: fmt.Errorf("POSTGRES_PORT %q is not a valid port", getenv("POSTGRES_PORT"))}
	}

	connectTimeout, err := durationOr(getenv, "DB_CONNECT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationOr(getenv, "SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		APIPort:         stringOr(getenv, "API_PORT", "8080"),
		Environment:     stringOr(getenv, "ENVIRONMENT", "development"),
		SkipSchemaInit:  boolOr(getenv, "TEST_ENV", false),
		StdoutTraces:    boolOr(getenv, "OTEL_STDOUT_TRACES", false),
		StdoutMetrics:   boolOr(getenv, "OTEL_STDOUT_METRICS", false),
		AllowedOrigins:  splitList(stringOr(getenv, "CORS_ALLOWED_ORIGINS", "*")),
		ShutdownTimeout: shutdownTimeout,
		Database: DatabaseConfig{
			Name:           getenv("POSTGRES_DB"),
			User:           getenv("POSTGRES_USER"),
			Password:       getenv("POSTGRES_PASSWORD"),
			Host:           getenv("POSTGRES_HOST"),
			Port:           port,
			SSLMode:        stringOr(getenv, "POSTGRES_SSLMODE", "require"),
			ConnectTimeout: connectTimeout,
		},
	}, nil
}

// DSN renders a lib/pq key/value connection string.
func (db DatabaseConfig) DSN() string {
	pairs := []string{
		"user=" + quote(db.User),
		"password=" + quote(db.Password),
		"dbname=" + quote(db.Name),
		"host=" + quote(db.Host),
		"port=" + strconv.Itoa(db.Port),
		"sslmode=" + quote(db.SSLMode),
	}
	if db.ConnectTimeout > 0 {
		secs := int(db.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		pairs = append(pairs, "connect_timeout="+strconv.Itoa(secs))
	}
	return strings.Join(pairs, " ")
}

// quote escapes a value per the libpq conninfo rules.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func stringOr(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func boolOr(getenv func(string) string, key string, def bool) bool {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func durationOr(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &model.ConfigurationError{Err: fmt.Errorf("%s: %w", key, err)}
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
