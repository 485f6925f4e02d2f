package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"calfeed/src-server/aggregate"
	"calfeed/src-server/fetch"
	"calfeed/src-server/ical"
)

type Config struct {
	port        string
	databaseDSN string
	staticRoot  string

	timezone ical.Timezone

	fetchTimeout         time.Duration
	fetchMaxSize         int64
	aggregateParallelism int

	refreshCron    string
	adminToken     string
	integrations   *Integrations
	metricInterval time.Duration
}

// Read the configuration from the environment. Optional values fall back to
// a default with a warning; malformed values are collected and returned
// together.
func NewConfig() (*Config, error) {
	var errs []error
	invalid := func(key, value string, err error) {
		errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
	}
	duration := func(key, fallback string) time.Duration {
		value := os.Getenv(key)
		if value == "" {
			slog.Warn(key+" is not set", "default", fallback)
			value = fallback
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			if err == nil {
				err = errors.New("must be positive")
			}
			invalid(key, value, err)
			return 0
		}
		slog.Debug("env", key, d)
		return d
	}

	c := &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		databaseDSN: func() string {
			dsn := os.Getenv("DATABASE_DSN")
			if dsn == "" {
				dsn = "file:calfeed.db?cache=shared&mode=rwc"
				slog.Warn("DATABASE_DSN is not set", "default", dsn)
			}
			return dsn
		}(),
		staticRoot: func() string {
			root := os.Getenv("STATIC_ROOT")
			if root == "" {
				root = "./static"
				slog.Warn("STATIC_ROOT is not set", "default", root)
			}
			slog.Debug("env", "STATIC_ROOT", root)
			return root
		}(),

		timezone: func() ical.Timezone {
			tz := ical.DefaultTimezone
			if id := os.Getenv("TIMEZONE"); id != "" {
				tz.ID = id
			}
			if abbr := os.Getenv("TIMEZONE_ABBR"); abbr != "" {
				tz.Abbr = abbr
			}
			if value := os.Getenv("TIMEZONE_OFFSET"); value != "" {
				offset, err := ical.ParseOffset(value)
				if err != nil {
					invalid("TIMEZONE_OFFSET", value, err)
				}
				tz.Offset = offset
			}
			slog.Debug("env", "TIMEZONE", tz.ID, "TIMEZONE_ABBR", tz.Abbr, "TIMEZONE_OFFSET", tz.OffsetString())
			return tz
		}(),

		fetchTimeout: duration("FETCH_TIMEOUT", fetch.DefaultTimeout.String()),
		fetchMaxSize: func() int64 {
			value := os.Getenv("FETCH_MAX_SIZE")
			if value == "" {
				return fetch.DefaultMaxSize
			}
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil || size <= 0 {
				invalid("FETCH_MAX_SIZE", value, errors.New("must be a positive number of bytes"))
				return 0
			}
			slog.Debug("env", "FETCH_MAX_SIZE", size)
			return size
		}(),
		aggregateParallelism: func() int {
			value := os.Getenv("AGGREGATE_PARALLELISM")
			if value == "" {
				return aggregate.DefaultParallelism
			}
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				invalid("AGGREGATE_PARALLELISM", value, errors.New("must be a positive integer"))
				return 0
			}
			slog.Debug("env", "AGGREGATE_PARALLELISM", n)
			return n
		}(),

		refreshCron: func() string {
			spec := strings.TrimSpace(os.Getenv("REFRESH_CRON"))
			if spec == "" {
				spec = "@every 1h"
			}
			slog.Debug("env", "REFRESH_CRON", spec)
			return spec
		}(),
		adminToken: func() string {
			token := os.Getenv("ADMIN_TOKEN")
			if token == "" {
				slog.Warn("ADMIN_TOKEN is not set, schedule uploads are disabled")
				return ""
			}
			slog.Debug("env", "ADMIN_TOKEN", token[0:min(3, len(token))]+"...")
			return token
		}(),
		integrations: func() *Integrations {
			path := os.Getenv("INTEGRATIONS_FILE")
			if path == "" {
				slog.Warn("INTEGRATIONS_FILE is not set, integration feeds are disabled")
				return &Integrations{}
			}
			integrations, err := LoadIntegrations(path)
			if err != nil {
				errs = append(errs, err)
				return &Integrations{}
			}
			slog.Debug("env", "INTEGRATIONS_FILE", path)
			return integrations
		}(),
		metricInterval: duration("METRIC_INTERVAL", "15s"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("NewConfig: %w", err)
	}
	return c, nil
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_DSN env
func (c *Config) GetDatabaseDSN() string {
	return c.databaseDSN
}

// Get STATIC_ROOT env
func (c *Config) GetStaticRoot() string {
	return c.staticRoot
}

// Get TIMEZONE, TIMEZONE_ABBR and TIMEZONE_OFFSET env
func (c *Config) GetTimezone() ical.Timezone {
	return c.timezone
}

// Get FETCH_TIMEOUT env
func (c *Config) GetFetchTimeout() time.Duration {
	return c.fetchTimeout
}

// Get FETCH_MAX_SIZE env
func (c *Config) GetFetchMaxSize() int64 {
	return c.fetchMaxSize
}

// Get AGGREGATE_PARALLELISM env
func (c *Config) GetAggregateParallelism() int {
	return c.aggregateParallelism
}

// Get REFRESH_CRON env
func (c *Config) GetRefreshCron() string {
	return c.refreshCron
}

// Get ADMIN_TOKEN env, empty when uploads are disabled
func (c *Config) GetAdminToken() string {
	return c.adminToken
}

// Get the integrations listed in INTEGRATIONS_FILE
func (c *Config) GetIntegrations() *Integrations {
	return c.integrations
}

// Get METRIC_INTERVAL env
func (c *Config) GetMetricInterval() time.Duration {
	return c.metricInterval
}
