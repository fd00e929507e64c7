package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/client"
	"github.com/Sternrassler/group-roster-client/pkg/roster"
	"github.com/redis/go-redis/v9"
)

// errGroupIDNotNumber is shown verbatim to the user.
var errGroupIDNotNumber = errors.New("Group ID must be a number.")

// options holds the fetch command configuration. Defaults come from the
// environment (and .env), flags override them.
type options struct {
	apiURL        string
	userAgent     string
	redisAddr     string
	checkpointTTL time.Duration
	pageDelay     time.Duration
	retryDelay    time.Duration
	maxAttempts   int
	metricsAddr   string
	logLevel      string
	pretty        bool
}

func defaultOptions() *options {
	defaults := roster.DefaultConfig()
	return &options{
		apiURL:        getEnv("GROUPS_API_URL", client.DefaultBaseURL),
		userAgent:     getEnv("USER_AGENT", "group-roster/"+version),
		redisAddr:     getEnv("REDIS_URL", ""),
		checkpointTTL: getEnvDuration("CHECKPOINT_TTL", 24*time.Hour),
		pageDelay:     defaults.PageDelay,
		retryDelay:    defaults.Retry.Delay,
		maxAttempts:   defaults.Retry.MaxAttempts,
		metricsAddr:   getEnv("METRICS_ADDR", ""),
		logLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// collectorConfig maps the options onto the collector configuration.
func (o *options) collectorConfig() roster.Config {
	cfg := roster.DefaultConfig()
	cfg.PageDelay = o.pageDelay
	cfg.Retry.Delay = o.retryDelay
	cfg.Retry.MaxAttempts = o.maxAttempts
	return cfg
}

// clientConfig maps the options onto the API client configuration.
func (o *options) clientConfig() client.Config {
	cfg := client.DefaultConfig(o.userAgent)
	cfg.BaseURL = o.apiURL
	return cfg
}

// parseGroupID accepts a positive decimal group id.
func parseGroupID(s string) (string, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return "", errGroupIDNotNumber
	}
	return strconv.FormatUint(id, 10), nil
}

// redisOptions accepts either host:port or a redis:// URL.
func redisOptions(addr string) (*redis.Options, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
