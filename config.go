package goAuthClient

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config controls a Client. Start from DefaultConfig and override what you need.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Refresh RefreshConfig `yaml:"refresh"`
	Retry   RetryConfig   `yaml:"retry"`
	Store   StoreConfig   `yaml:"store"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

/*
====================================
REQUEST CONFIG
====================================
*/

// RequestConfig shapes outgoing API requests.
type RequestConfig struct {
	// BaseURL is prefixed to every relative Request.Path. Empty means paths must be absolute.
	BaseURL string        `yaml:"base_url" env:"GOAUTHCLIENT_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"GOAUTHCLIENT_REQUEST_TIMEOUT"`
	// UserAgent is set on requests that do not carry one.
	UserAgent string `yaml:"user_agent" env:"GOAUTHCLIENT_USER_AGENT"`
	// RequestIDHeader receives a fresh UUID per request unless the caller set one or put an
	// id on the context. Empty disables request ids.
	RequestIDHeader  string `yaml:"request_id_header" env:"GOAUTHCLIENT_REQUEST_ID_HEADER"`
	MaxResponseBytes int64  `yaml:"max_response_bytes" env:"GOAUTHCLIENT_MAX_RESPONSE_BYTES"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig bounds the refresh call.
type RefreshConfig struct {
	// Timeout bounds one refresh call. It runs detached from any caller's context.
	Timeout time.Duration `yaml:"timeout" env:"GOAUTHCLIENT_REFRESH_TIMEOUT"`
	// ProactiveWindow refreshes before sending when the access token expires within it.
	// Zero disables proactive refresh.
	ProactiveWindow time.Duration `yaml:"proactive_window" env:"GOAUTHCLIENT_PROACTIVE_WINDOW"`
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryConfig lists the statuses treated as an expired access token.
type RetryConfig struct {
	AuthFailureStatuses []int `yaml:"auth_failure_statuses" env:"GOAUTHCLIENT_AUTH_FAILURE_STATUSES"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig is used when the builder creates a Redis-backed session store.
type StoreConfig struct {
	RedisPrefix string        `yaml:"redis_prefix" env:"GOAUTHCLIENT_REDIS_PREFIX"`
	SessionName string        `yaml:"session_name" env:"GOAUTHCLIENT_SESSION_NAME"`
	TTL         time.Duration `yaml:"ttl" env:"GOAUTHCLIENT_SESSION_TTL"`
}

/*
====================================
EVENTS / METRICS / LOG CONFIG
====================================
*/

type EventsConfig struct {
	Enabled    bool `yaml:"enabled" env:"GOAUTHCLIENT_EVENTS_ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"GOAUTHCLIENT_EVENTS_BUFFER"`
	DropIfFull bool `yaml:"drop_if_full" env:"GOAUTHCLIENT_EVENTS_DROP_IF_FULL"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"GOAUTHCLIENT_METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms" env:"GOAUTHCLIENT_METRICS_LATENCY"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"GOAUTHCLIENT_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"GOAUTHCLIENT_LOG_DEVELOPMENT"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		Request: RequestConfig{
			Timeout:          30 * time.Second,
			UserAgent:        "goAuthClient",
			RequestIDHeader:  "X-Request-ID",
			MaxResponseBytes: 10 << 20,
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			AuthFailureStatuses: []int{http.StatusUnauthorized},
		},
		Store: StoreConfig{
			RedisPrefix: "gac",
			SessionName: "default",
			TTL:         7 * 24 * time.Hour,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Retry.AuthFailureStatuses = append([]int(nil), cfg.Retry.AuthFailureStatuses...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Request
	if c.Request.BaseURL != "" {
		u, err := url.Parse(c.Request.BaseURL)
		if err != nil {
			return errors.New("Request BaseURL is not a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Request BaseURL must use http or https")
		}
		if u.Host == "" {
			return errors.New("Request BaseURL must include a host")
		}
	}
	if c.Request.Timeout <= 0 {
		return errors.New("Request Timeout must be > 0")
	}
	if c.Request.MaxResponseBytes <= 0 {
		return errors.New("Request MaxResponseBytes must be > 0")
	}
	if strings.ContainsAny(c.Request.RequestIDHeader, " :\r\n") {
		return errors.New("Request RequestIDHeader is not a valid header name")
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}

	// Retry
	if len(c.Retry.AuthFailureStatuses) == 0 {
		return errors.New("Retry AuthFailureStatuses must not be empty")
	}
	for _, status := range c.Retry.AuthFailureStatuses {
		if status < 400 || status > 599 {
			return errors.New("Retry AuthFailureStatuses must be 4xx or 5xx codes")
		}
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}
	if c.Store.SessionName == "" {
		return errors.New("Store SessionName must not be empty")
	}
	if c.Store.TTL < 0 {
		return errors.New("Store TTL must be >= 0")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("Log Level must be one of debug, info, warn, error")
	}

	return nil
}

func (c *Config) isAuthFailure(status int) bool {
	for _, s := range c.Retry.AuthFailureStatuses {
		if s == status {
			return true
		}
	}
	return false
}
