package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danjos91/my-bank-app/internal/gateway"
	"github.com/danjos91/my-bank-app/internal/resilience"
)

const (
	defaultAppName         = "MyBank Gateway"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	Env              string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	AccountsURL      string
	NotificationsURL string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration

	Resilience ResilienceConfig
	Admission  AdmissionConfig
}

// ResilienceConfig carries the per-dependency breaker and retry tuning. The
// accounts service is load-bearing and gets a conservative breaker; the
// notifications service is best effort and trips late with a short timeout.
type ResilienceConfig struct {
	Accounts      resilience.Policy
	Notifications resilience.Policy
}

// AdmissionConfig carries the per-route-group admission tuning.
type AdmissionConfig struct {
	Transfers gateway.AdmissionPolicy
	Cash      gateway.AdmissionPolicy
	Queries   gateway.AdmissionPolicy
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		Env:              getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		AccountsURL:      os.Getenv("ACCOUNTS_URL"),
		NotificationsURL: os.Getenv("NOTIFICATIONS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		Resilience:       defaultResilience(),
		Admission:        defaultAdmission(),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	// Production requires the full backing stack; development degrades to
	// in-memory storage, an in-process limiter and stubbed dependencies.
	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.AccountsURL == "" {
			return Config{}, fmt.Errorf("ACCOUNTS_URL must be set")
		}
		if cfg.NotificationsURL == "" {
			return Config{}, fmt.Errorf("NOTIFICATIONS_URL must be set")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production requirements.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func defaultResilience() ResilienceConfig {
	return ResilienceConfig{
		Accounts: resilience.Policy{
			MaxAttempts:          3,
			RetryBackoff:         200 * time.Millisecond,
			Timeout:              20 * time.Second,
			FailureRateThreshold: 0.40,
			SlidingWindow:        time.Minute,
			MinimumCalls:         5,
			WaitDurationOpen:     60 * time.Second,
			HalfOpenMaxCalls:     3,
		},
		Notifications: resilience.Policy{
			MaxAttempts:          2,
			RetryBackoff:         100 * time.Millisecond,
			Timeout:              5 * time.Second,
			FailureRateThreshold: 0.70,
			SlidingWindow:        time.Minute,
			MinimumCalls:         5,
			WaitDurationOpen:     20 * time.Second,
			HalfOpenMaxCalls:     3,
		},
	}
}

func defaultAdmission() AdmissionConfig {
	return AdmissionConfig{
		Transfers: gateway.AdmissionPolicy{
			MaxRequests:          60,
			Window:               time.Minute,
			FailureRateThreshold: 0.50,
			MinimumCalls:         10,
			WaitDurationOpen:     30 * time.Second,
		},
		Cash: gateway.AdmissionPolicy{
			MaxRequests:          80,
			Window:               time.Minute,
			FailureRateThreshold: 0.50,
			MinimumCalls:         10,
			WaitDurationOpen:     30 * time.Second,
		},
		Queries: gateway.AdmissionPolicy{
			MaxRequests:          100,
			Window:               time.Minute,
			FailureRateThreshold: 0.60,
			MinimumCalls:         20,
			WaitDurationOpen:     15 * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
