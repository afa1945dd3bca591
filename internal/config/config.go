// Package config provides functionality for managing configuration options
// for the server and the client using command-line flags, an optional JSON
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration

	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval time.Duration

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string

	LogLevel string

	// LoginRate is the per-IP rate (requests per second) for login and
	// signup; LoginBurst is the bucket size.
	LoginRate  float64
	LoginBurst int

	// RedisAddr enables the Redis session cache (host:port or redis:// URL).
	RedisAddr string
	// SessionCacheTTL caps how long a cached session is served from Redis.
	SessionCacheTTL time.Duration

	// TrustProxy takes client addresses from X-Forwarded-For/X-Real-IP.
	TrustProxy bool
}

// fileOptions is the JSON config file layout. Empty values leave the flag
// value in place.
type fileOptions struct {
	Port            string  `json:"address"`
	DatabaseDSN     string  `json:"database_dsn"`
	TokenTTL        string  `json:"token_ttl"`
	CleanupInterval string  `json:"cleanup_interval"`
	TLSCert         string  `json:"tls_cert"`
	TLSKey          string  `json:"tls_key"`
	LogLevel        string  `json:"log_level"`
	LoginRate       float64 `json:"login_rate"`
	LoginBurst      int     `json:"login_burst"`
	RedisAddr       string  `json:"redis_addr"`
	SessionCacheTTL string  `json:"session_cache_ttl"`
	TrustProxy      bool    `json:"trust_proxy"`
}

// Parse parses args (without the program name), then overlays the config
// file and environment variables.
func Parse(args []string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("sessiongate-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.DurationVar(&options.TokenTTL, "token-ttl", 24*time.Hour, "session token lifetime")
	fs.DurationVar(&options.CleanupInterval, "cleanup-interval", time.Hour, "expired session purge interval")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.Float64Var(&options.LoginRate, "login-rate", 1, "login/signup requests per second per client")
	fs.IntVar(&options.LoginBurst, "login-burst", 5, "login/signup burst per client")
	fs.StringVar(&options.RedisAddr, "redis", "", "redis address for the session cache")
	fs.BoolVar(&options.TrustProxy, "trust-proxy", false, "trust X-Forwarded-For and X-Real-IP from a fronting proxy")
	fs.DurationVar(&options.SessionCacheTTL, "session-cache-ttl", 5*time.Minute, "max lifetime of a cached session")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := applyFile(options); err != nil {
			return nil, err
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		options.RedisAddr = redisAddr
	}

	if options.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", options.TokenTTL)
	}
	if options.CleanupInterval <= 0 {
		return nil, fmt.Errorf("cleanup interval must be positive, got %s", options.CleanupInterval)
	}
	if options.SessionCacheTTL <= 0 {
		return nil, fmt.Errorf("session cache ttl must be positive, got %s", options.SessionCacheTTL)
	}
	if (options.TLSCert == "") != (options.TLSKey == "") {
		return nil, errors.New("tls-cert and tls-key must be set together")
	}

	return options, nil
}

func applyFile(options *Options) error {
	data, err := os.ReadFile(options.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var f fileOptions
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	setString(&options.Port, f.Port)
	setString(&options.DatabaseDSN, f.DatabaseDSN)
	setString(&options.TLSCert, f.TLSCert)
	setString(&options.TLSKey, f.TLSKey)
	setString(&options.LogLevel, f.LogLevel)
	setString(&options.RedisAddr, f.RedisAddr)
	if f.TrustProxy {
		options.TrustProxy = true
	}
	if err := setDuration(&options.TokenTTL, f.TokenTTL); err != nil {
		return fmt.Errorf("token_ttl: %w", err)
	}
	if err := setDuration(&options.CleanupInterval, f.CleanupInterval); err != nil {
		return fmt.Errorf("cleanup_interval: %w", err)
	}
	if err := setDuration(&options.SessionCacheTTL, f.SessionCacheTTL); err != nil {
		return fmt.Errorf("session_cache_ttl: %w", err)
	}
	if f.LoginRate > 0 {
		options.LoginRate = f.LoginRate
	}
	if f.LoginBurst > 0 {
		options.LoginBurst = f.LoginBurst
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
