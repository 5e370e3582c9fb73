// Package config provides functionality for managing configuration options
// for the server and the CLI client using command-line flags, an optional
// JSON file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// AccessSecret signs access tokens.
	AccessSecret string `json:"access_token_secret_key"`
	// RefreshSecret signs refresh tokens.
	RefreshSecret string `json:"refresh_token_secret_key"`

	// AccessTTLMinutes and RefreshTTLMinutes are token lifetimes in minutes.
	AccessTTLMinutes  int `json:"access_token_expire_minutes"`
	RefreshTTLMinutes int `json:"refresh_token_expire_minutes"`

	// LoginRPS and LoginBurst throttle the login endpoint per client IP.
	LoginRPS   float64 `json:"login_rps"`
	LoginBurst int     `json:"login_burst"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is passed to the logger.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// AccessTTL returns the access token lifetime.
func (o *Options) AccessTTL() time.Duration {
	return time.Duration(o.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (o *Options) RefreshTTL() time.Duration {
	return time.Duration(o.RefreshTTLMinutes) * time.Minute
}

// ErrMissingSecret is returned when a token signing secret is not configured.
var ErrMissingSecret = errors.New("token secrets must be set")

// register binds the server flags to o on fs with their default values.
func register(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.AccessSecret, "access-secret", "", "access token secret")
	fs.StringVar(&o.RefreshSecret, "refresh-secret", "", "refresh token secret")
	fs.IntVar(&o.AccessTTLMinutes, "access-ttl", 60, "access token lifetime, minutes")
	fs.IntVar(&o.RefreshTTLMinutes, "refresh-ttl", 60*60*30, "refresh token lifetime, minutes")
	fs.Float64Var(&o.LoginRPS, "login-rps", 1, "login attempts per second per client")
	fs.IntVar(&o.LoginBurst, "login-burst", 5, "login attempts burst per client")
	fs.StringVar(&o.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&o.LogLevel, "log-level", "Info", "log level")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values and exits the process on invalid input.
func Parse() *Options {
	options, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return options
}

// Load resolves options from args parsed on fs, then the JSON config file, then
// the environment. Later sources win.
func Load(fs *flag.FlagSet, args []string) (*Options, error) {
	options := &Options{}
	register(fs, options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if s := os.Getenv("ACCESS_TOKEN_SECRET_KEY"); s != "" {
		options.AccessSecret = s
	}
	if s := os.Getenv("REFRESH_TOKEN_SECRET_KEY"); s != "" {
		options.RefreshSecret = s
	}
	if err := envInt("ACCESS_TOKEN_EXPIRE_MINUTES", &options.AccessTTLMinutes); err != nil {
		return nil, err
	}
	if err := envInt("REFRESH_TOKEN_EXPIRE_MINUTES", &options.RefreshTTLMinutes); err != nil {
		return nil, err
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		options.LogLevel = lvl
	}

	if options.AccessSecret == "" || options.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	return options, nil
}

func envInt(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	*dst = v
	return nil
}

// ClientOptions holds the CLI client settings.
type ClientOptions struct {
	// URL is the backend base URL.
	URL string
	// TokenFile is where the session credential is persisted.
	TokenFile string
	// CA is an optional PEM file trusted in addition to the system roots.
	CA string
	// TokenKey, when set, seals the token file with AES-GCM.
	TokenKey string
}

// ClientDefaults returns client settings from the environment, falling back
// to a local backend and a token file under the user's home directory.
func ClientDefaults() ClientOptions {
	o := ClientOptions{
		URL:       os.Getenv("CROWDFUND_URL"),
		TokenFile: os.Getenv("CROWDFUND_TOKEN_FILE"),
		CA:        os.Getenv("CROWDFUND_CA"),
		TokenKey:  os.Getenv("CROWDFUND_TOKEN_KEY"),
	}
	if o.URL == "" {
		o.URL = "http://localhost:8080"
	}
	if o.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		o.TokenFile = filepath.Join(home, ".crowdfund", "token.json")
	}
	return o
}
