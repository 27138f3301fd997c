// Package config loads the gateway's runtime configuration from environment
// variables, with defaults matching the upstream Code Assist deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file shape: every field mirrors an
// environment variable of the same concern and only overrides the default
// when the env var itself is unset (env always wins over the file).
type fileConfig struct {
	Port               string   `yaml:"port"`
	AuthPassword       string   `yaml:"auth_password"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	ClientID           string   `yaml:"oauth_client_id"`
	ClientSecret       string   `yaml:"oauth_client_secret"`
	AuthURI            string   `yaml:"oauth_auth_uri"`
	TokenURI           string   `yaml:"oauth_token_uri"`
	Scopes             []string `yaml:"oauth_scopes"`
	CredentialFilePath string   `yaml:"credential_file"`
	OAuthCallbackPort  int      `yaml:"oauth_callback_port"`

	GoogleCloudProject string `yaml:"google_cloud_project"`

	CodeAssist string `yaml:"code_assist_endpoint"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// loadFileConfig reads the YAML config file named by GEMINI_GATEWAY_CONFIG,
// defaulting to "gateway.yaml" in the working directory. A missing file is
// not an error: env vars and built-in defaults are enough on their own.
func loadFileConfig() (*fileConfig, error) {
	path := getEnv("GEMINI_GATEWAY_CONFIG", "gateway.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &fc, nil
}

// Config holds every tunable the gateway reads at startup. Fields are
// populated once in Load and treated as read-only afterwards.
type Config struct {
	// HTTP surface
	Port                string
	AuthPassword         string
	CORSAllowedOrigins   []string

	// OAuth / credential
	ClientID           string
	ClientSecret       string
	AuthURI            string
	TokenURI           string
	Scopes             []string
	CredentialFilePath string
	OAuthCallbackPort  int

	// Project resolution
	GoogleCloudProject string

	// Upstream transport
	CodeAssist                string
	UpstreamMaxAttempts        int
	UpstreamBackoffBaseSec     float64
	UpstreamBackoffMaxSec      float64
	UpstreamMaxConnections     int
	UpstreamMaxIdlePerHost     int
	UpstreamConnectTimeoutSec  int
	UpstreamResponseHdrTimeout int

	// Onboarding
	OnboardPollIntervalSec float64
	OnboardMaxWaitSec      float64

	// Logging
	LogLevel  string
	LogFormat string
}

// Default Google OAuth client used by the official Gemini CLI. These are
// not secret in the traditional sense: they identify the CLI application,
// not a user, and are embedded in every public build of the client this
// gateway impersonates.
const (
	defaultClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	defaultClientSecret = "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"
	defaultAuthURI      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURI     = "https://oauth2.googleapis.com/token"
	defaultCodeAssist   = "https://cloudcode-pa.googleapis.com"
)

var defaultScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Load builds a Config from environment variables and an optional YAML
// config file, applying built-in defaults for anything neither sets. Env
// vars always take priority over the file, and the file over the default.
func Load() (*Config, error) {
	fc, err := loadFileConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", firstNonEmptyStr(fc.Port, "8080")),
		AuthPassword:       getEnv("GEMINI_AUTH_PASSWORD", firstNonEmptyStr(fc.AuthPassword, "123456")),
		CORSAllowedOrigins: splitCSVOrFallback(getEnv("CORS_ALLOWED_ORIGINS", ""), fc.CORSAllowedOrigins, []string{"*"}),

		ClientID:           getEnv("GEMINI_OAUTH_CLIENT_ID", firstNonEmptyStr(fc.ClientID, defaultClientID)),
		ClientSecret:       getEnv("GEMINI_OAUTH_CLIENT_SECRET", firstNonEmptyStr(fc.ClientSecret, defaultClientSecret)),
		AuthURI:            getEnv("GEMINI_OAUTH_AUTH_URI", firstNonEmptyStr(fc.AuthURI, defaultAuthURI)),
		TokenURI:           getEnv("GEMINI_OAUTH_TOKEN_URI", firstNonEmptyStr(fc.TokenURI, defaultTokenURI)),
		Scopes:             firstNonEmptyList(fc.Scopes, defaultScopes),
		CredentialFilePath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", firstNonEmptyStr(fc.CredentialFilePath, "credentials.json")),
		OAuthCallbackPort:  getEnvIntOrFallback("GEMINI_OAUTH_CALLBACK_PORT", fc.OAuthCallbackPort, 8080),

		GoogleCloudProject: getEnv("GOOGLE_CLOUD_PROJECT", fc.GoogleCloudProject),

		CodeAssist:                 getEnv("CODE_ASSIST_ENDPOINT", firstNonEmptyStr(fc.CodeAssist, defaultCodeAssist)),
		UpstreamMaxAttempts:        getEnvInt("UPSTREAM_MAX_ATTEMPTS", 10),
		UpstreamBackoffBaseSec:     getEnvFloat("UPSTREAM_BACKOFF_BASE_S", 1.0),
		UpstreamBackoffMaxSec:      getEnvFloat("UPSTREAM_BACKOFF_MAX_S", 30.0),
		UpstreamMaxConnections:     getEnvInt("UPSTREAM_MAX_CONNECTIONS", 100),
		UpstreamMaxIdlePerHost:     getEnvInt("UPSTREAM_MAX_KEEPALIVE_CONNECTIONS", 20),
		UpstreamConnectTimeoutSec:  getEnvInt("UPSTREAM_CONNECT_TIMEOUT_S", 20),
		UpstreamResponseHdrTimeout: getEnvInt("UPSTREAM_RESPONSE_HEADER_TIMEOUT_S", 0),

		OnboardPollIntervalSec: getEnvFloat("ONBOARD_POLL_INTERVAL_S", 2.5),
		OnboardMaxWaitSec:      getEnvFloat("ONBOARD_MAX_WAIT_S", 90.0),

		LogLevel:  getEnv("LOG_LEVEL", firstNonEmptyStr(fc.LogLevel, "info")),
		LogFormat: getEnv("LOG_FORMAT", firstNonEmptyStr(fc.LogFormat, "text")),
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("config: PORT must not be empty")
	}
	return cfg, nil
}

func firstNonEmptyStr(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func firstNonEmptyList(v, fallback []string) []string {
	if len(v) > 0 {
		return v
	}
	return fallback
}

func getEnvIntOrFallback(key string, fileVal, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if fileVal > 0 {
		return fileVal
	}
	return fallback
}

func splitCSVOrFallback(envVal string, fileVal, fallback []string) []string {
	if envVal != "" {
		return splitCSV(envVal)
	}
	if len(fileVal) > 0 {
		return fileVal
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
