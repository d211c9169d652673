// Package config builds the immutable process configuration: defaults, an
// optional TOML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Auth   AuthConfig   `toml:"auth"`
	AI     AIConfig     `toml:"ai"`
	Speech SpeechConfig `toml:"speech"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	PublicDir      string   `toml:"public_dir"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StoreConfig names the Postgres roles used for each access scope. With
// SwitchRoles off every statement runs as the connecting user.
type StoreConfig struct {
	SwitchRoles       bool   `toml:"switch_roles"`
	AnonRole          string `toml:"anon_role"`
	AuthenticatedRole string `toml:"authenticated_role"`
	ServiceRole       string `toml:"service_role"`
}

// AuthConfig points at the external identity provider.
type AuthConfig struct {
	URL            string `toml:"url"`
	AnonKey        string `toml:"-"`
	ServiceRoleKey string `toml:"-"`
	JWTSecret      string `toml:"-"`
}

// Configured reports whether the identity provider can be reached.
func (a AuthConfig) Configured() bool { return a.URL != "" && a.AnonKey != "" }

// ServiceRoleEnabled reports whether a privileged store context is available.
func (a AuthConfig) ServiceRoleEnabled() bool { return a.ServiceRoleKey != "" }

type AIConfig struct {
	// TimeoutSeconds bounds one provider call; 0 leaves calls unbounded.
	TimeoutSeconds int              `toml:"timeout_seconds"`
	Azure          AzureConfig      `toml:"azure"`
	OpenRouter     OpenRouterConfig `toml:"openrouter"`
	Gemini         GeminiConfig     `toml:"gemini"`
}

func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type AzureConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"-"`
	Deployment string `toml:"deployment"`
	APIVersion string `toml:"api_version"`
}

func (a AzureConfig) Configured() bool { return a.Endpoint != "" && a.APIKey != "" }

type OpenRouterConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"-"`
	Model   string `toml:"model"`
	Referer string `toml:"referer"`
	Title   string `toml:"title"`
}

func (o OpenRouterConfig) Configured() bool { return o.APIKey != "" }

type GeminiConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"-"`
	Model   string `toml:"model"`
}

func (g GeminiConfig) Configured() bool { return g.APIKey != "" }

type SpeechConfig struct {
	Key    string `toml:"-"`
	Region string `toml:"region"`
}

// Defaults returns the configuration used when neither file nor env say otherwise.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":3000",
			PublicDir:      "public",
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			SwitchRoles:       true,
			AnonRole:          "anon",
			AuthenticatedRole: "authenticated",
			ServiceRole:       "service_role",
		},
		AI: AIConfig{
			Azure: AzureConfig{
				Deployment: "gpt-4",
				APIVersion: "2024-02-15-preview",
			},
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "google/gemini-2.0-flash-exp:free",
				Referer: "http://localhost:3000",
				Title:   "AI Portfolio Generator",
			},
			Gemini: GeminiConfig{
				Model: "gemini-3-flash-preview",
			},
		},
		Speech: SpeechConfig{Region: "uaenorth"},
	}
}

// Load reads the optional TOML file at path and applies environment overrides.
// Secrets are only taken from the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	setString(&c.Server.Addr, "ADDR")
	setString(&c.Server.PublicDir, "PUBLIC_DIR")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	if v := os.Getenv("DB_SWITCH_ROLES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Store.SwitchRoles = b
		}
	}
	setString(&c.Store.AnonRole, "DB_ANON_ROLE")
	setString(&c.Store.AuthenticatedRole, "DB_AUTHENTICATED_ROLE")
	setString(&c.Store.ServiceRole, "DB_SERVICE_ROLE")

	setString(&c.Auth.URL, "SUPABASE_URL", "VITE_SUPABASE_URL")
	setString(&c.Auth.AnonKey, "SUPABASE_ANON_KEY", "VITE_SUPABASE_PUBLISHABLE_KEY")
	setString(&c.Auth.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	setString(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	c.Auth.URL = strings.TrimRight(c.Auth.URL, "/")

	if v := os.Getenv("AI_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.AI.TimeoutSeconds = n
		}
	}
	setString(&c.AI.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&c.AI.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.AI.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	setString(&c.AI.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
	c.AI.Azure.Endpoint = strings.TrimRight(c.AI.Azure.Endpoint, "/")

	setString(&c.AI.OpenRouter.APIKey, "OPENROUTER_API_KEY", "VITE_OPENROUTER_API_KEY")
	setString(&c.AI.OpenRouter.Model, "OPENROUTER_MODEL", "VITE_OPENROUTER_MODEL")
	setString(&c.AI.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")

	setString(&c.AI.Gemini.APIKey, "GEMINI_API_KEY", "VITE_GEMINI_API_KEY")
	setString(&c.AI.Gemini.Model, "GEMINI_MODEL")
	setString(&c.AI.Gemini.BaseURL, "GEMINI_BASE_URL")

	setString(&c.Speech.Key, "AZURE_SPEECH_KEY", "VITE_AZURE_SPEECH_KEY")
	setString(&c.Speech.Region, "AZURE_SPEECH_REGION", "VITE_AZURE_SPEECH_REGION")
}

// setString assigns the first non-empty variable among keys.
func setString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dst = v
			return
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
