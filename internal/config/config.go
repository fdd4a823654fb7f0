package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Signature enforcement policies for webhook deliveries.
const (
	SignatureAdvisory = "advisory" // verify only when a signature header is present
	SignatureRequired = "required" // reject deliveries without a valid signature
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port           int      `koanf:"port"`
		AllowedOrigins []string `koanf:"allowed_origins"`
	} `koanf:"server"`

	Instagram struct {
		AccessToken      string `koanf:"access_token"`
		AppID            string `koanf:"app_id"`
		AppSecret        string `koanf:"app_secret"`
		VerifyToken      string `koanf:"verify_token"`
		GraphURL         string `koanf:"graph_url"`
		OAuthGraphURL    string `koanf:"oauth_graph_url"`
		OAuthRedirectURI string `koanf:"oauth_redirect_uri"`
	} `koanf:"instagram"`

	Storage struct {
		DataDir      string `koanf:"data_dir"`
		CommentsFile string `koanf:"comments_file"`
	} `koanf:"storage"`

	Webhook struct {
		Signature string `koanf:"signature"`
	} `koanf:"webhook"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                 8000,
		"server.allowed_origins":      []string{"http://localhost:3000", "http://localhost:3001"},
		"instagram.graph_url":         "https://graph.instagram.com",
		"instagram.oauth_graph_url":   "https://graph.facebook.com/v18.0",
		"instagram.oauth_redirect_uri": "http://localhost:8000/api/auth/instagram/callback",
		"storage.data_dir":            "data",
		"storage.comments_file":       "comments.json",
		"webhook.signature":           SignatureAdvisory,
		"log.level":                   "info",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./gramstack.toml", "./data/gramstack.toml", "$HOME/.gramstack.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix GRAMSTACK_
	k.Load(env.Provider("GRAMSTACK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(s), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# gramstack configuration

[server]
port = 8000
allowed_origins = ["http://localhost:3000"]

[instagram]
access_token = "your-instagram-access-token"
app_id = "your-meta-app-id"
app_secret = "your-meta-app-secret"
verify_token = "your-webhook-verify-token"

[storage]
data_dir = "data"

[webhook]
# "advisory": verify X-Hub-Signature-256 only when the header is present.
# "required": reject deliveries that carry no valid signature.
signature = "advisory"

[log]
level = "info"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Instagram.AccessToken == "" {
		return fmt.Errorf("instagram access token is required")
	}

	if config.Instagram.AppSecret == "" {
		return fmt.Errorf("instagram app secret is required")
	}

	if config.Instagram.VerifyToken == "" {
		return fmt.Errorf("webhook verify token is required")
	}

	switch config.Webhook.Signature {
	case SignatureAdvisory, SignatureRequired:
	default:
		return fmt.Errorf("webhook signature policy must be %q or %q, got %q",
			SignatureAdvisory, SignatureRequired, config.Webhook.Signature)
	}

	if config.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	return nil
}
