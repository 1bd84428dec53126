package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Email      EmailConfig      `yaml:"email"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Channels   []string         `yaml:"channels"`
	Schedule   string           `yaml:"schedule"`
	DataDir    string           `yaml:"data_dir"`
}

type YouTubeConfig struct {
	// APIKey is the simple auth mode. When set, the OAuth settings are ignored.
	APIKey       string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
	MaxResults   int64  `yaml:"max_results"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email" env:"RECIPIENT_EMAIL"`
}

type TranscriptConfig struct {
	// Languages in order of preference. Manual tracks win over
	// auto-generated ones within the same language.
	PreferredLanguages []string `yaml:"preferred_languages"`
	DownSubBaseURL     string   `yaml:"downsub_base_url"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		// A missing config file is fine, everything can come from the environment.
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
	if c.Email.ToEmail == "" {
		c.Email.ToEmail = os.Getenv("RECIPIENT_EMAIL")
	}

	// CHANNELS replaces the config file list entirely when set.
	if env := os.Getenv("CHANNELS"); env != "" {
		var channels []string
		for _, ch := range strings.Split(env, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
		c.Channels = channels
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.MaxResults == 0 {
		c.YouTube.MaxResults = 10
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Email.SMTPServer == "" {
		c.Email.SMTPServer = "smtp.gmail.com"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.Username
	}
	if len(c.Transcript.PreferredLanguages) == 0 {
		c.Transcript.PreferredLanguages = []string{"en", "en-US", "en-GB"}
	}
	if c.Transcript.DownSubBaseURL == "" {
		c.Transcript.DownSubBaseURL = "https://downsub.com"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 9 * * *" // Daily at 9 AM
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" && (c.YouTube.ClientID == "" || c.YouTube.ClientSecret == "") {
		return fmt.Errorf("YouTube credentials are required (set YOUTUBE_API_KEY, or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET for OAuth)")
	}
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.Email.Username == "" {
		return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
	}
	if c.Email.Password == "" {
		return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
	}
	if c.Email.ToEmail == "" {
		return fmt.Errorf("Recipient email is required (set RECIPIENT_EMAIL or email.to_email)")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel to monitor is required (set CHANNELS or channels)")
	}
	return nil
}
