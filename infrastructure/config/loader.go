package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Audio     AudioConfig     `yaml:"audio"`
	Tools     ToolsConfig     `yaml:"tools"`
	Storage   StorageConfig   `yaml:"storage"`
	Google    GoogleConfig    `yaml:"google"`
	Handshake HandshakeConfig `yaml:"handshake"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	RequestsPerMin  int           `yaml:"requests_per_min"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PathsConfig contains directory paths for media processing
type PathsConfig struct {
	WorkingDirectory string `yaml:"working_directory"`
}

// AudioConfig contains audio extraction settings
type AudioConfig struct {
	Bitrate string `yaml:"bitrate"`
}

// ToolsConfig contains paths to the external media tools
type ToolsConfig struct {
	YTDLPPath  string `yaml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// StorageConfig selects and configures the entity storage backend
type StorageConfig struct {
	Backend      string `yaml:"backend"` // "memory" or "redis"
	RedisAddress string `yaml:"redis_address"`
}

// GoogleConfig contains Google OAuth client settings.
// ClientID and ClientSecret may also be provided via the GOOGLE_CLIENT_ID
// and GOOGLE_CLIENT_SECRET environment variables, which take precedence.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// HandshakeConfig controls authorization handshake expiry
type HandshakeConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":5000",
			MaxUploadMB:     100,
			RequestsPerMin:  120,
			ShutdownTimeout: 10 * time.Second,
		},
		Paths: PathsConfig{
			WorkingDirectory: "uploads",
		},
		Audio: AudioConfig{
			Bitrate: "192k",
		},
		Tools: ToolsConfig{
			YTDLPPath:  "yt-dlp",
			FFmpegPath: "ffmpeg",
		},
		Storage: StorageConfig{
			Backend:      "memory",
			RedisAddress: "localhost:6379",
		},
		Handshake: HandshakeConfig{
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads and parses the configuration from the specified YAML file,
// filling unset values with defaults and applying env overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load, but falls back to defaults plus env
// overrides when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		c.Google.RedirectURL = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Storage.RedisAddress = v
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q: expected memory or redis", c.Storage.Backend)
	}
	if c.Handshake.TTL <= 0 {
		return fmt.Errorf("handshake ttl must be positive")
	}
	if c.Handshake.SweepInterval <= 0 {
		return fmt.Errorf("handshake sweep_interval must be positive")
	}
	return nil
}
