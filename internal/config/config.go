package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"semqa/internal/domain"
	"semqa/internal/projector"
	"semqa/internal/resilience"
	"semqa/internal/scene"
	"semqa/internal/transport"
)

// DefaultAPIURLEnv names the environment variable that overrides server.base_url.
const DefaultAPIURLEnv = "SEMQA_API_URL"

// RetryConfig controls reconnect attempts when a stream cannot be opened.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
}

// BreakerConfig controls the circuit breaker in front of the backend.
type BreakerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MinRequests     uint32  `yaml:"min_requests"`
	FailureRatio    float64 `yaml:"failure_ratio"`
	OpenTimeoutSecs int     `yaml:"open_timeout_secs"`
}

// ServerConfig locates the research backend.
type ServerConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIURLEnv   string        `yaml:"api_url_env"`
	Path        string        `yaml:"path"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	UseGRPC     bool          `yaml:"use_grpc"`
	Retry       RetryConfig   `yaml:"retry"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// SearchConfig holds the defaults the search form starts with.
type SearchConfig struct {
	Filters                 domain.SearchFilters `yaml:"filters"`
	UseMultiQuery           bool                 `yaml:"use_multi_query"`
	UseLLMInterpretation    bool                 `yaml:"use_llm_interpretation"`
	MaxDescriptionSentences int                  `yaml:"max_description_sentences"`
}

// SceneConfig configures the embedding point cloud.
type SceneConfig struct {
	scene.Params  `yaml:",inline"`
	FPS           int     `yaml:"fps"`
	PreviewDims   int     `yaml:"preview_dims"`
	PickThreshold float64 `yaml:"pick_threshold"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Search SearchConfig `yaml:"search"`
	Scene  SceneConfig  `yaml:"scene"`
	Log    LogConfig    `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/semqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/semqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return defaultConfig()
}

func DefaultUserConfigPath() (string, error) {
	dir, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func userDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "semqa"), nil
}

func defaultConfig() *AppConfig {
	logFile := "semqa.log"
	if dir, err := userDir(); err == nil {
		logFile = filepath.Join(dir, "semqa.log")
	}
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:     "http://localhost:8000",
			APIURLEnv:   DefaultAPIURLEnv,
			Path:        "/v1/datasets/qa",
			TimeoutSecs: 30,
			UseGRPC:     true,
			Retry:       RetryConfig{MaxAttempts: 2, InitialBackoffMS: 250, MaxBackoffMS: 2000},
			Breaker:     BreakerConfig{Enabled: true, MinRequests: 3, FailureRatio: 0.6, OpenTimeoutSecs: 30},
		},
		Search: SearchConfig{
			Filters: domain.SearchFilters{
				YearFrom:       domain.DefaultYearLow,
				YearTo:         domain.DefaultYearTop,
				EmbeddingModel: domain.DefaultModel,
			},
			UseLLMInterpretation:    true,
			MaxDescriptionSentences: 2,
		},
		Scene: SceneConfig{
			Params:        scene.DefaultParams(),
			FPS:           scene.DefaultFPS,
			PreviewDims:   projector.DefaultPreviewDims,
			PickThreshold: scene.DefaultPickThreshold,
		},
		Log: LogConfig{
			File:       logFile,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = def.Server.BaseURL
	}
	if cfg.Server.APIURLEnv == "" {
		cfg.Server.APIURLEnv = DefaultAPIURLEnv
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = def.Server.Path
	}
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if cfg.Search.Filters.EmbeddingModel == "" {
		cfg.Search.Filters.EmbeddingModel = domain.DefaultModel
	}
	if cfg.Search.MaxDescriptionSentences <= 0 {
		cfg.Search.MaxDescriptionSentences = def.Search.MaxDescriptionSentences
	}
	cfg.Scene.Params = cfg.Scene.Params.Normalize()
	if cfg.Scene.FPS <= 0 {
		cfg.Scene.FPS = scene.DefaultFPS
	}
	if cfg.Scene.PreviewDims < 0 {
		cfg.Scene.PreviewDims = 0
	}
	if cfg.Scene.PickThreshold <= 0 {
		cfg.Scene.PickThreshold = scene.DefaultPickThreshold
	}
	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(cfg.Server.APIURLEnv)); v != "" {
		cfg.Server.BaseURL = v
	}
}

// Transport converts the server section into a stream client configuration.
func (c *AppConfig) Transport() transport.Config {
	s := c.Server
	return transport.Config{
		BaseURL: s.BaseURL,
		Path:    s.Path,
		UseGRPC: s.UseGRPC,
		Timeout: time.Duration(s.TimeoutSecs) * time.Second,
		Resilience: resilience.Config{
			MaxAttempts:         s.Retry.MaxAttempts,
			InitialBackoff:      time.Duration(s.Retry.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:          time.Duration(s.Retry.MaxBackoffMS) * time.Millisecond,
			Multiplier:          2,
			BreakerEnabled:      s.Breaker.Enabled,
			BreakerMinRequests:  s.Breaker.MinRequests,
			BreakerFailureRatio: s.Breaker.FailureRatio,
			BreakerOpenTimeout:  time.Duration(s.Breaker.OpenTimeoutSecs) * time.Second,
		},
	}
}

// Projector converts the scene section into projector options.
func (c *AppConfig) Projector() projector.Options {
	opts := projector.DefaultOptions()
	opts.PreviewDims = c.Scene.PreviewDims
	return opts
}
