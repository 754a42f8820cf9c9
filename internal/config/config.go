package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"subconform/internal/fixes"
	"subconform/internal/gender"
	"subconform/internal/subtitles"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`

	// APIAllowedOrigins lists browser origins allowed to call the API. Empty allows any.
	APIAllowedOrigins []string `toml:"api_allowed_origins"`
}

// Repair contains the fix generation policy.
type Repair struct {
	// MaxCompressionRatio is the largest share of characters compress may remove.
	MaxCompressionRatio float64 `toml:"max_compression_ratio"`
	// MinGapMS is kept free before the next cue when extending timing.
	MinGapMS int64 `toml:"min_gap_ms"`
	// TailExtensionMS bounds how far the last cue may be extended.
	TailExtensionMS int64 `toml:"tail_extension_ms"`
	MinSplitWords   int   `toml:"min_split_words"`
}

// Gender contains gender alternative settings.
type Gender struct {
	AmbiguityThreshold float64 `toml:"ambiguity_threshold"`
	IncludeNeutral     bool    `toml:"include_neutral"`
	// BatchOverrideConfident lets a document-wide gender switch replace
	// forms guessed with confidence at or above the ambiguity threshold.
	BatchOverrideConfident bool `toml:"batch_override_confident"`
}

// Translation contains provider and translation memory settings.
type Translation struct {
	Provider     string `toml:"provider"`
	BatchSize    int    `toml:"batch_size"`
	ContextSize  int    `toml:"context_size"`
	UseMemory    bool   `toml:"use_memory"`
	GlossaryPath string `toml:"glossary_path"`
}

// LLM contains connection settings for the chat completions provider.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains pipeline worker and retention settings.
type Workflow struct {
	Workers           int  `toml:"workers"`
	JobRetentionHours int  `toml:"job_retention_hours"`
	WrapTranslations  bool `toml:"wrap_translations"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// OnSuccess also announces jobs that completed with a passing QC pass.
	OnSuccess bool `toml:"on_success"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subconform.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address and token
//   - Constraints: default QC limits for new jobs
//   - Repair: fix generation policy
//   - Gender: gender alternative detection and batch behaviour
//   - Translation: provider selection, batching and translation memory
//   - LLM: chat completions connection settings
//   - Workflow: pipeline workers and job retention
//   - Notifications: ntfy topic for job outcomes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths                 `toml:"paths"`
	Constraints   subtitles.Constraints `toml:"constraints"`
	Repair        Repair                `toml:"repair"`
	Gender        Gender                `toml:"gender"`
	Translation   Translation           `toml:"translation"`
	LLM           LLM                   `toml:"llm"`
	Workflow      Workflow              `toml:"workflow"`
	Notifications Notifications         `toml:"notifications"`
	Logging       Logging               `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subconform/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file beside the config file or in the
// working directory is loaded first; variables already set in the environment win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(resolvedPath), ".env"), ".env"); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subconform.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite file holding job snapshots and translation memory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "subconform.db")
}

// LockPath returns the single-instance lock file used by serve.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "subconform.lock")
}

// JobRetention returns how long finished jobs are kept.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.Workflow.JobRetentionHours) * time.Hour
}

// FixPolicy returns the repair policy for fix generation.
func (c *Config) FixPolicy() fixes.Policy {
	return fixes.Policy{
		MaxCompressionRatio: c.Repair.MaxCompressionRatio,
		MinGapMS:            c.Repair.MinGapMS,
		TailExtensionMS:     c.Repair.TailExtensionMS,
		MinSplitWords:       c.Repair.MinSplitWords,
	}
}

// GenderOptions returns the detector options.
func (c *Config) GenderOptions() gender.Options {
	return gender.Options{
		AmbiguityThreshold: c.Gender.AmbiguityThreshold,
		IncludeNeutral:     c.Gender.IncludeNeutral,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "********"
	}
	if redacted.Paths.APIToken != "" {
		redacted.Paths.APIToken = "********"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// LLMConfig contains the trimmed connection settings for LLM clients.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
