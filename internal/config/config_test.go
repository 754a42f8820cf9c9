package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subconform/internal/config"
	"subconform/internal/subtitles"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SUBCONFORM_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SUBCONFORM_API_TOKEN", "")
	os.Unsetenv("SUBCONFORM_LLM_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("SUBCONFORM_API_TOKEN")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(home, ".config", "subconform", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".local", "share", "subconform"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Constraints != subtitles.DefaultConstraints() {
		t.Fatalf("unexpected constraints %+v", cfg.Constraints)
	}
	if cfg.Repair.MaxCompressionRatio != 0.40 || cfg.Repair.MinSplitWords != 4 {
		t.Fatalf("unexpected repair defaults %+v", cfg.Repair)
	}
	if cfg.Gender.AmbiguityThreshold != 0.7 || cfg.Gender.BatchOverrideConfident {
		t.Fatalf("unexpected gender defaults %+v", cfg.Gender)
	}
	if cfg.Translation.Provider != config.ProviderMock || cfg.Translation.BatchSize != 5 || cfg.Translation.ContextSize != 15 {
		t.Fatalf("unexpected translation defaults %+v", cfg.Translation)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "subconform.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "subconform.toml")

	type payload struct {
		Constraints struct {
			MaxLines        int     `toml:"max_lines"`
			MaxCharsPerLine int     `toml:"max_chars_per_line"`
			MaxCPS          float64 `toml:"max_cps"`
			MinDurationMS   int64   `toml:"min_duration_ms"`
		} `toml:"constraints"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Constraints.MaxLines = 3
	custom.Constraints.MaxCharsPerLine = 37
	custom.Constraints.MaxCPS = 20
	custom.Constraints.MinDurationMS = 800
	custom.Logging.Format = " JSON "
	custom.Logging.Level = "DEBUG"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to resolve, got %q exists=%v", resolved, exists)
	}
	want := subtitles.Constraints{MaxLines: 3, MaxCharsPerLine: 37, MaxCPS: 20, MinDurationMS: 800}
	if cfg.Constraints != want {
		t.Fatalf("unexpected constraints %+v", cfg.Constraints)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "subconform.toml")
	if err := os.WriteFile(configPath, []byte("[translation]\nprovider = \"llm\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SUBCONFORM_LLM_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SUBCONFORM_LLM_API_KEY") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.LLM.APIKey)
	}
}

func TestLLMKeyFallsBackToOpenAIEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	path := filepath.Join(t.TempDir(), "missing.toml")
	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing file")
	}
	if loaded.GetLLM().APIKey != "sk-test" {
		t.Fatalf("expected trimmed env key, got %q", loaded.GetLLM().APIKey)
	}
}

func TestValidateRejectsOutOfRangeSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max lines", func(c *config.Config) { c.Constraints.MaxLines = 5 }, "max_lines"},
		{"max cps", func(c *config.Config) { c.Constraints.MaxCPS = 9 }, "max_cps"},
		{"compression", func(c *config.Config) { c.Repair.MaxCompressionRatio = 1.2 }, "compression ratio"},
		{"ambiguity", func(c *config.Config) { c.Gender.AmbiguityThreshold = 1.5 }, "gender.ambiguity_threshold"},
		{"provider", func(c *config.Config) { c.Translation.Provider = "deepl" }, "translation.provider"},
		{"llm key", func(c *config.Config) { c.Translation.Provider = config.ProviderLLM }, "llm.api_key"},
		{"workers", func(c *config.Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
	cfg := config.Default()
	cfg.Constraints.MaxLines = 0
	if err := cfg.Validate(); !errors.Is(err, subtitles.ErrInvalidConstraints) {
		t.Fatalf("expected constraint sentinel, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config must load: %v", err)
	}
	if !exists || cfg.Workflow.Workers != 2 || !cfg.Workflow.WrapTranslations {
		t.Fatalf("unexpected sample config %+v", cfg.Workflow)
	}
}

func TestEncodeRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("api key leaked: %s", data)
	}
	if !strings.Contains(string(data), "max_chars_per_line = 42") {
		t.Fatalf("expected constraints in output: %s", data)
	}
}
