package testsupport

import (
	"path/filepath"
	"testing"

	"subconform/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Translation.Provider = config.ProviderMock
	cfgVal.Workflow.Workers = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken requires bearer authentication on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithoutMemory disables the translation memory.
func WithoutMemory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.UseMemory = false
	}
}

// WithGlossary writes a YAML glossary into the temp directory and points the
// config at it.
func WithGlossary(yaml string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "glossary.yaml")
		WriteText(b.t, path, yaml)
		b.cfg.Translation.GlossaryPath = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
