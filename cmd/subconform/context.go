package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"subconform/internal/config"
	"subconform/internal/logging"
)

type commandContext struct {
	configFlag  *string
	jsonFlag    *bool
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		jsonFlag:    jsonFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// oneShotLogger logs to stderr for the file commands. Only warnings are
// shown unless --verbose is set.
func (c *commandContext) oneShotLogger() (*slog.Logger, error) {
	level := "warn"
	if c.verbose() {
		level = "info"
		if cfg := c.config; cfg != nil && strings.EqualFold(cfg.Logging.Level, "debug") {
			level = "debug"
		}
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
