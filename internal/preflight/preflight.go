package preflight

import (
	"context"

	"subconform/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDatabase(ctx, cfg.DatabasePath()),
	}

	if cfg.Translation.GlossaryPath != "" {
		results = append(results, CheckGlossary(cfg.Translation.GlossaryPath))
	}

	if cfg.Translation.Provider == config.ProviderLLM {
		results = append(results, CheckLLM(ctx, "Translation LLM", cfg.GetLLM()))
	} else {
		results = append(results, Result{Name: "Translation provider", Passed: true, Detail: cfg.Translation.Provider + " (offline)"})
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
