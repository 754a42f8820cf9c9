package main

import (
	"fmt"
	"log/slog"
	"strings"

	"subconform/internal/api"
	"subconform/internal/config"
	"subconform/internal/fixes"
	"subconform/internal/gender"
	"subconform/internal/jobs"
	"subconform/internal/jobstore"
	"subconform/internal/notifications"
	"subconform/internal/repair"
	"subconform/internal/translate"
	"subconform/internal/workflow"
)

// pipeline is the set of collaborators shared by serve and translate.
type pipeline struct {
	provider     translate.Provider
	glossary     translate.Glossary
	orchestrator *repair.Orchestrator
	registry     *jobs.Registry
	manager      *workflow.Manager
	service      *api.JobService
}

func newOrchestrator(cfg *config.Config, logger *slog.Logger) *repair.Orchestrator {
	return repair.New(fixes.NewGenerator(cfg.FixPolicy()), gender.NewDetector(cfg.GenderOptions()), logger)
}

// buildPipeline wires the job pipeline. store may be nil, in which case jobs
// are not persisted and the translation memory is disabled. notifier may be
// nil to keep job outcomes quiet.
func buildPipeline(cfg *config.Config, store *jobstore.Store, notifier notifications.Service, logger *slog.Logger) (*pipeline, error) {
	provider, err := translate.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("translation provider: %w", err)
	}

	var glossary translate.Glossary
	if path := strings.TrimSpace(cfg.Translation.GlossaryPath); path != "" {
		glossary, err = translate.LoadGlossary(path)
		if err != nil {
			return nil, err
		}
	}

	var (
		persister jobs.Persister
		memory    translate.Memory
		reviewer  api.MemoryReviewer
	)
	if store != nil {
		persister = store
		if cfg.Translation.UseMemory {
			memory = store
			reviewer = store
		}
	}

	orchestrator := newOrchestrator(cfg, logger)
	registry := jobs.NewRegistry(persister, logger)
	manager := workflow.NewManager(cfg, registry, workflow.Dependencies{
		Translator: translate.NewTranslator(provider, memory, logger),
		Repair:     orchestrator,
		Glossary:   glossary,
		Notifier:   notifier,
	}, logger)
	return &pipeline{
		provider:     provider,
		glossary:     glossary,
		orchestrator: orchestrator,
		registry:     registry,
		manager:      manager,
		service:      api.NewJobService(cfg, registry, manager, orchestrator, reviewer, logger),
	}, nil
}
