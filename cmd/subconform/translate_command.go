package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subconform/internal/api"
	"subconform/internal/fileutil"
	"subconform/internal/jobstore"
	"subconform/internal/subtitles"
	"subconform/internal/translate"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		limits       constraintFlags
		from         string
		to           string
		output       string
		glossaryPath string
		dryRun       bool
		autoFix      bool
		budget       int
		formatName   string
	)
	cmd := &cobra.Command{
		Use:   "translate FILE --to LANG",
		Short: "Translate a subtitle file through the job pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(to) == "" {
				return fmt.Errorf("--to is required")
			}
			logger, err := ctx.oneShotLogger()
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			filename := filepath.Base(args[0])

			var store *jobstore.Store
			if cfg.Translation.UseMemory {
				store, err = jobstore.Open(cfg)
				if err != nil {
					return fmt.Errorf("open job store: %w", err)
				}
				defer store.Close()
			}
			p, err := buildPipeline(cfg, store, nil, logger)
			if err != nil {
				return err
			}

			var glossary map[string]string
			if path := strings.TrimSpace(glossaryPath); path != "" {
				g, err := translate.LoadGlossary(path)
				if err != nil {
					return err
				}
				glossary = g.Map()
			}
			constraints := limits.resolve(cfg)
			result, err := p.service.Run(cmd.Context(), p.manager, api.CreateJobRequest{
				Filename:       filename,
				Content:        string(data),
				SourceLanguage: from,
				TargetLanguage: to,
				Constraints:    &constraints,
				DryRun:         dryRun,
				AutoFix:        autoFix,
				AutoFixBudget:  budget,
				Glossary:       glossary,
			})
			if err != nil {
				return err
			}

			if formatName == "" {
				formatName = string(subtitles.DetectFormat(filename, data))
			}
			rendered, name, err := p.service.Download(result.JobID, formatName)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				target = filepath.Join(filepath.Dir(args[0]), name)
			}
			if err := fileutil.WriteFileAtomic(target, rendered, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, struct {
					api.JobResult
					Output string `json:"output"`
				}{result, target})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if !result.Summary.Passed {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Translated", statusOK,
				fmt.Sprintf("%d cues %s -> %s (%s)", len(result.Cues), result.SourceLanguage, result.TargetLanguage, p.provider.Name()), colorize))
			fmt.Fprintln(out, renderStatusLine("QC", kind,
				fmt.Sprintf("%d errors, %d warnings", result.Summary.ErrorsCount, result.Summary.WarningsCount), colorize))
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, target, colorize))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source language code (defaults to en)")
	cmd.Flags().StringVar(&to, "to", "", "Target language code")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to NAME.LANG.EXT beside the input)")
	cmd.Flags().StringVar(&glossaryPath, "glossary", "", "YAML glossary merged over the configured one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Pass text through without calling the provider")
	cmd.Flags().BoolVar(&autoFix, "auto-fix", false, "Auto-fix failing cues after translation")
	cmd.Flags().IntVar(&budget, "auto-fix-budget", 0, "Stop auto-fix after this many cues (0 for no limit)")
	cmd.Flags().StringVar(&formatName, "format", "", "Output format: srt or vtt (defaults to the input format)")
	limits.register(cmd)
	return cmd
}
