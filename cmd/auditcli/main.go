package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/config"
	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/output"
	"alfredoptarigan/call-auditor/internal/services"
)

var (
	outputFormat string
	jsonOutput   bool
	parameters   []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auditcli",
		Short:         "Audit call recordings against quality criteria",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "shorthand for --output json")

	root.AddCommand(newCriteriaCmd(), newRunCmd())
	return root
}

func newCriteriaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "criteria",
		Short: "List the audit criteria catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := selectedFormat()
			if err != nil {
				return err
			}

			cfg := config.Load()
			catalog, err := services.NewCriterionCatalog(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			rendered, err := output.FormatCriteria(format, catalog.List())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Audit local recordings and print the batch result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := selectedFormat()
			if err != nil {
				return err
			}
			return runAudit(cmd, format, args)
		},
	}
	cmd.Flags().StringSliceVarP(&parameters, "parameters", "p", nil, "criteria to audit (defaults to the whole catalog)")
	return cmd
}

func runAudit(cmd *cobra.Command, format output.Format, paths []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Keep stdout clean for the report.
	cfg.Server.Env = "production"
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	zlog, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	catalog, err := services.NewCriterionCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	storage := services.NewStorageService(services.StorageOptions{
		MaxFileSize:    cfg.Storage.MaxFileSize,
		AllowedFormats: cfg.Storage.AllowedFormats,
	}, zlog)

	// Local files are read in place and never removed.
	files := make([]services.StoredFile, 0, len(paths))
	for _, p := range paths {
		f, err := storage.InspectLocalFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	req := models.AuditRequest{Parameters: requestedParameters(catalog)}
	if err := services.ValidateRequest(req, services.StrategyAuto); err != nil {
		return err
	}

	oracle, err := services.NewGeminiService(services.GeminiOptions{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		MaxAttempts:       cfg.Gemini.MaxAttempts,
	}, zlog)
	if err != nil {
		return err
	}

	auditor := services.NewFileAuditor(oracle, catalog, zlog)
	coordinator := services.NewCoordinator(auditor, storage, cfg.Worker.Concurrency, zlog)
	audits := services.NewAuditService(coordinator, nil, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := audits.Run(ctx, services.NewAuditID(), files, req, services.BatchObserver{
		FileFinished: func(_ int, result models.FileAuditResult) {
			zlog.Info("file audited", zap.String("file", result.Filename), zap.Float64("score", result.OverallScore))
		},
	})
	if err != nil {
		return err
	}

	rendered, err := output.FormatBatch(format, batch)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

func selectedFormat() (output.Format, error) {
	if jsonOutput {
		return output.FormatJSON, nil
	}
	return output.ParseFormat(outputFormat)
}

func requestedParameters(catalog *services.CriterionCatalog) []string {
	if len(parameters) > 0 {
		out := make([]string, 0, len(parameters))
		for _, p := range parameters {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}

	criteria := catalog.List()
	ids := make([]string, 0, len(criteria))
	for _, c := range criteria {
		ids = append(ids, c.ID)
	}
	return ids
}
