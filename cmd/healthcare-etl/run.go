package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/audit"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/config"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/extract"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/load"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/logging"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline: extract, reconcile, and load one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			applyPathFlags(cmd, cfg)

			skipLoad, _ := cmd.Flags().GetBool("skip-load")
			return runPipeline(cmd.Context(), cfg, skipLoad)
		},
	}

	cmd.Flags().Bool("skip-load", false, "reconcile and write outcome logs without touching the warehouse")
	cmd.Flags().String("patients", "", "path to the patients CSV (overrides ETL_PATIENTS_FILE)")
	cmd.Flags().String("encounters", "", "path to the encounters CSV (overrides ETL_ENCOUNTERS_FILE)")
	cmd.Flags().String("diagnoses", "", "path to the diagnoses XML (overrides ETL_DIAGNOSES_FILE)")
	cmd.Flags().String("logs-dir", "", "directory for outcome logs (overrides ETL_LOGS_DIR)")
	return cmd
}

// applyPathFlags overlays command line path overrides onto the config.
func applyPathFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("patients"); v != "" {
		cfg.Paths.PatientsFile = v
	}
	if v, _ := cmd.Flags().GetString("encounters"); v != "" {
		cfg.Paths.EncountersFile = v
	}
	if v, _ := cmd.Flags().GetString("diagnoses"); v != "" {
		cfg.Paths.DiagnosesFile = v
	}
	if v, _ := cmd.Flags().GetString("logs-dir"); v != "" {
		cfg.Paths.LogsDir = v
	}
}

func runPipeline(ctx context.Context, cfg *config.Config, skipLoad bool) error {
	batch, err := extractBatch(cfg)
	if err != nil {
		return err
	}

	auditLog, err := audit.NewLogger(cfg.Paths.LogsDir)
	if err != nil {
		return fmt.Errorf("open outcome logs: %w", err)
	}
	defer auditLog.Close()

	engine := quality.NewEngine(auditLog, quality.Config{Workers: cfg.Engine.Workers})
	result, err := engine.Run(ctx, batch)
	if err != nil {
		return fmt.Errorf("reconciliation: %w", err)
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	log := logging.FromContext(ctx)
	for _, s := range auditLog.Summaries() {
		log.Info("entity reconciled",
			"entity", s.Entity,
			"total", s.Total,
			"accepted", s.Accepted,
			"rejected", s.Rejected,
		)
	}

	if skipLoad {
		log.Info("load skipped", "logs_dir", cfg.Paths.LogsDir)
		return nil
	}

	pool, err := connectPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect warehouse: %w", err)
	}
	defer pool.Close()

	loader := load.New(pool)
	if err := loader.EnsureSchema(ctx); err != nil {
		return err
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Load.Timeout)
	defer cancel()

	counts, err := loader.LoadResult(loadCtx, result)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	log.Info("warehouse loaded",
		"patients", counts.Patients,
		"encounters", counts.Encounters,
		"diagnoses", counts.Diagnoses,
	)
	return nil
}

// extractBatch reads the three raw inputs into one batch.
func extractBatch(cfg *config.Config) (quality.Batch, error) {
	patients, err := extract.ReadPatients(cfg.Paths.PatientsFile)
	if err != nil {
		return quality.Batch{}, fmt.Errorf("extract patients: %w", err)
	}
	slog.Info("patients extracted", "file", cfg.Paths.PatientsFile, "records", len(patients))

	encounters, err := extract.ReadEncounters(cfg.Paths.EncountersFile)
	if err != nil {
		return quality.Batch{}, fmt.Errorf("extract encounters: %w", err)
	}
	slog.Info("encounters extracted", "file", cfg.Paths.EncountersFile, "records", len(encounters))

	diagnoses, err := extract.ReadDiagnoses(cfg.Paths.DiagnosesFile)
	if err != nil {
		return quality.Batch{}, fmt.Errorf("extract diagnoses: %w", err)
	}
	slog.Info("diagnoses extracted", "file", cfg.Paths.DiagnosesFile, "records", len(diagnoses))

	return quality.Batch{
		Patients:   patients,
		Encounters: encounters,
		Diagnoses:  diagnoses,
	}, nil
}
