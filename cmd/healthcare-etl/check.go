package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/audit"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/load"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print outcome log summaries and warehouse row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			summaries, err := audit.Summarize(cfg.Paths.LogsDir)
			if err != nil {
				return fmt.Errorf("read outcome logs: %w", err)
			}

			if len(summaries) == 0 {
				fmt.Println("No outcome logs found. Run the pipeline first.")
			}
			for _, s := range summaries {
				fmt.Printf("%-10s total=%-5d accepted=%-5d rejected=%d\n",
					s.Entity, s.Total, s.Accepted, s.Rejected)

				codes := make([]string, 0, len(s.ByFlag))
				for code := range s.ByFlag {
					codes = append(codes, string(code))
				}
				sort.Strings(codes)
				for _, code := range codes {
					fmt.Printf("  %-25s %d\n", code, s.ByFlag[quality.FlagCode(code)])
				}
			}

			if cfg.Database.URL == "" {
				fmt.Println("DATABASE_URL not set, skipping warehouse counts.")
				return nil
			}

			ctx := cmd.Context()
			pool, err := connectPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			counts, err := load.New(pool).TableCounts(ctx)
			if err != nil {
				return fmt.Errorf("warehouse counts: %w", err)
			}

			tables := make([]string, 0, len(counts))
			for t := range counts {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			fmt.Println("Warehouse:")
			for _, t := range tables {
				fmt.Printf("  %-12s %d rows\n", t, counts[t])
			}
			return nil
		},
	}
}
