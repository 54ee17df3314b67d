package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pillcheck/internal/ledger"
)

func newAttemptsCommand(ctx *commandContext) *cobra.Command {
	var (
		patientID string
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recent verification attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.Paths.DatabasePath)
			if err != nil {
				return fmt.Errorf("open attempt ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			attempts, err := store.ListRecent(cmd.Context(), patientID, limit)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, attempts)
			}

			if len(attempts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attempts recorded.")
				return nil
			}

			rows := make([][]string, 0, len(attempts))
			for _, attempt := range attempts {
				rows = append(rows, []string{
					attempt.CreatedAt.Local().Format(time.DateTime),
					attempt.PatientID,
					attempt.MedicineID,
					formatScore(attempt.FinalSimilarityScore),
					yesNo(attempt.Match),
					yesNo(attempt.Approved),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Patient", "Medicine", "Final", "Match", "Approved"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&patientID, "patient", "", "Filter by patient identifier")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of attempts to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit attempts as JSON")

	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
