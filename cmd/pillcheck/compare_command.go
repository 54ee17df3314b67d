package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pillcheck/internal/daemon"
	"pillcheck/internal/ledger"
	"pillcheck/internal/logging"
	"pillcheck/internal/services"
	"pillcheck/internal/verify"
)

const ansiGreen = "\x1b[32m"
const ansiRed = "\x1b[31m"
const ansiReset = "\x1b[0m"

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var (
		referenceURL string
		testURL      string
		patientID    string
		medicineID   string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score a test photo against a medicine's reference images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := ledger.Open(cfg.Paths.DatabasePath)
			if err != nil {
				return fmt.Errorf("open attempt ledger: %w", err)
			}
			defer func() { _ = store.Close() }()

			engine, err := daemon.BuildEngine(cfg, store, logger)
			if err != nil {
				return err
			}

			result, err := engine.Verify(cmd.Context(), verify.Request{
				ReferenceImageURL: referenceURL,
				TestImageURL:      testURL,
				PatientID:         patientID,
				MedicineID:        medicineID,
			})
			if err != nil {
				if errors.Is(err, services.ErrNoReference) {
					return fmt.Errorf("no reference image found for medicine %s", medicineID)
				}
				return err
			}

			if asJSON {
				return writeJSON(cmd, result)
			}
			renderResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&referenceURL, "reference", "", "Reference image URL (tried before stored references)")
	cmd.Flags().StringVar(&testURL, "test", "", "Test image URL")
	cmd.Flags().StringVar(&patientID, "patient", "", "Patient identifier")
	cmd.Flags().StringVar(&medicineID, "medicine", "", "Medicine identifier")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	_ = cmd.MarkFlagRequired("test")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("medicine")

	return cmd
}

func renderResult(cmd *cobra.Command, result *verify.Result) {
	out := cmd.OutOrStdout()

	verdict := "REJECTED"
	if result.Approved {
		verdict = "APPROVED"
	}
	if shouldColorize(out) {
		if result.Approved {
			verdict = ansiGreen + verdict + ansiReset
		} else {
			verdict = ansiRed + verdict + ansiReset
		}
	}

	rows := [][]string{
		{"Verdict", verdict},
		{"Image similarity", formatScore(result.SimilarityScore)},
		{"Text similarity", formatOptionalScore(result.TextSimilarityScore)},
		{"Final score", formatScore(result.FinalSimilarityScore)},
		{"Attempts used", strconv.Itoa(result.AttemptsUsed)},
		{"Attempts remaining", strconv.Itoa(result.AttemptsRemaining)},
	}
	if result.Reason != "" {
		rows = append(rows, []string{"Reason", result.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func formatOptionalScore(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return formatScore(*value)
}
