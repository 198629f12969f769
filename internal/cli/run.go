package cli

import (
	"fmt"

	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Upload a file and run every stage in order",
	Long: `Upload a file and run analyze, strategy and refactor in order, waiting for each
stage and stopping at the first failure. Use --through to stop early.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		throughName, _ := cmd.Flags().GetString("through")
		through, err := pipeline.ParseStage(throughName)
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("out")

		orch, cleanup, err := newOrchestrator(cmd, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		res := orch.RunAll(cmd.Context(), args[0], through)
		rep := res.Snapshot.Report()

		if outPath != "" {
			if err := pipeline.SaveReport(outPath, rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", outPath)
		}

		if format == "json" {
			if err := writeJSONTo(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
		} else {
			printReport(cmd.OutOrStdout(), rep)
		}

		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.FailedStage, res.Err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("through", string(pipeline.StageRefactor), "Last stage to run: upload, analyze, strategy or refactor")
	runCmd.Flags().String("format", "text", "Output format: text or json")
	runCmd.Flags().String("out", "", "Also write the JSON report to this file")
}
