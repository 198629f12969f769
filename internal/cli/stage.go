package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/lucasnoah/remediate/internal/orchestrator"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
	"github.com/lucasnoah/remediate/internal/stage"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a source file and print the session ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		orch, cleanup, err := newOrchestrator(cmd, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		out := orch.Upload(cmd.Context(), args[0]).Wait()
		if err := settledErr(pipeline.StageUpload, out.Resolution, out.State.Phase, out.State.Err); err != nil {
			return err
		}
		if format == "json" {
			return writeJSONTo(cmd.OutOrStdout(), map[string]string{"session_id": string(*out.State.Result)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), *out.State.Result)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run anti-pattern analysis for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, pipeline.StageAnalyze, (*orchestrator.Orchestrator).Analyze, printAnalysis)
	},
}

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Request a refactoring strategy for an analyzed session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, pipeline.StageStrategy, (*orchestrator.Orchestrator).Strategy, printStrategy)
	},
}

var refactorCmd = &cobra.Command{
	Use:   "refactor",
	Short: "Fetch the refactored code for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, pipeline.StageRefactor, (*orchestrator.Orchestrator).Refactor, printRefactor)
	},
}

// runStage invokes one post-upload stage against the --session handle and
// prints its result.
func runStage[T any](
	cmd *cobra.Command,
	st pipeline.Stage,
	invoke func(*orchestrator.Orchestrator, context.Context) *stage.Future[T],
	show func(io.Writer, *T),
) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	orch, cleanup, err := newOrchestrator(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if id, _ := cmd.Flags().GetString("session"); id != "" {
		if err := orch.UseSession(session.Handle(id)); err != nil {
			return err
		}
	}

	out := invoke(orch, cmd.Context()).Wait()
	if err := settledErr(st, out.Resolution, out.State.Phase, out.State.Err); err != nil {
		return err
	}
	if format == "json" {
		return writeJSONTo(cmd.OutOrStdout(), out.State.Result)
	}
	show(cmd.OutOrStdout(), out.State.Result)
	return nil
}

// settledErr converts a non-successful outcome into a command error.
func settledErr(st pipeline.Stage, res stage.Resolution, phase stage.Phase, errInfo *pipeline.ErrorInfo) error {
	if res == stage.Applied && phase == stage.Succeeded {
		return nil
	}
	if errInfo != nil {
		return fmt.Errorf("%s: %w", st, errInfo)
	}
	return fmt.Errorf("%s: not completed (%s)", st, res)
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, strategyCmd, refactorCmd} {
		c.Flags().String("session", "", "Session ID returned by upload")
		c.Flags().String("format", "text", "Output format: text or json")
	}
	uploadCmd.Flags().String("format", "text", "Output format: text or json")
}
