package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/stubserver"
	"github.com/spf13/cobra"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Local stand-in for the remediation service",
}

var stubServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve canned pipeline responses on localhost",
	Long: `Start an HTTP server that speaks the remediation service protocol with canned
results. It enforces the same stage ordering as the real service, so it is useful
for trying the CLI and TUI without the agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		delay, _ := cmd.Flags().GetDuration("delay")
		issues, _ := cmd.Flags().GetBool("issues")

		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(logger)

		opts := stubserver.Options{Delay: delay}
		if issues {
			opts.Analysis, opts.Strategy = sampleFindings()
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", port),
			Handler:           stubserver.New(opts, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("stub service listening", "addr", "http://"+srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("stub server: %w", err)
		case <-cmd.Context().Done():
		}

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

// sampleFindings is the canned ISSUES_FOUND / REFACTORING_SUGGESTED pair
// served with --issues.
func sampleFindings() (pipeline.AnalysisResult, pipeline.StrategyResult) {
	return pipeline.AnalysisResult{
			Status: pipeline.IssuesFound,
			Antipatterns: []pipeline.Antipattern{
				{Name: "God Class", Location: "class body", Description: "The class owns unrelated responsibilities."},
				{Name: "Long Method", Location: "main", Description: "The method mixes parsing, validation and output."},
			},
		}, pipeline.StrategyResult{
			Status: pipeline.RefactoringSuggested,
			Refactorings: []pipeline.Refactoring{
				{IssueName: "God Class", Suggestion: "Extract a collaborator per responsibility.", Justification: "Smaller classes change for one reason."},
				{IssueName: "Long Method", Suggestion: "Extract methods for each phase.", Justification: "Each phase can be tested on its own."},
			},
		}
}

func init() {
	stubServeCmd.Flags().Int("port", 8000, "Port to listen on")
	stubServeCmd.Flags().Duration("delay", 0, "Artificial latency before each stage response")
	stubServeCmd.Flags().Bool("issues", false, "Report sample anti-patterns instead of a clean result")
	stubCmd.AddCommand(stubServeCmd)
}
