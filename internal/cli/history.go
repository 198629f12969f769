package cli

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/remediate/internal/db"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled stage transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		stageName, _ := cmd.Flags().GetString("stage")
		limit, _ := cmd.Flags().GetInt("limit")
		if stageName != "" {
			if _, err := pipeline.ParseStage(stageName); err != nil {
				return err
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, cleanup, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		events, err := d.ListStageEvents(db.EventFilter{SessionID: sessionID, Stage: stageName, Limit: limit})
		if err != nil {
			return err
		}

		if format == "json" {
			if events == nil {
				events = []db.StageEvent{}
			}
			return writeJSONTo(cmd.OutOrStdout(), events)
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No stage events recorded.")
			return nil
		}
		fmt.Fprintf(w, "%-23s %-10s %-10s %-36s %s\n", "TIME", "STAGE", "EVENT", "SESSION", "MESSAGE")
		fmt.Fprintf(w, "%-23s %-10s %-10s %-36s %s\n",
			strings.Repeat("-", 23),
			strings.Repeat("-", 10),
			strings.Repeat("-", 10),
			strings.Repeat("-", 36),
			strings.Repeat("-", 7))
		for _, e := range events {
			msg := e.Message
			if e.ErrorKind != "" {
				msg = e.ErrorKind + ": " + msg
			}
			if len(msg) > 60 {
				msg = msg[:57] + "..."
			}
			fmt.Fprintf(w, "%-23s %-10s %-10s %-36s %s\n", e.Timestamp, e.Stage, e.Transition, e.SessionID, msg)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize outcomes per stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, cleanup, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		counts, err := d.CountByStage()
		if err != nil {
			return err
		}
		if format == "json" {
			if counts == nil {
				counts = []db.StageCounts{}
			}
			return writeJSONTo(cmd.OutOrStdout(), counts)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %8s %10s %7s %9s %10s\n", "STAGE", "STARTED", "SUCCEEDED", "FAILED", "REJECTED", "DISCARDED")
		for _, c := range counts {
			fmt.Fprintf(w, "%-10s %8d %10d %7d %9d %10d\n", c.Stage, c.Started, c.Succeeded, c.Failed, c.Rejected, c.Discarded)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("session", "", "Only events for this session")
	historyCmd.Flags().String("stage", "", "Only events for this stage")
	historyCmd.Flags().Int("limit", 50, "Maximum number of events (0 = all)")
	historyCmd.Flags().String("format", "text", "Output format: text or json")
	historyStatsCmd.Flags().String("format", "text", "Output format: text or json")
	historyCmd.AddCommand(historyStatsCmd)
}
