package cli

import (
	"fmt"
	"io"

	"github.com/lucasnoah/remediate/internal/config"
	"github.com/lucasnoah/remediate/internal/gateway"
	"github.com/lucasnoah/remediate/internal/notify"
	"github.com/lucasnoah/remediate/internal/orchestrator"
	"github.com/spf13/cobra"
)

// newOrchestrator loads config and wires gateway, sink and history journal.
// Notifications go to the command's stderr. The returned cleanup closes the
// history database.
func newOrchestrator(cmd *cobra.Command, sink notify.Sink) (*orchestrator.Orchestrator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid config: %s", errs[0])
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	if sink == nil {
		sink = notify.NewConsole(cmd.ErrOrStderr())
	}
	orch := orchestrator.New(cfg, gateway.New(cfg.Service.BaseURL, timeout), sink)
	if verbose {
		orch.SetProgress(cmd.ErrOrStderr())
	}

	cleanup := func() {}
	if cfg.History.Enabled {
		d, closeDB, err := openDB(cfg)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history disabled: %v\n", err)
		} else {
			orch.SetRecorder(d)
			cleanup = closeDB
		}
	}
	return orch, cleanup, nil
}

// outputFormat reads and checks the --format flag.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json":
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", format)
}

func writeJSONTo(w io.Writer, v any) error {
	if err := newIndentEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
