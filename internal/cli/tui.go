package cli

import (
	"github.com/lucasnoah/remediate/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [file]",
	Short: "Open the interactive pipeline view",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := ""
		if len(args) == 1 {
			file = args[0]
		}

		sink := tui.NewToastSink()
		orch, cleanup, err := newOrchestrator(cmd, sink)
		if err != nil {
			return err
		}
		defer cleanup()

		return tui.Run(cmd.Context(), orch, sink, file)
	},
}
