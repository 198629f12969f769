package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	baseURL    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "remediate",
	Short: "remediate — drive the anti-pattern remediation pipeline",
	Long: `remediate uploads a source file to the remediation service and walks it through
the analyze → strategy → refactor stages, one command per stage or all at once.

Configuration is read from --config, ./remediate.yaml or ~/.remediate/config.yaml.
Stage transitions are journaled to ~/.remediate/history.db unless history is disabled.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which long-running commands
// (tui, stub serve) watch for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to remediate config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override service.base_url")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print stage progress to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(strategyCmd)
	rootCmd.AddCommand(refactorCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
