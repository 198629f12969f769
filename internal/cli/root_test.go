package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lucasnoah/remediate/internal/config"
	"github.com/lucasnoah/remediate/internal/db"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/stage"
	"github.com/lucasnoah/remediate/internal/stubserver"
)

// resetFlags restores every flag to its default so one test's flags do not
// leak into the next Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// executeSplit runs a command with stdout and stderr captured separately.
func executeSplit(args ...string) (string, string, error) {
	resetFlags(rootCmd)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testEnv starts a stub service and writes a config pointing at it with a
// private history database.
func testEnv(t *testing.T, opts stubserver.Options) (cfgPath, dbPath string) {
	t.Helper()
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(stubserver.New(opts, nil).Router())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "history.db")
	cfgPath = filepath.Join(dir, "remediate.yaml")
	content := fmt.Sprintf("service:\n  base_url: %s\n  timeout: 10s\nhistory:\n  enabled: true\n  db_path: %s\n", srv.URL, dbPath)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dbPath
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("class Main {}\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"upload", "analyze", "strategy", "refactor", "run",
		"tui", "stub", "history", "config", "db", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	cmds := [][]string{
		{"analyze", "--help"},
		{"strategy", "--help"},
		{"refactor", "--help"},
		{"run", "--help"},
		{"stub", "serve", "--help"},
		{"history", "stats", "--help"},
		{"config", "validate", "--help"},
		{"db", "migrate", "--help"},
	}
	for _, args := range cmds {
		out, err := executeCommand(args...)
		if err != nil {
			t.Errorf("%v failed: %v", args, err)
		}
		if out == "" {
			t.Errorf("%v produced no output", args)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand("nonexistent")
	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestResolveConfigPath_FileNotFound(t *testing.T) {
	_, err := resolveConfigPath("/nonexistent/path/remediate.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent config file, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' error, got: %v", err)
	}
}

func TestResolveConfigPath_Empty(t *testing.T) {
	got, err := resolveConfigPath("")
	if err != nil {
		t.Fatalf("unexpected error for empty flag: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	out, err := executeCommand("config", "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("service:\n  base_url: ftp://x\n  timeout: soon\n"), 0o644)
	out, err = executeCommand("config", "validate", "--config", bad)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out, "service.base_url") || !strings.Contains(out, "service.timeout") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigShow_BaseURLOverride(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	out, err := executeCommand("config", "show", "--config", cfgPath, "--base-url", "http://override:1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "base_url: http://override:1") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_JSONReportAndHistory(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	reportPath := filepath.Join(t.TempDir(), "out", "report.json")

	stdout, _, err := executeSplit("run", writeSource(t, "Main.java"), "--config", cfgPath, "--format", "json", "--out", reportPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var rep pipeline.Report
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("decode report %q: %v", stdout, err)
	}
	if rep.SessionID == "" || rep.File != "Main.java" {
		t.Errorf("report = %+v", rep)
	}
	for _, st := range pipeline.Stages {
		if rep.Stages[st].Phase != string(stage.Succeeded) {
			t.Errorf("%s phase = %q", st, rep.Stages[st].Phase)
		}
	}
	if rep.Refactor == nil || rep.Refactor.Code != "class Main {}\n" {
		t.Errorf("refactor = %+v", rep.Refactor)
	}

	saved, err := pipeline.LoadReport(reportPath)
	if err != nil {
		t.Fatalf("load saved report: %v", err)
	}
	if saved.SessionID != rep.SessionID {
		t.Errorf("saved session %q, printed %q", saved.SessionID, rep.SessionID)
	}

	out, err := executeCommand("history", "--config", cfgPath, "--session", rep.SessionID, "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var events []db.StageEvent
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode history %q: %v", out, err)
	}
	// upload started is recorded before the session exists; every other
	// transition carries the session id.
	if len(events) != 7 {
		t.Errorf("history has %d events for session, want 7: %+v", len(events), events)
	}
}

func TestRun_TextStopsAtThrough(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	out, err := executeCommand("run", writeSource(t, "Main.java"), "--config", cfgPath, "--through", "analyze")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, pipeline.NoAntipatternsMessage) {
		t.Errorf("output missing analysis summary:\n%s", out)
	}
	if strings.Contains(out, "Refactored code:") {
		t.Errorf("refactor should not have run:\n%s", out)
	}
}

func TestRun_InvalidThrough(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	_, err := executeCommand("run", writeSource(t, "Main.java"), "--config", cfgPath, "--through", "deploy")
	if err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyze_WithoutSession(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	_, err := executeCommand("analyze", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), stage.NoSessionMessage) {
		t.Errorf("err = %v, want no-session validation error", err)
	}
}

func TestUploadThenStages(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})

	stdout, _, err := executeSplit("upload", writeSource(t, "Main.java"), "--config", cfgPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	id := strings.TrimSpace(stdout)
	if id == "" {
		t.Fatal("upload printed no session id")
	}

	_, err = executeCommand("strategy", "--config", cfgPath, "--session", id)
	if err == nil || !strings.Contains(err.Error(), "Run analysis before requesting a strategy") {
		t.Errorf("strategy before analyze: err = %v", err)
	}

	out, err := executeCommand("analyze", "--config", cfgPath, "--session", id)
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Analysis: NO_ISSUES_FOUND") {
		t.Errorf("analyze output = %q", out)
	}

	stdout, _, err = executeSplit("strategy", "--config", cfgPath, "--session", id, "--format", "json")
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	var s pipeline.StrategyResult
	if err := json.Unmarshal([]byte(stdout), &s); err != nil || s.Status != pipeline.NoRefactoringNeeded {
		t.Errorf("strategy json = %q (%v)", stdout, err)
	}
}

func TestHistoryStats(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	executeCommand("analyze", "--config", cfgPath)

	stdout, _, err := executeSplit("history", "stats", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var counts []db.StageCounts
	if err := json.Unmarshal([]byte(stdout), &counts); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(counts) != 1 || counts[0].Stage != "analyze" || counts[0].Rejected != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestDBMigrateAndReset(t *testing.T) {
	cfgPath, dbPath := testEnv(t, stubserver.Options{})
	out, err := executeCommand("db", "migrate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, dbPath) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("db file not created: %v", err)
	}

	executeCommand("analyze", "--config", cfgPath)
	if _, err := executeCommand("db", "reset", "--config", cfgPath); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err = executeCommand("history", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No stage events recorded.") {
		t.Errorf("history after reset = %q", out)
	}
}

func TestUnknownFormat(t *testing.T) {
	cfgPath, _ := testEnv(t, stubserver.Options{})
	_, err := executeCommand("history", "--config", cfgPath, "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("err = %v", err)
	}
}
