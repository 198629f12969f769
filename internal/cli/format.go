package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/remediate/internal/pipeline"
)

func newIndentEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

func printAnalysis(w io.Writer, a *pipeline.AnalysisResult) {
	fmt.Fprintf(w, "Analysis: %s\n", a.Status)
	if len(a.Antipatterns) == 0 {
		fmt.Fprintf(w, "  %s\n", pipeline.NoAntipatternsMessage)
		return
	}
	for i, ap := range a.Antipatterns {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, ap.Name, ap.Location)
		if ap.Description != "" {
			fmt.Fprintf(w, "     %s\n", ap.Description)
		}
	}
}

func printStrategy(w io.Writer, s *pipeline.StrategyResult) {
	fmt.Fprintf(w, "Strategy: %s\n", s.Status)
	if len(s.Refactorings) == 0 {
		fmt.Fprintf(w, "  %s\n", pipeline.NoRefactoringMessage)
		return
	}
	for i, r := range s.Refactorings {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r.IssueName)
		fmt.Fprintf(w, "     Suggestion:    %s\n", r.Suggestion)
		fmt.Fprintf(w, "     Justification: %s\n", r.Justification)
	}
}

func printRefactor(w io.Writer, r *pipeline.RefactorResult) {
	fmt.Fprintln(w, "Refactored code:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprint(w, r.Code)
	if !strings.HasSuffix(r.Code, "\n") {
		fmt.Fprintln(w)
	}
}

// printReport renders every stage of a run in text form.
func printReport(w io.Writer, rep *pipeline.Report) {
	if rep.File != "" {
		fmt.Fprintf(w, "File:    %s\n", rep.File)
	}
	if rep.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", rep.SessionID)
	}
	fmt.Fprintf(w, "%-10s %-10s %s\n", "STAGE", "PHASE", "ERROR")
	fmt.Fprintf(w, "%-10s %-10s %s\n", strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 5))
	for _, st := range pipeline.Stages {
		sr := rep.Stages[st]
		msg := ""
		if sr.Error != nil {
			msg = sr.Error.Error()
		}
		fmt.Fprintf(w, "%-10s %-10s %s\n", st, sr.Phase, msg)
	}

	if rep.Analysis != nil {
		fmt.Fprintln(w)
		printAnalysis(w, rep.Analysis)
	}
	if rep.Strategy != nil {
		fmt.Fprintln(w)
		printStrategy(w, rep.Strategy)
	}
	if rep.Refactor != nil {
		fmt.Fprintln(w)
		printRefactor(w, rep.Refactor)
	}
}
