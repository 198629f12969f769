package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StageReport is the exported view of one stage's latest state.
type StageReport struct {
	Phase string     `json:"phase"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// Report is the JSON document written by `remediate run --out`.
type Report struct {
	SessionID string                `json:"session_id,omitempty"`
	File      string                `json:"file,omitempty"`
	Stages    map[Stage]StageReport `json:"stages"`
	Analysis  *AnalysisResult       `json:"analysis,omitempty"`
	Strategy  *StrategyResult       `json:"strategy,omitempty"`
	Refactor  *RefactorResult       `json:"refactor,omitempty"`
}

// SaveReport writes r as pretty-printed JSON to path. The file is written to a
// temp file in the same directory and renamed so readers never see a partial report.
func SaveReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = ""
	return nil
}

// LoadReport reads a report previously written by SaveReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &r, nil
}
