// Package payload turns raw 200 responses from the pipeline service into typed
// stage results. The analyze and strategy endpoints wrap their result as a JSON
// document inside a string field; that second decode happens here and nowhere else.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/remediate/internal/gateway"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
)

// Response field names used by the pipeline service.
const (
	FieldSessionID = "session_id"
	FieldAnalysis  = "antipattern_analysis"
	FieldStrategy  = "refactoring_strategy"
	FieldRefactor  = "refactored_code"
)

// parseError builds the user-facing Parse failure. The message is kept generic
// so internal payload shapes never leak into notifications.
func parseError(what string) *pipeline.ErrorInfo {
	return &pipeline.ErrorInfo{
		Kind:    pipeline.KindParse,
		Message: fmt.Sprintf("Could not read the %s data from the server.", what),
	}
}

// stringField returns raw[field] decoded as a JSON string.
func stringField(raw gateway.RawResponse, field string) (string, bool) {
	v, ok := raw[field]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeStrict decodes a nested document. Anything after the first value,
// including stray closing brackets, is an error.
func decodeStrict(doc string, v any) error {
	return json.Unmarshal([]byte(doc), v)
}

// ParseUpload extracts the session handle from an upload response.
func ParseUpload(raw gateway.RawResponse) (session.Handle, *pipeline.ErrorInfo) {
	id, ok := stringField(raw, FieldSessionID)
	if !ok || id == "" {
		return "", parseError("upload")
	}
	return session.Handle(id), nil
}

// ParseAnalysis decodes the double-encoded antipattern_analysis field.
func ParseAnalysis(raw gateway.RawResponse) (pipeline.AnalysisResult, *pipeline.ErrorInfo) {
	var res pipeline.AnalysisResult
	doc, ok := stringField(raw, FieldAnalysis)
	if !ok {
		return res, parseError("analysis")
	}

	var wire struct {
		Status       *pipeline.AnalysisStatus `json:"status"`
		Antipatterns []*pipeline.Antipattern  `json:"antipatterns"`
	}
	if err := decodeStrict(doc, &wire); err != nil || wire.Status == nil {
		return res, parseError("analysis")
	}
	switch *wire.Status {
	case pipeline.NoIssuesFound, pipeline.IssuesFound:
	default:
		return res, parseError("analysis")
	}

	res.Status = *wire.Status
	res.Antipatterns = make([]pipeline.Antipattern, 0, len(wire.Antipatterns))
	for _, a := range wire.Antipatterns {
		if a == nil || a.Name == "" {
			return pipeline.AnalysisResult{}, parseError("analysis")
		}
		res.Antipatterns = append(res.Antipatterns, *a)
	}
	return res, nil
}

// ParseStrategy decodes the double-encoded refactoring_strategy field.
func ParseStrategy(raw gateway.RawResponse) (pipeline.StrategyResult, *pipeline.ErrorInfo) {
	var res pipeline.StrategyResult
	doc, ok := stringField(raw, FieldStrategy)
	if !ok {
		return res, parseError("strategy")
	}

	var wire struct {
		Status       *pipeline.StrategyStatus `json:"status"`
		Refactorings []*pipeline.Refactoring  `json:"refactorings"`
	}
	if err := decodeStrict(doc, &wire); err != nil || wire.Status == nil {
		return res, parseError("strategy")
	}
	switch *wire.Status {
	case pipeline.NoRefactoringNeeded, pipeline.RefactoringSuggested:
	default:
		return res, parseError("strategy")
	}

	res.Status = *wire.Status
	res.Refactorings = make([]pipeline.Refactoring, 0, len(wire.Refactorings))
	for _, r := range wire.Refactorings {
		if r == nil || r.IssueName == "" {
			return pipeline.StrategyResult{}, parseError("strategy")
		}
		res.Refactorings = append(res.Refactorings, *r)
	}
	return res, nil
}

// ParseRefactor extracts refactored_code. The field is a plain string.
func ParseRefactor(raw gateway.RawResponse) (pipeline.RefactorResult, *pipeline.ErrorInfo) {
	code, ok := stringField(raw, FieldRefactor)
	if !ok {
		return pipeline.RefactorResult{}, parseError("refactored code")
	}
	return pipeline.RefactorResult{Code: code}, nil
}
