package pipeline

import "fmt"

// Stage identifies one step of the remote remediation pipeline.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageAnalyze  Stage = "analyze"
	StageStrategy Stage = "strategy"
	StageRefactor Stage = "refactor"
)

// Stages lists the pipeline steps in the order the remote service expects them.
var Stages = []Stage{StageUpload, StageAnalyze, StageStrategy, StageRefactor}

// Label returns the human-readable name used in notifications.
func (s Stage) Label() string {
	switch s {
	case StageUpload:
		return "Upload"
	case StageAnalyze:
		return "Analysis"
	case StageStrategy:
		return "Strategy"
	case StageRefactor:
		return "Refactored code"
	}
	return string(s)
}

// ParseStage converts a stage name into a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (want one of upload, analyze, strategy, refactor)", name)
}

// ErrorKind classifies why a stage invocation failed.
type ErrorKind string

const (
	// KindValidation is a local precondition failure; no request was sent.
	KindValidation ErrorKind = "validation"
	// KindNetwork is a transport failure (DNS, refused connection, timeout).
	KindNetwork ErrorKind = "network"
	// KindServer is a non-200 response from the pipeline service.
	KindServer ErrorKind = "server"
	// KindParse is a 200 response whose payload did not decode into the expected shape.
	KindParse ErrorKind = "parse"
)

// ErrorInfo is the uniform failure value carried by a Failed stage.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// NewError builds an ErrorInfo.
func NewError(kind ErrorKind, format string, args ...any) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AnalysisStatus is the verdict of the analyze stage.
type AnalysisStatus string

const (
	NoIssuesFound AnalysisStatus = "NO_ISSUES_FOUND"
	IssuesFound   AnalysisStatus = "ISSUES_FOUND"
)

// Antipattern is a single code-quality issue reported by the analyze stage.
type Antipattern struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// AnalysisResult is the decoded antipattern_analysis payload.
type AnalysisResult struct {
	Status       AnalysisStatus `json:"status"`
	Antipatterns []Antipattern  `json:"antipatterns"`
}

// StrategyStatus is the verdict of the strategy stage.
type StrategyStatus string

const (
	NoRefactoringNeeded  StrategyStatus = "NO_REFACTORING_NEEDED"
	RefactoringSuggested StrategyStatus = "REFACTORING_SUGGESTED"
)

// Refactoring is one suggested remediation for a detected issue.
type Refactoring struct {
	IssueName     string `json:"issueName"`
	Suggestion    string `json:"suggestion"`
	Justification string `json:"justification"`
}

// StrategyResult is the decoded refactoring_strategy payload.
type StrategyResult struct {
	Status       StrategyStatus `json:"status"`
	Refactorings []Refactoring  `json:"refactorings"`
}

// RefactorResult carries the refactored source text.
type RefactorResult struct {
	Code string `json:"code"`
}

// Messages shown in place of an empty result list.
const (
	NoAntipatternsMessage = "No significant anti-patterns were detected!"
	NoRefactoringMessage  = "No significant changes are required"
)
