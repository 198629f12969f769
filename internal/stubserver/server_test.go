package stubserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucasnoah/remediate/internal/pipeline"
)

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sessionRequestFor(path, id string) *http.Request {
	body, _ := json.Marshal(map[string]string{"session_id": id})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func upload(t *testing.T, h http.Handler) string {
	t.Helper()
	w := serve(h, uploadRequest(t, "Main.java", "class Main {}"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	id := decode(t, w)["session_id"]
	if id == "" {
		t.Fatal("upload returned empty session_id")
	}
	return id
}

func TestUpload_AssignsSession(t *testing.T) {
	s := New(Options{}, nil)
	h := s.Router()

	a, b := upload(t, h), upload(t, h)
	if a == b {
		t.Errorf("two uploads share session %q", a)
	}
	if s.SessionCount() != 2 {
		t.Errorf("SessionCount = %d", s.SessionCount())
	}
}

func TestUpload_RejectsNonJava(t *testing.T) {
	h := New(Options{}, nil).Router()
	w := serve(h, uploadRequest(t, "notes.txt", "hi"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode(t, w)["detail"]; got != "Only .java files are supported" {
		t.Errorf("detail = %q", got)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	h := New(Options{}, nil).Router()
	req := httptest.NewRequest(http.MethodPost, "/upload/", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	if w := serve(h, req); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestStageOrdering(t *testing.T) {
	h := New(Options{}, nil).Router()
	id := upload(t, h)

	tests := []struct {
		path   string
		status int
		detail string
	}{
		{"/strategy/", http.StatusBadRequest, "Run analysis before requesting a strategy"},
		{"/refactor/", http.StatusBadRequest, "Run the strategy agent before requesting refactored code"},
		{"/analyze/", http.StatusOK, ""},
		{"/refactor/", http.StatusBadRequest, "Run the strategy agent before requesting refactored code"},
		{"/strategy/", http.StatusOK, ""},
		{"/refactor/", http.StatusOK, ""},
	}
	for _, tt := range tests {
		w := serve(h, sessionRequestFor(tt.path, id))
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d (%s)", tt.path, w.Code, tt.status, w.Body.String())
		}
		if tt.detail != "" {
			if got := decode(t, w)["detail"]; got != tt.detail {
				t.Errorf("%s: detail = %q, want %q", tt.path, got, tt.detail)
			}
		}
	}
}

func TestUnknownSession(t *testing.T) {
	h := New(Options{}, nil).Router()
	for _, path := range []string{"/analyze/", "/strategy/", "/refactor/"} {
		w := serve(h, sessionRequestFor(path, "nope"))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", path, w.Code)
		}
		if got := decode(t, w)["detail"]; got != "Session not found" {
			t.Errorf("%s: detail = %q", path, got)
		}
	}
}

func TestPayloadsAreDoubleEncoded(t *testing.T) {
	analysis := pipeline.AnalysisResult{
		Status:       pipeline.IssuesFound,
		Antipatterns: []pipeline.Antipattern{{Name: "Feature Envy", Location: "Main.java:3", Description: "d"}},
	}
	h := New(Options{Analysis: analysis, Refactor: func(code string) string { return code + "\n// done" }}, nil).Router()
	id := upload(t, h)

	w := serve(h, sessionRequestFor("/analyze/", id))
	doc := decode(t, w)["antipattern_analysis"]
	var got pipeline.AnalysisResult
	if err := json.Unmarshal([]byte(doc), &got); err != nil {
		t.Fatalf("nested analysis document %q: %v", doc, err)
	}
	if got.Status != pipeline.IssuesFound || got.Antipatterns[0].Name != "Feature Envy" {
		t.Errorf("analysis = %+v", got)
	}

	w = serve(h, sessionRequestFor("/strategy/", id))
	var strategy pipeline.StrategyResult
	if err := json.Unmarshal([]byte(decode(t, w)["refactoring_strategy"]), &strategy); err != nil {
		t.Fatalf("nested strategy document: %v", err)
	}
	if strategy.Status != pipeline.NoRefactoringNeeded {
		t.Errorf("default strategy = %+v", strategy)
	}

	w = serve(h, sessionRequestFor("/refactor/", id))
	if code := decode(t, w)["refactored_code"]; code != "class Main {}\n// done" {
		t.Errorf("refactored_code = %q", code)
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	h := New(Options{}, nil).Router()
	w := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if len(w.Header().Get("X-Request-ID")) != 8 {
		t.Errorf("X-Request-ID = %q", w.Header().Get("X-Request-ID"))
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	pre := serve(h, httptest.NewRequest(http.MethodOptions, "/analyze/", nil))
	if pre.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", pre.Code)
	}
}

func TestRecovery(t *testing.T) {
	s := New(Options{Refactor: func(string) string { panic("boom") }}, nil)
	r := s.Router()
	id := upload(t, r)
	serve(r, sessionRequestFor("/analyze/", id))
	serve(r, sessionRequestFor("/strategy/", id))

	w := serve(r, sessionRequestFor("/refactor/", id))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
