// Package gateway performs the HTTP calls to the remote remediation pipeline
// and folds transport and status outcomes into one result shape.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
)

// RawResponse is the decoded top-level JSON object of a 200 response. Field
// values stay undecoded so the payload parser can apply per-stage rules.
type RawResponse map[string]json.RawMessage

// Doer sends an HTTP request. *http.Client satisfies it; tests substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway issues exactly one request per call. It performs no session
// validation; callers decide whether a call may be made at all.
type Gateway struct {
	baseURL string
	client  Doer
}

// New creates a Gateway for baseURL. A zero timeout leaves the transport's
// own behaviour in charge.
func New(baseURL string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// NewWithClient creates a Gateway that sends requests through client.
func NewWithClient(baseURL string, client Doer) *Gateway {
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// BaseURL returns the service root requests are sent to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

type sessionRequest struct {
	SessionID session.Handle `json:"session_id"`
}

// Send POSTs {"session_id": handle} to endpoint. fallback is the message used
// when a non-200 response carries no detail field.
func (g *Gateway) Send(ctx context.Context, endpoint string, handle session.Handle, fallback string) (RawResponse, *pipeline.ErrorInfo) {
	body, err := json.Marshal(sessionRequest{SessionID: handle})
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindValidation, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindNetwork, "%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, fallback)
}

// Upload POSTs content as the multipart field "file" to endpoint.
func (g *Gateway) Upload(ctx context.Context, endpoint, filename string, content io.Reader, fallback string) (RawResponse, *pipeline.ErrorInfo) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindValidation, "build upload form: %v", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, pipeline.NewError(pipeline.KindValidation, "read %s: %v", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, pipeline.NewError(pipeline.KindValidation, "build upload form: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, &buf)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindNetwork, "%v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return g.do(req, fallback)
}

func (g *Gateway) do(req *http.Request, fallback string) (RawResponse, *pipeline.ErrorInfo) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &pipeline.ErrorInfo{Kind: pipeline.KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pipeline.ErrorInfo{Kind: pipeline.KindNetwork, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &pipeline.ErrorInfo{Kind: pipeline.KindServer, Message: detailOr(data, fallback)}
	}

	var raw RawResponse
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, &pipeline.ErrorInfo{Kind: pipeline.KindParse, Message: "Could not read data from the server."}
	}
	return raw, nil
}

// detailOr extracts the "detail" field from an error body. String details are
// used as is. Validation error lists contribute their "msg" entries, and any
// other value is shown as compact JSON.
func detailOr(body []byte, fallback string) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || len(e.Detail) == 0 {
		return fallback
	}
	raw := bytes.TrimSpace(e.Detail)
	if bytes.Equal(raw, []byte("null")) {
		return fallback
	}

	var detail string
	if err := json.Unmarshal(raw, &detail); err == nil {
		if strings.TrimSpace(detail) == "" {
			return fallback
		}
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) == len(items) {
			return strings.Join(msgs, "; ")
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil || compact.Len() == 0 {
		return fallback
	}
	return compact.String()
}
