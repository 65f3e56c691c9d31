// Package push submits transaction bundles to a FHIR server.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jpfielding/boaguard.go/pkg/config"
	"github.com/jpfielding/boaguard.go/pkg/fhir"
)

const contentTypeFHIR = "application/fhir+json"

// StatusError is returned for a non-2xx response
type StatusError struct {
	Status int
	Issues []fhir.OperationOutcomeIssue
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("fhir server returned %d %s", e.Status, http.StatusText(e.Status))
	if len(e.Issues) == 0 {
		return msg
	}
	var diags []string
	for _, iss := range e.Issues {
		d := iss.Severity
		if iss.Diagnostics != "" {
			d += ": " + iss.Diagnostics
		}
		diags = append(diags, d)
	}
	return msg + " (" + strings.Join(diags, "; ") + ")"
}

// Response is the server's answer, returned for failures too
type Response struct {
	Status int
	Body   []byte
}

// Client posts bundles with basic auth. It never retries.
type Client struct {
	URL      string
	User     string
	Password string
	HTTP     *http.Client
	Log      *slog.Logger
}

// NewClient builds a client from validated configuration
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	return &Client{
		URL:      cfg.URL,
		User:     cfg.User,
		Password: cfg.Password,
		HTTP:     &http.Client{Timeout: cfg.Timeout},
		Log:      log,
	}
}

// Post sends body to the server. On a non-2xx status the OperationOutcome issues, if any, are
// logged and a *StatusError is returned together with the response.
func (c *Client) Post(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", c.URL, err)
	}
	req.Header.Set("Content-Type", contentTypeFHIR)
	req.Header.Set("Accept", contentTypeFHIR)
	req.SetBasicAuth(c.User, c.Password)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post to %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", c.URL, err)
	}
	out := &Response{Status: resp.StatusCode, Body: data}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.Log.Info("pushed transaction", slog.String("url", c.URL), slog.Int("status", resp.StatusCode))
		return out, nil
	}

	issues := outcomeIssues(data)
	c.Log.Error("push rejected",
		slog.String("url", c.URL),
		slog.Int("status", resp.StatusCode),
		slog.Int("issues", len(issues)))
	for _, iss := range issues {
		c.Log.Error("operation outcome",
			slog.String("severity", iss.Severity),
			slog.String("code", iss.Code),
			slog.String("diagnostics", iss.Diagnostics),
			slog.Any("expression", iss.Expression))
	}
	return out, &StatusError{Status: resp.StatusCode, Issues: issues}
}

// outcomeIssues extracts the issues of an OperationOutcome payload. A transaction-response
// Bundle carries them per entry under response.outcome, those are collected too.
func outcomeIssues(data []byte) []fhir.OperationOutcomeIssue {
	var probe struct {
		ResourceType string                       `json:"resourceType"`
		Issue        []fhir.OperationOutcomeIssue `json:"issue"`
		Entry        []struct {
			Response struct {
				Outcome *fhir.OperationOutcome `json:"outcome"`
			} `json:"response"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}
	switch probe.ResourceType {
	case "OperationOutcome":
		return probe.Issue
	case "Bundle":
		var issues []fhir.OperationOutcomeIssue
		for _, e := range probe.Entry {
			if e.Response.Outcome != nil {
				issues = append(issues, e.Response.Outcome.Issue...)
			}
		}
		return issues
	}
	return nil
}

// Pretty indents a JSON body and returns anything else unchanged
func Pretty(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return body
	}
	return buf.Bytes()
}
