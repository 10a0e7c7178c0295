// ABOUTME: Gemini client implementing Completer with the genai SDK.
// ABOUTME: SDK errors are converted into APIError so callers can classify failures.

package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

// Request is a single completion call.
type Request struct {
	Model  string
	System string
	Prompt string
	// JSON asks the model for an application/json response.
	JSON bool
	// Schema optionally constrains a JSON response.
	Schema *genai.Schema
}

// Completer sends a prompt to a model and returns its text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is a failed response from the model endpoint.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %d: %s", e.StatusCode, e.Message)
}

// Auth reports whether the key was rejected.
func (e *APIError) Auth() bool {
	if e.StatusCode == http.StatusUnauthorized || e.Status == "UNAUTHENTICATED" {
		return true
	}
	return e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "api key")
}

// Retryable reports whether another model might succeed.
func (e *APIError) Retryable() bool {
	switch {
	case e.Auth():
		return false
	case e.StatusCode == http.StatusNotFound, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a client for endpoint, e.g.
// https://generativelanguage.googleapis.com/v1beta. A nil httpClient uses the
// SDK default.
func NewGemini(ctx context.Context, endpoint, apiKey string, httpClient *http.Client) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if endpoint != "" {
		base, version := splitEndpoint(endpoint)
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base, APIVersion: version}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// splitEndpoint separates a trailing API version segment ("v1", "v1beta")
// from the base URL.
func splitEndpoint(endpoint string) (base, version string) {
	endpoint = strings.TrimRight(endpoint, "/")
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint + "/", ""
	}
	dir, last := "", u.Path
	if i := strings.LastIndex(u.Path, "/"); i >= 0 {
		dir, last = u.Path[:i], u.Path[i+1:]
	}
	if !strings.HasPrefix(last, "v1") && !strings.HasPrefix(last, "v2") {
		return endpoint + "/", ""
	}
	u.Path = dir
	return strings.TrimRight(u.String(), "/") + "/", last
}

// Complete calls generateContent on req.Model and returns the joined text of
// the first candidate.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	gc := &genai.GenerateContentConfig{}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = req.Schema
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", convertError(err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini: no candidates returned")
	}
	return resp.Text(), nil
}

// convertError maps SDK API errors onto APIError and wraps the rest.
func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request: %w", err)
}
