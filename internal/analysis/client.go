// ABOUTME: AI analysis of recorded mistakes and progress trends.
// ABOUTME: Falls back across models and never returns an error to callers.

package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/config"
	"github.com/harper/eureka/internal/models"
)

// Canned results for cases that never reach the model.
const (
	MsgNoNotes       = "There are no notes to analyze yet. Record a few mistakes first."
	MsgNoProgress    = "Not enough data to evaluate progress yet."
	MsgNotConfigured = "AI analysis is not configured. Set GEMINI_API_KEY to enable it."
	MsgMalformed     = "The AI returned a response that could not be read. Try again later."
	MsgEmptyResponse = "The AI returned an empty response. Try again later."
)

// Client produces analyses of a user's notes.
type Client struct {
	completer  Completer
	models     []string
	configured bool
	timeout    time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCompleter replaces the Gemini backend.
func WithCompleter(c Completer) Option {
	return func(cl *Client) {
		cl.completer = c
		cl.configured = c != nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New builds a client from the AI section of the config. Without an API key
// the client answers every request with MsgNotConfigured.
func New(cfg config.AIConfig, opts ...Option) *Client {
	c := &Client{
		models:     append([]string(nil), cfg.Models...),
		timeout:    cfg.Timeout.Std(),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.completer == nil && cfg.APIKey != "" {
		g, err := NewGemini(context.Background(), cfg.Endpoint, cfg.APIKey, nil)
		if err != nil {
			c.logger.Warn("gemini client unavailable", "err", err)
		} else {
			c.completer = g
			c.configured = true
		}
	}
	if len(c.models) == 0 {
		c.models = config.DefaultConfig().AI.Models
	}
	return c
}

// Configured reports whether requests can reach a model.
func (c *Client) Configured() bool {
	return c.configured
}

// AnalyzeMistakes returns a markdown analysis of recurring mistakes.
func (c *Client) AnalyzeMistakes(ctx context.Context, notes []models.Note) string {
	if len(notes) == 0 {
		return MsgNoNotes
	}
	if !c.configured {
		return MsgNotConfigured
	}

	text, err := c.complete(ctx, Request{
		System: mistakesSystemPrompt,
		Prompt: buildNotesPrompt("Analyze these study mistakes:", notes),
	})
	if err != nil {
		return describe(err)
	}
	text = stripFences(text)
	if strings.TrimSpace(text) == "" {
		return MsgEmptyResponse
	}
	return text
}

// AnalyzeProgress returns an evaluation with monthly breakdowns. Any failure
// yields a fallback evaluation and empty charts.
func (c *Client) AnalyzeProgress(ctx context.Context, notes []models.Note) Progress {
	if len(notes) == 0 {
		return Fallback(MsgNoProgress)
	}
	if !c.configured {
		return Fallback(MsgNotConfigured)
	}

	raw, err := c.complete(ctx, Request{
		System: progressSystemPrompt,
		Prompt: buildNotesPrompt("Evaluate progress over time for these study mistakes:", notes),
		JSON:   true,
		Schema: progressSchema,
	})
	if err != nil {
		return Fallback(describe(err))
	}

	p, err := ParseProgress(raw)
	if err != nil {
		c.logger.Warn("unreadable progress response", "err", err)
		return Fallback(MsgMalformed)
	}
	return p
}

// complete tries each configured model in order until one answers or a
// failure shows that another model would not help.
func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	for _, model := range c.models {
		req.Model = model
		out, err := c.completer.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		c.logger.Warn("model request failed", "model", model, "err", err)
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// describe turns a failure into a message fit for the dashboard.
func describe(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI service did not respond in time. Try again later."
	case errors.Is(err, context.Canceled):
		return "The analysis was cancelled."
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Auth():
			return "The AI service rejected the API key. Check GEMINI_API_KEY."
		case apiErr.StatusCode == http.StatusForbidden:
			return "The AI service denied permission for this request."
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "The AI service is rate limiting requests. Try again later."
		case apiErr.StatusCode == http.StatusBadRequest:
			return "The AI service rejected the request."
		}
	}
	return "AI analysis is unavailable right now: " + err.Error()
}
