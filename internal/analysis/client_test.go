// ABOUTME: Tests for analysis fallbacks, model fallback and response parsing.
// ABOUTME: A scripted completer records every call so "no network" is checkable.

package analysis

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/harper/eureka/internal/config"
	"github.com/harper/eureka/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

type scripted struct {
	replies map[string]reply
	calls   []Request
}

func (s *scripted) Complete(ctx context.Context, req Request) (string, error) {
	s.calls = append(s.calls, req)
	r, ok := s.replies[req.Model]
	if !ok {
		return "", &APIError{StatusCode: http.StatusNotFound, Message: "model not found"}
	}
	return r.text, r.err
}

func testClient(s *scripted, modelNames ...string) *Client {
	if len(modelNames) == 0 {
		modelNames = []string{"primary", "secondary"}
	}
	return New(config.AIConfig{Models: modelNames}, WithCompleter(s))
}

func someNotes() []models.Note {
	at := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	return []models.Note{{
		ID: "1", Subject: models.SubjectMath, Difficulty: models.DifficultyHard,
		Lesson: "Derivatives", Mistake: "chain rule", Correction: "multiply inner derivative",
		CreatedAt: at, UpdatedAt: at,
	}}
}

func TestEmptyInputNeverCallsModel(t *testing.T) {
	s := &scripted{}
	c := testClient(s)

	assert.Equal(t, MsgNoNotes, c.AnalyzeMistakes(context.Background(), nil))
	p := c.AnalyzeProgress(context.Background(), []models.Note{})
	assert.Equal(t, MsgNoProgress, p.Evaluation)
	assert.NotNil(t, p.ChartDataByDifficulty)
	assert.Empty(t, p.ChartDataByDifficulty)
	assert.Empty(t, p.ChartDataBySubject)
	assert.Empty(t, s.calls)
}

func TestMissingKeyNeverCallsModel(t *testing.T) {
	c := New(config.AIConfig{Models: []string{"m"}})
	assert.False(t, c.Configured())
	assert.Equal(t, MsgNotConfigured, c.AnalyzeMistakes(context.Background(), someNotes()))
	assert.Equal(t, MsgNotConfigured, c.AnalyzeProgress(context.Background(), someNotes()).Evaluation)
}

func TestMistakesFallsBackToNextModel(t *testing.T) {
	s := &scripted{replies: map[string]reply{
		"primary":   {err: &APIError{StatusCode: http.StatusServiceUnavailable, Message: "overloaded"}},
		"secondary": {text: "```markdown\n## Recurring patterns\nChain rule.\n```"},
	}}
	c := testClient(s)

	out := c.AnalyzeMistakes(context.Background(), someNotes())
	assert.Equal(t, "## Recurring patterns\nChain rule.", out)
	require.Len(t, s.calls, 2)
	assert.Equal(t, "primary", s.calls[0].Model)
	assert.Contains(t, s.calls[0].Prompt, "Derivatives")
}

func TestAuthFailureStopsFallback(t *testing.T) {
	s := &scripted{replies: map[string]reply{
		"primary":   {err: &APIError{StatusCode: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key."}},
		"secondary": {text: "never"},
	}}
	c := testClient(s)

	out := c.AnalyzeMistakes(context.Background(), someNotes())
	assert.Contains(t, out, "rejected the API key")
	assert.Len(t, s.calls, 1)
}

func TestTransportErrorBecomesMessage(t *testing.T) {
	s := &scripted{replies: map[string]reply{"only": {err: errors.New("dial tcp: no route")}}}
	c := testClient(s, "only")

	out := c.AnalyzeMistakes(context.Background(), someNotes())
	assert.Contains(t, out, "unavailable")
}

func TestProgressMalformedResponse(t *testing.T) {
	for _, bad := range []string{
		"I think you are doing great!",
		`{"evaluation": "ok"}`,
		`{"evaluation": "", "chartDataByDifficulty": [], "chartDataBySubject": []}`,
		`{"evaluation": "x", "chartDataByDifficulty": [{"easy": 1}], "chartDataBySubject": []}`,
	} {
		s := &scripted{replies: map[string]reply{"primary": {text: bad}}}
		p := testClient(s).AnalyzeProgress(context.Background(), someNotes())
		assert.Equal(t, MsgMalformed, p.Evaluation, bad)
		assert.Empty(t, p.ChartDataByDifficulty, bad)
		assert.Empty(t, p.ChartDataBySubject, bad)
	}
}

func TestProgressParsesTolerantJSON(t *testing.T) {
	raw := "Here you go:\n```json\n" + `{
		"evaluation": "Fewer {hard} mistakes",
		"chartDataByDifficulty": [{"name": "2024-01", "easy": 1, "medium": "2", "hard": 3.0, "critical": 0}],
		"chartDataBySubject": [{"name": "2024-01", "math": 4, "Code": "1", "geography": 2}]
	}` + "\n```"
	s := &scripted{replies: map[string]reply{"primary": {text: raw}}}

	p := testClient(s).AnalyzeProgress(context.Background(), someNotes())
	require.Equal(t, "Fewer {hard} mistakes", p.Evaluation)
	require.Len(t, p.ChartDataByDifficulty, 1)
	assert.Equal(t, DifficultyPoint{Name: "2024-01", Easy: 1, Medium: 2, Hard: 3}, p.ChartDataByDifficulty[0])
	require.Len(t, p.ChartDataBySubject, 1)
	assert.Equal(t, 4, p.ChartDataBySubject[0].Count(models.SubjectMath))
	assert.Equal(t, 1, p.ChartDataBySubject[0].Count(models.SubjectCode))
	assert.Equal(t, 2, p.ChartDataBySubject[0].Count(models.SubjectOther))
	assert.True(t, s.calls[0].JSON)
}

func TestTally(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	notes := []models.Note{
		{Subject: models.SubjectMath, Difficulty: models.DifficultyEasy, CreatedAt: feb},
		{Subject: models.SubjectMath, Difficulty: models.DifficultyHard, CreatedAt: jan},
		{Subject: models.SubjectCode, Difficulty: models.DifficultyHard, CreatedAt: jan},
	}

	diffs, subjs := Tally(notes)
	require.Len(t, diffs, 2)
	assert.Equal(t, DifficultyPoint{Name: "2024-01", Hard: 2}, diffs[0])
	assert.Equal(t, DifficultyPoint{Name: "2024-02", Easy: 1}, diffs[1])
	assert.Equal(t, 1, subjs[0].Count(models.SubjectCode))
	assert.Equal(t, 1, subjs[1].Count(models.SubjectMath))
}

func TestExtractObject(t *testing.T) {
	obj, ok := extractObject(`noise {"a": "}", "b": {"c": 1}} trailing`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}", "b": {"c": 1}}`, obj)

	_, ok = extractObject(`{"unterminated": 1`)
	assert.False(t, ok)
}
