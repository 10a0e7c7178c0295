// ABOUTME: Progress result types, tolerant JSON parsing and local tallies.
// ABOUTME: Model replies may be fenced, padded with prose or carry numeric strings.

package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/harper/eureka/internal/models"
)

// Progress is the structured trend analysis.
type Progress struct {
	Evaluation            string            `json:"evaluation"`
	ChartDataByDifficulty []DifficultyPoint `json:"chartDataByDifficulty"`
	ChartDataBySubject    []SubjectPoint    `json:"chartDataBySubject"`
}

// Fallback returns a Progress carrying only an evaluation message.
func Fallback(msg string) Progress {
	return Progress{
		Evaluation:            msg,
		ChartDataByDifficulty: []DifficultyPoint{},
		ChartDataBySubject:    []SubjectPoint{},
	}
}

// IsEmpty reports whether there is no chart data.
func (p Progress) IsEmpty() bool {
	return len(p.ChartDataByDifficulty) == 0 && len(p.ChartDataBySubject) == 0
}

// DifficultyPoint counts notes per difficulty for one period.
type DifficultyPoint struct {
	Name     string `json:"name"`
	Easy     int    `json:"easy"`
	Medium   int    `json:"medium"`
	Hard     int    `json:"hard"`
	Critical int    `json:"critical"`
}

// Count returns the value for d.
func (p DifficultyPoint) Count(d models.Difficulty) int {
	switch d {
	case models.DifficultyEasy:
		return p.Easy
	case models.DifficultyMedium:
		return p.Medium
	case models.DifficultyHard:
		return p.Hard
	case models.DifficultyCritical:
		return p.Critical
	}
	return 0
}

func (p *DifficultyPoint) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	p.Name = fields.name
	p.Easy = fields.counts["easy"]
	p.Medium = fields.counts["medium"]
	p.Hard = fields.counts["hard"]
	p.Critical = fields.counts["critical"]
	return nil
}

// SubjectPoint counts notes per subject for one period.
type SubjectPoint struct {
	Name   string
	Counts map[models.Subject]int
}

// Count returns the value for s.
func (p SubjectPoint) Count(s models.Subject) int {
	return p.Counts[s]
}

func (p SubjectPoint) MarshalJSON() ([]byte, error) {
	out := map[string]any{"name": p.Name}
	for _, s := range models.Subjects {
		out[string(s)] = p.Counts[s]
	}
	return json.Marshal(out)
}

func (p *SubjectPoint) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	p.Name = fields.name
	p.Counts = make(map[models.Subject]int)
	for k, v := range fields.counts {
		s := models.ParseSubject(k)
		p.Counts[s] += v
	}
	return nil
}

type pointFields struct {
	name   string
	counts map[string]int
}

// decodeFields reads {"name": ..., key: number-or-numeric-string, ...}.
func decodeFields(data []byte) (pointFields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return pointFields{}, fmt.Errorf("chart point: %w", err)
	}
	out := pointFields{counts: make(map[string]int)}
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "name" {
			if err := json.Unmarshal(v, &out.name); err != nil {
				out.name = strings.Trim(string(v), `"`)
			}
			continue
		}
		n, ok := toInt(v)
		if ok {
			out.counts[key] = n
		}
	}
	if out.name == "" {
		return pointFields{}, errors.New("chart point: missing name")
	}
	return out, nil
}

func toInt(v json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return int(f + 0.5), true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(f + 0.5), true
		}
	}
	return 0, false
}

// ParseProgress extracts a Progress from a model reply. The evaluation must
// be present and both chart fields must be arrays.
func ParseProgress(raw string) (Progress, error) {
	obj, ok := extractObject(stripFences(raw))
	if !ok {
		return Progress{}, errors.New("no JSON object in response")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &probe); err != nil {
		return Progress{}, fmt.Errorf("decode progress: %w", err)
	}
	for _, key := range []string{"evaluation", "chartDataByDifficulty", "chartDataBySubject"} {
		if _, ok := probe[key]; !ok {
			return Progress{}, fmt.Errorf("progress response missing %q", key)
		}
	}

	var p Progress
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return Progress{}, fmt.Errorf("decode progress: %w", err)
	}
	if strings.TrimSpace(p.Evaluation) == "" {
		return Progress{}, errors.New("progress response has empty evaluation")
	}
	if p.ChartDataByDifficulty == nil {
		p.ChartDataByDifficulty = []DifficultyPoint{}
	}
	if p.ChartDataBySubject == nil {
		p.ChartDataBySubject = []SubjectPoint{}
	}
	return p, nil
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced {...} in s, skipping braces
// inside strings.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Tally counts notes per month locally, oldest month first. It is used when
// the model returned no chart data.
func Tally(notes []models.Note) ([]DifficultyPoint, []SubjectPoint) {
	byDiff := map[string]*DifficultyPoint{}
	bySubj := map[string]*SubjectPoint{}
	var months []string

	for _, n := range notes {
		month := n.CreatedAt.Format("2006-01")
		d, ok := byDiff[month]
		if !ok {
			months = append(months, month)
			d = &DifficultyPoint{Name: month}
			byDiff[month] = d
			bySubj[month] = &SubjectPoint{Name: month, Counts: map[models.Subject]int{}}
		}
		switch n.Difficulty {
		case models.DifficultyEasy:
			d.Easy++
		case models.DifficultyMedium:
			d.Medium++
		case models.DifficultyHard:
			d.Hard++
		case models.DifficultyCritical:
			d.Critical++
		}
		bySubj[month].Counts[n.Subject]++
	}

	sort.Strings(months)
	diffs := make([]DifficultyPoint, 0, len(months))
	subjs := make([]SubjectPoint, 0, len(months))
	for _, m := range months {
		diffs = append(diffs, *byDiff[m])
		subjs = append(subjs, *bySubj[m])
	}
	return diffs, subjs
}
