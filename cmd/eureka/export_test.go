// ABOUTME: Tests for export command helpers.
// ABOUTME: Covers selection parsing, filenames and markdown frontmatter.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/harper/eureka/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSelections(t *testing.T) {
	got, err := parseSelections([]string{"abc123:1,3", " def456 : 2 ", "abc123:4", "ghi789:"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, got["abc123"])
	assert.Equal(t, []int{1}, got["def456"])
	assert.Equal(t, []int{}, got["ghi789"])
}

func TestParseSelectionsRejectsBadInput(t *testing.T) {
	for _, v := range []string{"no-colon", ":1", "abc123:0", "abc123:x"} {
		_, err := parseSelections([]string{v})
		assert.Error(t, err, v)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c", sanitizeFilename(" a/b:c "))
	assert.Equal(t, "what-", sanitizeFilename("what?"))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 150))), 100)
}

func TestNoteMarkdownFile(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	n := models.Note{
		ID:         "0123456789abcdef",
		Lesson:     "Fractions",
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyHard,
		Mistake:    "Added denominators",
		Correction: "Find a common denominator",
		Errors:     []string{"1/2 + 1/3 = 2/5"},
		CreatedAt:  created,
		UpdatedAt:  created.Add(time.Hour),
	}

	out, err := noteMarkdownFile(n)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "---\n"))

	rest := strings.TrimPrefix(out, "---\n")
	head, body, ok := strings.Cut(rest, "---\n")
	require.True(t, ok)

	var fm markdownFrontmatter
	require.NoError(t, yaml.Unmarshal([]byte(head), &fm))
	assert.Equal(t, n.ID, fm.ID)
	assert.Equal(t, "Fractions", fm.Lesson)
	assert.Equal(t, string(models.SubjectMath), fm.Subject)
	assert.Equal(t, n.Errors, fm.Errors)
	assert.True(t, fm.Created.Equal(created))

	assert.Contains(t, body, "# Fractions")
	assert.Contains(t, body, "Added denominators")
}
