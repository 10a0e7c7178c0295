// ABOUTME: Subject and difficulty enums used to classify notes.
// ABOUTME: Parsing is lenient so historical documents still normalize.

package models

import "strings"

// Subject is the fixed category of a note.
type Subject string

const (
	SubjectMath       Subject = "math"
	SubjectScience    Subject = "science"
	SubjectHistory    Subject = "history"
	SubjectLiterature Subject = "literature"
	SubjectCode       Subject = "code"
	SubjectEnglish    Subject = "english"
	SubjectOther      Subject = "other"
)

// Subjects lists every subject in display order.
var Subjects = []Subject{
	SubjectMath, SubjectScience, SubjectHistory, SubjectLiterature,
	SubjectCode, SubjectEnglish, SubjectOther,
}

var subjectLabels = map[Subject]string{
	SubjectMath:       "Math",
	SubjectScience:    "Science",
	SubjectHistory:    "History",
	SubjectLiterature: "Literature",
	SubjectCode:       "Code",
	SubjectEnglish:    "English",
	SubjectOther:      "Other",
}

// Label returns the human-readable subject name.
func (s Subject) Label() string {
	if l, ok := subjectLabels[s]; ok {
		return l
	}
	return subjectLabels[SubjectOther]
}

// Valid reports whether s is one of the known subjects.
func (s Subject) Valid() bool {
	_, ok := subjectLabels[s]
	return ok
}

// ParseSubject maps free text to a subject. Unknown input becomes SubjectOther.
func ParseSubject(s string) Subject {
	v := Subject(strings.ToLower(strings.TrimSpace(s)))
	if v.Valid() {
		return v
	}
	return SubjectOther
}

// Difficulty is an ordinal rating: easy < medium < hard < critical.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyCritical Difficulty = "critical"
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyCritical}

// Rank returns the ordinal position, 1 for easy through 4 for critical, 0 if unknown.
func (d Difficulty) Rank() int {
	for i, v := range Difficulties {
		if v == d {
			return i + 1
		}
	}
	return 0
}

// Label returns the capitalized difficulty name.
func (d Difficulty) Label() string {
	if d.Rank() == 0 {
		return "Unknown"
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// ParseDifficulty maps free text to a difficulty. Unknown input becomes medium.
func ParseDifficulty(s string) Difficulty {
	v := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if v.Rank() > 0 {
		return v
	}
	return DifficultyMedium
}
