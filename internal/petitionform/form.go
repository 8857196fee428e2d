// Package petitionform validates and normalizes creator input for new
// petitions and persists them with a single insert.
package petitionform

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultGoal seeds a fresh form's signature goal.
const DefaultGoal = "1000"

// NormalizeAssessedValue strips everything but digits and the first
// decimal point; later decimal points are collapsed rather than the
// input being rejected, so "12.34.56" becomes "12.3456".
func NormalizeAssessedValue(raw string) string {
	var b strings.Builder
	sawDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !sawDot:
			sawDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeGoal keeps digits only: no sign, no decimals.
func NormalizeGoal(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Form is the creator's in-progress input. The numeric fields hold
// normalized text; SetAssessedValue/SetGoal apply normalization on
// every edit, not only at submit time.
type Form struct {
	Title         string
	Story         string
	AssessedValue string
	Goal          string
}

func NewForm() Form {
	return Form{Goal: DefaultGoal}
}

func (f *Form) SetTitle(raw string) { f.Title = raw }

func (f *Form) SetStory(raw string) { f.Story = raw }

func (f *Form) SetAssessedValue(raw string) {
	f.AssessedValue = NormalizeAssessedValue(raw)
}

func (f *Form) SetGoal(raw string) {
	f.Goal = NormalizeGoal(raw)
}

// CanSubmit gates the submit action: false while any required field is
// empty, independent of deeper validation.
func (f Form) CanSubmit() bool {
	return strings.TrimSpace(f.Title) != "" &&
		strings.TrimSpace(f.Story) != "" &&
		f.AssessedValue != "" &&
		f.Goal != ""
}

// ValidationError is a local pre-submit failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Draft is the parsed, insert-ready petition.
type Draft struct {
	Title         string
	Story         string
	AssessedValue float64
	Goal          int
}

// Parse validates the form and converts the normalized text fields to
// their numeric types.
func (f Form) Parse() (Draft, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Draft{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	story := strings.TrimSpace(f.Story)
	if story == "" {
		return Draft{}, &ValidationError{Field: "story", Reason: "is required"}
	}

	value, err := strconv.ParseFloat(f.AssessedValue, 64)
	if err != nil {
		return Draft{}, &ValidationError{Field: "assessed value", Reason: "must be a number"}
	}
	if value < 0 {
		return Draft{}, &ValidationError{Field: "assessed value", Reason: "must not be negative"}
	}

	goal, err := strconv.Atoi(f.Goal)
	if err != nil {
		return Draft{}, &ValidationError{Field: "goal", Reason: "must be an integer"}
	}
	if goal <= 0 {
		return Draft{}, &ValidationError{Field: "goal", Reason: "must be positive"}
	}

	return Draft{Title: title, Story: story, AssessedValue: value, Goal: goal}, nil
}
