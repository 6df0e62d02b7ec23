package roster

import (
	"encoding/json"
	"fmt"
	"io"

	"seatplan/internal/domain"
)

// ── JSON ────────────────────────────────────────────────────
// Either a bare array of students or {"students": [...]}.

type jsonFormat struct{}

func init() { Register(jsonFormat{}) }

func (jsonFormat) Name() string         { return "json" }
func (jsonFormat) Extensions() []string { return []string{".json"} }

func (jsonFormat) Parse(r io.Reader) ([]domain.Student, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var students []domain.Student
	if err := json.Unmarshal(raw, &students); err != nil {
		var wrapped struct {
			Students []domain.Student `json:"students"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil || wrapped.Students == nil {
			return nil, fmt.Errorf("parse json: want an array of students: %w", domain.ErrInvalidInput)
		}
		students = wrapped.Students
	}
	return students, validate(students)
}
