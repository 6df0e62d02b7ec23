package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"seatplan/internal/domain"
)

// ── CSV ─────────────────────────────────────────────────────
// Header row required. Known columns: id, first_name, last_name, sex,
// level, photo. Others are ignored.

type csvFormat struct {
	comma rune
}

func init() {
	Register(csvFormat{comma: ','})
	Register(semicolonFormat{csvFormat{comma: ';'}})
}

func (csvFormat) Name() string         { return "csv" }
func (csvFormat) Extensions() []string { return []string{".csv"} }

func (f csvFormat) Parse(r io.Reader) ([]domain.Student, error) {
	reader := csv.NewReader(r)
	reader.Comma = f.comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty csv file")
	}

	col := map[string]int{}
	for i, h := range records[0] {
		col[normalizeHeader(h)] = i
	}
	if _, ok := col["first_name"]; !ok {
		if _, ok := col["last_name"]; !ok {
			return nil, fmt.Errorf("csv header needs first_name or last_name: %w", domain.ErrInvalidInput)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	students := make([]domain.Student, 0, len(records)-1)
	for n, row := range records[1:] {
		s := domain.Student{
			FirstName: cell(row, "first_name"),
			LastName:  cell(row, "last_name"),
			Sex:       cell(row, "sex"),
			Level:     cell(row, "level"),
			Photo:     cell(row, "photo"),
		}
		if v := cell(row, "id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: id %q: %w", n+2, v, domain.ErrInvalidInput)
			}
			s.ID = id
		}
		students = append(students, s)
	}
	return students, validate(students)
}

// normalizeHeader maps "First Name", "first-name" and "firstname" alike.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	switch h {
	case "firstname", "prenom":
		return "first_name"
	case "lastname", "nom":
		return "last_name"
	}
	return h
}

// semicolonFormat reads spreadsheet exports that use ';'.
type semicolonFormat struct{ csvFormat }

func (semicolonFormat) Name() string         { return "csv;" }
func (semicolonFormat) Extensions() []string { return nil }
