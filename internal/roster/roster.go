// Package roster reads class lists from CSV and JSON files.
package roster

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"seatplan/internal/domain"
)

// Format parses one file type into students.
type Format interface {
	Name() string
	Extensions() []string
	Parse(r io.Reader) ([]domain.Student, error)
}

var (
	formatsMu sync.RWMutex
	formats   = map[string]Format{}
)

func Register(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[f.Name()] = f
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	out := make([]string, 0, len(formats))
	for n := range formats {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup finds a format by name, or by file extension when name is empty.
func Lookup(name, path string) (Format, error) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	if name != "" {
		if f, ok := formats[name]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("roster format %q: %w", name, domain.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		for _, e := range f.Extensions() {
			if e == ext {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("roster file %s: unknown extension %q: %w", path, ext, domain.ErrInvalidInput)
}

// ReadFile parses path with the named format, or by extension. Every
// student is stamped with classroomID.
func ReadFile(path, format string, classroomID int64) ([]domain.Student, error) {
	f, err := Lookup(format, path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer file.Close()

	students, err := f.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	for i := range students {
		students[i].ClassroomID = classroomID
	}
	return students, nil
}

// validate rejects rows without any name.
func validate(students []domain.Student) error {
	for i, s := range students {
		if strings.TrimSpace(s.FirstName) == "" && strings.TrimSpace(s.LastName) == "" {
			return fmt.Errorf("row %d has no name: %w", i+1, domain.ErrInvalidInput)
		}
	}
	return nil
}
