// Package results writes experiment rows to the append-only results log.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// Sink receives one row per scored iteration
type Sink interface {
	Append(row models.ResultRow) error
}

// CSVSink appends rows to a CSV file. The header is written when the file is
// new or empty; an existing file must carry the same header.
type CSVSink struct {
	mu     sync.Mutex
	path   string
	fields []string
}

// NewCSVSink validates the field list. An empty list selects
// models.ResultFields.
func NewCSVSink(path string, fields []string) (*CSVSink, error) {
	if len(fields) == 0 {
		fields = models.ResultFields
	}
	for _, f := range fields {
		if _, err := (models.ResultRow{}).Field(f); err != nil {
			return nil, err
		}
	}
	return &CSVSink{path: path, fields: slices.Clone(fields)}, nil
}

// Path returns the file the sink writes to
func (s *CSVSink) Path() string { return s.path }

// Append writes one row. Safe for concurrent use.
func (s *CSVSink) Append(row models.ResultRow) error {
	values, err := row.Values(s.fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHeader(); err != nil {
		return err
	}

	f, empty, err := utils.SafeAppendFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if empty {
		if err := w.Write(s.fields); err != nil {
			return fmt.Errorf("failed to write results header: %w", err)
		}
	}
	if err := w.Write(values); err != nil {
		return fmt.Errorf("failed to write results row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush results log: %w", err)
	}
	return f.Sync()
}

func (s *CSVSink) checkHeader() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read results log: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		// empty file
		return nil
	}
	if !slices.Equal(header, s.fields) {
		return fmt.Errorf("results log %s has header %q, expected %q", s.path,
			strings.Join(header, ","), strings.Join(s.fields, ","))
	}
	return nil
}

// Memory keeps rows in memory
type Memory struct {
	mu   sync.Mutex
	rows []models.ResultRow
}

// Append implements Sink
func (m *Memory) Append(row models.ResultRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns a copy of the rows appended so far
func (m *Memory) Rows() []models.ResultRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}
