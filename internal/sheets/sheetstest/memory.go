// Package sheetstest provides an in-memory sheets.Workbook for tests.
package sheetstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/everweb-bridge/backend/internal/sheets"
)

// Workbook holds worksheets keyed by spreadsheet id.
type Workbook struct {
	mu      sync.Mutex
	sheets  map[string]*Worksheet
	OpenErr map[string]error
	Opened  []string
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{sheets: map[string]*Worksheet{}, OpenErr: map[string]error{}}
}

// Add registers a worksheet whose first row is header.
func (b *Workbook) Add(spreadsheetID, title string, header []string, rows ...[]string) *Worksheet {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws := &Worksheet{title: title, rows: append([][]string{header}, rows...)}
	b.sheets[spreadsheetID] = ws
	return ws
}

// Open implements sheets.Workbook.
func (b *Workbook) Open(_ context.Context, spreadsheetID string) (sheets.Worksheet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Opened = append(b.Opened, spreadsheetID)
	if err := b.OpenErr[spreadsheetID]; err != nil {
		return nil, err
	}
	ws, ok := b.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	return ws, nil
}

// Worksheet is an in-memory sheets.Worksheet.
type Worksheet struct {
	mu        sync.Mutex
	title     string
	rows      [][]string
	ReadErr   error
	AppendErr error
}

func (w *Worksheet) Title() string { return w.title }

func (w *Worksheet) Values(context.Context) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ReadErr != nil {
		return nil, w.ReadErr
	}
	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (w *Worksheet) Header(ctx context.Context) ([]string, error) {
	rows, err := w.Values(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (w *Worksheet) AppendValues(_ context.Context, values []interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.AppendErr != nil {
		return w.AppendErr
	}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	w.rows = append(w.rows, row)
	return nil
}

// DataRows returns every row after the header.
func (w *Worksheet) DataRows() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.rows) <= 1 {
		return nil
	}
	return append([][]string(nil), w.rows[1:]...)
}
