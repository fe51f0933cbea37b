package sheets

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagName = "sheet"

// MissingColumnError is returned when a row is written to a sheet whose
// header lacks a bound column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet header has no %q column", e.Column)
}

// binding maps one header column to one string field.
type binding struct {
	column string
	index  []int
}

var bindingsCache sync.Map // reflect.Type -> []binding

// bindingsFor returns the column bindings of a struct type. Only string
// fields tagged `sheet:"Column"` are bound.
func bindingsFor(t reflect.Type) ([]binding, error) {
	if cached, ok := bindingsCache.Load(t); ok {
		return cached.([]binding), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sheets: %s is not a struct", t)
	}
	var out []binding
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		col := strings.TrimSpace(f.Tag.Get(tagName))
		if col == "" || col == "-" || !f.IsExported() {
			continue
		}
		if f.Type.Kind() != reflect.String {
			return nil, fmt.Errorf("sheets: field %s.%s must be a string", t.Name(), f.Name)
		}
		out = append(out, binding{column: col, index: f.Index})
	}
	bindingsCache.Store(t, out)
	return out, nil
}

// headerIndex maps trimmed header names to their first column position.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup && h != "" {
			idx[h] = i
		}
	}
	return idx
}

// Decode maps one row onto dst, which must point to a struct. Columns absent
// from the header and cells past the end of a short row leave the field empty.
func Decode(header, row []string, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("sheets: decode target must be a non-nil pointer")
	}
	v = v.Elem()
	bs, err := bindingsFor(v.Type())
	if err != nil {
		return err
	}
	idx := headerIndex(header)
	for _, b := range bs {
		var cell string
		if pos, ok := idx[b.column]; ok && pos < len(row) {
			cell = row[pos]
		}
		v.FieldByIndex(b.index).SetString(cell)
	}
	return nil
}

// Encode renders src in header order. Header columns without a bound field
// are written empty; a bound column missing from the header is an error.
func Encode(header []string, src any) ([]interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(src))
	bs, err := bindingsFor(v.Type())
	if err != nil {
		return nil, err
	}
	idx := headerIndex(header)
	out := make([]interface{}, len(header))
	for i := range out {
		out[i] = ""
	}
	for _, b := range bs {
		pos, ok := idx[b.column]
		if !ok {
			return nil, &MissingColumnError{Column: b.column}
		}
		out[pos] = v.FieldByIndex(b.index).String()
	}
	return out, nil
}

// ReadRows reads every data row of ws into T.
func ReadRows[T any](ctx context.Context, ws Worksheet) ([]T, error) {
	rows, err := ws.Values(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]T, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var item T
		if err := Decode(header, row, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// AppendRow appends v as a new row of ws, aligned to its header.
func AppendRow(ctx context.Context, ws Worksheet, v any) error {
	header, err := ws.Header(ctx)
	if err != nil {
		return err
	}
	values, err := Encode(header, v)
	if err != nil {
		return fmt.Errorf("append to %s: %w", ws.Title(), err)
	}
	return ws.AppendValues(ctx, values)
}
