package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// Record is a single spreadsheet row keyed by column header.
type Record map[string]string

// Adapter reads and updates an employee data source.
type Adapter interface {
	Headers(ctx context.Context) ([]string, error)
	Records(ctx context.Context) ([]Record, error)
	RecordByKey(ctx context.Context, keyColumn, keyValue string) (Record, error)
	UpdateRecord(ctx context.Context, keyColumn, keyValue string, updates map[string]string) error
	AddColumn(ctx context.Context, name string) error
}

// CSVAdapter is an Adapter over a CSV object in an ObjectStore.
type CSVAdapter struct {
	store  ObjectStore
	object string
}

func NewCSVAdapter(store ObjectStore, object string) *CSVAdapter {
	return &CSVAdapter{store: store, object: object}
}

func (a *CSVAdapter) load(ctx context.Context) ([]string, [][]string, error) {
	data, err := a.store.Get(ctx, a.object)
	if err != nil {
		return nil, nil, err
	}
	return ParseCSV(data)
}

func (a *CSVAdapter) save(ctx context.Context, headers []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return a.store.Put(ctx, a.object, buf.Bytes(), "text/csv")
}

func (a *CSVAdapter) Headers(ctx context.Context) ([]string, error) {
	headers, _, err := a.load(ctx)
	return headers, err
}

func (a *CSVAdapter) Records(ctx context.Context) ([]Record, error) {
	headers, rows, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(headers, row))
	}
	return records, nil
}

func (a *CSVAdapter) RecordByKey(ctx context.Context, keyColumn, keyValue string) (Record, error) {
	headers, rows, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := columnIndex(headers, keyColumn)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", keyColumn)
	}
	for _, row := range rows {
		if idx < len(row) && row[idx] == keyValue {
			return rowToRecord(headers, row), nil
		}
	}
	return nil, fmt.Errorf("no record with %s=%q", keyColumn, keyValue)
}

func (a *CSVAdapter) UpdateRecord(ctx context.Context, keyColumn, keyValue string, updates map[string]string) error {
	headers, rows, err := a.load(ctx)
	if err != nil {
		return err
	}
	keyIdx := columnIndex(headers, keyColumn)
	if keyIdx < 0 {
		return fmt.Errorf("column %q not found", keyColumn)
	}
	found := false
	for ri, row := range rows {
		if keyIdx >= len(row) || row[keyIdx] != keyValue {
			continue
		}
		found = true
		for col, val := range updates {
			ci := columnIndex(headers, col)
			if ci < 0 {
				return fmt.Errorf("column %q not found", col)
			}
			for len(rows[ri]) <= ci {
				rows[ri] = append(rows[ri], "")
			}
			rows[ri][ci] = val
		}
	}
	if !found {
		return fmt.Errorf("no record with %s=%q", keyColumn, keyValue)
	}
	return a.save(ctx, headers, rows)
}

func (a *CSVAdapter) AddColumn(ctx context.Context, name string) error {
	headers, rows, err := a.load(ctx)
	if err != nil {
		return err
	}
	if columnIndex(headers, name) >= 0 {
		return nil
	}
	headers = append(headers, name)
	for i := range rows {
		rows[i] = append(rows[i], "")
	}
	return a.save(ctx, headers, rows)
}

// ParseCSV splits raw CSV content into a header row and data rows.
func ParseCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("empty data source")
	}
	return all[0], all[1:], nil
}

func rowToRecord(headers []string, row []string) Record {
	rec := make(Record, len(headers))
	for i, h := range headers {
		if i < len(row) {
			rec[h] = row[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
