package outcome

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteCSV writes the lookup table as id,weight,payout rows without a header.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	row := make([]string, 3)
	for _, r := range t.Records() {
		row[0] = strconv.FormatUint(r.ID, 10)
		row[1] = strconv.FormatUint(r.Weight, 10)
		row[2] = strconv.FormatInt(r.Payout, 10)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the lookup table to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write lookup table %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV reads a lookup table. Criterion and feature are not part of the format.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true
	t := NewTable(0)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		id, err1 := strconv.ParseUint(row[0], 10, 64)
		weight, err2 := strconv.ParseUint(row[1], 10, 64)
		payout, err3 := strconv.ParseInt(row[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("lookup table line %d: malformed row %v", line, row)
		}
		t.Append(Record{ID: id, Weight: weight, Payout: payout})
	}
}

// ReadFile reads a lookup table from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
