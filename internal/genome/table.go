package genome

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Columns are the parameter table columns, in file order.
var Columns = []string{"id", "class", "type", "virus", "UTR5len", "CDSlen", "UTR3len", "seq5", "seq3"}

// Fields renders r in Columns order.
func (r Record) Fields() []string {
	return []string{
		r.ID, r.Class, r.Type, r.Virus,
		strconv.Itoa(r.UTR5Len), strconv.Itoa(r.CDSLen), strconv.Itoa(r.UTR3Len),
		r.Seq5, r.Seq3,
	}
}

// RecordFromRow reads the parameter table columns out of a CSV row. Index
// maps column names to positions; extra columns are ignored.
func RecordFromRow(row []string, index map[string]int) (Record, error) {
	get := func(name string) (string, error) {
		i, ok := index[name]
		if !ok {
			return "", fmt.Errorf("missing column '%s'", name)
		}
		if i >= len(row) {
			return "", fmt.Errorf("short row: no value for '%s'", name)
		}
		return row[i], nil
	}
	atoi := func(name string) (int, error) {
		v, err := get(name)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("column '%s': %w", name, err)
		}
		return n, nil
	}

	var r Record
	var err error
	for name, dst := range map[string]*string{
		"id": &r.ID, "class": &r.Class, "type": &r.Type, "virus": &r.Virus,
		"seq5": &r.Seq5, "seq3": &r.Seq3,
	} {
		if *dst, err = get(name); err != nil {
			return Record{}, err
		}
	}
	for name, dst := range map[string]*int{
		"UTR5len": &r.UTR5Len, "CDSlen": &r.CDSLen, "UTR3len": &r.UTR3Len,
	} {
		if *dst, err = atoi(name); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

// HeaderIndex maps each header name to its column position.
func HeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	return index
}

// WriteTable writes records as the parameter table CSV.
func WriteTable(records []Record, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Fields()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

// ReadTable reads a parameter table CSV written by WriteTable.
func ReadTable(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readTable(file, path)
}

func readTable(r io.Reader, name string) ([]Record, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", name, err)
	}
	index := HeaderIndex(header)

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rec, err := RecordFromRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
