// Package results stores per-genome interaction predictions as CSV, the
// state handed from one pipeline stage to the next.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yech1990/mrri/internal/genome"
)

// Prediction is one side of a predicted interaction. Start and End are the
// IntaRNA indices of that side; Structure is its half of the hybrid
// dot-bracket.
type Prediction struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Energy    float64 `json:"energy"`
	Structure string  `json:"structure"`
}

// CMHit is the best covariance model hit in a 3'UTR, in 1-based
// coordinates of the bare UTR.
type CMHit struct {
	From   int
	To     int
	Score  float64
	Source string
}

// Row is a parameter table record with its predictions. PredictionsT[i] and
// PredictionsQ[i] are the two sides of the same interaction; index 0 is the
// optimum or the first round.
type Row struct {
	genome.Record
	PredictionsT []Prediction
	PredictionsQ []Prediction
	CMHit        *CMHit
}

// HasInteraction reports whether at least one interaction was found.
func (r Row) HasInteraction() bool {
	return len(r.PredictionsT) > 0 && len(r.PredictionsQ) > 0
}

var extraColumns = []string{"predictions_t", "predictions_q", "cm_hit_f", "cm_hit_t", "cm_hit_score", "cm_hit_src"}

// Columns returns the CSV header of a results table.
func Columns() []string {
	cols := append([]string{}, genome.Columns...)
	return append(cols, extraColumns...)
}

func (r Row) fields() ([]string, error) {
	t, err := encodePredictions(r.PredictionsT)
	if err != nil {
		return nil, err
	}
	q, err := encodePredictions(r.PredictionsQ)
	if err != nil {
		return nil, err
	}
	hit := []string{"", "", "", ""}
	if r.CMHit != nil {
		hit = []string{
			strconv.Itoa(r.CMHit.From),
			strconv.Itoa(r.CMHit.To),
			strconv.FormatFloat(r.CMHit.Score, 'f', -1, 64),
			r.CMHit.Source,
		}
	}
	return append(append(r.Record.Fields(), t, q), hit...), nil
}

func encodePredictions(preds []Prediction) (string, error) {
	if preds == nil {
		preds = []Prediction{}
	}
	data, err := json.Marshal(preds)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write stores rows as CSV at path.
func Write(rows []Row, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Columns()); err != nil {
		return err
	}
	for _, r := range rows {
		fields, err := r.fields()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", r.ID, err)
		}
		if err := w.Write(fields); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

// Read loads a results table. Prediction and CM hit columns are optional, so
// a bare parameter table reads as rows without predictions.
func Read(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return read(file, path)
}

func read(r io.Reader, name string) ([]Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", name, err)
	}
	index := genome.HeaderIndex(header)

	var rows []Row
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row, err := parseRow(fields, index)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(fields []string, index map[string]int) (Row, error) {
	rec, err := genome.RecordFromRow(fields, index)
	if err != nil {
		return Row{}, err
	}
	row := Row{Record: rec}
	get := func(name string) string {
		if i, ok := index[name]; ok && i < len(fields) {
			return fields[i]
		}
		return ""
	}

	if row.PredictionsT, err = decodePredictions(get("predictions_t")); err != nil {
		return Row{}, fmt.Errorf("predictions_t: %w", err)
	}
	if row.PredictionsQ, err = decodePredictions(get("predictions_q")); err != nil {
		return Row{}, fmt.Errorf("predictions_q: %w", err)
	}

	if f := get("cm_hit_f"); f != "" {
		hit := &CMHit{Source: get("cm_hit_src")}
		if hit.From, err = strconv.Atoi(f); err != nil {
			return Row{}, fmt.Errorf("cm_hit_f: %w", err)
		}
		if hit.To, err = strconv.Atoi(get("cm_hit_t")); err != nil {
			return Row{}, fmt.Errorf("cm_hit_t: %w", err)
		}
		if s := get("cm_hit_score"); s != "" {
			if hit.Score, err = strconv.ParseFloat(s, 64); err != nil {
				return Row{}, fmt.Errorf("cm_hit_score: %w", err)
			}
		}
		row.CMHit = hit
	}
	return row, nil
}

func decodePredictions(cell string) ([]Prediction, error) {
	if cell == "" {
		return nil, nil
	}
	var preds []Prediction
	if err := json.Unmarshal([]byte(cell), &preds); err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return preds, nil
}

// FromRecords wraps parameter table records into rows without predictions.
func FromRecords(records []genome.Record) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{Record: r}
	}
	return rows
}

// Records strips the predictions off rows.
func Records(rows []Row) []genome.Record {
	records := make([]genome.Record, len(rows))
	for i, r := range rows {
		records[i] = r.Record
	}
	return records
}
