package intarna

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/worker"
)

// Driver predicts the suboptimal interactions of every genome.
type Driver struct {
	Predictor *Predictor
	OutNumber int
	Workers   int
	Logger    *zap.Logger

	// Done is called after each genome.
	Done func()
}

type outcome struct {
	row results.Row
	raw string
}

// Run predicts interactions for records and returns one row per record, in
// input order. The raw IntaRNA output of every genome is appended to raw,
// framed by the genome ID.
func (d *Driver) Run(ctx context.Context, records []genome.Record, raw io.Writer) ([]results.Row, error) {
	logger := logging.OrNop(d.Logger)
	outs, err := worker.Map(ctx, records, d.Workers, func(ctx context.Context, rec genome.Record) (outcome, error) {
		inter, text, err := d.Predictor.Suboptimal(ctx, rec, d.OutNumber)
		if err != nil {
			return outcome{}, err
		}
		logger.Debug("IntaRNA finished", zap.String("id", rec.ID), zap.Int("interactions", len(inter)))
		return outcome{row: Row(rec, inter), raw: text}, nil
	}, d.Done)
	if err != nil {
		return nil, err
	}

	rows := make([]results.Row, len(outs))
	for i, o := range outs {
		rows[i] = o.row
		if raw != nil {
			if err := WriteRaw(raw, o.row.ID, o.raw); err != nil {
				return nil, fmt.Errorf("writing raw output: %w", err)
			}
		}
	}
	return rows, nil
}

// Row turns interactions into the prediction lists of a results row.
func Row(rec genome.Record, inter []Interaction) results.Row {
	row := results.Row{Record: rec}
	for _, in := range inter {
		t, q := in.Halves()
		row.PredictionsT = append(row.PredictionsT, results.Prediction{Start: in.Start1, End: in.End1, Energy: in.E, Structure: t})
		row.PredictionsQ = append(row.PredictionsQ, results.Prediction{Start: in.Start2, End: in.End2, Energy: in.E, Structure: q})
	}
	return row
}

// WriteRaw appends text to w framed by an "<id> :" line and a rule of '#'.
func WriteRaw(w io.Writer, id, text string) error {
	rule := strings.Repeat("#", len(id)+2)
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := fmt.Fprintf(w, "%s :\n%s\n%s%s\n", id, rule, text, rule)
	return err
}
