package mrri

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/worker"
)

// Driver runs the search over a whole parameter table.
type Driver struct {
	Searcher *Searcher
	Workers  int
	Logger   *zap.Logger
	Done     func()
}

type outcome struct {
	row    results.Row
	rounds []Round
}

// Run searches every record and returns tagged rows in input order. The
// rounds of each genome are appended to raw as JSON.
func (d *Driver) Run(ctx context.Context, records []genome.Record, raw io.Writer) ([]results.Row, error) {
	logger := logging.OrNop(d.Logger)
	outs, err := worker.Map(ctx, records, d.Workers, func(ctx context.Context, rec genome.Record) (outcome, error) {
		rounds, err := d.Searcher.Search(ctx, rec)
		if err != nil {
			return outcome{}, fmt.Errorf("MRRI %s: %w", rec.ID, err)
		}
		t, q := Tag(rounds)
		return outcome{row: results.Row{Record: rec, PredictionsT: t, PredictionsQ: q}, rounds: rounds}, nil
	}, d.Done)
	if err != nil {
		return nil, err
	}

	rows := make([]results.Row, len(outs))
	var found int
	for i, o := range outs {
		rows[i] = o.row
		if len(o.rounds) > 0 {
			found++
		}
		if raw == nil {
			continue
		}
		if o.rounds == nil {
			o.rounds = []Round{}
		}
		data, err := json.Marshal(o.rounds)
		if err != nil {
			return nil, err
		}
		if err := intarna.WriteRaw(raw, o.row.ID, string(data)); err != nil {
			return nil, fmt.Errorf("writing raw output: %w", err)
		}
	}
	logger.Info("MRRI finished",
		zap.Int("mode", int(d.Searcher.Mode)),
		zap.Int("genomes", len(rows)),
		zap.Int("with_interaction", found))
	return rows, nil
}
