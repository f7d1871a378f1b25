package intarna

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/runner"
)

// Predictor runs IntaRNA on parameter table records.
type Predictor struct {
	Runner        runner.Runner
	Binary        string
	ParameterFile string

	// ExtraBases CDS bases are part of seq5 and seq3, of which only
	// ExtraBasesROI may take part in an interaction.
	ExtraBases    int
	ExtraBasesROI int

	Logger *zap.Logger
}

// Options returns the call for rec with the default regions: the whole
// 5'UTR plus ROI bases of the CDS against ROI bases of the CDS plus the
// whole 3'UTR.
func (p *Predictor) Options(rec genome.Record) Options {
	diff := p.ExtraBases - p.ExtraBasesROI
	tidx := -(len(rec.Seq5) - p.ExtraBases)
	return Options{
		Target:        rec.Seq5,
		Query:         rec.Seq3,
		TargetID:      rec.ID + ".5UTR",
		QueryID:       rec.ID + ".3UTR",
		TargetIdxPos0: tidx,
		QueryIdxPos0:  -p.ExtraBases,
		TargetRegion:  Region{Start: tidx, End: diff},
		QueryRegion:   Region{Start: -diff, End: len(rec.Seq3) - p.ExtraBases},
		ParameterFile: p.ParameterFile,
	}
}

// Predict runs one IntaRNA call and returns the parsed interactions with the
// raw output. ErrNoInteraction is returned when the output has no data row.
func (p *Predictor) Predict(ctx context.Context, opts Options) ([]Interaction, string, error) {
	binary := p.Binary
	if binary == "" {
		binary = "IntaRNA"
	}
	res, err := p.Runner.Run(ctx, runner.Command{Binary: binary, Args: opts.Args()})
	if err != nil {
		return nil, "", fmt.Errorf("IntaRNA %s/%s: %w", opts.TargetID, opts.QueryID, err)
	}
	inter, err := ParseCSV(res.Stdout)
	if err != nil {
		return nil, res.Stdout, fmt.Errorf("parsing IntaRNA output for %s: %w", opts.TargetID, err)
	}
	if len(inter) == 0 {
		return nil, res.Stdout, ErrNoInteraction
	}
	return inter, res.Stdout, nil
}

// Suboptimal returns the optimum and up to outNumber-1 suboptimal
// interactions for rec. The first run forbids overlap on the target; with
// outNumber > 1 a second run forbidding query overlap contributes all of its
// interactions except the shared optimum. A genome without interaction
// yields an empty slice.
func (p *Predictor) Suboptimal(ctx context.Context, rec genome.Record, outNumber int) ([]Interaction, string, error) {
	logger := logging.OrNop(p.Logger)

	opts := p.Options(rec)
	opts.OutNumber = outNumber
	opts.OutOverlap = "T"
	first, raw, err := p.Predict(ctx, opts)
	if errors.Is(err, ErrNoInteraction) {
		logger.Debug("No interaction", zap.String("id", rec.ID))
		return nil, raw, nil
	}
	if err != nil {
		return nil, raw, err
	}
	if outNumber <= 1 {
		return first, raw, nil
	}

	opts.OutOverlap = "Q"
	second, raw2, err := p.Predict(ctx, opts)
	raw += raw2
	if errors.Is(err, ErrNoInteraction) {
		return first, raw, nil
	}
	if err != nil {
		return nil, raw, err
	}
	return append(first, second[1:]...), raw, nil
}
