// Package mrri implements the multi-round interaction search. IntaRNA is
// rerun on the same UTR pair with every previously found interaction site
// blocked from pairing, so each round reports the next best interaction
// elsewhere on the two UTRs.
package mrri

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
)

// Mode selects the regions IntaRNA may place interactions in.
type Mode int

const (
	// ModeFull searches the whole 5'UTR plus the CDS region of interest
	// against the CDS region of interest plus the whole 3'UTR.
	ModeFull Mode = 1
	// ModeTransition searches a short window around the 5'UTR/CDS
	// transition against a window near the 3' end of the 3'UTR.
	ModeTransition Mode = 2
)

// ParseMode converts a command line mode number.
func ParseMode(n int) (Mode, error) {
	switch Mode(n) {
	case ModeFull, ModeTransition:
		return Mode(n), nil
	}
	return 0, fmt.Errorf("unknown region mode %d (want 1 or 2)", n)
}

// CsvCols are the IntaRNA output columns requested for every round.
var CsvCols = []string{"id1", "start1", "end1", "id2", "start2", "end2", "subseqDP", "hybridDP", "E", "E_hybrid", "ED1", "ED2"}

// Round is the interaction found in one round together with the
// accessibility constraints the round ran with.
type Round struct {
	Index       int                 `json:"round"`
	Interaction intarna.Interaction `json:"interaction"`
	TAccConstr  string              `json:"tAccConstr,omitempty"`
	QAccConstr  string              `json:"qAccConstr,omitempty"`
}

// Searcher runs the round loop for a single genome.
type Searcher struct {
	Predictor *intarna.Predictor
	Mode      Mode

	MaxRounds int
	// MaxEnergy is the energy an interaction must stay below to count.
	MaxEnergy float64
	// StopOnEnergyIncrease discards and stops at a round whose hybrid
	// energy is higher than the previous round's.
	StopOnEnergyIncrease bool

	TargetLeft   int
	TargetRight  int
	QueryFromEnd int
	QueryToEnd   int

	Logger *zap.Logger
}

// Options returns the round-independent part of the IntaRNA call.
func (s *Searcher) Options(rec genome.Record) intarna.Options {
	opts := s.Predictor.Options(rec)
	if s.Mode == ModeTransition {
		utr3 := len(rec.Seq3) - s.Predictor.ExtraBases
		opts.TargetRegion = intarna.Region{Start: -s.TargetLeft, End: s.TargetRight}
		opts.QueryRegion = intarna.Region{Start: utr3 - s.QueryFromEnd, End: utr3 - s.QueryToEnd}
	}
	opts.N = 1
	opts.CsvCols = CsvCols
	return opts
}

// Search runs up to MaxRounds rounds for rec. It returns no rounds when the
// first round finds no qualifying interaction.
func (s *Searcher) Search(ctx context.Context, rec genome.Record) ([]Round, error) {
	logger := logging.OrNop(s.Logger).With(zap.String("id", rec.ID))
	base := s.Options(rec)
	maxRounds := s.MaxRounds
	if maxRounds < 1 {
		maxRounds = 3
	}

	var rounds []Round
	for k := 1; k <= maxRounds; k++ {
		opts := base
		if n := len(rounds); n > 0 {
			prev := rounds[n-1]
			opts.TargetAccConstr = accConstr(prev.Interaction.Start1, prev.Interaction.End1, prev.TAccConstr)
			opts.QueryAccConstr = accConstr(prev.Interaction.Start2, prev.Interaction.End2, prev.QAccConstr)
		}

		inter, _, err := s.Predictor.Predict(ctx, opts)
		if errors.Is(err, intarna.ErrNoInteraction) {
			logger.Debug("Round found nothing", zap.Int("round", k))
			break
		}
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", k, err)
		}
		best := inter[0]
		if !s.qualifies(best) {
			logger.Debug("Round below threshold", zap.Int("round", k), zap.Float64("E", best.E))
			break
		}
		if s.StopOnEnergyIncrease && len(rounds) > 0 && best.EHybrid > rounds[len(rounds)-1].Interaction.EHybrid {
			logger.Debug("Energy increased", zap.Int("round", k), zap.Float64("E_hybrid", best.EHybrid))
			break
		}
		rounds = append(rounds, Round{
			Index:       k,
			Interaction: best,
			TAccConstr:  opts.TargetAccConstr,
			QAccConstr:  opts.QueryAccConstr,
		})
	}
	logger.Debug("Search finished", zap.Int("rounds", len(rounds)))
	return rounds, nil
}

func (s *Searcher) qualifies(in intarna.Interaction) bool {
	return strings.Contains(in.HybridDP, "(") && in.E < s.MaxEnergy
}

// accConstr blocks start-end in front of the blocks of earlier rounds.
func accConstr(start, end int, previous string) string {
	c := intarna.Region{Start: start, End: end}.Block()
	if previous != "" {
		c += "," + previous
	}
	return c
}

// Tag converts rounds into prediction lists. Round i marks its target
// half with the i-th upper case letter in place of '(' and its query half
// with the i-th lower case letter in place of ')', so the rounds stay
// distinguishable once merged into one string.
func Tag(rounds []Round) ([]results.Prediction, []results.Prediction) {
	var preds5, preds3 []results.Prediction
	for i, r := range rounds {
		t, q := r.Interaction.Halves()
		preds5 = append(preds5, results.Prediction{
			Start:     r.Interaction.Start1,
			End:       r.Interaction.End1,
			Energy:    r.Interaction.E,
			Structure: strings.ReplaceAll(t, "(", string(rune('A'+i))),
		})
		preds3 = append(preds3, results.Prediction{
			Start:     r.Interaction.Start2,
			End:       r.Interaction.End2,
			Energy:    r.Interaction.E,
			Structure: strings.ReplaceAll(q, ")", string(rune('a'+i))),
		})
	}
	return preds5, preds3
}
