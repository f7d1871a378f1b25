// Package covariance builds Infernal covariance models of the 3'SL family and
// searches them against the 3'UTRs to locate the stem loop in every genome.
package covariance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/runner"
)

// ModelSuffix is appended to the family name of every built model.
const ModelSuffix = "_3SL.cm"

// Infernal wraps the cmbuild, cmcalibrate and cmsearch binaries.
type Infernal struct {
	Runner      runner.Runner
	CMBuild     string
	CMCalibrate string
	CMSearch    string
	Logger      *zap.Logger
}

func (in *Infernal) run(ctx context.Context, binary, fallback string, args ...string) error {
	if binary == "" {
		binary = fallback
	}
	_, err := in.Runner.Run(ctx, runner.Command{Binary: binary, Args: args})
	return err
}

// Build creates a covariance model from a Stockholm alignment.
func (in *Infernal) Build(ctx context.Context, stk, cm string) error {
	logging.OrNop(in.Logger).Info("cmbuild", zap.String("stockholm", stk), zap.String("cm", cm))
	if err := in.run(ctx, in.CMBuild, "cmbuild", cm, stk); err != nil {
		return fmt.Errorf("building %s: %w", cm, err)
	}
	return nil
}

// Calibrate calibrates cm for E-value statistics. It is slow.
func (in *Infernal) Calibrate(ctx context.Context, cm string) error {
	if err := in.run(ctx, in.CMCalibrate, "cmcalibrate", cm); err != nil {
		return fmt.Errorf("calibrating %s: %w", cm, err)
	}
	return nil
}

// BuildAll builds a model for every Stockholm file below stkDir whose name
// contains "3SL". The model of <name>.stk or <name>_3SL.stk is written to
// cmDir/<name>_3SL.cm. It returns the built model paths.
func (in *Infernal) BuildAll(ctx context.Context, stkDir, cmDir string, calibrate bool) ([]string, error) {
	if err := os.MkdirAll(cmDir, 0o755); err != nil {
		return nil, err
	}
	var stks []string
	err := filepath.WalkDir(stkDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), "3SL") {
			stks = append(stks, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning '%s': %w", stkDir, err)
	}
	sort.Strings(stks)

	var cms []string
	for _, stk := range stks {
		name, _, _ := strings.Cut(filepath.Base(stk), ".")
		name = strings.TrimSuffix(name, "_3SL")
		cm := filepath.Join(cmDir, name+ModelSuffix)
		if err := in.Build(ctx, stk, cm); err != nil {
			return nil, err
		}
		if calibrate {
			if err := in.Calibrate(ctx, cm); err != nil {
				return nil, err
			}
		}
		cms = append(cms, cm)
	}
	return cms, nil
}

// Search runs cmsearch for cm against seqFile, writing the hit table to
// tblout.
func (in *Infernal) Search(ctx context.Context, cm, seqFile, tblout string) error {
	if err := in.run(ctx, in.CMSearch, "cmsearch", "--tblout", tblout, "--toponly", cm, seqFile); err != nil {
		return fmt.Errorf("searching %s: %w", filepath.Base(cm), err)
	}
	return nil
}

// Hit is one line of a cmsearch hit table.
type Hit struct {
	Target      string
	Model       string
	From        int
	To          int
	Score       float64
	Description string
}

// ParseTblout reads a cmsearch --tblout table. Comment lines are skipped.
func ParseTblout(r io.Reader) ([]Hit, error) {
	var hits []Hit
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 17 {
			return nil, fmt.Errorf("line %d: expected at least 17 fields, got %d", n, len(fields))
		}
		from, err := strconv.Atoi(fields[7])
		if err != nil {
			return nil, fmt.Errorf("line %d: seq from: %w", n, err)
		}
		to, err := strconv.Atoi(fields[8])
		if err != nil {
			return nil, fmt.Errorf("line %d: seq to: %w", n, err)
		}
		score, err := strconv.ParseFloat(fields[14], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: score: %w", n, err)
		}
		hits = append(hits, Hit{
			Target:      fields[0],
			Model:       fields[2],
			From:        from,
			To:          to,
			Score:       score,
			Description: strings.Join(fields[17:], " "),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// BestHits searches every model in cmDir against seqFile and keeps the
// highest scoring hit per target sequence. Hit tables are written to
// outDir/<family>.cmout.
func (in *Infernal) BestHits(ctx context.Context, cmDir, seqFile, outDir string) (map[string]results.CMHit, error) {
	logger := logging.OrNop(in.Logger)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	cms, err := filepath.Glob(filepath.Join(cmDir, "*.cm"))
	if err != nil {
		return nil, err
	}
	if len(cms) == 0 {
		return nil, fmt.Errorf("no covariance models in '%s'", cmDir)
	}
	sort.Strings(cms)

	best := map[string]results.CMHit{}
	for _, cm := range cms {
		family, _, _ := strings.Cut(filepath.Base(cm), "_")
		family = strings.TrimSuffix(family, ".cm")
		tblout := filepath.Join(outDir, family+".cmout")
		if err := in.Search(ctx, cm, seqFile, tblout); err != nil {
			return nil, err
		}
		file, err := os.Open(tblout)
		if err != nil {
			return nil, err
		}
		hits, err := ParseTblout(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", tblout, err)
		}
		for _, h := range hits {
			if cur, ok := best[h.Target]; !ok || h.Score > cur.Score {
				best[h.Target] = results.CMHit{From: h.From, To: h.To, Score: h.Score, Source: family}
			}
		}
		logger.Debug("cmsearch finished", zap.String("model", family), zap.Int("hits", len(hits)))
	}
	logger.Info("CM search finished", zap.Int("models", len(cms)), zap.Int("sequences_with_hit", len(best)))
	return best, nil
}

// Attach sets the CM hit of every row whose genome ID has one.
func Attach(rows []results.Row, hits map[string]results.CMHit) []results.Row {
	out := make([]results.Row, len(rows))
	for i, r := range rows {
		if h, ok := hits[r.ID]; ok {
			h := h
			r.CMHit = &h
		}
		out[i] = r
	}
	return out
}
