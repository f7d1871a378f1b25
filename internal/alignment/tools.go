package alignment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/runner"
)

// Tools runs mlocarna, RNAalifold and ps2pdf.
type Tools struct {
	Runner runner.Runner
	// Binary names, defaulting to mlocarna, RNAalifold and ps2pdf.
	MLocarnaBin   string
	RNAalifoldBin string
	PsToPdfBin    string

	Width     int
	CarnaArgs []string
	// Temperature is passed to RNAalifold when not zero.
	Temperature float64

	Logger *zap.Logger
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// MLocarna aligns the sequences of fasta into outDir. With carna the
// configured CARNA aligner arguments are added.
func (t *Tools) MLocarna(ctx context.Context, fasta, outDir string, carna bool) error {
	width := t.Width
	if width == 0 {
		width = 300
	}
	args := []string{fasta, "--width=" + strconv.Itoa(width), "--tgtdir", outDir}
	if carna {
		args = append(args, t.CarnaArgs...)
	}
	logging.OrNop(t.Logger).Info("mlocarna", zap.String("input", fasta), zap.String("output", outDir))
	if _, err := t.Runner.Run(ctx, runner.Command{Binary: or(t.MLocarnaBin, "mlocarna"), Args: args}); err != nil {
		return fmt.Errorf("mlocarna %s: %w", filepath.Base(fasta), err)
	}
	return nil
}

// Alifold folds resultsDir/result.aln under the anchor-derived constraint
// and moves the alirna.ps and aln.ps plots into resultsDir. RNAalifold
// writes its plots into the working directory, so it runs in a scratch
// directory.
func (t *Tools) Alifold(ctx context.Context, resultsDir string) error {
	alnPath, err := filepath.Abs(filepath.Join(resultsDir, "result.aln"))
	if err != nil {
		return err
	}
	a, err := readAlnFile(alnPath)
	if err != nil {
		return err
	}
	constraint, err := AlifoldConstraint(a)
	if err != nil {
		return fmt.Errorf("%s: %w", alnPath, err)
	}

	scratch, err := os.MkdirTemp(resultsDir, "rnaalifold-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	args := []string{alnPath, "--aln", "--ribosum_scoring", "--cfactor", "0.6", "--nfactor", "0.5", "--color", "-C"}
	if t.Temperature != 0 {
		args = append(args, "-T", strconv.FormatFloat(t.Temperature, 'f', -1, 64))
	}
	logging.OrNop(t.Logger).Info("RNAalifold", zap.String("alignment", alnPath))
	_, err = t.Runner.Run(ctx, runner.Command{
		Binary: or(t.RNAalifoldBin, "RNAalifold"),
		Args:   args,
		Dir:    scratch,
		Stdin:  constraint + "\n",
	})
	if err != nil {
		return fmt.Errorf("RNAalifold %s: %w", alnPath, err)
	}
	for _, name := range []string{"alirna.ps", "aln.ps"} {
		if err := os.Rename(filepath.Join(scratch, name), filepath.Join(resultsDir, name)); err != nil {
			return fmt.Errorf("moving %s: %w", name, err)
		}
	}
	return nil
}

// PsToPdf converts a PostScript plot to PDF.
func (t *Tools) PsToPdf(ctx context.Context, ps, pdf string) error {
	cmd := runner.Command{Binary: or(t.PsToPdfBin, "ps2pdf"), Args: []string{"-dEPSCrop", ps, pdf}}
	if _, err := t.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("ps2pdf %s: %w", filepath.Base(ps), err)
	}
	return nil
}
