package alignment

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/structure"
)

// Driver aligns and folds every group of a results table.
type Driver struct {
	Tools    *Tools
	Grouping Grouping
	Window   structure.Window
	Logger   *zap.Logger

	// Done is called after each group.
	Done func()
}

// Run writes <outDir>/locARNA_<group>_input.fa for every group, aligns it
// into <outDir>/<group>, folds the alignment and converts both plots to
// <outDir>/<group>_alirna.pdf and <outDir>/<group>_aln.pdf. It returns the
// group names.
func (d *Driver) Run(ctx context.Context, rows []results.Row, mode structure.Mode, carna bool, outDir string) ([]string, error) {
	logger := logging.OrNop(d.Logger)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	groups := d.Grouping.Groups(rows, mode, d.Window, logger)
	names := SortedNames(groups)
	logger.Info("Aligning groups", zap.Int("mode", int(mode)), zap.Bool("carna", carna), zap.Strings("groups", names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fasta := filepath.Join(outDir, "locARNA_"+name+"_input.fa")
		if err := WriteFasta(groups[name], fasta); err != nil {
			return nil, fmt.Errorf("writing %s: %w", fasta, err)
		}
		groupDir := filepath.Join(outDir, name)
		if err := d.Tools.MLocarna(ctx, fasta, groupDir, carna); err != nil {
			return nil, err
		}
		resultsDir := filepath.Join(groupDir, "results")
		if err := d.Tools.Alifold(ctx, resultsDir); err != nil {
			return nil, err
		}
		for _, plot := range []string{"alirna", "aln"} {
			ps := filepath.Join(resultsDir, plot+".ps")
			pdf := filepath.Join(outDir, name+"_"+plot+".pdf")
			if err := d.Tools.PsToPdf(ctx, ps, pdf); err != nil {
				return nil, err
			}
		}
		if d.Done != nil {
			d.Done()
		}
	}
	return names, nil
}

// ConsensusAll writes <dir>/<group>_cons.txt for every <group>/results/result.aln
// below dir and returns the written files.
func ConsensusAll(dir string, logger *zap.Logger) ([]string, error) {
	logger = logging.OrNop(logger)
	var written []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "result.aln" {
			return nil
		}
		group := filepath.Base(filepath.Dir(filepath.Dir(path)))
		out := filepath.Join(dir, group+"_cons.txt")
		if err := WriteConsensus(path, out); err != nil {
			return err
		}
		logger.Debug("Consensus written", zap.String("group", group), zap.String("file", out))
		written = append(written, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("consensus of '%s': %w", dir, err)
	}
	return written, nil
}
