// Package pipeline runs the analysis tasks in order. Each task reads the
// tables written by earlier tasks, so a later task can be rerun alone once
// its inputs exist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/alignment"
	"github.com/yech1990/mrri/internal/config"
	"github.com/yech1990/mrri/internal/covariance"
	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/motif"
	"github.com/yech1990/mrri/internal/mrri"
	"github.com/yech1990/mrri/internal/plots"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/runner"
	"github.com/yech1990/mrri/internal/structure"
)

// MemeHalfWidth is the number of bases taken on each side of an interaction
// centre for motif discovery.
const MemeHalfWidth = 15

// Progress returns the per-item callback of a stage with total items.
type Progress func(desc string, total int) func()

// Pipeline wires the configuration to the stage drivers.
type Pipeline struct {
	Config   *config.Config
	Runner   runner.Runner
	Logger   *zap.Logger
	Progress Progress

	// RunID tags every log line of one invocation.
	RunID string
}

// New returns a pipeline with a fresh run ID.
func New(cfg *config.Config, r runner.Runner, logger *zap.Logger) *Pipeline {
	id := uuid.New().String()
	return &Pipeline{
		Config: cfg,
		Runner: r,
		Logger: logging.OrNop(logger).With(zap.String("run", id)),
		RunID:  id,
	}
}

func (p *Pipeline) logger() *zap.Logger {
	return logging.OrNop(p.Logger)
}

func (p *Pipeline) done(desc string, total int) func() {
	if p.Progress == nil {
		return nil
	}
	return p.Progress(desc, total)
}

// Run executes every enabled task in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := os.MkdirAll(p.Config.Paths.Results, 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	for _, task := range config.TaskOrder {
		if !p.Config.Tasks.Enabled(task) {
			p.logger().Debug("Task disabled", zap.String("task", task))
			continue
		}
		if err := p.RunTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// RunTask executes one task by name.
func (p *Pipeline) RunTask(ctx context.Context, task string) error {
	tasks := map[string]func(context.Context) error{
		config.TaskParameterTables: p.ParameterTables,
		config.TaskIntaRNA:         p.IntaRNA,
		config.TaskCreateCMs:       p.CreateCMs,
		config.TaskCMSearch:        p.CMSearch,
		config.TaskIntaRNAPlots:    p.IntaRNAPlots,
		config.TaskMemePrep:        p.MemePrep,
		config.TaskLocARNA:         p.LocARNA,
		config.TaskMRRI1:           func(ctx context.Context) error { return p.MRRI(ctx, mrri.ModeFull) },
		config.TaskMRRI2:           func(ctx context.Context) error { return p.MRRI(ctx, mrri.ModeTransition) },
		config.TaskLocARNAMRRI:     p.LocARNAMRRI,
		config.TaskLocARNACarna:    p.LocARNACarna,
		config.TaskMRRIPlots:       p.MRRIPlots,
		config.TaskMemeLineplots:   p.MemeLineplots,
		config.TaskProteins:        p.Proteins,
		config.TaskConsensus:       p.Consensus,
	}
	fn, ok := tasks[task]
	if !ok {
		return fmt.Errorf("unknown task '%s'", task)
	}
	logger := p.logger().With(zap.String("task", task))
	logger.Info("Task started")
	start := time.Now()
	if err := fn(ctx); err != nil {
		logger.Error("Task failed", zap.Error(err))
		return fmt.Errorf("%s: %w", task, err)
	}
	logger.Info("Task finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ParameterTables writes the static IntaRNA parameter file and the
// parameter table of the genome database.
func (p *Pipeline) ParameterTables(ctx context.Context) error {
	paths := p.Config.Paths
	if err := genome.WriteStaticParameters(paths.StaticParams, p.Config.Static.Lines()); err != nil {
		return err
	}
	b := &genome.Builder{ExtraBases: p.Config.IntaRNA.ExtraBases, Logger: p.logger()}
	records, err := b.Build(paths.Database)
	if err != nil {
		return err
	}
	if err := genome.WriteTable(records, paths.ParameterTable); err != nil {
		return err
	}
	p.logger().Info("Parameter table written", zap.Int("genomes", len(records)), zap.String("file", paths.ParameterTable))
	return nil
}

func (p *Pipeline) predictor() *intarna.Predictor {
	in := p.Config.IntaRNA
	return &intarna.Predictor{
		Runner:        p.Runner,
		Binary:        in.Binary,
		ParameterFile: p.Config.Paths.StaticParams,
		ExtraBases:    in.ExtraBases,
		ExtraBasesROI: in.ExtraBasesROI,
		Logger:        p.logger(),
	}
}

func createRaw(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// IntaRNA predicts the optimal and suboptimal interactions of every genome.
func (p *Pipeline) IntaRNA(ctx context.Context) error {
	paths := p.Config.Paths
	records, err := genome.ReadTable(paths.ParameterTable)
	if err != nil {
		return err
	}
	raw, err := createRaw(paths.IntaRNARaw)
	if err != nil {
		return err
	}
	defer raw.Close()

	d := &intarna.Driver{
		Predictor: p.predictor(),
		OutNumber: p.Config.IntaRNA.OutNumber,
		Workers:   p.Config.Workers,
		Logger:    p.logger(),
		Done:      p.done("IntaRNA", len(records)),
	}
	rows, err := d.Run(ctx, records, raw)
	if err != nil {
		return err
	}
	if err := raw.Close(); err != nil {
		return err
	}
	return results.Write(rows, paths.IntaRNAOutput)
}

func (p *Pipeline) infernal() *covariance.Infernal {
	cm := p.Config.CM
	return &covariance.Infernal{
		Runner:      p.Runner,
		CMBuild:     cm.CMBuild,
		CMCalibrate: cm.CMCalibrate,
		CMSearch:    cm.CMSearch,
		Logger:      p.logger(),
	}
}

// CreateCMs builds, and optionally calibrates, a covariance model per
// Stockholm alignment.
func (p *Pipeline) CreateCMs(ctx context.Context) error {
	models, err := p.infernal().BuildAll(ctx, p.Config.Paths.Stockholm, p.Config.Paths.Covariance, p.Config.CM.Calibrate)
	if err != nil {
		return err
	}
	p.logger().Info("Covariance models built", zap.Strings("models", models))
	return nil
}

// CMSearch searches the 3'UTR of every genome with every model and adds the
// best hit to the IntaRNA table.
func (p *Pipeline) CMSearch(ctx context.Context) error {
	paths := p.Config.Paths
	rows, err := results.Read(paths.IntaRNAOutput)
	if err != nil {
		return err
	}
	if err := genome.WriteUTR3Fasta(results.Records(rows), p.Config.IntaRNA.ExtraBases, paths.UTR3Fasta); err != nil {
		return err
	}
	hits, err := p.infernal().BestHits(ctx, paths.Covariance, paths.UTR3Fasta, paths.CMOutput)
	if err != nil {
		return err
	}
	p.logger().Info("CM search finished", zap.Int("genomes", len(rows)), zap.Int("hits", len(hits)))
	return results.Write(covariance.Attach(rows, hits), paths.CMSearch)
}

// withCMHits reads the table at path and adds the CM hits found by the CM
// search task, joined by genome ID.
func (p *Pipeline) withCMHits(path string) ([]results.Row, error) {
	rows, err := results.Read(path)
	if err != nil {
		return nil, err
	}
	searched, err := results.Read(p.Config.Paths.CMSearch)
	if err != nil {
		return nil, fmt.Errorf("CM hits: %w", err)
	}
	hits := map[string]results.CMHit{}
	for _, r := range searched {
		if r.CMHit != nil {
			hits[r.ID] = *r.CMHit
		}
	}
	return covariance.Attach(rows, hits), nil
}

func (p *Pipeline) plotOptions() plots.Options {
	return plots.Options{
		ExtraBases:    p.Config.IntaRNA.ExtraBases,
		ExtraBasesROI: p.Config.IntaRNA.ExtraBasesROI,
		CMHits:        true,
	}
}

// IntaRNAPlots draws the line plot of the IntaRNA predictions.
func (p *Pipeline) IntaRNAPlots(ctx context.Context) error {
	rows, err := results.Read(p.Config.Paths.CMSearch)
	if err != nil {
		return err
	}
	return plots.LinePlot(rows, p.Config.Paths.Lineplot, p.plotOptions())
}

// MemePrep writes the per-class interaction windows for MEME.
func (p *Pipeline) MemePrep(ctx context.Context) error {
	rows, err := results.Read(p.Config.Paths.CMSearch)
	if err != nil {
		return err
	}
	written, err := motif.MemeWindows(rows, p.Config.IntaRNA.ExtraBases, MemeHalfWidth, p.Config.Paths.Meme)
	if err != nil {
		return err
	}
	p.logger().Info("MEME input written", zap.Int("files", len(written)))
	return nil
}

func (p *Pipeline) aligner() *alignment.Driver {
	la := p.Config.LocARNA
	return &alignment.Driver{
		Tools: &alignment.Tools{
			Runner:        p.Runner,
			MLocarnaBin:   la.MLocarna,
			RNAalifoldBin: la.RNAalifold,
			PsToPdfBin:    la.PsToPdf,
			Width:         la.Width,
			CarnaArgs:     la.CarnaArgs,
			Temperature:   la.Temperature,
			Logger:        p.logger(),
		},
		Grouping: alignment.Grouping{SplitClasses: la.SplitClasses, Combined: la.CombinedGroups},
		Window: structure.Window{
			CDSLeft:       la.CDSLeft,
			CDSRight:      la.CDSRight,
			Query3Width:   la.Query3Width,
			ExtraBases:    p.Config.IntaRNA.ExtraBases,
			ExtraBasesROI: p.Config.IntaRNA.ExtraBasesROI,
			PinnedLabels:  la.PinnedLabels,
		},
		Logger: p.logger(),
	}
}

// Align aligns the genomes of the prediction table at path, constrained
// by mode, into outDir. Genomes take their CM hit from the CM search table.
func (p *Pipeline) Align(ctx context.Context, path string, mode structure.Mode, carna bool, outDir string) error {
	rows, err := p.withCMHits(path)
	if err != nil {
		return err
	}
	names, err := p.aligner().Run(ctx, rows, mode, carna, outDir)
	if err != nil {
		return err
	}
	p.logger().Info("Alignments written", zap.Strings("groups", names), zap.String("dir", outDir))
	return nil
}

// LocARNA aligns the IntaRNA predictions with the 5' window paired against
// the 3' window.
func (p *Pipeline) LocARNA(ctx context.Context) error {
	return p.Align(ctx, p.Config.Paths.CMSearch, structure.ModePaired, false, p.Config.Paths.LocARNA)
}

func (p *Pipeline) searcher(mode mrri.Mode) *mrri.Searcher {
	m := p.Config.MRRI
	return &mrri.Searcher{
		Predictor:            p.predictor(),
		Mode:                 mode,
		MaxRounds:            m.MaxRounds,
		MaxEnergy:            m.MaxEnergy,
		StopOnEnergyIncrease: m.StopOnEnergyIncrease,
		TargetLeft:           m.TargetLeft,
		TargetRight:          m.TargetRight,
		QueryFromEnd:         m.QueryFromEnd,
		QueryToEnd:           m.QueryToEnd,
		Logger:               p.logger(),
	}
}

// MRRI runs the multi-round search over the parameter table.
func (p *Pipeline) MRRI(ctx context.Context, mode mrri.Mode) error {
	paths := p.Config.Paths
	rawPath, outPath := paths.MRRIRaw1, paths.MRRIOutput1
	if mode == mrri.ModeTransition {
		rawPath, outPath = paths.MRRIRaw2, paths.MRRIOutput2
	}
	records, err := genome.ReadTable(paths.ParameterTable)
	if err != nil {
		return err
	}
	raw, err := createRaw(rawPath)
	if err != nil {
		return err
	}
	defer raw.Close()

	d := &mrri.Driver{
		Searcher: p.searcher(mode),
		Workers:  p.Config.Workers,
		Logger:   p.logger(),
		Done:     p.done(fmt.Sprintf("MRRI %d", mode), len(records)),
	}
	rows, err := d.Run(ctx, records, raw)
	if err != nil {
		return err
	}
	if err := raw.Close(); err != nil {
		return err
	}
	return results.Write(rows, outPath)
}

// LocARNAMRRI aligns the transition-window MRRI results twice: constrained
// to the CM hit and constrained by the resolved interactions.
func (p *Pipeline) LocARNAMRRI(ctx context.Context) error {
	paths := p.Config.Paths
	if err := p.Align(ctx, paths.MRRIOutput2, structure.ModeCMHit, false, paths.LocARNAMode2); err != nil {
		return err
	}
	return p.Align(ctx, paths.MRRIOutput2, structure.ModeInteraction, false, paths.LocARNAMode3)
}

// LocARNACarna aligns the transition-window MRRI results with CARNA.
func (p *Pipeline) LocARNACarna(ctx context.Context) error {
	return p.Align(ctx, p.Config.Paths.MRRIOutput2, structure.ModePaired, true, p.Config.Paths.LocARNACarna)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MRRIPlots draws the line plots of both MRRI runs that produced output and
// the energy histograms of the transition-window run.
func (p *Pipeline) MRRIPlots(ctx context.Context) error {
	paths := p.Config.Paths
	drawn := 0
	if exists(paths.MRRIOutput1) {
		rows, err := p.withCMHits(paths.MRRIOutput1)
		if err != nil {
			return err
		}
		if err := plots.LinePlot(rows, paths.MRRILineplot1, p.plotOptions()); err != nil {
			return err
		}
		drawn++
	}
	if exists(paths.MRRIOutput2) {
		rows, err := p.withCMHits(paths.MRRIOutput2)
		if err != nil {
			return err
		}
		o := p.plotOptions()
		o.QueryBox, o.QueryFrom, o.QueryTo = true, p.Config.MRRI.QueryFromEnd, p.Config.MRRI.QueryToEnd
		if err := plots.LinePlot(rows, paths.MRRILineplot2, o); err != nil {
			return err
		}
		written, err := plots.EnergyHistograms(rows, paths.Results)
		if err != nil {
			return err
		}
		p.logger().Info("Energy histograms written", zap.Int("files", len(written)))
		drawn++
	}
	if drawn == 0 {
		return errors.New("no MRRI output to plot")
	}
	return nil
}

// MemeLineplots overlays the motif sites MEME and GLAM2 found in the
// interaction windows on per-class line plots of the transition-window MRRI
// run. Reports are read from <meme>/<class>_<side>/meme.txt and glam2.txt
// and drawn to <meme>/MEME_<class>.png and <meme>/GLAM2_<class>.png.
func (p *Pipeline) MemeLineplots(ctx context.Context) error {
	paths := p.Config.Paths
	windows, err := results.Read(paths.CMSearch)
	if err != nil {
		return err
	}
	rows, err := p.withCMHits(paths.MRRIOutput2)
	if err != nil {
		return err
	}
	byClass := map[string][]results.Row{}
	for _, row := range rows {
		byClass[row.Class] = append(byClass[row.Class], row)
	}
	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	drawn := 0
	for _, tool := range []struct{ name, report string }{{"MEME", "meme.txt"}, {"GLAM2", "glam2.txt"}} {
		for _, class := range classes {
			o := p.plotOptions()
			o.Title = tool.name + " sites " + class
			found := false
			for _, side := range []string{"5", "3"} {
				report := filepath.Join(paths.Meme, class+"_"+side, tool.report)
				if !exists(report) {
					continue
				}
				sites, err := motif.ReadSites(report)
				if err != nil {
					return err
				}
				spans := motif.Locate(windows, sites, side, p.Config.IntaRNA.ExtraBases, MemeHalfWidth)
				if side == "5" {
					o.Sites5 = spans
				} else {
					o.Sites3 = spans
				}
				found = true
			}
			if !found {
				continue
			}
			out := filepath.Join(paths.Meme, tool.name+"_"+class+".png")
			if err := plots.LinePlot(byClass[class], out, o); err != nil {
				return err
			}
			p.logger().Info("Motif line plot written", zap.String("file", out))
			drawn++
		}
	}
	if drawn == 0 {
		return fmt.Errorf("no MEME or GLAM2 reports under %s", paths.Meme)
	}
	return nil
}

// Proteins translates the start of every CDS.
func (p *Pipeline) Proteins(ctx context.Context) error {
	records, err := genome.ReadTable(p.Config.Paths.ParameterTable)
	if err != nil {
		return err
	}
	return motif.TranslateCDS(results.FromRecords(records), p.Config.IntaRNA.ExtraBasesROI, p.Config.Paths.AminoAcids)
}

// Consensus writes the consensus of every alignment produced so far.
func (p *Pipeline) Consensus(ctx context.Context) error {
	paths := p.Config.Paths
	total := 0
	for _, dir := range []string{paths.LocARNA, paths.LocARNAMode2, paths.LocARNAMode3, paths.LocARNACarna} {
		if !exists(dir) {
			continue
		}
		written, err := alignment.ConsensusAll(dir, p.logger())
		if err != nil {
			return err
		}
		total += len(written)
	}
	p.logger().Info("Consensus written", zap.Int("alignments", total))
	return nil
}
