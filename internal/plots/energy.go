package plots

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/yech1990/mrri/internal/results"
)

// Group 0 holds interactions starting in the 5' UTR, group 1 those
// starting in the CDS.
const (
	GroupUTR = 0
	GroupCDS = 1
)

var roundColors = []color.Color{red, orange, yellow}

// EnergyKey selects one histogram.
type EnergyKey struct {
	Class string
	Group int
}

// File is the PNG name of the histogram.
func (k EnergyKey) File() string {
	return "energy_" + k.Class + "_" + strconv.Itoa(k.Group) + ".png"
}

// Energies collects the interaction energies of rows by class and by the
// region the first interaction starts in. Index i of the value holds the
// energies of the (i+1)-th interaction of every genome.
func Energies(rows []results.Row) map[EnergyKey][][]float64 {
	out := map[EnergyKey][][]float64{}
	for _, row := range rows {
		if len(row.PredictionsT) == 0 {
			continue
		}
		// Raw starts are counted from the start codon, so positive means CDS.
		key := EnergyKey{Class: row.Class, Group: GroupUTR}
		if row.PredictionsT[0].Start > 0 {
			key.Group = GroupCDS
		}
		layers := out[key]
		for i, p := range row.PredictionsT {
			for len(layers) <= i {
				layers = append(layers, nil)
			}
			layers[i] = append(layers[i], p.Energy)
		}
		out[key] = layers
	}
	return out
}

// Bins counts layered values into n equal bins over their common range and
// returns the per-layer counts with the lower bin edges.
func Bins(layers [][]float64, n int) ([][]float64, []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range layers {
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil, nil
	}
	if hi == lo {
		hi = lo + 1
	}
	width := (hi - lo) / float64(n)
	edges := make([]float64, n)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	counts := make([][]float64, len(layers))
	for l, vs := range layers {
		counts[l] = make([]float64, n)
		for _, v := range vs {
			i := int((v - lo) / width)
			if i >= n {
				i = n - 1
			}
			counts[l][i]++
		}
	}
	return counts, edges
}

// EnergyHistogram draws one stacked histogram, a layer per interaction
// number.
func EnergyHistogram(key EnergyKey, layers [][]float64, bins int, path string) error {
	counts, edges := Bins(layers, bins)
	if counts == nil {
		return fmt.Errorf("no energies for %s", key.File())
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", key.Class, [...]string{"5' UTR", "CDS"}[key.Group])
	p.X.Label.Text = "Energy (kcal/mol)"
	p.Y.Label.Text = "Count"
	p.Legend.Top = true

	var below *plotter.BarChart
	for i, c := range counts {
		bars, err := plotter.NewBarChart(plotter.Values(c), vg.Points(12))
		if err != nil {
			return err
		}
		bars.Color = roundColors[i%len(roundColors)]
		bars.LineStyle.Width = vg.Points(0.5)
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add("Interaction "+strconv.Itoa(i+1), bars)
		below = bars
	}
	labels := make([]string, len(edges))
	for i, e := range edges {
		labels[i] = strconv.FormatFloat(e, 'f', 1, 64)
	}
	p.NominalX(labels...)

	img := vgimg.New(8*vg.Inch, 5*vg.Inch)
	p.Draw(draw.New(img))
	return savePNG(img, path)
}

// EnergyHistograms writes energy_<class>_<group>.png into dir for every
// class and group holding interactions and returns the written files.
func EnergyHistograms(rows []results.Row, dir string) ([]string, error) {
	groups := Energies(rows)
	keys := make([]EnergyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Group < keys[j].Group
	})
	var written []string
	for _, k := range keys {
		path := filepath.Join(dir, k.File())
		if err := EnergyHistogram(k, groups[k], 20, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
