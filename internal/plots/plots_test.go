package plots

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/results"
)

var testOptions = Options{ExtraBases: 10, ExtraBasesROI: 5}

func testRow(id, class string, starts ...int) results.Row {
	r := results.Row{
		Record: genome.Record{
			ID: id, Class: class,
			UTR5Len: 8, UTR3Len: 20,
			Seq5: "GGGGGGGG" + "AUGCCCCCCC",
			Seq3: "CCCCCCCCCC" + "AAAAAAAAAAUUUUUUUUUU",
		},
	}
	for i, s := range starts {
		r.PredictionsT = append(r.PredictionsT, results.Prediction{Start: s, End: s + 3, Energy: -10 - float64(i)})
		r.PredictionsQ = append(r.PredictionsQ, results.Prediction{Start: 15, End: 18, Energy: -10 - float64(i)})
	}
	return r
}

func TestSegments5(t *testing.T) {
	segs := Segments5(testRow("NC_1", "MBFV", -3), testOptions)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{0, 13, KindCDS}, segs[0])
	assert.Equal(t, Segment{0, 8, KindUTR}, segs[1])
	assert.Equal(t, Segment{5, 9, KindInteraction}, segs[2])
}

func TestSegments3(t *testing.T) {
	r := testRow("NC_1", "MBFV", -3)
	r.CMHit = &results.CMHit{From: 5, To: 12}
	segs := Segments3(r, testOptions)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{0, -25, KindCDS}, segs[0])
	assert.Equal(t, Segment{0, -20, KindUTR}, segs[1])
	assert.Equal(t, Segment{-6, -2, KindInteraction}, segs[2])

	o := testOptions
	o.CMHits = true
	segs = Segments3(r, o)
	require.Len(t, segs, 4)
	assert.Equal(t, Segment{-16, -8, KindCMHit}, segs[3])
}

func TestSegmentsSites(t *testing.T) {
	r := testRow("NC_1", "MBFV")
	o := testOptions
	o.Sites5 = map[string][]Span{"NC_1": {{From: 6, To: 10}}, "NC_2": {{From: 0, To: 3}}}
	o.Sites3 = map[string][]Span{"NC_1": {{From: 15, To: 19}}}

	segs := Segments5(r, o)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{6, 10, KindSite}, segs[2])

	segs = Segments3(r, o)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{-15, -11, KindSite}, segs[2])
}

func TestLinePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "lineplot.png")
	rows := []results.Row{testRow("NC_1", "MBFV", -3), testRow("NC_2", "MBFV", 2, -5), testRow("NC_3", "TBFV")}
	o := testOptions
	o.QueryBox, o.QueryFrom, o.QueryTo = true, 15, 5
	o.Sites5 = map[string][]Span{"NC_2": {{From: 3, To: 7}}}
	require.NoError(t, LinePlot(rows, path, o))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestEnergies(t *testing.T) {
	rows := []results.Row{
		testRow("NC_1", "MBFV", -3, 4),
		testRow("NC_2", "MBFV", -1),
		testRow("NC_3", "MBFV", 2, -6, -9),
		testRow("NC_4", "TBFV"),
	}
	groups := Energies(rows)
	require.Len(t, groups, 2)
	assert.Equal(t, [][]float64{{-10, -10}, {-11}}, groups[EnergyKey{"MBFV", GroupUTR}])
	assert.Equal(t, [][]float64{{-10}, {-11}, {-12}}, groups[EnergyKey{"MBFV", GroupCDS}])
	assert.Equal(t, "energy_MBFV_1.png", EnergyKey{"MBFV", GroupCDS}.File())
}

func TestBins(t *testing.T) {
	counts, edges := Bins([][]float64{{-10, -8}, {-6}}, 2)
	assert.Equal(t, []float64{-10, -8}, edges)
	assert.Equal(t, [][]float64{{1, 1}, {0, 1}}, counts)

	counts, edges = Bins(nil, 4)
	assert.Nil(t, counts)
	assert.Nil(t, edges)
}

func TestEnergyHistograms(t *testing.T) {
	dir := t.TempDir()
	rows := []results.Row{testRow("NC_1", "MBFV", -3, 4), testRow("NC_2", "TBFV", 2)}
	written, err := EnergyHistograms(rows, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "energy_MBFV_0.png"), filepath.Join(dir, "energy_TBFV_1.png")}, written)
	for _, path := range written {
		assert.FileExists(t, path)
	}
}
