package motif

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/results"
)

func testRow(id, class string) results.Row {
	return results.Row{
		Record: genome.Record{
			ID: id, Class: class,
			UTR5Len: 8, UTR3Len: 20,
			Seq5: "ACGUACGU" + "AUGGCCAAAG",
			Seq3: "CCCCCCCCCC" + "AAAAAGGGGGUUUUUCCCCC",
		},
		PredictionsT: []results.Prediction{{Start: -3, End: 1}},
		PredictionsQ: []results.Prediction{{Start: 6, End: 9}},
	}
}

func TestWindows(t *testing.T) {
	w5, w3, ok := Windows(testRow("NC_1", "MBFV"), 10, 2)
	require.True(t, ok)
	// target offsets 5..8, query offsets 15..18
	assert.Equal(t, "CGUA", w5)
	assert.Equal(t, "GGGG", w3)

	r := testRow("NC_2", "MBFV")
	r.PredictionsT = nil
	_, _, ok = Windows(r, 10, 2)
	assert.False(t, ok)
}

func TestWindowClamps(t *testing.T) {
	assert.Equal(t, "ACG", window("ACGUA", 1, 2))
	assert.Equal(t, "UA", window("ACGUA", 5, 2))
	assert.Equal(t, "", window("ACGUA", 9, 2))
}

func TestMemeWindows(t *testing.T) {
	dir := t.TempDir()
	rows := []results.Row{testRow("NC_1", "MBFV"), testRow("NC_2", "TBFV"), testRow("NC_3", "MBFV")}
	rows[2].PredictionsQ = nil

	written, err := MemeWindows(rows, 10, 2, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "MBFV_3.fa"), filepath.Join(dir, "MBFV_5.fa"),
		filepath.Join(dir, "TBFV_3.fa"), filepath.Join(dir, "TBFV_5.fa"),
	}, written)

	data, err := os.ReadFile(filepath.Join(dir, "MBFV_5.fa"))
	require.NoError(t, err)
	assert.Equal(t, ">NC_1\nCGUA\n\n", string(data))
}

func TestCDSStart(t *testing.T) {
	r := testRow("NC_1", "MBFV")
	assert.Equal(t, "AUGGCCAAA", CDSStart(r, 100))
	assert.Equal(t, "AUG", CDSStart(r, 5))
	assert.Equal(t, "", CDSStart(r, 2))
}

func TestTranslateCDS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AminoAcids.fa")
	rows := []results.Row{testRow("NC_1", "MBFV"), testRow("NC_2", "TBFV")}
	rows[1].UTR5Len = len(rows[1].Seq5)
	require.NoError(t, TranslateCDS(rows, 100, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ">MBFV-NC_1\nMAK\n\n", string(data))
}
