package intarna

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const header = "id1;start1;end1;id2;start2;end2;subseqDP;hybridDP;E\n"

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testRecord(id string) genome.Record {
	return genome.Record{
		ID:      id,
		Class:   "MBFV",
		UTR5Len: 10,
		UTR3Len: 30,
		Seq5:    strings.Repeat("A", 10+20),
		Seq3:    strings.Repeat("U", 20+30),
	}
}

func TestOptionsArgs(t *testing.T) {
	p := &Predictor{ExtraBases: 20, ExtraBasesROI: 5, ParameterFile: "static.cfg"}
	opts := p.Options(testRecord("NC_1"))
	opts.OutNumber = 4
	opts.OutOverlap = "T"

	want := []string{
		"-t", strings.Repeat("A", 30),
		"-q", strings.Repeat("U", 50),
		"--tidxpos0", "-10",
		"--qidxpos0", "-20",
		"--tregion", "-10-15",
		"--qregion", "-15-30",
		"--tId", "NC_1.5UTR",
		"--qId", "NC_1.3UTR",
		"--parameterFile", "static.cfg",
		"--outMode", "C",
		"--outNumber", "4",
		"--outOverlap", "T",
	}
	assert.Equal(t, want, opts.Args())
}

func TestOptionsConstraints(t *testing.T) {
	opts := Options{
		N:               1,
		CsvCols:         []string{"id1", "E"},
		TargetAccConstr: "b:3-9",
		QueryAccConstr:  "b:40-47",
	}
	args := opts.Args()
	assert.Equal(t, "1", argValue(args, "-n"))
	assert.Equal(t, "id1,E", argValue(args, "--outCsvCols"))
	assert.Equal(t, "b:3-9", argValue(args, "--tAccConstr"))
	assert.Equal(t, "b:40-47", argValue(args, "--qAccConstr"))
	assert.Empty(t, argValue(args, "--outNumber"))
}

func TestParseCSV(t *testing.T) {
	out := header +
		"NC_1.5UTR;-8;2;NC_1.3UTR;12;21;x;((((..((&))..))));-15.2\n" +
		"NC_1.5UTR;-30;-22;NC_1.3UTR;1;9;x;(((&)));-3\n\n"
	inter, err := ParseCSV(out)
	require.NoError(t, err)
	require.Len(t, inter, 2)
	assert.Equal(t, Interaction{
		TargetID: "NC_1.5UTR", Start1: -8, End1: 2,
		QueryID: "NC_1.3UTR", Start2: 12, End2: 21,
		SubseqDP: "x", HybridDP: "((((..((&))..))))", E: -15.2,
	}, inter[0])

	tHalf, qHalf := inter[1].Halves()
	assert.Equal(t, "(((", tHalf)
	assert.Equal(t, ")))", qHalf)
}

func TestParseCSVExtendedColumns(t *testing.T) {
	out := "id1;start1;end1;id2;start2;end2;subseqDP;hybridDP;E;E_hybrid;ED1;ED2\n" +
		"t;1;5;q;3;7;s;((((&));-4.5;-9.1;2.3;\n"
	inter, err := ParseCSV(out)
	require.NoError(t, err)
	require.Len(t, inter, 1)
	assert.Equal(t, -9.1, inter[0].EHybrid)
	assert.Equal(t, 2.3, inter[0].ED1)
	assert.Zero(t, inter[0].ED2)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV(header + "a;b\n")
	assert.ErrorContains(t, err, "fields")

	_, err = ParseCSV(header + "t;one;2;q;3;4;s;(&);-1\n")
	assert.ErrorContains(t, err, "start1")

	inter, err := ParseCSV(header)
	require.NoError(t, err)
	assert.Empty(t, inter)
}

func TestToOffset(t *testing.T) {
	tests := []struct {
		idx, idxpos0, want int
	}{
		{-10, -10, 0},
		{-1, -10, 9},
		{1, -10, 10},
		{5, -10, 14},
		{1, 1, 0},
		{7, 1, 6},
		{3, 0, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToOffset(tt.idx, tt.idxpos0), "ToOffset(%d, %d)", tt.idx, tt.idxpos0)
	}
}

func fakeIntaRNA(t *testing.T, calls *[]runner.Command, mu *sync.Mutex) runner.Runner {
	return runner.Func(func(_ context.Context, cmd runner.Command) (*runner.Result, error) {
		mu.Lock()
		*calls = append(*calls, cmd)
		mu.Unlock()
		id := strings.TrimSuffix(argValue(cmd.Args, "--tId"), ".5UTR")
		switch {
		case id == "NC_empty":
			return &runner.Result{Stdout: header}, nil
		case id == "NC_fail":
			return nil, &runner.ExitError{Command: cmd, ExitCode: 1, Stderr: "bad parameter"}
		case argValue(cmd.Args, "--outOverlap") == "T":
			return &runner.Result{Stdout: header +
				id + ".5UTR;-8;2;" + id + ".3UTR;12;21;x;((((&));-15\n" +
				id + ".5UTR;-30;-22;" + id + ".3UTR;13;22;x;(((&)));-9\n"}, nil
		default:
			return &runner.Result{Stdout: header +
				id + ".5UTR;-8;2;" + id + ".3UTR;12;21;x;((((&));-15\n" +
				id + ".5UTR;-7;3;" + id + ".3UTR;40;44;x;((&));-6\n"}, nil
		}
	})
}

func TestSuboptimal(t *testing.T) {
	var calls []runner.Command
	var mu sync.Mutex
	p := &Predictor{Runner: fakeIntaRNA(t, &calls, &mu), ExtraBases: 20, ExtraBasesROI: 5}

	inter, raw, err := p.Suboptimal(context.Background(), testRecord("NC_1"), 3)
	require.NoError(t, err)
	require.Len(t, inter, 3, "optimum of the second run is dropped")
	assert.Equal(t, -15.0, inter[0].E)
	assert.Equal(t, -9.0, inter[1].E)
	assert.Equal(t, 40, inter[2].Start2)
	assert.Equal(t, 2, strings.Count(raw, header))

	require.Len(t, calls, 2)
	assert.Equal(t, "IntaRNA", calls[0].Binary)
	assert.Equal(t, "Q", argValue(calls[1].Args, "--outOverlap"))
}

func TestSuboptimalSingleRun(t *testing.T) {
	var calls []runner.Command
	var mu sync.Mutex
	p := &Predictor{Runner: fakeIntaRNA(t, &calls, &mu), ExtraBases: 20, ExtraBasesROI: 5}

	inter, _, err := p.Suboptimal(context.Background(), testRecord("NC_1"), 1)
	require.NoError(t, err)
	assert.Len(t, inter, 2)
	assert.Len(t, calls, 1)
}

func TestPredictNoInteraction(t *testing.T) {
	var calls []runner.Command
	var mu sync.Mutex
	p := &Predictor{Runner: fakeIntaRNA(t, &calls, &mu), ExtraBases: 20, ExtraBasesROI: 5}

	_, _, err := p.Predict(context.Background(), p.Options(testRecord("NC_empty")))
	assert.ErrorIs(t, err, ErrNoInteraction)

	inter, _, err := p.Suboptimal(context.Background(), testRecord("NC_empty"), 4)
	require.NoError(t, err)
	assert.Empty(t, inter)
	assert.Len(t, calls, 2, "no rerun after an empty first run")
}

func TestDriverRun(t *testing.T) {
	var calls []runner.Command
	var mu sync.Mutex
	p := &Predictor{Runner: fakeIntaRNA(t, &calls, &mu), ExtraBases: 20, ExtraBasesROI: 5}
	var done int
	var doneMu sync.Mutex
	d := &Driver{Predictor: p, OutNumber: 2, Workers: 3, Done: func() {
		doneMu.Lock()
		done++
		doneMu.Unlock()
	}}

	records := []genome.Record{testRecord("NC_3"), testRecord("NC_empty"), testRecord("NC_1")}
	var raw bytes.Buffer
	rows, err := d.Run(context.Background(), records, &raw)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, done)

	assert.Equal(t, "NC_3", rows[0].ID)
	assert.False(t, rows[1].HasInteraction())
	require.Len(t, rows[2].PredictionsT, 3)
	assert.Equal(t, -8, rows[2].PredictionsT[0].Start)
	assert.Equal(t, "((((", rows[2].PredictionsT[0].Structure)
	assert.Equal(t, "))", rows[2].PredictionsQ[0].Structure)
	assert.Equal(t, 12, rows[2].PredictionsQ[0].Start)

	text := raw.String()
	assert.True(t, strings.HasPrefix(text, "NC_3 :\n######\n"))
	assert.Less(t, strings.Index(text, "NC_empty :"), strings.Index(text, "NC_1 :"))
}

func TestDriverPropagatesToolFailure(t *testing.T) {
	var calls []runner.Command
	var mu sync.Mutex
	p := &Predictor{Runner: fakeIntaRNA(t, &calls, &mu), ExtraBases: 20, ExtraBasesROI: 5}
	d := &Driver{Predictor: p, OutNumber: 2, Workers: 2}

	_, err := d.Run(context.Background(), []genome.Record{testRecord("NC_1"), testRecord("NC_fail")}, nil)
	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "NC_fail")
}

func TestWriteRaw(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, "NC_1", "a;b"))
	assert.Equal(t, "NC_1 :\n######\na;b\n######\n", buf.String())
}
