package alignment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/runner"
	"github.com/yech1990/mrri/internal/structure"
)

var testWindow = structure.Window{CDSLeft: 3, CDSRight: 5, Query3Width: 12, ExtraBases: 10, ExtraBasesROI: 5, PinnedLabels: 2}

func row(id, class, typ string, hit bool) results.Row {
	r := results.Row{
		Record: genome.Record{
			ID: id, Class: class, Type: typ,
			UTR5Len: 8, UTR3Len: 20,
			Seq5: "GGGGGGGG" + "AUGCCCCCCC",
			Seq3: "CCCCCCCCCC" + "AAAAAAAA" + "UUUUUUUUUUUU",
		},
		PredictionsT: []results.Prediction{{Start: -3, End: 1, Structure: "((.("}},
		PredictionsQ: []results.Prediction{{Start: 15, End: 18, Structure: ").))"}},
	}
	if hit {
		r.CMHit = &results.CMHit{From: 9, To: 12, Source: class}
	}
	return r
}

func testRows() []results.Row {
	return []results.Row{
		row("NC_1", "MBFV", "MBFVa", true),
		row("NC_2", "ISFV", "dISFVa", true),
		row("NC_3", "TBFV", "TBFVb", true),
		row("NC_4", "MBFV", "MBFVa", false),
	}
}

var testGrouping = Grouping{
	SplitClasses: []string{"ISFV"},
	Combined: map[string][]string{
		"dISFV+TBFV": {"dISFV", "TBFV"},
		"MBFV+cISFV": {"MBFV", "cISFV"},
		"cISFV+NKV":  {"cISFV", "NKV"},
	},
}

func entryNames(entries []structure.Entry) []string {
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestGroups(t *testing.T) {
	groups := testGrouping.Groups(testRows(), structure.ModePaired, testWindow, nil)
	assert.Equal(t, []string{"MBFV", "MBFV+cISFV", "TBFV", "dISFV", "dISFV+TBFV"}, SortedNames(groups))
	assert.Equal(t, []string{"MBFV-NC_1"}, entryNames(groups["MBFV"]))
	assert.Equal(t, []string{"dISFV-NC_2"}, entryNames(groups["dISFV"]))
	assert.Equal(t, []string{"dISFV-NC_2", "TBFV-NC_3"}, entryNames(groups["dISFV+TBFV"]))
	assert.Equal(t, []string{"MBFV-NC_1"}, entryNames(groups["MBFV+cISFV"]))
}

func TestGroupsSkipsBadWindow(t *testing.T) {
	r := row("NC_5", "MBFV", "MBFVa", true)
	r.UTR5Len = 1
	groups := Grouping{}.Groups([]results.Row{r}, structure.ModeNone, testWindow, nil)
	assert.Empty(t, groups)
}

func TestWriteFasta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locARNA_MBFV_input.fa")
	entries := []structure.Entry{
		{Name: "MBFV-NC_1", Part5: "GGA", Part3: "UC", S: "...xxxxxxx..", A1: "a1", A2: "a2", FS: "fs"},
		{Name: "MBFV-NC_2", Part5: "GGA", Part3: "UC", S: "s", A1: "a1", A2: "a2", FS: "fs", SkipFS: true},
		{Name: "MBFV-NC_3", Part5: "", Part3: "UC"},
	}
	require.NoError(t, WriteFasta(entries, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := ">MBFV-NC_1\nGGANNNNNNNUC\n...xxxxxxx.. #S\na1 #1\na2 #2\nfs #FS\n\n" +
		">MBFV-NC_2\nGGANNNNNNNUC\ns #S\na1 #1\na2 #2\n\n"
	assert.Equal(t, want, string(data))
}

const testAln = `CLUSTAL W --- LocARNA 2.0.0

MBFV-NC_1        GGGAUGCC-NNNNNNNUUUU
MBFV-NC_2        GGGAUGCCANNNNNNNUUUA
#A1              ...AAA...BBBBBBB....
#A2              ...123...1234567....
`

func TestReadAln(t *testing.T) {
	a, err := ReadAln(strings.NewReader(testAln))
	require.NoError(t, err)
	assert.Equal(t, []string{"MBFV-NC_1", "MBFV-NC_2"}, a.Names)
	assert.Equal(t, "GGGAUGCCANNNNNNNUUUA", a.Seqs["MBFV-NC_2"])
	assert.Equal(t, 17, a.Column)

	c, err := AlifoldConstraint(a)
	require.NoError(t, err)
	assert.Equal(t, ".<<<<<<<<xxxxxxx>>>>", c)
}

func TestReadAlnBlocks(t *testing.T) {
	text := "CLUSTAL W\n\nA  GG-\nB  GGA\n#A1  .AA\n\nA  CC\nB  CU\n#A1  BBBBBBB..\n"
	a, err := ReadAln(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "GG-CC", a.Seqs["A"])
	assert.Equal(t, ".AABBBBBBB..", a.Anchors["#A1"])

	c, err := AlifoldConstraint(a)
	require.NoError(t, err)
	assert.Equal(t, ".<<xxxxxxx>>", c)
}

func TestAlifoldConstraintErrors(t *testing.T) {
	a, err := ReadAln(strings.NewReader("CLUSTAL\n\nA  GG\n"))
	require.NoError(t, err)
	_, err = AlifoldConstraint(a)
	assert.ErrorIs(t, err, ErrNoAnchor)

	a.Anchors["#A1"] = "...AAA..."
	_, err = AlifoldConstraint(a)
	assert.Error(t, err)

	_, err = ReadAln(strings.NewReader("CLUSTAL\n\n"))
	assert.Error(t, err)
}

func TestConsensus(t *testing.T) {
	a, err := ReadAln(strings.NewReader(testAln))
	require.NoError(t, err)
	cons, prob := Consensus(a)
	assert.Equal(t, "GGGAUGCC-NNNNNNNUUUU", cons)
	assert.Equal(t, "99999999599999999995", prob)

	a, err = ReadAln(strings.NewReader("CLUSTAL\n\nA  G\nB  G\nC  A\n"))
	require.NoError(t, err)
	cons, prob = Consensus(a)
	assert.Equal(t, "G", cons)
	assert.Equal(t, "6", prob)
}

func TestWriteConsensus(t *testing.T) {
	dir := t.TempDir()
	aln := filepath.Join(dir, "result.aln")
	require.NoError(t, os.WriteFile(aln, []byte(testAln), 0o644))
	out := filepath.Join(dir, "MBFV_cons.txt")
	require.NoError(t, WriteConsensus(aln, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, testAln))
	assert.Contains(t, text, "#Consensus       GGGAUGCC-NNNNNNNUUUU\n")
	assert.Contains(t, text, "#Consensus_Prob  99999999599999999995\n")
}

// fakeTools imitates mlocarna, RNAalifold and ps2pdf on the file system.
func fakeTools(calls *[]runner.Command) runner.Runner {
	return runner.Func(func(_ context.Context, cmd runner.Command) (*runner.Result, error) {
		*calls = append(*calls, cmd)
		switch cmd.Binary {
		case "mlocarna":
			dir := filepath.Join(cmd.Args[3], "results")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			return &runner.Result{}, os.WriteFile(filepath.Join(dir, "result.aln"), []byte(testAln), 0o644)
		case "RNAalifold":
			for _, name := range []string{"alirna.ps", "aln.ps"} {
				if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte("%!PS\n"), 0o644); err != nil {
					return nil, err
				}
			}
		case "ps2pdf":
			return &runner.Result{}, os.WriteFile(cmd.Args[2], []byte("%PDF"), 0o644)
		}
		return &runner.Result{}, nil
	})
}

func TestDriverRun(t *testing.T) {
	var calls []runner.Command
	out := filepath.Join(t.TempDir(), "locARNA")
	d := &Driver{
		Tools:    &Tools{Runner: fakeTools(&calls), CarnaArgs: []string{"--pw-aligner=carna"}, Temperature: 18},
		Grouping: Grouping{SplitClasses: []string{"ISFV"}},
		Window:   testWindow,
	}

	names, err := d.Run(context.Background(), testRows(), structure.ModeInteraction, true, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"MBFV", "TBFV", "dISFV"}, names)

	for _, name := range names {
		assert.FileExists(t, filepath.Join(out, "locARNA_"+name+"_input.fa"))
		assert.FileExists(t, filepath.Join(out, name, "results", "alirna.ps"))
		assert.FileExists(t, filepath.Join(out, name+"_alirna.pdf"))
		assert.FileExists(t, filepath.Join(out, name+"_aln.pdf"))
	}

	require.Len(t, calls, 3*4)
	assert.Equal(t, []string{filepath.Join(out, "locARNA_MBFV_input.fa"), "--width=300", "--tgtdir", filepath.Join(out, "MBFV"), "--pw-aligner=carna"}, calls[0].Args)
	assert.Equal(t, ".<<<<<<<<xxxxxxx>>>>\n", calls[1].Stdin)
	assert.Contains(t, calls[1].Args, "--ribosum_scoring")
	assert.Equal(t, "18", calls[1].Args[len(calls[1].Args)-1])
	assert.Equal(t, []string{"-dEPSCrop", filepath.Join(out, "MBFV", "results", "alirna.ps"), filepath.Join(out, "MBFV_alirna.pdf")}, calls[2].Args)

	fasta, err := os.ReadFile(filepath.Join(out, "locARNA_MBFV_input.fa"))
	require.NoError(t, err)
	assert.Contains(t, string(fasta), ">MBFV-NC_1\nGGGAUGCCNNNNNNNUUUUUUUUUUUU\n")
	assert.Contains(t, string(fasta), " #FS\n")

	written, err := ConsensusAll(out, nil)
	require.NoError(t, err)
	assert.Len(t, written, 3)
	assert.FileExists(t, filepath.Join(out, "TBFV_cons.txt"))
}

func TestDriverToolFailure(t *testing.T) {
	d := &Driver{
		Tools: &Tools{Runner: runner.Func(func(_ context.Context, cmd runner.Command) (*runner.Result, error) {
			return nil, &runner.ExitError{Command: cmd, ExitCode: 1, Stderr: "bad input"}
		})},
		Window: testWindow,
	}
	_, err := d.Run(context.Background(), testRows()[:1], structure.ModeNone, false, t.TempDir())
	assert.ErrorContains(t, err, "mlocarna")
}

func TestToolsBinaryOverride(t *testing.T) {
	var binaries []string
	tools := &Tools{
		Runner: runner.Func(func(_ context.Context, cmd runner.Command) (*runner.Result, error) {
			binaries = append(binaries, cmd.Binary)
			return &runner.Result{}, nil
		}),
		MLocarnaBin: "/opt/locarna/bin/mlocarna",
		PsToPdfBin:  "/usr/local/bin/ps2pdf",
	}
	require.NoError(t, tools.MLocarna(context.Background(), "in.fa", t.TempDir(), false))
	require.NoError(t, tools.PsToPdf(context.Background(), "a.ps", "a.pdf"))
	assert.Equal(t, []string{"/opt/locarna/bin/mlocarna", "/usr/local/bin/ps2pdf"}, binaries)
}
