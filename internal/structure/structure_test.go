package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yech1990/mrri/internal/genome"
	"github.com/yech1990/mrri/internal/results"
)

var testWindow = Window{
	CDSLeft:       3,
	CDSRight:      5,
	Query3Width:   12,
	ExtraBases:    10,
	ExtraBasesROI: 5,
	PinnedLabels:  2,
}

// testRow has an 8 base 5'UTR and a 20 base 3'UTR, each with 10 CDS bases.
func testRow() results.Row {
	return results.Row{
		Record: genome.Record{
			ID:      "NC_1",
			UTR5Len: 8,
			UTR3Len: 20,
			Seq5:    "GGGGGGGG" + "AUGCCCCCCC",
			Seq3:    "CCCCCCCCCC" + "AAAAAAAA" + "UUUUUUUUUUUU",
		},
		PredictionsT: []results.Prediction{
			{Start: -3, End: 1, Structure: "((.("},
			{Start: 2, End: 3, Structure: "(("},
		},
		PredictionsQ: []results.Prediction{
			{Start: 15, End: 18, Structure: ").))"},
			{Start: -2, End: -1, Structure: "))"},
		},
	}
}

func TestIntegrate(t *testing.T) {
	assert.Equal(t, "..BB.", Integrate(".....", "..((.((", 'B'))
	assert.Equal(t, "A.BB.", Integrate("A....", "..bb", 'B'))
	assert.Equal(t, "AA..", place("....", -2, "((((", 'A'))
	assert.Equal(t, "....", place("....", -5, "((((", 'A'))
}

func TestFullStructure(t *testing.T) {
	fs5, fs3 := FullStructure(testRow(), testWindow)
	assert.Equal(t, ".....AA.ABB..", fs5)
	assert.Equal(t, "........bb"+strings.Repeat(".", 14)+"a.aa..", fs3)
}

func TestFullStructureLabelLimit(t *testing.T) {
	row := testRow()
	row.Seq3 = strings.Repeat("C", 60)
	row.PredictionsT = nil
	row.PredictionsQ = nil
	for i := 0; i < 30; i++ {
		row.PredictionsQ = append(row.PredictionsQ, results.Prediction{Start: i + 1, End: i + 1, Structure: ")"})
	}

	_, fs3 := FullStructure(row, testWindow)
	assert.Equal(t, MaxLabels, len(fs3)-strings.Count(fs3, "."))
	assert.Contains(t, fs3, "w")
	assert.False(t, strings.ContainsAny(fs3, "xyz{|}~"), fs3)
	assert.Equal(t, byte('w'), Label(MaxLabels-1, false))
}

func TestAnchors(t *testing.T) {
	a1, a2 := Anchors(testWindow, 4)
	assert.Equal(t, "...AAA..BBBBBBB....", a1)
	assert.Equal(t, "...123..1234567....", a2)
}

func TestBuildEntryModes(t *testing.T) {
	row := testRow()
	row.CMHit = &results.CMHit{From: 9, To: 12, Source: "MBFV"}

	tests := []struct {
		mode   Mode
		s      string
		fs     string
		skipFS bool
	}{
		{ModeNone, "........xxxxxxx............", "AA.ABB..xxxxxxx......a.aa..", false},
		{ModePaired, "<<<<<<<<xxxxxxx>>>>>>>>>>>>", "AA.ABB..xxxxxxx......a.aa..", false},
		{ModeCMHit, "xxxxxxxxxxxxxxx....xxxxxxxx", "AA.ABB..xxxxxxx......a.aa..", true},
		{ModeInteraction, "........xxxxxxx............", "...(.(..xxxxxxx......)..)..", false},
	}
	for _, tt := range tests {
		e, err := BuildEntry(row, tt.mode, testWindow)
		require.NoError(t, err, "mode %d", tt.mode)
		assert.Equal(t, "GGGAUGCC", e.Part5)
		assert.Equal(t, "UUUUUUUUUUUU", e.Part3)
		assert.Equal(t, "GGGAUGCCNNNNNNNUUUUUUUUUUUU", e.Sequence())
		assert.Equal(t, tt.s, e.S, "mode %d #S", tt.mode)
		assert.Equal(t, tt.fs, e.FS, "mode %d #FS", tt.mode)
		assert.Equal(t, tt.skipFS, e.SkipFS)
		assert.Len(t, e.A1, len(e.Sequence()))
		assert.Len(t, e.S, len(e.Sequence()))
	}
}

func TestBuildEntryErrors(t *testing.T) {
	_, err := BuildEntry(testRow(), ModeCMHit, testWindow)
	assert.ErrorIs(t, err, ErrNoCMHit)

	row := testRow()
	row.UTR5Len = 2
	_, err = BuildEntry(row, ModeNone, testWindow)
	assert.ErrorContains(t, err, "5' window")

	_, err = BuildEntry(testRow(), Mode(7), testWindow)
	assert.Error(t, err)
}

func TestResolveNesting(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		pinned int
		want   string
	}{
		{"crossing third label dropped", "A.B.C...b.a.c", 2, "(.(.....).).."},
		{"enclosing third label kept", "CAB..bac", 2, "(((..)))"},
		{"enclosed third label kept", "ABC..cba", 2, "(((..)))"},
		{"between pinned labels kept", "BCA..acb", 2, "(((..)))"},
		{"crossing second label dropped", "AB..ab", 1, "(...)."},
		{"pinned labels kept even when crossing", "AB..ab", 2, "((..))"},
		{"linker untouched", "A.xxx.a", 2, "(.xxx.)"},
		{"half label dropped", "AAC..aa", 2, "((...))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNesting(tt.in, tt.pinned))
		})
	}
}

func TestCombineWithSequence(t *testing.T) {
	assert.Equal(t, "(xxx)", CombineWithSequence("GNNNC", "(xxx)"))
	assert.Equal(t, ".xxx.", CombineWithSequence("ANNNC", "(xxx)"))
	assert.Equal(t, "(xxx)", CombineWithSequence("gnnnt", "(...)"))
	assert.Equal(t, ".(.)", CombineWithSequence("GGAC", "((.)"))
	assert.Equal(t, "...", CombineWithSequence("GCA", "..)"))
}

func TestBalanced(t *testing.T) {
	assert.True(t, Balanced("AA..aa(.)xxxxxxx"))
	assert.True(t, Balanced("BBb.b"))
	assert.False(t, Balanced("AAa"))
	assert.False(t, Balanced("(("))
	assert.False(t, Balanced("Yy"))
	assert.False(t, Balanced("A{a}"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(3)
	require.NoError(t, err)
	assert.Equal(t, ModeInteraction, m)
	_, err = ParseMode(4)
	assert.Error(t, err)
	_, err = ParseMode(-1)
	assert.Error(t, err)
}
