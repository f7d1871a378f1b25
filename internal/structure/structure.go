// Package structure synthesises the constraint lines handed to mlocarna.
//
// Every genome is aligned as a short 5' window around the start codon joined
// to the 3' end of its 3'UTR by a seven base linker. Predicted interactions
// are written into the constraint as letters, one letter per prediction:
// upper case on the 5' side and lower case on the 3' side. Letters are
// turned into brackets only when the interactions they stand for nest.
package structure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/results"
)

// Linker joins the two windows in constraint lines; SeqLinker joins them in
// the sequence line.
const (
	Linker    = "xxxxxxx"
	SeqLinker = "NNNNNNN"
)

// ErrNoCMHit is returned by BuildEntry for CM hit constraints on a row
// without hit.
var ErrNoCMHit = errors.New("row has no CM hit")

// Mode selects the #S constraint.
type Mode int

const (
	// ModeNone leaves both windows unconstrained.
	ModeNone Mode = iota
	// ModePaired pairs the 5' window as a whole with the 3' window.
	ModePaired
	// ModeCMHit blocks everything but the CM hit, without #FS line.
	ModeCMHit
	// ModeInteraction puts the nesting-resolved interactions into #FS.
	ModeInteraction
)

// ParseMode converts a command line mode number.
func ParseMode(n int) (Mode, error) {
	if n < int(ModeNone) || n > int(ModeInteraction) {
		return 0, fmt.Errorf("unknown constraint mode %d (want 0..3)", n)
	}
	return Mode(n), nil
}

// Window holds the window sizes around the two alignment anchors.
type Window struct {
	// CDSLeft bases before and CDSRight bases after the start codon.
	CDSLeft  int
	CDSRight int
	// Query3Width bases at the 3' end of seq3.
	Query3Width int

	ExtraBases    int
	ExtraBasesROI int

	// PinnedLabels are always converted to brackets in ModeInteraction.
	PinnedLabels int
}

// Entry is one sequence of a mlocarna input file.
type Entry struct {
	Name  string
	Part5 string
	Part3 string

	S  string
	A1 string
	A2 string
	FS string

	// SkipFS drops the #FS line, which would override #S.
	SkipFS bool
}

// Sequence returns the sequence line.
func (e Entry) Sequence() string {
	return e.Part5 + SeqLinker + e.Part3
}

// MaxLabels is the number of prediction labels, a..w. Labels stop before the
// linker letter x.
const MaxLabels = 23

// Label returns the letter of the i-th prediction on the 5' (upper case) or
// 3' side.
func Label(i int, upper bool) byte {
	if upper {
		return byte('A' + i)
	}
	return byte('a' + i)
}

// Integrate writes label into base wherever overlay is not '.'. Overlay
// positions past the end of base are ignored.
func Integrate(base, overlay string, label byte) string {
	b := []byte(base)
	for i := 0; i < len(overlay) && i < len(b); i++ {
		if overlay[i] != '.' {
			b[i] = label
		}
	}
	return string(b)
}

// place integrates structure at offset of base.
func place(base string, offset int, structure string, label byte) string {
	if offset < 0 {
		if -offset >= len(structure) {
			return base
		}
		structure = structure[-offset:]
		offset = 0
	}
	return Integrate(base, strings.Repeat(".", offset)+structure, label)
}

// FullStructure labels the first MaxLabels predictions of row on an all-dot
// string of the corresponding side. The 5' string covers seq5 up to the end
// of the CDS region of interest, the 3' string all of seq3.
func FullStructure(row results.Row, w Window) (string, string) {
	len5 := len(row.Seq5) - (w.ExtraBases - w.ExtraBasesROI)
	if len5 < 0 {
		len5 = 0
	}
	fs5 := strings.Repeat(".", len5)
	fs3 := strings.Repeat(".", len(row.Seq3))

	tidx := -(len(row.Seq5) - w.ExtraBases)
	qidx := -w.ExtraBases
	for i, p := range row.PredictionsT {
		if i >= MaxLabels {
			break
		}
		fs5 = place(fs5, intarna.ToOffset(p.Start, tidx), p.Structure, Label(i, true))
	}
	for i, p := range row.PredictionsQ {
		if i >= MaxLabels {
			break
		}
		fs3 = place(fs3, intarna.ToOffset(p.Start, qidx), p.Structure, Label(i, false))
	}
	return fs5, fs3
}

// cut returns s[from:to] clamped to s and padded with pad to to-from.
func cut(s string, from, to int, pad byte) string {
	width := to - from
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	var out string
	if from < to {
		out = s[from:to]
	}
	if len(out) < width {
		out += strings.Repeat(string(pad), width-len(out))
	}
	return out
}

// windows returns the 5' and 3' window bounds of row.
func (w Window) windows(row results.Row) (int, int, int) {
	from5 := row.UTR5Len - w.CDSLeft
	to5 := row.UTR5Len + w.CDSRight
	from3 := len(row.Seq3) - w.Query3Width
	if from3 < 0 {
		from3 = 0
	}
	return from5, to5, from3
}

// Anchors returns the #1 and #2 anchor lines: the start codon and the
// linker as anchored blocks.
func Anchors(w Window, len3 int) (string, string) {
	left := strings.Repeat(".", w.CDSLeft)
	mid := strings.Repeat(".", w.CDSRight-3)
	right := strings.Repeat(".", len3)
	return left + "AAA" + mid + "BBBBBBB" + right, left + "123" + mid + "1234567" + right
}

// BuildEntry builds the unnamed alignment entry of row for mode.
func BuildEntry(row results.Row, mode Mode, w Window) (Entry, error) {
	from5, to5, from3 := w.windows(row)
	if from5 < 0 || to5 > len(row.Seq5) {
		return Entry{}, fmt.Errorf("%s: 5' window %d..%d is outside seq5 of length %d", row.ID, from5, to5, len(row.Seq5))
	}
	part5 := row.Seq5[from5:to5]
	part3 := row.Seq3[from3:]

	fs5, fs3 := FullStructure(row, w)
	fs := cut(fs5, from5, to5, '.') + Linker + fs3[from3:]

	e := Entry{Part5: part5, Part3: part3, FS: fs}
	e.A1, e.A2 = Anchors(w, len(part3))

	dots := strings.Repeat(".", len(part5)) + Linker + strings.Repeat(".", len(part3))
	switch mode {
	case ModeNone:
		e.S = dots
	case ModePaired:
		e.S = strings.Repeat("<", len(part5)) + Linker + strings.Repeat(">", len(part3))
	case ModeCMHit:
		if row.CMHit == nil {
			return Entry{}, ErrNoCMHit
		}
		e.S = strings.Repeat("x", len(part5)) + Linker + cmConstraint(row, w.ExtraBases)[from3:]
		e.SkipFS = true
	case ModeInteraction:
		resolved := ResolveNesting(fs, w.PinnedLabels)
		e.FS = CombineWithSequence(e.Sequence(), resolved)
		e.S = dots
	default:
		return Entry{}, fmt.Errorf("unknown constraint mode %d", mode)
	}
	return e, nil
}

// cmConstraint blocks all of seq3 except the CM hit. Hit coordinates are
// 1-based within the bare 3'UTR.
func cmConstraint(row results.Row, extra int) string {
	b := []byte(strings.Repeat("x", len(row.Seq3)))
	for i := extra + row.CMHit.From - 1; i < extra+row.CMHit.To && i < len(b); i++ {
		if i >= 0 {
			b[i] = '.'
		}
	}
	return string(b)
}

// ResolveNesting turns prediction labels into brackets. The first pinned
// labels are always kept. A later label is kept only if its span, taken from
// the first occurrence of its upper and lower case letter, nests with the
// span of every label kept before it; otherwise it is blanked.
func ResolveNesting(s string, pinned int) string {
	type span struct{ open, close int }
	var kept []span
	keep := map[byte]bool{}

	for i := 0; i < MaxLabels; i++ {
		up, low := Label(i, true), Label(i, false)
		open := strings.IndexByte(s, up)
		closing := strings.IndexByte(s, low)
		if open < 0 && closing < 0 {
			continue
		}
		if i < pinned {
			keep[up] = true
			if open >= 0 && closing >= 0 {
				kept = append(kept, span{open, closing})
			}
			continue
		}
		if open < 0 || closing < 0 {
			continue
		}
		ok := true
		for _, k := range kept {
			encloses := open < k.open && closing > k.close
			enclosed := open > k.open && closing < k.close
			if !encloses && !enclosed {
				ok = false
				break
			}
		}
		if ok {
			keep[up] = true
			kept = append(kept, span{open, closing})
		}
	}

	b := []byte(s)
	for i, c := range b {
		switch {
		case c == 'x' || c == 'X':
		case c >= 'A' && c <= 'Z':
			if keep[c] {
				b[i] = '('
			} else {
				b[i] = '.'
			}
		case c >= 'a' && c <= 'z':
			if keep[c-'a'+'A'] {
				b[i] = ')'
			} else {
				b[i] = '.'
			}
		}
	}
	return string(b)
}

func canonical(a, b byte) bool {
	norm := func(c byte) byte {
		switch c {
		case 'a', 'A':
			return 'A'
		case 'c', 'C':
			return 'C'
		case 'g', 'G':
			return 'G'
		case 't', 'T', 'u', 'U':
			return 'U'
		}
		return 0
	}
	switch string([]byte{norm(a), norm(b)}) {
	case "AU", "UA", "GC", "CG", "GU", "UG":
		return true
	}
	return false
}

// CombineWithSequence adapts a bracket constraint to its sequence: linker
// positions (N) are blocked with 'x' and bracket pairs whose bases cannot
// pair, or that have no partner, are replaced by '.'.
func CombineWithSequence(seq, cons string) string {
	b := []byte(cons)
	var stack []int
	for i := range b {
		if i < len(seq) && (seq[i] == 'N' || seq[i] == 'n') {
			b[i] = 'x'
			continue
		}
		switch b[i] {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				b[i] = '.'
				continue
			}
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if i >= len(seq) || !canonical(seq[j], seq[i]) {
				b[i] = '.'
				b[j] = '.'
			}
		}
	}
	for _, j := range stack {
		b[j] = '.'
	}
	return string(b)
}

// Balanced reports whether s has as many '(' as ')' and, for every label
// letter, as many upper as lower case occurrences. The linker letter x is
// not a label. Any other character, y and z included, makes s unbalanced.
func Balanced(s string) bool {
	if strings.Count(s, "(") != strings.Count(s, ")") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.' || c == '(' || c == ')' || c == 'x' || c == 'X':
		case c >= 'a' && c < 'a'+MaxLabels, c >= 'A' && c < 'A'+MaxLabels:
		default:
			return false
		}
	}
	for i := 0; i < MaxLabels; i++ {
		up, low := Label(i, true), Label(i, false)
		if strings.Count(s, string(up)) != strings.Count(s, string(low)) {
			return false
		}
	}
	return true
}
