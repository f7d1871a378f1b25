package alignment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yech1990/mrri/internal/structure"
)

// Aln is a parsed CLUSTAL alignment as written by mlocarna. Blocks are
// concatenated per name.
type Aln struct {
	Names   []string
	Seqs    map[string]string
	Anchors map[string]string

	// Lines is the file content, kept for copying.
	Lines []string
	// Column is where the sequence column starts.
	Column int
}

// ReadAln parses a CLUSTAL alignment. Lines starting with '#' are anchor or
// constraint lines.
func ReadAln(r io.Reader) (*Aln, error) {
	a := &Aln{Seqs: map[string]string{}, Anchors: map[string]string{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		a.Lines = append(a.Lines, line)
		if strings.HasPrefix(line, "CLUSTAL") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name, seq := fields[0], fields[len(fields)-1]
		if strings.HasPrefix(line, "#") {
			a.Anchors[name] += seq
			continue
		}
		if _, ok := a.Seqs[name]; !ok {
			a.Names = append(a.Names, name)
		}
		a.Seqs[name] += seq
		if col := strings.LastIndex(line, seq); col > a.Column {
			a.Column = col
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(a.Names) == 0 {
		return nil, fmt.Errorf("no sequences in alignment")
	}
	return a, nil
}

func readAlnFile(path string) (*Aln, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	a, err := ReadAln(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return a, nil
}

// AlifoldConstraint derives the RNAalifold constraint from the #A1 anchor
// line: the 5' window pairs with the 3' window, the linker stays blocked.
func AlifoldConstraint(a *Aln) (string, error) {
	anchor, ok := a.Anchors["#A1"]
	if !ok {
		return "", ErrNoAnchor
	}
	left, right, found := strings.Cut(anchor, "BBBBBBB")
	if !found || left == "" {
		return "", fmt.Errorf("#A1 anchor has no linker block")
	}
	return "." + strings.Repeat("<", len(left)-1) + structure.Linker + strings.Repeat(">", len(right)), nil
}

// Consensus returns the majority symbol of every column and the first
// decimal digit of its frequency, 9 for unanimous columns. Ties go to the
// symbol seen first in the column.
func Consensus(a *Aln) (string, string) {
	width := 0
	for _, name := range a.Names {
		if n := len(a.Seqs[name]); n > width {
			width = n
		}
	}
	var cons, prob strings.Builder
	for i := 0; i < width; i++ {
		counts := map[byte]int{}
		var order []byte
		for _, name := range a.Names {
			s := a.Seqs[name]
			if i >= len(s) {
				continue
			}
			if counts[s[i]] == 0 {
				order = append(order, s[i])
			}
			counts[s[i]]++
		}
		best, bestN := byte('-'), 0
		for _, c := range order {
			if counts[c] > bestN {
				best, bestN = c, counts[c]
			}
		}
		digit := bestN * 10 / len(a.Names)
		if digit > 9 {
			digit = 9
		}
		cons.WriteByte(best)
		prob.WriteByte(byte('0' + digit))
	}
	return cons.String(), prob.String()
}

// WriteConsensus copies the alignment at alnPath to outPath and appends the
// #Consensus and #Consensus_Prob lines.
func WriteConsensus(alnPath, outPath string) error {
	a, err := readAlnFile(alnPath)
	if err != nil {
		return err
	}
	cons, prob := Consensus(a)

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	for _, line := range a.Lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%s%s\n", pad("#Consensus", a.Column), cons)
	fmt.Fprintf(w, "%s%s\n", pad("#Consensus_Prob", a.Column), prob)
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func pad(label string, column int) string {
	if n := column - len(label); n > 0 {
		return label + strings.Repeat(" ", n)
	}
	return label + " "
}
