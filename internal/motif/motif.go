// Package motif prepares inputs for motif discovery and protein alignment:
// windows around the optimal interaction of every genome and the
// translated start of every CDS.
package motif

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bebop/poly/synthesis/codon"

	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/results"
)

// Sequence is one FASTA record.
type Sequence struct {
	Name string
	Seq  string
}

// WriteFasta writes sequences as FASTA records separated by a blank line.
// Empty sequences are left out.
func WriteFasta(seqs []Sequence, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	for _, s := range seqs {
		if s.Seq == "" {
			continue
		}
		fmt.Fprintf(w, ">%s\n%s\n\n", s.Name, s.Seq)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func window(seq string, center, half int) string {
	from, to := center-half, center+half
	if from < 0 {
		from = 0
	}
	if to > len(seq) {
		to = len(seq)
	}
	if from >= to {
		return ""
	}
	return seq[from:to]
}

// centers returns the seq5 and seq3 offsets of the centre of the optimal
// interaction of row.
func centers(row results.Row, extraBases int) (int, int, bool) {
	if !row.HasInteraction() {
		return 0, 0, false
	}
	t, q := row.PredictionsT[0], row.PredictionsQ[0]
	tidx := -(len(row.Seq5) - extraBases)
	qidx := -extraBases
	c5 := (intarna.ToOffset(t.Start, tidx) + intarna.ToOffset(t.End, tidx) + 1) / 2
	c3 := (intarna.ToOffset(q.Start, qidx) + intarna.ToOffset(q.End, qidx) + 1) / 2
	return c5, c3, true
}

// Windows returns half bases on both sides of the centre of the optimal
// interaction of row, on the 5' and on the 3' flank.
func Windows(row results.Row, extraBases, half int) (string, string, bool) {
	c5, c3, ok := centers(row, extraBases)
	if !ok {
		return "", "", false
	}
	return window(row.Seq5, c5, half), window(row.Seq3, c3, half), true
}

// MemeWindows writes <dir>/<class>_5.fa and <dir>/<class>_3.fa with the
// interaction windows of every genome and returns the written files.
func MemeWindows(rows []results.Row, extraBases, half int, dir string) ([]string, error) {
	side5 := map[string][]Sequence{}
	side3 := map[string][]Sequence{}
	for _, row := range rows {
		w5, w3, ok := Windows(row, extraBases, half)
		if !ok {
			continue
		}
		side5[row.Class] = append(side5[row.Class], Sequence{row.ID, w5})
		side3[row.Class] = append(side3[row.Class], Sequence{row.ID, w3})
	}
	classes := make([]string, 0, len(side5))
	for class := range side5 {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var written []string
	for _, class := range classes {
		for side, seqs := range map[string][]Sequence{"5": side5[class], "3": side3[class]} {
			path := filepath.Join(dir, class+"_"+side+".fa")
			if err := WriteFasta(seqs, path); err != nil {
				return written, fmt.Errorf("writing %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	sort.Strings(written)
	return written, nil
}

// Translator translates the start of every CDS with one codon table.
type Translator struct {
	table *codon.TranslationTable
}

// NewTranslator uses the NCBI translation table with the given index, 1
// being the standard code.
func NewTranslator(index int) (*Translator, error) {
	table, err := codon.NewTranslationTable(index)
	if err != nil {
		return nil, fmt.Errorf("translation table %d: %w", index, err)
	}
	return &Translator{table: table}, nil
}

// CDSStart returns the first length bases of the CDS of row cut to whole
// codons.
func CDSStart(row results.Row, length int) string {
	from := row.UTR5Len
	to := from + length
	if to > len(row.Seq5) {
		to = len(row.Seq5)
	}
	if from >= to {
		return ""
	}
	cds := row.Seq5[from:to]
	return cds[:len(cds)-len(cds)%3]
}

// Translate returns the protein encoded by the first length bases of the
// CDS of row.
func (t *Translator) Translate(row results.Row, length int) (string, error) {
	cds := strings.ReplaceAll(strings.ToUpper(CDSStart(row, length)), "U", "T")
	if cds == "" {
		return "", nil
	}
	protein, err := t.table.Translate(cds)
	if err != nil {
		return "", fmt.Errorf("translating %s: %w", row.ID, err)
	}
	return protein, nil
}

// TranslateCDS writes the translated CDS starts of rows to path as FASTA
// records named <class>-<id>.
func TranslateCDS(rows []results.Row, length int, path string) error {
	t, err := NewTranslator(1)
	if err != nil {
		return err
	}
	seqs := make([]Sequence, 0, len(rows))
	for _, row := range rows {
		protein, err := t.Translate(row, length)
		if err != nil {
			return err
		}
		seqs = append(seqs, Sequence{Name: row.Class + "-" + row.ID, Seq: protein})
	}
	return WriteFasta(seqs, path)
}
