// Package genome builds the parameter table: one row per flavivirus genome
// with its UTR/CDS boundaries and the two flanking sequence windows handed
// to the interaction predictor.
package genome

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
)

// ErrNoUTR marks a bed6 annotation without the three UTR5/CDS/UTR3 records.
var ErrNoUTR = errors.New("annotation has no UTR data")

// Record is one genome of the database.
type Record struct {
	ID    string
	Class string
	Type  string
	Virus string

	UTR5Len int
	CDSLen  int
	UTR3Len int

	// Seq5 is the 5'UTR followed by the first extra bases of the CDS.
	Seq5 string
	// Seq3 is the last extra bases of the CDS followed by the 3'UTR.
	Seq3 string
}

// Group is the alignment group name: the class, or for split classes the
// type without its trailing letter.
func (r Record) Group(split []string) string {
	for _, c := range split {
		if r.Class == c && len(r.Type) > 0 {
			return r.Type[:len(r.Type)-1]
		}
	}
	return r.Class
}

// Bounds are the region lengths read from a bed6 annotation.
type Bounds struct {
	UTR5Len int
	CDSLen  int
	UTR3Len int
}

// ReadBed6 reads the UTR5, CDS and UTR3 end coordinates (third column) of a
// three-line bed6 file and converts them to region lengths.
func ReadBed6(path string) (Bounds, error) {
	file, err := os.Open(path)
	if err != nil {
		return Bounds{}, err
	}
	defer file.Close()

	var ends []int
	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return Bounds{}, fmt.Errorf("%s:%d: expected at least 3 columns", path, lines)
		}
		end, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return Bounds{}, fmt.Errorf("%s:%d: bad end coordinate: %w", path, lines, err)
		}
		ends = append(ends, end)
	}
	if err := scanner.Err(); err != nil {
		return Bounds{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(ends) != 3 {
		return Bounds{}, ErrNoUTR
	}
	b := Bounds{
		UTR5Len: ends[0],
		CDSLen:  ends[1] - ends[0],
		UTR3Len: ends[2] - ends[1],
	}
	if b.UTR5Len < 0 || b.CDSLen < 0 || b.UTR3Len < 0 {
		return Bounds{}, fmt.Errorf("%s: coordinates are not increasing", path)
	}
	return b, nil
}

// Builder scans a genome database directory.
type Builder struct {
	ExtraBases int
	Logger     *zap.Logger
}

// Build walks dir for <class>/<type>/<virus>/<id>.bed6 annotations with a
// sibling <id>.fa and returns the records sorted by ID. Annotations without
// UTR data are skipped.
func (b *Builder) Build(dir string) ([]Record, error) {
	logger := logging.OrNop(b.Logger)
	var records []Record
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".bed6") {
			return nil
		}
		rec, err := b.record(path)
		if errors.Is(err, ErrNoUTR) {
			logger.Debug("Skipping annotation without UTR data", zap.String("file", path))
			return nil
		}
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning database '%s': %w", dir, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	logger.Info("Parameter table built", zap.Int("genomes", len(records)))
	return records, nil
}

func (b *Builder) record(bedPath string) (Record, error) {
	bounds, err := ReadBed6(bedPath)
	if err != nil {
		return Record{}, err
	}
	dir := filepath.Dir(bedPath)
	id := strings.TrimSuffix(filepath.Base(bedPath), ".bed6")
	seq, err := ReadFasta(filepath.Join(dir, id+".fa"))
	if err != nil {
		return Record{}, err
	}
	seq5, seq3, err := Flanks(seq, bounds, b.ExtraBases)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", id, err)
	}

	// The database layout is <class>/<type>/<virus>/<id>.bed6.
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	for len(parts) < 3 {
		parts = append([]string{""}, parts...)
	}
	parts = parts[len(parts)-3:]

	return Record{
		ID:      id,
		Class:   parts[0],
		Type:    parts[1],
		Virus:   parts[2],
		UTR5Len: bounds.UTR5Len,
		CDSLen:  bounds.CDSLen,
		UTR3Len: bounds.UTR3Len,
		Seq5:    seq5,
		Seq3:    seq3,
	}, nil
}

// Flanks cuts the 5'UTR plus extra CDS bases from the start of seq and the
// extra CDS bases plus 3'UTR from its end.
func Flanks(seq string, b Bounds, extra int) (string, string, error) {
	n5 := b.UTR5Len + extra
	n3 := b.UTR3Len + extra
	if n5 > len(seq) || n3 > len(seq) {
		return "", "", fmt.Errorf("sequence of length %d is shorter than the requested flanks (%d, %d)", len(seq), n5, n3)
	}
	return seq[:n5], seq[len(seq)-n3:], nil
}

// WriteStaticParameters writes the IntaRNA parameter file shared by every
// predictor call.
func WriteStaticParameters(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
