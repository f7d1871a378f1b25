package genome

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// ReadFasta returns the sequence of the first record in path. Files ending
// in .gz are decompressed on the fly.
func ReadFasta(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("creating gzip reader for %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	sc := seqio.NewScanner(fasta.NewReader(reader, linear.NewSeq("", nil, alphabet.DNAredundant)))
	if !sc.Next() {
		if err := sc.Error(); err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return "", fmt.Errorf("%s: no FASTA record", path)
	}
	s := sc.Seq().(*linear.Seq)
	return s.Seq.String(), nil
}

// WriteUTR3Fasta writes the bare 3'UTR of every record, named by genome ID.
// It is the sequence database searched with the covariance models.
func WriteUTR3Fasta(records []Record, extra int, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, r := range records {
		utr := r.Seq3
		if extra <= len(utr) {
			utr = utr[extra:]
		}
		if _, err := fmt.Fprintf(file, ">%s\n%s\n", r.ID, utr); err != nil {
			return err
		}
	}
	return file.Close()
}
