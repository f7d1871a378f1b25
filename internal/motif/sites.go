package motif

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yech1990/mrri/internal/plots"
	"github.com/yech1990/mrri/internal/results"
)

// Site is a motif occurrence: 1-based, inclusive positions within the named
// input sequence.
type Site struct {
	Name  string
	Start int
	End   int
}

// ParseMeme reads the sites of the first motif in a MEME text report. The
// motif width is taken from the MOTIF line.
func ParseMeme(r io.Reader) ([]Site, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	width := 0
	inSites := false
	var sites []Site
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		switch {
		case width == 0 && len(fields) > 0 && fields[0] == "MOTIF":
			w, err := memeWidth(fields)
			if err != nil {
				return nil, err
			}
			width = w
		case width > 0 && !inSites && strings.HasPrefix(line, "Sequence name") && strings.Contains(line, "P-value"):
			inSites = true
		case inSites && strings.HasPrefix(line, "--------------"):
			return sites, sc.Err()
		case inSites && len(fields) >= 3 && !strings.HasPrefix(fields[0], "-"):
			i := 1
			if fields[1] == "+" || fields[1] == "-" {
				i = 2
			}
			start, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, fmt.Errorf("site start %q: %w", fields[i], err)
			}
			sites = append(sites, Site{Name: fields[0], Start: start, End: start + width - 1})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if width == 0 {
		return nil, fmt.Errorf("no MOTIF line")
	}
	return sites, nil
}

func memeWidth(fields []string) (int, error) {
	for i := 0; i+2 < len(fields); i++ {
		if fields[i] == "width" && fields[i+1] == "=" {
			return strconv.Atoi(fields[i+2])
		}
	}
	return 0, fmt.Errorf("MOTIF line without width: %s", strings.Join(fields, " "))
}

// ParseGlam2 reads the aligned sites of the first motif in a GLAM2 text
// report. Site rows follow the line of stars that marks the key positions
// and end at the first blank or indented line.
func ParseGlam2(r io.Reader) ([]Site, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	inSites := false
	var sites []Site
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if !inSites {
			inSites = trimmed != "" && strings.Trim(trimmed, "*.") == "" && strings.Contains(trimmed, "*")
			continue
		}
		if trimmed == "" || line[0] == ' ' || line[0] == '\t' {
			break
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("short GLAM2 site line: %s", line)
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("site start %q: %w", fields[1], err)
		}
		end, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("site end %q: %w", fields[3], err)
		}
		sites = append(sites, Site{Name: fields[0], Start: start, End: end})
	}
	return sites, sc.Err()
}

// ReadSites parses a meme.txt or glam2.txt report.
func ReadSites(path string) ([]Site, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var sites []Site
	switch filepath.Base(path) {
	case "meme.txt":
		sites, err = ParseMeme(file)
	case "glam2.txt":
		sites, err = ParseGlam2(file)
	default:
		return nil, fmt.Errorf("%s: not a MEME or GLAM2 report", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sites, nil
}

// Locate maps sites found in the interaction windows of one side ("5" or
// "3") back to offsets of seq5 or seq3, keyed by genome ID. Sequences are
// matched by ID or by <class>-<ID>; unknown names are skipped.
func Locate(rows []results.Row, sites []Site, side string, extraBases, half int) map[string][]plots.Span {
	from := map[string]int{}
	ids := map[string]string{}
	for _, row := range rows {
		c5, c3, ok := centers(row, extraBases)
		if !ok {
			continue
		}
		c := c5
		if side == "3" {
			c = c3
		}
		if c -= half; c < 0 {
			c = 0
		}
		from[row.ID] = c
		ids[row.ID] = row.ID
		ids[row.Class+"-"+row.ID] = row.ID
	}

	spans := map[string][]plots.Span{}
	for _, s := range sites {
		id, ok := ids[s.Name]
		if !ok {
			continue
		}
		off := from[id]
		spans[id] = append(spans[id], plots.Span{From: off + s.Start - 1, To: off + s.End})
	}
	return spans
}
