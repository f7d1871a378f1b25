// Package intarna drives the IntaRNA interaction predictor: it builds the
// argument vector for a 5'UTR/3'UTR pair, runs the binary and parses its
// semicolon separated CSV output.
package intarna

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoInteraction is returned when IntaRNA reports no interaction.
var ErrNoInteraction = errors.New("no interaction found")

// Interaction is one row of IntaRNA CSV output. Coordinates are IntaRNA
// indices, relative to the idxpos0 the call was made with.
type Interaction struct {
	TargetID string
	Start1   int
	End1     int
	QueryID  string
	Start2   int
	End2     int
	SubseqDP string
	HybridDP string
	E        float64
	EHybrid  float64
	ED1      float64
	ED2      float64
}

// Halves splits the hybrid dot-bracket into its target and query parts.
func (i Interaction) Halves() (string, string) {
	t, q, _ := strings.Cut(i.HybridDP, "&")
	return t, q
}

// Region is an inclusive index range.
type Region struct {
	Start int
	End   int
}

func (r Region) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Block renders r as an accessibility constraint block.
func (r Region) Block() string {
	return "b:" + r.String()
}

// Options are the arguments of one IntaRNA call.
type Options struct {
	Target        string
	Query         string
	TargetID      string
	QueryID       string
	TargetIdxPos0 int
	QueryIdxPos0  int
	TargetRegion  Region
	QueryRegion   Region
	ParameterFile string

	// OutNumber and OutOverlap request suboptimal interactions when
	// OutNumber is positive.
	OutNumber  int
	OutOverlap string

	// N is passed as -n when positive.
	N int

	CsvCols []string

	TargetAccConstr string
	QueryAccConstr  string
}

// Args returns the command line arguments for o.
func (o Options) Args() []string {
	args := []string{
		"-t", o.Target,
		"-q", o.Query,
		"--tidxpos0", strconv.Itoa(o.TargetIdxPos0),
		"--qidxpos0", strconv.Itoa(o.QueryIdxPos0),
		"--tregion", o.TargetRegion.String(),
		"--qregion", o.QueryRegion.String(),
		"--tId", o.TargetID,
		"--qId", o.QueryID,
	}
	if o.ParameterFile != "" {
		args = append(args, "--parameterFile", o.ParameterFile)
	}
	args = append(args, "--outMode", "C")
	if o.N > 0 {
		args = append(args, "-n", strconv.Itoa(o.N))
	}
	if o.OutNumber > 0 {
		args = append(args, "--outNumber", strconv.Itoa(o.OutNumber))
		if o.OutOverlap != "" {
			args = append(args, "--outOverlap", o.OutOverlap)
		}
	}
	if len(o.CsvCols) > 0 {
		args = append(args, "--outCsvCols", strings.Join(o.CsvCols, ","))
	}
	if o.TargetAccConstr != "" {
		args = append(args, "--tAccConstr", o.TargetAccConstr)
	}
	if o.QueryAccConstr != "" {
		args = append(args, "--qAccConstr", o.QueryAccConstr)
	}
	return args
}

// ParseCSV parses IntaRNA --outMode C output. The first non-empty line is the
// header; columns not known to Interaction are ignored and missing numeric
// columns stay zero.
func ParseCSV(text string) ([]Interaction, error) {
	var header []string
	var out []Interaction
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if header == nil {
			header = fields
			continue
		}
		if len(fields) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", n+1, len(fields), len(header))
		}
		var in Interaction
		for i, name := range header {
			if err := in.set(strings.TrimSpace(name), strings.TrimSpace(fields[i])); err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func (in *Interaction) set(column, value string) error {
	var err error
	switch column {
	case "id1":
		in.TargetID = value
	case "id2":
		in.QueryID = value
	case "start1":
		in.Start1, err = strconv.Atoi(value)
	case "end1":
		in.End1, err = strconv.Atoi(value)
	case "start2":
		in.Start2, err = strconv.Atoi(value)
	case "end2":
		in.End2, err = strconv.Atoi(value)
	case "subseqDP":
		in.SubseqDP = value
	case "hybridDP":
		in.HybridDP = value
	case "E":
		in.E, err = parseEnergy(value)
	case "E_hybrid":
		in.EHybrid, err = parseEnergy(value)
	case "ED1":
		in.ED1, err = parseEnergy(value)
	case "ED2":
		in.ED2, err = parseEnergy(value)
	}
	if err != nil {
		return fmt.Errorf("column %s: %w", column, err)
	}
	return nil
}

func parseEnergy(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

// ToOffset converts an IntaRNA index into a 0-based offset of the input
// sequence. With a negative idxpos0 IntaRNA skips index 0, so positive
// indices sit one position closer to the start.
func ToOffset(idx, idxpos0 int) int {
	off := idx - idxpos0
	if idxpos0 < 0 && idx > 0 {
		off--
	}
	return off
}
