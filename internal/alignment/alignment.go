// Package alignment groups genomes, writes the constrained mlocarna input
// files and drives mlocarna, RNAalifold and ps2pdf over every group.
package alignment

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/results"
	"github.com/yech1990/mrri/internal/structure"
)

// Grouping decides which alignment every genome ends up in.
type Grouping struct {
	// SplitClasses are grouped by type minus its last letter.
	SplitClasses []string
	// Combined groups are the union of the named groups.
	Combined map[string][]string
}

// Groups builds the entries of every row with a CM hit and sorts them into
// groups. Entries are named <group>-<id>; combined groups reuse the entries
// of their members.
func (g Grouping) Groups(rows []results.Row, mode structure.Mode, w structure.Window, logger *zap.Logger) map[string][]structure.Entry {
	logger = logging.OrNop(logger)
	groups := map[string][]structure.Entry{}
	for _, row := range rows {
		if row.CMHit == nil {
			logger.Debug("Skipping genome without CM hit", zap.String("id", row.ID))
			continue
		}
		e, err := structure.BuildEntry(row, mode, w)
		if err != nil {
			logger.Warn("Skipping genome", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		if !e.SkipFS && !structure.Balanced(e.FS) {
			logger.Warn("FS constraint unbalanced", zap.String("id", row.ID))
		}
		group := row.Group(g.SplitClasses)
		e.Name = group + "-" + row.ID
		groups[group] = append(groups[group], e)
	}

	names := make([]string, 0, len(g.Combined))
	for name := range g.Combined {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var merged []structure.Entry
		for _, member := range g.Combined[name] {
			merged = append(merged, groups[member]...)
		}
		if len(merged) > 0 {
			groups[name] = merged
		}
	}
	return groups
}

// SortedNames returns the group names in a stable order.
func SortedNames(groups map[string][]structure.Entry) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteFasta writes entries as a mlocarna input file with the #S, #1, #2
// and, unless skipped, #FS constraint lines.
func WriteFasta(entries []structure.Entry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, e := range entries {
		if e.Part5 == "" || e.Part3 == "" {
			continue
		}
		fmt.Fprintf(w, ">%s\n%s\n", e.Name, e.Sequence())
		fmt.Fprintf(w, "%s #S\n%s #1\n%s #2\n", e.S, e.A1, e.A2)
		if !e.SkipFS {
			fmt.Fprintf(w, "%s #FS\n", e.FS)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// ErrNoAnchor is returned when an alignment has no #A1 anchor line.
var ErrNoAnchor = errors.New("alignment has no #A1 anchor line")
