package cmd

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aquasecurity/table"
	"github.com/liamg/tml"
	"github.com/spf13/cobra"
)

var (
	maxRows    int
	maxColumns int
	maxWidth   int
)

var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Preview a pipeline table",
	Long:  `Preview a CSV table (TSV with a .tsv suffix, gzip with .gz) in a pretty way. Long cells such as sequences are shortened.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("%s is empty", args[0])
		}
		renderTable(os.Stdout, records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&maxRows, "rows", "r", 10, "Maximum number of rows to display")
	showCmd.Flags().IntVarP(&maxColumns, "columns", "n", 10, "Maximum number of columns to display")
	showCmd.Flags().IntVarP(&maxWidth, "width", "w", 30, "Maximum cell width")
}

// readRecords reads a whole CSV or TSV table.
func readRecords(filename string) ([][]string, error) {
	var input io.Reader = os.Stdin
	if filename != "-" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", filename, err)
		}
		defer file.Close()
		input = file
		if strings.HasSuffix(filename, ".gz") {
			gzipReader, err := gzip.NewReader(file)
			if err != nil {
				return nil, fmt.Errorf("opening gzip file %s: %w", filename, err)
			}
			defer gzipReader.Close()
			input = gzipReader
		}
	}
	r := csv.NewReader(input)
	if strings.HasSuffix(strings.TrimSuffix(filename, ".gz"), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return records, nil
}

func toSuperscript(num int) string {
	superscripts := []string{"⁰", "¹", "²", "³", "⁴", "⁵", "⁶", "⁷", "⁸", "⁹"}
	result := ""
	for num > 0 {
		digit := num % 10
		result = superscripts[digit] + result
		num /= 10
	}
	return result
}

func shorten(cell string, width int) string {
	if width < 2 || len(cell) <= width {
		return cell
	}
	return cell[:width-1] + "…"
}

// preview keeps the header, the first and last rows around an ellipsis row,
// and the first columns.
func preview(records [][]string, rows, columns int) [][]string {
	clip := func(row []string) []string {
		if columns > 0 && len(row) > columns {
			return row[:columns]
		}
		return row
	}
	out := [][]string{clip(records[0])}
	body := records[1:]
	if rows <= 0 || len(body) <= rows {
		for _, row := range body {
			out = append(out, clip(row))
		}
		return out
	}
	head := rows/2 + rows%2
	for _, row := range body[:head] {
		out = append(out, clip(row))
	}
	ellipsisRow := make([]string, len(out[0]))
	for i := range ellipsisRow {
		ellipsisRow[i] = "..."
	}
	out = append(out, ellipsisRow)
	for _, row := range body[len(body)-rows/2:] {
		out = append(out, clip(row))
	}
	return out
}

func renderTable(w io.Writer, records [][]string) {
	rows := preview(records, maxRows, maxColumns)

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = tml.Sprintf("<blue>%s</blue>", header) + toSuperscript(i+1)
	}

	t := table.New(w)
	t.SetHeaders(headers...)
	t.SetHeaderStyle(table.StyleBold)
	t.SetLineStyle(table.StyleBlue)
	t.SetDividers(table.UnicodeRoundedDividers)

	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = shorten(row[i], maxWidth)
			}
		}
		t.AddRow(cells...)
	}
	t.Render()
}
