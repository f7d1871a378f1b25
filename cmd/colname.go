package cmd

import (
	"fmt"
	"os"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"
)

var colnameCmd = &cobra.Command{
	Use:   "colname [table]",
	Short: "List the columns of a table",
	Long:  `Lists the column names of a pipeline table with the values of the first two data rows. Reads stdin without a file. Supports gzip.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "-"
		if len(args) == 1 {
			filename = args[0]
		}
		records, err := readRecords(filename)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("%s is empty", filename)
		}

		t := table.New(os.Stdout)
		t.SetHeaders("index", "name", "1st", "2nd")
		t.SetHeaderStyle(table.StyleBold)
		t.SetLineStyle(table.StyleBlue)
		t.SetDividers(table.UnicodeRoundedDividers)
		for _, row := range transpose(records, 2) {
			t.AddRow(row...)
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(colnameCmd)
}

// transpose returns one row per column: its index, its name and its value
// in the first n data rows.
func transpose(records [][]string, n int) [][]string {
	out := make([][]string, len(records[0]))
	for i, name := range records[0] {
		out[i] = []string{fmt.Sprintf("%d", i+1), name}
		for r := 1; r <= n; r++ {
			value := ""
			if r < len(records) && i < len(records[r]) {
				value = shorten(records[r][i], 40)
			}
			out[i] = append(out[i], value)
		}
	}
	return out
}
