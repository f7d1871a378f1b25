package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aquasecurity/table"
	"github.com/liamg/tml"
	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/results"
)

var summaryMetric string

var summaryCmd = &cobra.Command{
	Use:   "summary [tables...]",
	Short: "Compare prediction tables class by class",
	Long: `Reads one or more prediction tables and prints a matrix with the classes as
rows and the tables as columns. The metric is one of:
  genomes       genomes in the class
  interacting   genomes with at least one interaction
  rounds        mean number of interactions per interacting genome
  energy        mean energy of the first interaction
  cm            genomes with a CM hit`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, ok := metrics[summaryMetric]
		if !ok {
			return fmt.Errorf("unknown metric '%s'", summaryMetric)
		}
		data := make(map[string]map[string]string) // data[class][file]
		var classes []string
		for _, fileName := range args {
			rows, err := results.Read(fileName)
			if err != nil {
				return err
			}
			byClass := map[string][]results.Row{}
			for _, r := range rows {
				if _, seen := data[r.Class]; !seen {
					data[r.Class] = map[string]string{}
					classes = append(classes, r.Class)
				}
				byClass[r.Class] = append(byClass[r.Class], r)
			}
			for class, rs := range byClass {
				data[class][fileName] = metric(rs)
			}
		}

		t := table.New(os.Stdout)
		headers := append([]string{summaryMetric}, args...)
		for i := range headers {
			headers[i] = tml.Sprintf("<blue>%s</blue>", headers[i])
		}
		t.SetHeaders(headers...)
		t.SetHeaderStyle(table.StyleBold)
		t.SetLineStyle(table.StyleBlue)
		t.SetDividers(table.UnicodeRoundedDividers)
		for _, class := range classes {
			row := []string{class}
			for _, fileName := range args {
				if val, exists := data[class][fileName]; exists {
					row = append(row, tml.Sprintf("<green>%s</green>", val))
				} else {
					row = append(row, "N/A")
				}
			}
			t.AddRow(row...)
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&summaryMetric, "metric", "m", "interacting", "Metric to compare")
}

var metrics = map[string]func([]results.Row) string{
	"genomes": func(rows []results.Row) string {
		return strconv.Itoa(len(rows))
	},
	"interacting": func(rows []results.Row) string {
		n := 0
		for _, r := range rows {
			if r.HasInteraction() {
				n++
			}
		}
		return fmt.Sprintf("%d/%d", n, len(rows))
	},
	"rounds": func(rows []results.Row) string {
		n, total := 0, 0
		for _, r := range rows {
			if r.HasInteraction() {
				n++
				total += len(r.PredictionsT)
			}
		}
		if n == 0 {
			return "-"
		}
		return strconv.FormatFloat(float64(total)/float64(n), 'f', 2, 64)
	},
	"energy": func(rows []results.Row) string {
		n, sum := 0, 0.0
		for _, r := range rows {
			if r.HasInteraction() {
				n++
				sum += r.PredictionsT[0].Energy
			}
		}
		if n == 0 {
			return "-"
		}
		return strconv.FormatFloat(sum/float64(n), 'f', 2, 64)
	},
	"cm": func(rows []results.Row) string {
		n := 0
		for _, r := range rows {
			if r.CMHit != nil {
				n++
			}
		}
		return fmt.Sprintf("%d/%d", n, len(rows))
	},
}
