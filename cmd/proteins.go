package cmd

import "github.com/yech1990/mrri/internal/config"

var proteinsCmd = taskCmd("proteins",
	"Translate the start of every CDS",
	"Translates the first extra_bases_roi bases of every CDS with the standard code.",
	config.TaskProteins)

func init() {
	rootCmd.AddCommand(proteinsCmd)
}
