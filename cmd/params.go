package cmd

import "github.com/yech1990/mrri/internal/config"

var paramsCmd = taskCmd("params",
	"Build the parameter table from the genome database",
	`Writes the static IntaRNA parameter file and scans the database for
<class>/<type>/<virus>/<id>.bed6 annotations with their FASTA genome. Genomes
without annotated UTRs are skipped.`,
	config.TaskParameterTables)

func init() {
	rootCmd.AddCommand(paramsCmd)
}
