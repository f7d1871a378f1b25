package cmd

import "github.com/yech1990/mrri/internal/config"

var consensusCmd = taskCmd("consensus",
	"Add consensus lines to every alignment",
	`Copies every result.aln below the alignment directories to
<group>_cons.txt with a #Consensus line and a #Consensus_Prob line holding the
first decimal of each column's majority frequency.`,
	config.TaskConsensus)

func init() {
	rootCmd.AddCommand(consensusCmd)
}
