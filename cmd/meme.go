package cmd

import "github.com/yech1990/mrri/internal/config"

var memeCmd = taskCmd("meme",
	"Write interaction windows for MEME",
	"Writes 15 bases around the centre of the optimal interaction of every genome, one FASTA file per class and side.",
	config.TaskMemePrep)

var memePlotCmd = taskCmd("sites",
	"Draw MEME and GLAM2 sites on line plots",
	`Reads <meme>/<class>_5/meme.txt, <class>_3/meme.txt and the matching
glam2.txt reports, maps the sites back onto the genomes and draws them on
one line plot of the second MRRI run per class and tool.`,
	config.TaskMemeLineplots)

func init() {
	memeCmd.AddCommand(memePlotCmd)
	rootCmd.AddCommand(memeCmd)
}
