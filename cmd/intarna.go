package cmd

import "github.com/yech1990/mrri/internal/config"

var intarnaCmd = taskCmd("intarna",
	"Predict the interactions of every genome with IntaRNA",
	`Runs IntaRNA on the 5' end against the 3' end of every genome in the
parameter table and keeps the optimal and out_number-1 suboptimal
interactions.`,
	config.TaskIntaRNA)

func init() {
	rootCmd.AddCommand(intarnaCmd)
}
