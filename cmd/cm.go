package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/config"
)

var cmCmd = &cobra.Command{
	Use:   "cm",
	Short: "Covariance models of the 3' stem-loop",
}

var cmBuildCmd = taskCmd("build",
	"Build covariance models from Stockholm alignments",
	"Runs cmbuild on every 3SL alignment and cmcalibrate on the result when calibrate is set. Calibration takes hours.",
	config.TaskCreateCMs)

var cmSearchCmd = taskCmd("search",
	"Search the 3'UTRs with every covariance model",
	"Writes the 3'UTRs to FASTA, runs cmsearch per model and adds the best hit of every genome to the IntaRNA table.",
	config.TaskCMSearch)

func init() {
	rootCmd.AddCommand(cmCmd)
	cmCmd.AddCommand(cmBuildCmd, cmSearchCmd)
}
