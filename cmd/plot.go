package cmd

import (
	"fmt"

	"github.com/liamg/tml"
	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/plots"
	"github.com/yech1990/mrri/internal/results"
)

var (
	plotOutput string
	energyDir  string
	plotBox    bool
	plotNoCM   bool
	plotTitle  string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw interaction plots",
}

var plotLinesCmd = &cobra.Command{
	Use:   "lines <table>",
	Short: "Line plot of the interactions of every genome",
	Long: `Draws every genome as a line on two panels, bases after the 5' end on
top and bases before the 3' end below. Interactions are red, UTRs cyan, the
CDS region of interest grey and CM hits green.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rows, err := results.Read(args[0])
		if err != nil {
			return err
		}
		o := plots.Options{
			ExtraBases:    cfg.IntaRNA.ExtraBases,
			ExtraBasesROI: cfg.IntaRNA.ExtraBasesROI,
			CMHits:        !plotNoCM,
			QueryBox:      plotBox,
			QueryFrom:     cfg.MRRI.QueryFromEnd,
			QueryTo:       cfg.MRRI.QueryToEnd,
			Title:         plotTitle,
		}
		if err := plots.LinePlot(rows, plotOutput, o); err != nil {
			return fmt.Errorf("drawing %s: %w", plotOutput, err)
		}
		fmt.Println(tml.Sprintf("<green>%d genomes</green> drawn to <bold>%s</bold>", len(rows), plotOutput))
		return nil
	},
}

var plotEnergyCmd = &cobra.Command{
	Use:   "energy <table>",
	Short: "Energy histograms per class",
	Long: `Draws one histogram per class and per region of the first interaction
(0 starts in the 5'UTR, 1 in the CDS), stacked by interaction number.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := results.Read(args[0])
		if err != nil {
			return err
		}
		written, err := plots.EnergyHistograms(rows, energyDir)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Println(tml.Sprintf("<green>%s</green>", path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.AddCommand(plotLinesCmd, plotEnergyCmd)
	plotLinesCmd.Flags().StringVarP(&plotOutput, "output", "o", "interaction_lineplot.png", "PNG file")
	plotLinesCmd.Flags().BoolVar(&plotBox, "box", false, "Mark the 3' region of the transition mode")
	plotLinesCmd.Flags().BoolVar(&plotNoCM, "no-cm", false, "Leave out CM hits")
	plotLinesCmd.Flags().StringVarP(&plotTitle, "title", "t", "", "Plot title")
	plotEnergyCmd.Flags().StringVarP(&energyDir, "output", "o", ".", "Output directory")
}
