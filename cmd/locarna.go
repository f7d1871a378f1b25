package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/structure"
)

var (
	locarnaMode   int
	locarnaCarna  bool
	locarnaInput  string
	locarnaOutput string
)

var locarnaCmd = &cobra.Command{
	Use:   "locarna",
	Short: "Align the genome ends of a prediction table",
	Long: `Cuts the start codon window and the 3' end of every genome with a CM hit,
joins them with a linker and aligns each group with mlocarna, then folds the
alignment with RNAalifold. Modes: 0 unconstrained, 1 5' paired with 3',
2 3' blocked outside the CM hit, 3 constrained by the resolved interactions.
Without --input and --output the IntaRNA table and the locarna directory of
the config are used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := structure.ParseMode(locarnaMode)
		if err != nil {
			return err
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		input, output := locarnaInput, locarnaOutput
		if input == "" {
			input = p.Config.Paths.CMSearch
		}
		if output == "" {
			output = p.Config.Paths.LocARNA
		}
		if err := p.Align(cmd.Context(), input, mode, locarnaCarna, output); err != nil {
			return fmt.Errorf("aligning %s: %w", input, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(locarnaCmd)
	locarnaCmd.Flags().IntVarP(&locarnaMode, "mode", "m", 1, "Constraint mode (0-3)")
	locarnaCmd.Flags().BoolVar(&locarnaCarna, "carna", false, "Align with CARNA")
	locarnaCmd.Flags().StringVarP(&locarnaInput, "input", "i", "", "Prediction table")
	locarnaCmd.Flags().StringVarP(&locarnaOutput, "output", "o", "", "Output directory")
}
