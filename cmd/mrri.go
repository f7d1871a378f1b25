package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/mrri"
)

var mrriMode int

var mrriCmd = &cobra.Command{
	Use:   "mrri",
	Short: "Multi-round constrained interaction search",
	Long: `Reruns IntaRNA up to max_rounds times per genome, each round blocking the
regions of the earlier interactions. Mode 1 searches the whole 5' end against
the whole 3' end, mode 2 the UTR5/CDS transition against the end of the
3'UTR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := mrri.ParseMode(mrriMode)
		if err != nil {
			return err
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		if err := p.MRRI(cmd.Context(), mode); err != nil {
			return fmt.Errorf("MRRI mode %d: %w", mode, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mrriCmd)
	mrriCmd.Flags().IntVarP(&mrriMode, "mode", "m", 2, "Region mode (1 full, 2 transition)")
}
