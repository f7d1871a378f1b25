package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/liamg/tml"
	"github.com/spf13/cobra"

	"github.com/yech1990/mrri/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init <config.yaml>",
	Short: "Write the default configuration",
	Long:  `Writes the default configuration as YAML, to be edited and passed back with --config.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil && !initForce {
			color.Yellow("%s exists, use --force to overwrite it", path)
			return fmt.Errorf("config file '%s' exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Println(tml.Sprintf("Default config written to <bold>%s</bold>", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}
