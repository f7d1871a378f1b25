package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/config"
)

var runTasks []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline",
	Long: `Runs every task enabled in the config, in order:
  ` + strings.Join(config.TaskOrder, "\n  ") + `
With --task only the named tasks run, still in that order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		logger.Info("Pipeline started", zap.String("run", p.RunID), zap.Int("workers", p.Config.Workers))
		if len(runTasks) == 0 {
			return p.Run(cmd.Context())
		}
		selected := map[string]bool{}
		for _, t := range runTasks {
			selected[t] = true
		}
		unknown := 0
		for task := range selected {
			if !config.KnownTask(task) {
				color.Yellow("Unknown task '%s'", task)
				unknown++
			}
		}
		if unknown > 0 {
			return fmt.Errorf("%d unknown task(s), see 'mrri run --help'", unknown)
		}
		for _, task := range config.TaskOrder {
			if !selected[task] {
				continue
			}
			if err := p.RunTask(cmd.Context(), task); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runTasks, "task", "t", nil, "Run only these tasks")
}
