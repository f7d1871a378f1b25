package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/config"
	"github.com/yech1990/mrri/internal/logging"
	"github.com/yech1990/mrri/internal/pipeline"
	"github.com/yech1990/mrri/internal/runner"
)

var (
	cfgFile string
	verbose bool
	workers int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mrri",
	Short: "Long-distance RNA-RNA interactions in flavivirus genomes",
	Long: `Predicts interactions between the 5' and 3' ends of flavivirus genomes
with IntaRNA, refines them in multiple constrained rounds, searches the 3'UTR
with covariance models and aligns the ends with mlocarna and RNAalifold.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML configuration file (defaults are used without one)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every external command")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "j", 0, "Genomes processed concurrently (overrides the config)")
}

// Execute runs the command line until it finishes or is interrupted.
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:  rootCmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

func progressBar(desc string, total int) func() {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("[cyan]"+desc+"[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		progressbar.OptionSetTheme(progressbar.Theme{Saucer: "[green]=[reset]", SaucerHead: "[green]>[reset]", SaucerPadding: " ", BarStart: "[", BarEnd: "]"}),
	)
	return func() { _ = bar.Add(1) }
}

func newPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	p := pipeline.New(cfg, runner.NewExecRunner(logger), logger)
	p.Progress = progressBar
	return p, nil
}

// taskCmd returns a command running one pipeline task.
func taskCmd(use, short, long, task string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			if err := p.RunTask(cmd.Context(), task); err != nil {
				return fmt.Errorf("running %s: %w", task, err)
			}
			return nil
		},
	}
}
