// Command corpusprep prepares an image classification corpus: it partitions
// flat splits into class directories, crop-augments them, normalizes the test
// images to RGB and writes the test-time augmentation views.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"corpusprep/internal/app"
	"corpusprep/internal/config"
	"corpusprep/internal/dataset"
	"corpusprep/internal/logging"
)

const defaultConfigPath = "corpusprep.yaml"

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks invocation mistakes; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func cli(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, config.ErrInvalid) {
		return 2
	}
	return 1
}

type globals struct {
	configPath   string
	verbose      bool
	source       string
	target       string
	cropFraction float64
	workers      int
	stdout       io.Writer
	stderr       io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "corpusprep",
		Short:         "Prepare an image classification corpus for training and test-time augmentation",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", defaultConfigPath, "path to the YAML config")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&g.source, "source", "", "source corpus root (overrides config)")
	pf.StringVar(&g.target, "target", "", "target corpus root (overrides config)")
	pf.Float64Var(&g.cropFraction, "crop-fraction", 0, "fraction cropped from each edge (overrides config)")
	pf.IntVar(&g.workers, "workers", 0, "per-image parallelism (overrides config)")

	root.AddCommand(
		g.stepCmd("partition", "Copy <split>/<prefix>_<label>.<ext> into <split>/<label>/", dataset.StepPartition),
		g.cropCmd(),
		g.normalizeCmd(),
		g.stepCmd("tta", "Write every test-time augmentation view of the test images", dataset.StepTTA),
		g.runCmd(),
		g.indexCmd(),
		g.verifyCmd(),
		g.historyCmd(),
	)
	return root
}

// loadConfig layers the config file, CORPUSPREP_* variables and explicit flags.
func (g *globals) loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(g.configPath, !explicit)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceRoot = g.source
	}
	if flags.Changed("target") {
		cfg.TargetRoot = g.target
	}
	if flags.Changed("crop-fraction") {
		cfg.CropFraction = g.cropFraction
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	return cfg, cfg.Validate()
}

// withApp opens the App for one command and tears it down afterwards.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (retErr error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Verbose: g.verbose})
	if err != nil {
		return usageError{err}
	}
	defer func() { _ = logger.Sync() }()
	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
			if retErr == nil {
				retErr = err
			}
		}
	}()
	return fn(cmd.Context(), a)
}

func (g *globals) execute(cmd *cobra.Command, force bool, command string, steps ...dataset.Step) error {
	return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
		sums, err := a.Runner(force).Execute(ctx, command, steps...)
		g.printSummaries(sums)
		return err
	})
}

func (g *globals) printSummaries(sums []dataset.Summary) {
	for _, s := range sums {
		_, _ = fmt.Fprintln(g.stdout, s.String())
		if g.verbose {
			for _, f := range s.Failures {
				_, _ = fmt.Fprintf(g.stderr, "  skipped %s (%s): %v\n", f.Key, f.Kind, f.Err)
			}
		}
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func (g *globals) stepCmd(use, short string, step dataset.Step) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.execute(cmd, false, use, step)
		},
	}
}

func (g *globals) cropCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop every partitioned image in place, once per partition",
		Long: `Crops floor(p*H) rows and floor(p*W) columns from every edge of every
image under the partitioned splits and overwrites the originals.

Cropping is not idempotent. The ledger remembers which partition generation
was cropped and skips it. A crop that was interrupted part way leaves its
generation blocked, since some images are already cropped; re-partition or
pass --force to crop it anyway.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.execute(cmd, force, "crop", dataset.StepCrop)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "crop even if this partition was already cropped")
	return cmd
}

func (g *globals) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [dir...]",
		Short: "Convert images to 3-channel RGB",
		Long: `Without arguments, normalizes the raw test images in the source tree.
With arguments, normalizes every image under each directory of the target tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return g.execute(cmd, false, "normalize", dataset.StepNormalize)
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sum, err := a.Runner(false).NormalizeTarget(ctx, args...)
				g.printSummaries([]dataset.Summary{sum})
				return err
			})
		},
	}
}

func (g *globals) runCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run partition, crop, normalize and tta in order",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.execute(cmd, force, "run", dataset.Pipeline...)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "crop even if this partition was already cropped")
	return cmd
}
