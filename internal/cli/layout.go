package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/internal/config"
	"github.com/matzehuels/memorywall/pkg/cache"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/pipeline"
)

// layoutFlags are the layout options settable on the command line. Zero
// values keep the config file's setting.
type layoutFlags struct {
	strategy string
	columns  int
	edge     string
	seed     uint32
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "layout strategy: "+strings.Join(layout.Names(), ", "))
	cmd.Flags().IntVarP(&f.columns, "columns", "n", 0, "number of columns (default: derived from the tile count)")
	cmd.Flags().StringVar(&f.edge, "edge", "", "skyline edge policy: clamp, skip")
	cmd.Flags().Uint32Var(&f.seed, "seed", 0, "spiral shuffle seed")

	_ = cmd.RegisterFlagCompletionFunc("strategy", cobra.FixedCompletions(layout.Names(), cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("edge", cobra.FixedCompletions(
		[]string{string(layout.EdgeClamp), string(layout.EdgeSkip)}, cobra.ShellCompDirectiveNoFileComp))
}

// apply merges the flags into the config's layout options.
func (f *layoutFlags) apply(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return opts, err
	}
	if f.strategy != "" {
		opts.Strategy = f.strategy
	}
	if cmd.Flags().Changed("columns") {
		if f.columns < 1 {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", f.columns)
		}
		opts.Columns = f.columns
	}
	if f.edge != "" {
		opts.Layout.Edge = layout.EdgePolicy(f.edge)
	}
	if f.seed != 0 {
		opts.Layout.Seed = f.seed
	}
	return opts, nil
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		wallID  string
		refresh bool
		noCache bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [tiles.json|tiles.yaml]",
		Short: "Lay out the tiles of a file or a stored wall",
		Long: `Lay out tiles and write the positioned tiles as JSON.

Tiles come either from a JSON or YAML file (a list of tiles, or an object with
a "tiles" list) or, with --wall, from the configured store, newest first.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (wallID != "") {
				return fmt.Errorf("give either a tile file or --wall")
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := flags.apply(cmd, cfg)
			if err != nil {
				return err
			}
			opts.Refresh = refresh
			opts.Logger = c.Logger

			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runLayout(cmd.Context(), cfg, input, wallID, opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, or stdout with --wall)")
	cmd.Flags().StringVarP(&wallID, "wall", "w", "", "lay out a stored wall instead of a file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-read the wall's tiles instead of using the cached listing")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}

// runLayout computes the layout and writes it out.
func (c *CLI) runLayout(ctx context.Context, cfg *config.Config, input, wallID string, opts pipeline.Options, output string, noCache bool) error {
	var (
		runner *pipeline.Runner
		err    error
	)
	if wallID != "" {
		runner, err = c.newRunner(ctx, cfg, noCache)
	} else {
		// File tiles need no store.
		var ch cache.Cache
		if ch, err = c.openCache(ctx, cfg, noCache); err == nil {
			runner = pipeline.NewRunner(nil, ch, nil, c.Logger)
		}
	}
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Strategy))
	spinner.Start()
	prog := newProgress(c.Logger)

	var res *pipeline.Result
	if wallID != "" {
		res, err = runner.LayoutWall(ctx, wallID, opts)
	} else {
		tiles, rerr := readTiles(input)
		if rerr != nil {
			spinner.Stop()
			return rerr
		}
		res, err = runner.LayoutTiles(ctx, tiles, opts)
	}
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Laid out %d tiles", len(res.Layout.Tiles)))

	if output == "" && input != "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	if output == "" || output == "-" {
		return writeResult(os.Stdout, res)
	}
	if err := writeResultFile(output, res); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(res)
	return nil
}

func writeResult(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeResultFile(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeResult(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
