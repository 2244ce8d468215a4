package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/pipeline"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		plain   bool
		noCache bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "watch WALL_ID",
		Short: "Keep a wall's layout current as tiles arrive",
		Long: `Lay out a wall and recompute the layout whenever a tile is added.

Change events come from the configured notify backend (memory, nats or
realtime). Bursts of events that arrive while a layout is running are folded
into a single follow-up layout.

The live view shows recent layouts and a grid preview. Use --plain to log one
line per layout instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := flags.apply(cmd, cfg)
			if err != nil {
				return err
			}
			opts.Logger = c.Logger

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			ev, err := c.openEvents(cfg)
			if err != nil {
				return err
			}
			defer ev.Close()

			if plain {
				return c.watchPlain(ctx, runner, ev.Notifier, args[0], opts)
			}
			return c.watchTUI(ctx, runner, ev.Notifier, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "log layouts instead of showing the live view")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.register(cmd)

	return cmd
}

// watchPlain logs every update until ctx is cancelled.
func (c *CLI) watchPlain(ctx context.Context, runner *pipeline.Runner, n notify.Notifier, wallID string, opts pipeline.Options) error {
	c.Logger.Info("watching wall", "wall", wallID, "strategy", opts.Strategy)
	return runner.Watch(ctx, wallID, n, opts, func(u pipeline.Update) {
		if u.Err != nil {
			c.Logger.Error("layout failed", "wall", wallID, "seq", u.Seq, "err", u.Err)
			return
		}
		c.Logger.Info("layout",
			"seq", u.Seq,
			"tiles", len(u.Result.Layout.Tiles),
			"columns", u.Result.Layout.Columns,
			"height", u.Result.Layout.Height(),
			"events", u.Coalesced,
			"took", u.Result.Stats.LayoutTime)
	})
}

// watchTUI runs the live view. Leaving the view stops the watch and a failed
// watch closes the view.
func (c *CLI) watchTUI(ctx context.Context, runner *pipeline.Runner, n notify.Notifier, wallID string, opts pipeline.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWatchModel(wallID), tea.WithContext(ctx))

	watchErr := make(chan error, 1)
	go func() {
		err := runner.Watch(ctx, wallID, n, opts, func(u pipeline.Update) {
			p.Send(updateMsg(u))
		})
		cancel()
		watchErr <- err
	}()

	_, err := p.Run()
	cancel()
	if werr := <-watchErr; werr != nil {
		return werr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
