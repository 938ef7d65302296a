package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/stream"
	"github.com/rustyeddy/acctdash/view"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live view of the selected account",
	Long: `Connect to the backend and redraw the selected account's positions,
orders and PnL until interrupted.

With --replay the events come from a newline-delimited JSON recording
instead, and no backend is contacted.

Examples:
  acctdash watch
  acctdash watch --account 4b1c --once
  acctdash watch --replay session.ndjson --replay-delay 500ms`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchAccount     string
	watchOnce        bool
	watchPlain       bool
	watchStyle       string
	watchWidth       int
	watchRedraw      time.Duration
	watchReplay      string
	watchReplayDelay time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchAccount, "account", "a", "", "account to select (default from config, else the first)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "render once and exit")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print markdown without styling")
	watchCmd.Flags().StringVar(&watchStyle, "style", "", "glamour style (dark, light, notty; default auto)")
	watchCmd.Flags().IntVar(&watchWidth, "width", 120, "word wrap width")
	watchCmd.Flags().DurationVar(&watchRedraw, "redraw", time.Second, "redraw interval")
	watchCmd.Flags().StringVar(&watchReplay, "replay", "", "replay events from an NDJSON file")
	watchCmd.Flags().DurationVar(&watchReplayDelay, "replay-delay", 0, "delay between replayed events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchAccount != "" {
		cfg.Dashboard.Account = watchAccount
	}
	ctx := cmd.Context()

	var (
		dash *dashboard.Dashboard
		src  stream.Source
	)
	if watchReplay != "" {
		d, j, err := newDashboard(offline{}, metrics.Nop(), true)
		if err != nil {
			return err
		}
		defer j.Close()
		dash = d

		src, err = openReplay(watchReplay, watchReplayDelay)
		if err != nil {
			return err
		}
		defer src.Close()
	} else {
		s, c, err := authedClient(cmd.Context())
		if err != nil {
			return err
		}
		d, j, err := newDashboard(c, metrics.Nop(), false)
		if err != nil {
			return err
		}
		defer j.Close()
		dash = d

		if err := dash.Start(ctx); err != nil {
			return userError("start", err)
		}
		seedHistory(dash, j)

		if watchOnce {
			return draw(dash)
		}
		src = openEvents(ctx, s)
	}

	if watchOnce {
		// a replay is read to the end before the single frame
		if err := dash.Drain(ctx, src); err != nil {
			return err
		}
		dash.Ingester().Wait()
		return draw(dash)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Run(ctx, src) })
	g.Go(func() error {
		tk := time.NewTicker(watchRedraw)
		defer tk.Stop()
		for {
			if err := draw(dash); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-tk.C:
			}
		}
	})

	return g.Wait()
}

const clearScreen = "\033[H\033[2J"

func draw(dash *dashboard.Dashboard) error {
	md := view.Markdown(dash.State())
	if watchPlain {
		fmt.Print(md)
		return nil
	}
	out, err := view.Render(md, watchStyle, watchWidth)
	if err != nil {
		return err
	}
	if !watchOnce {
		fmt.Print(clearScreen)
	}
	fmt.Print(out)
	return nil
}
