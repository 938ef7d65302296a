package cmd

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard headless behind a JSON API",
	Long: `Run the live dashboard without a terminal view and expose it over HTTP.

Routes:
  GET  /health
  GET  /metrics
  GET  /api/state
  GET  /api/accounts
  GET  /api/accounts/:id
  POST /api/select/:id
  GET  /api/pnl
  GET  /api/pnl/history[?symbol=]
  GET  /api/pnl/sparkline[?width=&height=&symbol=]

Example:
  acctdash serve --listen :8090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.HTTP.Listen = serveListen
	}
	ctx := cmd.Context()

	s, c, err := authedClient(cmd.Context())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dash, j, err := newDashboard(c, metrics.New(reg), false)
	if err != nil {
		return err
	}
	defer j.Close()

	if err := dash.Start(ctx); err != nil {
		return userError("start", err)
	}
	seedHistory(dash, j)
	src := openEvents(ctx, s)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(dash, reg, slog.Default())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Run(ctx, src) })
	g.Go(func() error { return server.Serve(ctx, cfg.HTTP.Listen, router, slog.Default()) })
	return g.Wait()
}
