package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/acctdash/journal"
	"github.com/rustyeddy/acctdash/sparkline"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the journaled PnL history",
	Long: `Read PnL samples recorded by watch or serve from the SQLite journal.

Without --account the journaled account ids are listed.

Examples:
  acctdash history
  acctdash history --account 4b1c --since 1h
  acctdash history --account 4b1c --symbol EURUSD --day 2024-05-01`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyDBPath  string
	historyAccount string
	historySymbol  string
	historySince   time.Duration
	historyDay     string
	historyLimit   int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	historyCmd.Flags().StringVarP(&historyAccount, "account", "a", "", "account id")
	historyCmd.Flags().StringVarP(&historySymbol, "symbol", "s", "", "symbol (default net PnL)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only samples newer than this")
	historyCmd.Flags().StringVar(&historyDay, "day", "", "only samples on this day (YYYY-MM-DD, local time)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "most recent N samples")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return fmt.Errorf("no journal database: set journal.db_path or pass --db")
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	if historyAccount == "" {
		ids, err := j.Accounts()
		if err != nil {
			return fmt.Errorf("query accounts: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No samples recorded yet.")
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	q := journal.Query{AccountID: historyAccount, Symbol: historySymbol, Limit: historyLimit}
	if historySince > 0 {
		q.Since = time.Now().Add(-historySince)
	}
	if historyDay != "" {
		start, end, err := dayBounds(time.Local, historyDay)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		q.Since, q.Until = start, end
	}

	samples, err := j.ListSamples(q)
	if err != nil {
		return fmt.Errorf("query samples: %w", err)
	}
	fmt.Print(formatSamples(samples))
	return nil
}

func formatSamples(samples []journal.Sample) string {
	if len(samples) == 0 {
		return "No samples.\n"
	}

	out := ""
	vals := make([]float64, len(samples))
	for i, s := range samples {
		vals[i] = s.Value
		out += fmt.Sprintf("%s  %12.2f\n", s.Time.Local().Format("2006-01-02 15:04:05"), s.Value)
	}
	out += fmt.Sprintf("\n%s  (%d samples)\n", sparkline.Bars(vals), len(samples))
	return out
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
