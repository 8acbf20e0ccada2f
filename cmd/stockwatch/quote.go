package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"stockwatch/internal/config"
	"stockwatch/internal/logging"
	"stockwatch/pkg/stockwatch"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "quote [code[:lots]...]",
		Short: "Print quotes for the given codes or the configured watch list",
		Example: `  stockwatch quote sz000001:3 hk00700:2 sh510300
  stockwatch quote --watch 3s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			entries, err := parseEntryArgs(args)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				entries = cfg.Stocks
			}
			if len(entries) == 0 {
				return fmt.Errorf("no codes given and no stocks configured")
			}
			// Logs share the terminal with the table, so only warnings show
			// unless a level is asked for explicitly.
			level := slog.LevelWarn
			if opts.logLevel != "" {
				level, _ = logging.ParseLevel(opts.logLevel)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			logger := logging.NewConsoleLogger(cmd.ErrOrStderr(), level)
			return runQuote(ctx, cfg, entries, watch, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "Refresh on this interval until interrupted (e.g. 3s)")
	return cmd
}

// parseEntryArgs reads "code" or "code:lots" arguments.
func parseEntryArgs(args []string) ([]stockwatch.SymbolEntry, error) {
	entries := make([]stockwatch.SymbolEntry, 0, len(args))
	for _, arg := range args {
		code, lotsText, hasLots := strings.Cut(arg, ":")
		entry := stockwatch.SymbolEntry{Code: code}
		if hasLots {
			lots, err := strconv.Atoi(lotsText)
			if err != nil || lots < 0 {
				return nil, fmt.Errorf("invalid lots in %q", arg)
			}
			entry.HeldLots = &lots
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func runQuote(ctx context.Context, cfg config.Config, entries []stockwatch.SymbolEntry, watch time.Duration, out io.Writer, logger *slog.Logger) error {
	monitor := stockwatch.NewMonitor(cfg.MonitorOptions(logger))
	for {
		snapshot := monitor.Refresh(ctx, entries)
		fmt.Fprint(out, renderSnapshot(snapshot, time.Now()))
		if watch <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watch):
		}
	}
}

func renderSnapshot(snapshot stockwatch.Snapshot, at time.Time) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code", "Name", "Price", "Change", "Change %", "High", "Low", "Lots", "Profit", "Value", "Week %", "Month %"})
	for _, r := range snapshot.Quotes {
		if !r.Found() {
			t.AppendRow(table.Row{r.Code, "-", "-", "", "", "", "", "", "", "", "", ""})
			continue
		}
		q := r.Quote
		lots := ""
		if q.HeldLots != nil {
			lots = strconv.Itoa(*q.HeldLots)
		}
		t.AppendRow(table.Row{
			q.Symbol(),
			q.Name,
			q.PriceFormatted,
			colorBySign(q.PriceChange),
			colorBySign(q.ChangePercent),
			q.High,
			q.Low,
			lots,
			colorBySign(q.Profit),
			q.PositionValue,
			colorBySign(q.WeeklyChange),
			colorBySign(q.MonthlyChange),
		})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{
		"", "Total", "", "", "", "", "", "",
		colorBySign(snapshot.Stats.TotalProfit),
		snapshot.Stats.TotalPositionValue,
		colorBySign(snapshot.Stats.TotalProfitRate) + "%",
		"",
	})

	s := t.Render() + "\n"
	if len(snapshot.Skipped) > 0 {
		s += fmt.Sprintf("skipped (unsupported market): %s\n", strings.Join(snapshot.Skipped, ", "))
	}
	s += fmt.Sprintf("updated %s\n", at.Format("2006-01-02 15:04:05"))
	return s
}

// colorBySign paints rises red and falls green, the mainland convention.
func colorBySign(value string) string {
	switch {
	case value == "" || value == stockwatch.UnavailableMarker:
		return value
	case strings.HasPrefix(value, "-"):
		return text.FgGreen.Sprint(value)
	case strings.Trim(value, "0.") == "":
		return value
	default:
		return text.FgRed.Sprint(value)
	}
}
