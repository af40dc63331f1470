package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/notifier"
	"DailyInvestTrade/internal/store"
)

func (a *app) scheduleCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the trading schedule and the next opening",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.cfg.MarketSchedule()
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Timezone: %s\n", s.Location())
			fmt.Fprintf(out, "Days: %v\n", s.Days())
			fmt.Fprintf(out, "Hours: %v\n", s.Intervals())
			if s.IsOpen(now) {
				fmt.Fprintln(out, "Market Status: Open")
				return nil
			}
			next := s.NextOpen(now)
			fmt.Fprintln(out, "Market Status: Closed")
			fmt.Fprintf(out, "Next open: %s\n", next.Format(time.RFC1123))
			fmt.Fprintln(out, notifier.FormatCountdown(next.Sub(now)))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 time instead of now")
	return cmd
}

func (a *app) codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List deposit codes that have not been redeemed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.Storage.Driver, a.cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			l, err := ledger.New(st, a.cfg.LedgerConfig())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatCodes(l.AvailableCodes()))
			return nil
		},
	}
}
