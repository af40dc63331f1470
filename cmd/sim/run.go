package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"DailyInvestTrade/internal/desk"
	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/notifier"
	"DailyInvestTrade/internal/receipt"
	"DailyInvestTrade/internal/recorder"
	"DailyInvestTrade/internal/session"
	"DailyInvestTrade/internal/store"
	"DailyInvestTrade/internal/timer"
)

const chartPoints = 500

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trading desk and read commands from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run()
		},
	}
}

func (a *app) run() error {
	cfg := a.cfg
	log.Info().Msg("DailyInvestTrade starting")

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := ledger.New(st, cfg.LedgerConfig())
	if err != nil {
		return err
	}

	rec, err := recorder.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	sched, err := cfg.MarketSchedule()
	if err != nil {
		return err
	}

	timers := timer.NewCron()
	timers.Start()
	defer timers.Stop()

	var sessionOpts []session.Option
	if cfg.Session.PersistTrades {
		sessionOpts = append(sessionOpts, session.WithTradeStore(st))
	}

	console := notifier.NewConsole(os.Stdout, cfg.Console.CommandsPerSecond)
	d, err := desk.New(desk.Deps{
		Timers:      timers,
		Schedule:    sched,
		Ledger:      l,
		Session:     cfg.SessionConfig(),
		SessionOpts: sessionOpts,
		Price:       cfg.PriceConfig(),
		Presenter:   console,
		Chart:       notifier.NewSeriesChart(chartPoints),
		Recorder:    rec,
		Encoder:     receipt.NewEncoder(cfg.Receipt.OutputDir, cfg.Receipt.Size),
	})
	if err != nil {
		return err
	}
	if err := d.RegisterJobs(timers, cfg.Ledger.WithdrawalResetCron); err != nil {
		return err
	}
	d.Start()
	defer d.Stop()

	console.Notify(notifier.FormatBalance(l.Balance()) + " | type 'help' for commands")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := console.Run(ctx, os.Stdin, d.HandleCommand); err != nil {
		return err
	}
	log.Info().Msg("DailyInvestTrade stopped")
	return nil
}
