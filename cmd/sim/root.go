package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"DailyInvestTrade/internal/config"
	"DailyInvestTrade/internal/logging"
)

type app struct {
	cfgPath string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{cfgPath: config.DefaultPath}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		a.cfgPath = v
	}

	root := &cobra.Command{
		Use:   "sim",
		Short: "Simulated daily trading desk",
		Long: `A single-user trading game. A random-walk price feed runs while the
weekly market schedule is open; buy and sell against a local balance,
redeem deposit codes and withdraw with a QR receipt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			logging.Setup(logging.Config{
				Level:      cfg.Log.Level,
				FilePath:   cfg.Log.File,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAgeDays,
			})
			a.cfg = cfg
			log.Debug().Str("config", a.cfgPath).Msg("config loaded")
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", a.cfgPath, "path to the YAML config file")

	root.AddCommand(a.runCmd(), a.scheduleCmd(), a.codesCmd())
	return root
}
