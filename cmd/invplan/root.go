package main

import (
	"encoding/json"
	"fmt"
	"os"

	"invplan-backend/internal/app"
	"invplan-backend/internal/config"
	"invplan-backend/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "invplan",
	Short: "Inventory planning pipeline",
	Long: `Runs the inventory planning batch by hand: merge source feeds into the
SKU fact table, refresh roll-ups and build planning snapshots.

Settings are read from the environment and an optional .env file, the
same way the API server reads them.`,
	SilenceUsage: true,
}

// withApp loads config, wires the app and closes it after fn returns.
func withApp(fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
