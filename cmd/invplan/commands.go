package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"invplan-backend/internal/app"
	"invplan-backend/internal/config"
	"invplan-backend/internal/facts"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every enabled source, the roll-up and today's snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			rep, err := a.Runner.Run(ctx, "cli")
			if perr := printJSON(rep); perr != nil {
				return perr
			}
			return err
		})
	},
}

var syncCmd = &cobra.Command{
	Use:       "sync <source>",
	Short:     "Read and merge a single source",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.SourceNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rep, err := a.Runner.RunSource(cmd.Context(), args[0], "cli")
			if err != nil {
				return err
			}
			return printJSON(rep)
		})
	},
}

var snapshotFlags struct {
	date string
	ean  string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build the planning snapshot of one date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			date, err := app.ParseDate(snapshotFlags.date, a.Cfg.Location())
			if err != nil {
				return err
			}
			res, err := a.Runner.BuildSnapshot(cmd.Context(), date, facts.NormalizeEAN(snapshotFlags.ean), "cli")
			if err != nil {
				return err
			}
			fmt.Printf("snapshot %s: %d built, %d failed\n", date.Format("2006-01-02"), res.Processed, res.Failed)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the planning tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// app.New migrates before wiring.
		return withApp(func(a *app.App) error {
			fmt.Println("migrations applied")
			return nil
		})
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List sources with their merge settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("%-22s %-8s %-14s %s\n", "SOURCE", "ENABLED", "WINDOW", "ORIGINATE")
		for _, name := range config.SourceNames {
			sc := cfg.Sources[name]
			fmt.Printf("%-22s %-8t %-14s %t\n", name, sc.Enabled, sc.Window, sc.Originate)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotFlags.date, "date", "d", "", "Snapshot date, YYYY-MM-DD (defaults to today)")
	snapshotCmd.Flags().StringVar(&snapshotFlags.ean, "ean", "", "Build only this EAN")

	rootCmd.AddCommand(runCmd, syncCmd, snapshotCmd, migrateCmd, sourcesCmd)
}
