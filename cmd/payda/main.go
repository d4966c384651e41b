package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/payda-app/payda/internal/app"
	"github.com/payda-app/payda/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("payda exited with error")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var appCfg config.AppConfig

	rootCmd := &cobra.Command{
		Use:           "payda",
		Short:         "Payda charitable giving ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&appCfg.ConfigPath, "config", "", "config file (default is $PAYDA_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the auto-donation runner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.RunServer(cmd.Context(), appCfg)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Migrate(cmd.Context(), appCfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var seedPassword string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo merchants, pools and accounts into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := app.Seed(cmd.Context(), appCfg, seedPassword)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password for every demo account")
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run-rules",
		Short: "Replay every active auto-donation rule once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := app.RunRules(cmd.Context(), appCfg)
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	})

	return rootCmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
