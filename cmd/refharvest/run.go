package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cordero-labs/refharvest/internal/config"
	"github.com/cordero-labs/refharvest/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new scraping run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if downloadRoot != "" {
			cfg.DownloadRoot = downloadRoot
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := orchestrator.Run(ctx, cfg, cfg.DownloadRoot, os.Stdout, time.Now())
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		fmt.Printf("run complete: %+v\n", report)
		if len(report.TerminalFailed) > 0 {
			fmt.Printf("terminal failures: %v\n", report.TerminalFailed)
		}
		return nil
	},
}
