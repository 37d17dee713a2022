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

var resumeCmd = &cobra.Command{
	Use:   "resume <run-dir>",
	Short: "Resume an interrupted run, skipping references already marked downloaded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := orchestrator.Resume(ctx, cfg, args[0], os.Stdout, time.Now())
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}

		fmt.Printf("resume complete: %+v\n", report)
		if len(report.TerminalFailed) > 0 {
			fmt.Printf("terminal failures: %v\n", report.TerminalFailed)
		}
		return nil
	},
}
