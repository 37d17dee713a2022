// Command refharvest drives the concurrent PDF-scraping engine
// implemented by internal/orchestrator, using a persistent-flag and
// subcommand layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var downloadRoot string

var rootCmd = &cobra.Command{
	Use:   "refharvest",
	Short: "Concurrent PDF inventory scraper",
	Long: `refharvest drives a single authenticated browser session across
N worker tabs to export an inventory of references, create and
download each reference's PDF under a process-wide critical section,
and track progress durably so an interrupted run can resume.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&downloadRoot, "download-root", "", "override REFHARVEST_DOWNLOAD_ROOT")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
