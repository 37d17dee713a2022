package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cordero-labs/refharvest/internal/atomicfile"
	"github.com/cordero-labs/refharvest/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <run-dir>",
	Short: "Re-check every downloaded PDF's content against its claimed reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfDir := filepath.Join(args[0], "pdfs")

		sums, err := validator.ChecksumDir(pdfDir)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		checksumPath := filepath.Join(args[0], "run_data", "checksums.json")
		if err := writeChecksums(checksumPath, sums); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		fmt.Printf("wrote %d checksums to %s\n", len(sums), checksumPath)

		mismatches, err := validator.ValidateDir(pdfDir)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if len(mismatches) == 0 {
			fmt.Println("all references validated")
			return nil
		}
		for _, m := range mismatches {
			fmt.Printf("suspect: %s (%s): %s\n", m.Reference, m.Path, m.Reason)
		}
		return fmt.Errorf("validate: %d suspected mismatches", len(mismatches))
	},
}

func writeChecksums(path string, sums []validator.Checksum) error {
	data, err := json.MarshalIndent(sums, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}
