// Package reference reads the exported inventory CSV and yields the
// ordered set of reference numbers the engine has to process.
package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Reference is an opaque inventory item identifier. Equality is string
// equality; it also doubles as the stem of the PDF filename the worker
// produces for it.
type Reference string

// Record is one row of the exported inventory, with only the reference
// column semantically used by the engine. Other columns are preserved
// so a caller inspecting Raw can recover anything the export included.
type Record struct {
	Reference Reference
	Raw       map[string]string
}

// Inventory is the ordered, de-duplicated set of references read from
// an export file.
type Inventory struct {
	Records []Record
}

// References returns just the reference numbers, in file order.
func (inv Inventory) References() []Reference {
	out := make([]Reference, len(inv.Records))
	for i, r := range inv.Records {
		out[i] = r.Reference
	}
	return out
}

// Load reads a CSV export produced by the target site, keyed by
// refColumn (a configuration value — the exact export column name
// varies by deployment). Rows with an empty or duplicate reference are
// skipped; the first occurrence wins.
func Load(path string, refColumn string) (Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("reference: open inventory %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return Inventory{}, fmt.Errorf("reference: read inventory header: %w", err)
	}

	colIdx := -1
	for i, h := range header {
		if h == refColumn {
			colIdx = i
			break
		}
	}
	if colIdx == -1 {
		return Inventory{}, fmt.Errorf("reference: column %q not present in inventory header %v", refColumn, header)
	}

	var inv Inventory
	seen := make(map[Reference]bool)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Inventory{}, fmt.Errorf("reference: read inventory row: %w", err)
		}
		if colIdx >= len(row) {
			continue
		}
		ref := Reference(row[colIdx])
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		raw := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				raw[h] = row[i]
			}
		}
		inv.Records = append(inv.Records, Record{Reference: ref, Raw: raw})
	}
	return inv, nil
}
