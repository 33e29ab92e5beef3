package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// exportCSV writes the encoded grid as a CSV file, same layout as the
// spreadsheet backend: category row, name row, then one row per day.
func exportCSV(grid [][]string, title string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(grid); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".csv",
		MimeType: "text/csv",
	}, nil
}
