// internal/export/csv.go
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/pagehound/pagehound/pkg/types"
)

// renderCSV writes one labeled block per populated type: the section label
// on its own line, an optional column header line, then one line per record,
// with a blank line between sections.
func (e *Exporter) renderCSV(scraped *types.ScrapedStore) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = e.opts.CSVDelimiter

	for i, sec := range sections(scraped) {
		if i > 0 {
			// Section separator.
			if err := w.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("csv write: %w", err)
			}
		}
		if err := w.Write([]string{sec.Label}); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
		if e.opts.IncludeHeaders && len(sec.Columns) > 0 {
			header := make([]string, len(sec.Columns))
			for j, col := range sec.Columns {
				header[j] = col.Label
			}
			if err := w.Write(header); err != nil {
				return nil, fmt.Errorf("csv write: %w", err)
			}
		}
		for _, rec := range sec.Records {
			if err := w.Write(row(sec, rec)); err != nil {
				return nil, fmt.Errorf("csv write: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}
