// Package export serializes filtered record sets for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
)

// Filename renders <prefix>_YYYYMMDD.<ext> for the given day.
func Filename(prefix string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102"), ext)
}

// WriteCSV writes the schema header followed by one line per record, in
// input order. Malformed amounts are written back as their raw text.
func WriteCSV[R core.Record](w io.Writer, schema ledger.Schema[R], records []R) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(schema.Encode(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
