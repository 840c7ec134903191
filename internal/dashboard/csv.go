package dashboard

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"ts-dashboard/internal/source"
)

const utf8BOM = "\ufeff"

// EncodeCSV writes rows under the fixed column header. Cells containing a
// comma, quote or line break are quoted. The output starts with a UTF-8 BOM.
func EncodeCSV(rows []source.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(source.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.Values()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
