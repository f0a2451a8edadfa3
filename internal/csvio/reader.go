package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
)

const utf8BOM = "\ufeff"

// ReadRows parses an uploaded CSV. The first record is the header; empty lines
// are skipped. A row of empty cells such as ",,," is kept so row numbers match
// the file. Unknown columns are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty", apperrors.ErrBadRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: CSV parsing failed: %v", apperrors.ErrBadRequest, err)
	}
	for i, label := range header {
		if i == 0 {
			label = strings.TrimPrefix(label, utf8BOM)
		}
		header[i] = strings.TrimSpace(label)
	}

	var missing []string
	for _, col := range Columns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required column(s): %s", apperrors.ErrBadRequest, strings.Join(missing, ", "))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: CSV parsing failed: %v", apperrors.ErrBadRequest, err)
		}
		if emptyLine(record) {
			continue
		}

		row := make(Row, len(header))
		for i, label := range header {
			if _, known := FieldFor(label); !known {
				continue
			}
			if i < len(record) {
				row[label] = record[i]
			} else {
				row[label] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// emptyLine reports a line holding nothing but whitespace.
func emptyLine(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
