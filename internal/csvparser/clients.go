package csvparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooManyRows is returned when the CSV holds more valid rows than the
// caller allows. No rows are returned in that case.
var ErrTooManyRows = errors.New("csv has too many rows")

// ClientRow is one client extracted from an import CSV.
type ClientRow struct {
	Email    string
	FullName string
	Comment  string
}

// ParseClientRows parses a CSV from an io.Reader. The header row must
// contain an "Email" column; "Name" (or "Full Name") and "Comment" are
// optional. Header matching is case-insensitive.
//
// maxRows caps the number of valid data rows (excluding header); a larger
// file fails with ErrTooManyRows instead of being cut short.
func ParseClientRows(r io.Reader, maxRows int) ([]ClientRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, errors.New("csv header row is empty")
	}

	emailIdx, nameIdx, commentIdx := -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email":
			emailIdx = i
		case "name", "full name", "full_name":
			nameIdx = i
		case "comment":
			commentIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = 1000
	}

	rows := make([]ClientRow, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" || !strings.Contains(email, "@") {
			continue
		}

		if len(rows) == maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}

		rows = append(rows, ClientRow{
			Email:    email,
			FullName: column(record, nameIdx),
			Comment:  column(record, commentIdx),
		})
	}

	if len(rows) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}

	return rows, nil
}

func column(record []string, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
