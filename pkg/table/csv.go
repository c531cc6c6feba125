package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rocketlaunchr/dataframe-go/exports"
)

// naTokens are the literal field values read as missing.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// ParseField maps one raw field to a cell, treating the usual NA spellings as
// missing. Other sentinels such as "Not Applicable" stay literal.
func ParseField(raw string) Cell {
	if _, na := naTokens[raw]; na {
		return Missing()
	}
	return Str(raw)
}

// ReadCSV decodes a headed, comma separated table. Short rows are padded with
// missing cells; long rows are an error.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, SchemaError{Table: name, Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]Cell
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", name, line, err)
		}
		if len(record) > len(header) {
			return nil, SchemaError{
				Table:  name,
				Reason: fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(header)),
			}
		}
		row := make([]Cell, len(header))
		for j, field := range record {
			row[j] = ParseField(field)
		}
		rows = append(rows, row)
	}

	return New(name, header, rows)
}

// WriteCSV encodes the table with a header row. Missing cells are written as
// empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	if t.Len() == 0 {
		writer := csv.NewWriter(w)
		if err := writer.Write(t.Columns()); err != nil {
			return err
		}
		writer.Flush()
		return writer.Error()
	}
	empty := ""
	return exports.ExportToCSV(context.Background(), w, t.frame, exports.CSVExportOptions{
		NullString: &empty,
		Separator:  ',',
	})
}
