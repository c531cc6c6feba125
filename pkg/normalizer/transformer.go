// Package normalizer maps raw HTAN categorical and string fields onto
// standardized codes. Every transform takes a table and returns a new one.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/synaptica-ai/dcis/pkg/terminology"
)

type Transformer struct {
	catalog terminology.Catalog
}

func NewTransformer(cat terminology.Catalog) *Transformer {
	return &Transformer{catalog: cat}
}

// StandardizeEthnicity rewrites Ethnicity to "1" (hispanic or latino), "0"
// (not hispanic or latino) or missing.
func (t *Transformer) StandardizeEthnicity(demographics *table.Table) (*table.Table, error) {
	return demographics.MapColumn(terminology.ColEthnicity, func(c table.Cell) (table.Cell, error) {
		raw, ok := c.Get()
		if !ok {
			return table.Missing(), nil
		}
		code, ok := t.catalog.Ethnicity(raw)
		if !ok {
			return table.Missing(), nil
		}
		return table.Str(strconv.Itoa(code)), nil
	})
}

// StandardizeRace rewrites Race to its short code. Unreported values become
// missing.
func (t *Transformer) StandardizeRace(demographics *table.Table) (*table.Table, error) {
	return demographics.MapColumn(terminology.ColRace, func(c table.Cell) (table.Cell, error) {
		raw, ok := c.Get()
		if !ok {
			return table.Missing(), nil
		}
		concept, ok := t.catalog.Race(raw)
		if !ok {
			return table.Missing(), nil
		}
		return table.Str(concept.Code), nil
	})
}

// StandardizeTumorGrade rewrites Tumor Grade to G1, G2 or G3.
func (t *Transformer) StandardizeTumorGrade(diagnostics *table.Table) (*table.Table, error) {
	return diagnostics.MapColumn(terminology.ColTumorGrade, func(c table.Cell) (table.Cell, error) {
		raw, ok := c.Get()
		if !ok {
			return table.Missing(), nil
		}
		grade, ok := t.catalog.Grade(raw)
		if !ok {
			return table.Missing(), nil
		}
		return table.Str(grade), nil
	})
}

// StandardizeAgeAtDiagnosis converts the raw day count to years. "Not
// Applicable" reads as missing; any other non-numeric value is a schema
// violation.
func (t *Transformer) StandardizeAgeAtDiagnosis(diagnostics *table.Table) (*table.Table, error) {
	return diagnostics.MapColumn(terminology.ColAgeAtDiagnosis, func(c table.Cell) (table.Cell, error) {
		raw, ok := c.Get()
		if !ok || raw == terminology.NotApplicable {
			return table.Missing(), nil
		}
		days, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return table.Cell{}, table.SchemaError{
				Table:  diagnostics.Name(),
				Column: terminology.ColAgeAtDiagnosis,
				Reason: fmt.Sprintf("value %q is not a number", raw),
			}
		}
		return table.Str(FormatFloat(days / terminology.DaysPerYear)), nil
	})
}

// FormatFloat renders a float the way it is written into table cells.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
