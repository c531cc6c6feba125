package normalizer

import (
	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/synaptica-ai/dcis/pkg/terminology"
)

var molecularColumns = []string{
	terminology.ColParticipantID,
	terminology.ColTimepointLabel,
	terminology.ColGeneSymbol,
	terminology.ColTestResult,
}

// TidyMolecularTest pivots the long molecular test table into one row per
// (participant, timepoint) with one column per gene symbol. Duplicate
// observations resolve to the first non-missing result in input order.
func TidyMolecularTest(molecular *table.Table) (*table.Table, error) {
	projected, err := molecular.Select(molecularColumns...)
	if err != nil {
		return nil, err
	}
	return projected.Pivot(
		[]string{terminology.ColParticipantID, terminology.ColTimepointLabel},
		terminology.ColGeneSymbol,
		terminology.ColTestResult,
	)
}

// BinarizeBiomarkers sets each gene column to "1" when its result is exactly
// "positive" and "0" otherwise. Genes absent from the pivot are added as all
// zero.
func BinarizeBiomarkers(pivot *table.Table, genes []string) (*table.Table, error) {
	out := pivot
	for _, gene := range genes {
		values := make([]table.Cell, out.Len())
		for i := range values {
			if out.Value(i, gene).Equals(terminology.PositiveResult) {
				values[i] = table.Str("1")
			} else {
				values[i] = table.Str("0")
			}
		}
		next, err := out.WithColumn(gene, values)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
