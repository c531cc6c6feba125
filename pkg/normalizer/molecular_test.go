package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/synaptica-ai/dcis/pkg/terminology"
)

func TestTidyMolecularTest(t *testing.T) {
	mol := readTable(t, "molecular",
		"HTAN Participant ID,Timepoint Label,Gene Symbol,Test Result,Assay",
		"p1,T1,ESR1,positive,ihc",
		"p1,T1,ESR1,negative,ihc",
		"p1,T1,PGR,negative,ihc",
		"p2,T1,ERBB2,positive,ihc",
	)

	tidy, err := TidyMolecularTest(mol)
	require.NoError(t, err)

	assert.Equal(t, []string{"HTAN Participant ID", "Timepoint Label", "ERBB2", "ESR1", "PGR"}, tidy.Columns())
	require.Equal(t, 2, tidy.Len())
	assert.True(t, tidy.Value(0, "ESR1").Equals("positive"))
	assert.True(t, tidy.Value(0, "ERBB2").IsMissing())
	assert.True(t, tidy.Value(1, "ERBB2").Equals("positive"))
}

func TestTidyMolecularTestRequiresColumns(t *testing.T) {
	mol := readTable(t, "molecular",
		"HTAN Participant ID,Timepoint Label,Test Result",
		"p1,T1,positive",
	)

	_, err := TidyMolecularTest(mol)
	var se table.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Gene Symbol", se.Column)
}

func TestBinarizeBiomarkers(t *testing.T) {
	pivot := readTable(t, "molecular",
		"HTAN Participant ID,ERBB2,ESR1,PGR",
		"p1,positive,Positive,",
		"p2,negative,positive,unknown",
	)

	out, err := BinarizeBiomarkers(pivot, terminology.Biomarkers)
	require.NoError(t, err)

	want := map[string][]string{
		"ERBB2": {"1", "0"},
		"ESR1":  {"0", "1"},
		"HER2":  {"0", "0"},
		"PGR":   {"0", "0"},
	}
	for gene, values := range want {
		for i, v := range values {
			assert.True(t, out.Value(i, gene).Equals(v), "%s row %d", gene, i)
		}
	}
	assert.False(t, pivot.Has("HER2"))
}
