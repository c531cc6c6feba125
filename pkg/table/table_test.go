package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, name, data string) *Table {
	t.Helper()
	tbl, err := ReadCSV(name, strings.NewReader(data))
	require.NoError(t, err)
	return tbl
}

func TestReadCSVMissingTokens(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a,b\np1,NA,Not Applicable\np2,,unknown\np3,null,x\n")

	require.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.Value(0, "a").IsMissing())
	assert.True(t, tbl.Value(0, "b").Equals("Not Applicable"))
	assert.True(t, tbl.Value(1, "a").IsMissing())
	assert.True(t, tbl.Value(1, "b").Equals("unknown"))
	assert.True(t, tbl.Value(2, "a").IsMissing())
}

func TestReadCSVPadsShortRows(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a,b\np1\n")
	assert.True(t, tbl.Value(0, "id").Equals("p1"))
	assert.True(t, tbl.Value(0, "b").IsMissing())
}

func TestReadCSVRejectsWideRows(t *testing.T) {
	_, err := ReadCSV("demo", strings.NewReader("id\np1,extra\n"))
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV("demo", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	tbl := mustRead(t, "demo", "\ufeffid,a\np1,1\n")
	assert.True(t, tbl.Has("id"))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a\np1,\np2,x\n")

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "id,a\np1,\np2,x\n", buf.String())
}

func TestRequireNamesColumn(t *testing.T) {
	tbl := mustRead(t, "clinical", "id\np1\n")
	err := tbl.Require("id", "Tumor Grade")

	var se SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "clinical", se.Table)
	assert.Equal(t, "Tumor Grade", se.Column)
}

func TestMapColumnLeavesReceiverUntouched(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a\np1,x\n")
	mapped, err := tbl.MapColumn("a", func(c Cell) (Cell, error) {
		return Str(strings.ToUpper(c.String())), nil
	})
	require.NoError(t, err)

	assert.True(t, mapped.Value(0, "a").Equals("X"))
	assert.True(t, tbl.Value(0, "a").Equals("x"))
}

func TestSelectAndFilter(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a,b\np1,1,x\np2,,y\n")

	sel, err := tbl.Select("b", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "id"}, sel.Columns())

	kept, err := tbl.Filter(func(r Row) bool { return !r.Get("a").IsMissing() })
	require.NoError(t, err)
	require.Equal(t, 1, kept.Len())
	assert.True(t, kept.Value(0, "id").Equals("p1"))
	assert.Equal(t, 2, tbl.Len())
}

func TestFilterCanDropEverything(t *testing.T) {
	tbl := mustRead(t, "demo", "id,a\np1,\np2,\n")

	none, err := tbl.Filter(func(r Row) bool { return !r.Get("a").IsMissing() })
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, []string{"id", "a"}, none.Columns())

	var buf bytes.Buffer
	require.NoError(t, none.WriteCSV(&buf))
	assert.Equal(t, "id,a\n", buf.String())
}

func TestNewRejectsCaseOnlyDuplicates(t *testing.T) {
	_, err := New("demo", []string{"Race", "race"}, nil)
	assert.Error(t, err)

	_, err = New("demo", []string{"id", "a"}, [][]Cell{{Str("p1")}})
	assert.Error(t, err)
}

func TestWithColumnAppendsAndReplaces(t *testing.T) {
	tbl := mustRead(t, "demo", "id\np1\np2\n")

	added, err := tbl.WithColumn("n", []Cell{Str("1"), Missing()})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "n"}, added.Columns())

	replaced, err := added.WithColumn("n", []Cell{Str("2"), Str("3")})
	require.NoError(t, err)
	assert.True(t, replaced.Value(1, "n").Equals("3"))
	assert.True(t, added.Value(1, "n").IsMissing())

	_, err = tbl.WithColumn("n", []Cell{Str("1")})
	assert.Error(t, err)
}

func TestLeftJoinMultipliesAndPads(t *testing.T) {
	left := mustRead(t, "left", "id,name\np1,a\np2,b\np3,c\n")
	right := mustRead(t, "right", "id,grade\np1,G1\np1,G2\np3,G3\n")

	joined, err := left.LeftJoin(right, "id")
	require.NoError(t, err)

	require.Equal(t, 4, joined.Len())
	assert.Equal(t, []string{"id", "name", "grade"}, joined.Columns())
	assert.True(t, joined.Value(0, "grade").Equals("G1"))
	assert.True(t, joined.Value(1, "grade").Equals("G2"))
	assert.True(t, joined.Value(2, "id").Equals("p2"))
	assert.True(t, joined.Value(2, "grade").IsMissing())
	assert.True(t, joined.Value(3, "grade").Equals("G3"))
}

func TestLeftJoinMissingKeysMatch(t *testing.T) {
	left := mustRead(t, "left", "id,name\n,a\np1,b\n")
	right := mustRead(t, "right", "id,grade\n,G2\n")

	joined, err := left.LeftJoin(right, "id")
	require.NoError(t, err)
	require.Equal(t, 2, joined.Len())
	assert.True(t, joined.Value(0, "grade").Equals("G2"))
	assert.True(t, joined.Value(1, "grade").IsMissing())
}

func TestLeftJoinSuffixesCollisions(t *testing.T) {
	left := mustRead(t, "left", "id,race\np1,white\n")
	right := mustRead(t, "right", "id,race\np1,asian\n")

	joined, err := left.LeftJoin(right, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "race_x", "race_y"}, joined.Columns())
}

func TestLeftJoinRequiresKey(t *testing.T) {
	left := mustRead(t, "left", "id\np1\n")
	right := mustRead(t, "right", "other\np1\n")

	_, err := left.LeftJoin(right, "id")
	assert.True(t, IsSchemaError(err))
}

func TestPivotFirstValueWins(t *testing.T) {
	long := mustRead(t, "molecular", strings.Join([]string{
		"pid,tp,gene,result",
		"p2,T1,ESR1,positive",
		"p1,T1,PGR,negative",
		"p1,T1,ESR1,",
		"p1,T1,ESR1,positive",
		"p1,T1,ESR1,negative",
		",T1,HER2,positive",
		"p3,T1,,positive",
	}, "\n")+"\n")

	wide, err := long.Pivot([]string{"pid", "tp"}, "gene", "result")
	require.NoError(t, err)

	assert.Equal(t, []string{"pid", "tp", "ESR1", "PGR"}, wide.Columns())
	require.Equal(t, 2, wide.Len())
	assert.True(t, wide.Value(0, "pid").Equals("p1"))
	assert.True(t, wide.Value(0, "ESR1").Equals("positive"))
	assert.True(t, wide.Value(0, "PGR").Equals("negative"))
	assert.True(t, wide.Value(1, "pid").Equals("p2"))
	assert.True(t, wide.Value(1, "PGR").IsMissing())
}
