// Package table holds the small immutable string tables the ETL stages pass
// between each other. Columns are dataframe-go string series. Every operation
// returns a new *Table and leaves its receiver untouched, so intermediate
// pipeline states can be inspected and tested independently.
package table

import (
	"context"
	"fmt"
	"sort"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// Table wraps a dataframe of string series. Series are never written after
// construction, so derived tables share the ones they leave unchanged.
type Table struct {
	name  string
	frame *dataframe.DataFrame
	index map[string]int
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

func (r Row) Get(col string) Cell {
	return r.t.Value(r.i, col)
}

func (r Row) Index() int {
	return r.i
}

// New copies columns and rows into a fresh table. Column names must be unique,
// ignoring case, and every row must have one cell per column.
func New(name string, columns []string, rows [][]Cell) (*Table, error) {
	seen := make(map[string]string, len(columns))
	for _, col := range columns {
		folded := strings.ToLower(col)
		if prev, dup := seen[folded]; dup {
			return nil, fmt.Errorf("table %q: duplicate column %q (already have %q)", name, col, prev)
		}
		seen[folded] = col
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("table %q: row %d has %d cells, want %d", name, i, len(row), len(columns))
		}
	}

	series := make([]dataframe.Series, len(columns))
	for j, col := range columns {
		vals := make([]interface{}, len(rows))
		for i, row := range rows {
			vals[i] = row[j].boxed()
		}
		series[j] = newSeries(col, vals)
	}
	return wrap(name, series), nil
}

func newSeries(col string, vals []interface{}) dataframe.Series {
	return dataframe.NewSeriesString(col, nil, vals...)
}

// wrap builds a table over series whose names are already known to be unique.
func wrap(name string, series []dataframe.Series) *Table {
	index := make(map[string]int, len(series))
	for j, s := range series {
		index[s.Name()] = j
	}
	return &Table{name: name, frame: dataframe.NewDataFrame(series...), index: index}
}

func (t *Table) series() []dataframe.Series {
	return append([]dataframe.Series(nil), t.frame.Series...)
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Columns() []string {
	return t.frame.Names()
}

func (t *Table) Len() int {
	return t.frame.NRows()
}

func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require fails with a SchemaError naming the first absent column.
func (t *Table) Require(cols ...string) error {
	for _, col := range cols {
		if !t.Has(col) {
			return SchemaError{Table: t.name, Column: col}
		}
	}
	return nil
}

// Value returns the cell at row i. An unknown column reads as missing, so
// callers Require their columns first.
func (t *Table) Value(i int, col string) Cell {
	j, ok := t.index[col]
	if !ok {
		return Missing()
	}
	return t.cell(i, j)
}

func (t *Table) cell(i, j int) Cell {
	return unbox(t.frame.Series[j].Value(i))
}

func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

func (t *Table) Column(col string) ([]Cell, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}
	j := t.index[col]
	out := make([]Cell, t.Len())
	for i := range out {
		out[i] = t.cell(i, j)
	}
	return out, nil
}

func (t *Table) Rename(name string) *Table {
	return &Table{name: name, frame: t.frame, index: t.index}
}

// Select projects the table onto cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	picked := make(map[string]struct{}, len(cols))
	series := make([]dataframe.Series, len(cols))
	for k, col := range cols {
		if _, dup := picked[col]; dup {
			return nil, fmt.Errorf("table %q: column %q selected twice", t.name, col)
		}
		picked[col] = struct{}{}
		series[k] = t.frame.Series[t.index[col]]
	}
	return wrap(t.name, series), nil
}

// MapColumn rewrites every cell of col with fn. The first error aborts the
// whole mapping.
func (t *Table) MapColumn(col string, fn func(Cell) (Cell, error)) (*Table, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}
	j := t.index[col]
	vals := make([]interface{}, t.Len())
	for i := range vals {
		mapped, err := fn(t.cell(i, j))
		if err != nil {
			return nil, fmt.Errorf("table %q row %d column %q: %w", t.name, i, col, err)
		}
		vals[i] = mapped.boxed()
	}
	series := t.series()
	series[j] = newSeries(col, vals)
	return wrap(t.name, series), nil
}

// MapCells applies fn to every cell of every column.
func (t *Table) MapCells(fn func(Cell) Cell) *Table {
	series := t.series()
	for j, s := range series {
		vals := make([]interface{}, t.Len())
		for i := range vals {
			vals[i] = fn(t.cell(i, j)).boxed()
		}
		series[j] = newSeries(s.Name(), vals)
	}
	return wrap(t.name, series)
}

// Filter keeps the rows for which keep reports true, in order.
func (t *Table) Filter(keep func(Row) bool) (*Table, error) {
	if t.Len() == 0 {
		return t, nil
	}
	fn := dataframe.FilterDataFrameFn(func(_ map[interface{}]interface{}, row, _ int) (dataframe.FilterAction, error) {
		if keep(Row{t: t, i: row}) {
			return dataframe.KEEP, nil
		}
		return dataframe.DROP, nil
	})
	out, err := dataframe.Filter(context.Background(), t.frame, fn)
	if err != nil {
		return nil, fmt.Errorf("table %q: filter: %w", t.name, err)
	}
	return &Table{name: t.name, frame: out.(*dataframe.DataFrame), index: t.index}, nil
}

// WithColumn appends col, or replaces it when it already exists.
func (t *Table) WithColumn(col string, values []Cell) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("table %q: column %q has %d values, want %d", t.name, col, len(values), t.Len())
	}
	vals := make([]interface{}, len(values))
	for i, c := range values {
		vals[i] = c.boxed()
	}

	series := t.series()
	if j, exists := t.index[col]; exists {
		series[j] = newSeries(col, vals)
		return wrap(t.name, series), nil
	}
	for _, existing := range t.Columns() {
		if strings.EqualFold(existing, col) {
			return nil, fmt.Errorf("table %q: column %q clashes with %q", t.name, col, existing)
		}
	}
	return wrap(t.name, append(series, newSeries(col, vals))), nil
}

// rows materializes the table row by row for the reshaping operations.
func (t *Table) rows() [][]Cell {
	out := make([][]Cell, t.Len())
	width := len(t.frame.Series)
	for i := range out {
		row := make([]Cell, width)
		for j := 0; j < width; j++ {
			row[j] = t.cell(i, j)
		}
		out[i] = row
	}
	return out
}

// LeftJoin merges right into t on key. Every left row is kept in order; it is
// repeated once per matching right row and padded with missing cells when
// nothing matches. Missing keys match missing keys. Non-key columns present on
// both sides are suffixed "_x" (left) and "_y" (right).
func (t *Table) LeftJoin(right *Table, key string) (*Table, error) {
	if err := t.Require(key); err != nil {
		return nil, err
	}
	if err := right.Require(key); err != nil {
		return nil, err
	}

	lk, rk := t.index[key], right.index[key]
	leftRows, rightRows := t.rows(), right.rows()
	leftCols, rightNames := t.Columns(), right.Columns()

	matches := make(map[Cell][]int)
	for i, row := range rightRows {
		matches[row[rk]] = append(matches[row[rk]], i)
	}

	var rightCols []int
	for j := range rightNames {
		if j != rk {
			rightCols = append(rightCols, j)
		}
	}

	columns := make([]string, 0, len(leftCols)+len(rightCols))
	for j, col := range leftCols {
		if j != lk && right.Has(col) {
			col += "_x"
		}
		columns = append(columns, col)
	}
	for _, j := range rightCols {
		col := rightNames[j]
		if t.Has(col) {
			col += "_y"
		}
		columns = append(columns, col)
	}

	var rows [][]Cell
	for _, row := range leftRows {
		hits := matches[row[lk]]
		if len(hits) == 0 {
			out := make([]Cell, len(columns))
			copy(out, row)
			rows = append(rows, out)
			continue
		}
		for _, h := range hits {
			out := make([]Cell, 0, len(columns))
			out = append(out, row...)
			for _, j := range rightCols {
				out = append(out, rightRows[h][j])
			}
			rows = append(rows, out)
		}
	}

	return New(t.name, columns, rows)
}

// Pivot reshapes a long table into one row per distinct index tuple and one
// column per distinct value of columnsCol. Each output cell holds the first
// non-missing valuesCol entry, in input order, for its (index, column) pair.
// Rows with a missing index or column key are dropped, as are index tuples and
// columns that end up with no values at all. Output rows are sorted by index,
// value columns by name.
func (t *Table) Pivot(index []string, columnsCol, valuesCol string) (*Table, error) {
	if err := t.Require(append(append([]string(nil), index...), columnsCol, valuesCol)...); err != nil {
		return nil, err
	}

	type group struct {
		keys   []Cell
		values map[string]Cell
	}
	groups := make(map[string]*group)
	seenColumns := make(map[string]struct{})

rows:
	for i := 0; i < t.Len(); i++ {
		keys := make([]Cell, len(index))
		parts := make([]string, len(index))
		for k, col := range index {
			c := t.Value(i, col)
			v, ok := c.Get()
			if !ok {
				continue rows
			}
			keys[k] = c
			parts[k] = v
		}
		colName, ok := t.Value(i, columnsCol).Get()
		if !ok {
			continue
		}
		value := t.Value(i, valuesCol)
		if value.IsMissing() {
			continue
		}

		gk := strings.Join(parts, "\x00")
		g, ok := groups[gk]
		if !ok {
			g = &group{keys: keys, values: make(map[string]Cell)}
			groups[gk] = g
		}
		if _, taken := g.values[colName]; !taken {
			g.values[colName] = value
			seenColumns[colName] = struct{}{}
		}
	}

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Slice(groupKeys, func(a, b int) bool {
		ka, kb := groups[groupKeys[a]].keys, groups[groupKeys[b]].keys
		for k := range ka {
			va, vb := ka[k].String(), kb[k].String()
			if va != vb {
				return va < vb
			}
		}
		return false
	})

	valueCols := make([]string, 0, len(seenColumns))
	for c := range seenColumns {
		valueCols = append(valueCols, c)
	}
	sort.Strings(valueCols)

	columns := append(append([]string(nil), index...), valueCols...)
	out := make([][]Cell, 0, len(groupKeys))
	for _, gk := range groupKeys {
		g := groups[gk]
		row := make([]Cell, 0, len(columns))
		row = append(row, g.keys...)
		for _, c := range valueCols {
			row = append(row, g.values[c])
		}
		out = append(out, row)
	}

	return New(t.name, columns, out)
}
