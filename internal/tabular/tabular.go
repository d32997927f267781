// Package tabular defines the row/column data model shared by the table
// locator, the legacy columnar reader and the normalization stage.
package tabular

// RawGrid is a rectangular grid of text cells. Header rows, when present,
// are kept separate from data rows. Every row in a padded grid has the same
// cell count; an empty cell is the empty string.
type RawGrid struct {
	HeaderRows [][]string
	Rows       [][]string
}

// Width returns the widest row across header and data rows.
func (g *RawGrid) Width() int {
	w := 0
	for _, r := range g.HeaderRows {
		if len(r) > w {
			w = len(r)
		}
	}
	for _, r := range g.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Pad extends every row to the grid width with empty cells. Short rows are
// not an error; they come from ragged markup.
func (g *RawGrid) Pad() {
	w := g.Width()
	g.HeaderRows = padRows(g.HeaderRows, w)
	g.Rows = padRows(g.Rows, w)
}

func padRows(rows [][]string, w int) [][]string {
	for i, r := range rows {
		for len(r) < w {
			r = append(r, "")
		}
		rows[i] = r
	}
	return rows
}

// HasText reports whether any cell in the grid contains a non-empty value.
func (g *RawGrid) HasText() bool {
	for _, rows := range [][][]string{g.HeaderRows, g.Rows} {
		for _, r := range rows {
			for _, c := range r {
				if c != "" {
					return true
				}
			}
		}
	}
	return false
}

// Kind is the inferred storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "text"
	}
}

// Column holds one named, typed column. Exactly one of the value slices is
// populated, chosen by Kind; Nulls runs parallel to it. Dictionary marks a
// text column selected for dictionary encoding on output.
type Column struct {
	Name       string
	Kind       Kind
	Text       []string
	Ints       []int64
	Floats     []float64
	Bools      []bool
	Nulls      []bool
	Dictionary bool
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindInt:
		return len(c.Ints)
	case KindFloat:
		return len(c.Floats)
	case KindBool:
		return len(c.Bools)
	default:
		return len(c.Text)
	}
}

// Table is the final normalized artifact: equal-length columns with unique
// names, all limits already enforced.
type Table struct {
	Columns []Column
}

// NumRows returns the row count, zero for a table with no columns.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }
