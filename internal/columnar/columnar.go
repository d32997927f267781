// Package columnar reads legacy columnar snapshots and writes the final
// normalized table artifact. Both sides of the boundary are parquet; the
// legacy container is recognized elsewhere by its PAR1 magic.
package columnar

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/workbenchdata/tablescrape/internal/tabular"
)

// Read materializes a legacy columnar snapshot into a typed table,
// preserving column order and names exactly as stored.
func Read(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open columnar snapshot: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat columnar snapshot: %w", err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read columnar snapshot: %w", err)
	}

	fields := pf.Schema().Fields()
	table := &tabular.Table{Columns: make([]tabular.Column, len(fields))}
	for i, field := range fields {
		table.Columns[i] = tabular.Column{
			Name: field.Name(),
			Kind: kindOf(field),
		}
	}

	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, table); err != nil {
			return nil, fmt.Errorf("read columnar rows: %w", err)
		}
	}
	return table, nil
}

func kindOf(field parquet.Field) tabular.Kind {
	if !field.Leaf() {
		return tabular.KindText
	}
	switch field.Type().Kind() {
	case parquet.Boolean:
		return tabular.KindBool
	case parquet.Int32, parquet.Int64:
		return tabular.KindInt
	case parquet.Float, parquet.Double:
		return tabular.KindFloat
	default:
		return tabular.KindText
	}
}

func readRowGroup(rg parquet.RowGroup, table *tabular.Table) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, 128)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				appendValue(&table.Columns[v.Column()], v)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func appendValue(col *tabular.Column, v parquet.Value) {
	null := v.IsNull()
	col.Nulls = append(col.Nulls, null)
	switch col.Kind {
	case tabular.KindBool:
		b := false
		if !null {
			b = v.Boolean()
		}
		col.Bools = append(col.Bools, b)
	case tabular.KindInt:
		var n int64
		if !null {
			if v.Kind() == parquet.Int32 {
				n = int64(v.Int32())
			} else {
				n = v.Int64()
			}
		}
		col.Ints = append(col.Ints, n)
	case tabular.KindFloat:
		var f float64
		if !null {
			if v.Kind() == parquet.Float {
				f = float64(v.Float())
			} else {
				f = v.Double()
			}
		}
		col.Floats = append(col.Floats, f)
	default:
		s := ""
		if !null {
			s = v.String()
		}
		col.Text = append(col.Text, s)
	}
}

// DemoteToText renders every value back to its text form so legacy tables
// re-enter the pipeline as if freshly extracted: integers in base 10,
// floats in their shortest representation, booleans as true/false, nulls as
// empty cells. The returned labels are the stored column names.
func DemoteToText(t *tabular.Table) (labels []string, rows [][]string) {
	labels = make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Name
	}
	n := t.NumRows()
	rows = make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.Columns))
		for c := range t.Columns {
			row[c] = textValue(&t.Columns[c], r)
		}
		rows[r] = row
	}
	return labels, rows
}

func textValue(col *tabular.Column, i int) string {
	if col.Nulls[i] {
		return ""
	}
	switch col.Kind {
	case tabular.KindInt:
		return strconv.FormatInt(col.Ints[i], 10)
	case tabular.KindFloat:
		return strconv.FormatFloat(col.Floats[i], 'g', -1, 64)
	case tabular.KindBool:
		return strconv.FormatBool(col.Bools[i])
	default:
		return col.Text[i]
	}
}

// orderedNode wraps a parquet group so its fields keep table column order
// instead of the name-sorted order parquet.Group imposes.
type orderedNode struct {
	parquet.Node
	fields []parquet.Field
}

func (n orderedNode) Fields() []parquet.Field { return n.fields }

func buildSchema(t *tabular.Table) *parquet.Schema {
	group := parquet.Group{}
	for i := range t.Columns {
		c := &t.Columns[i]
		var node parquet.Node
		switch c.Kind {
		case tabular.KindInt:
			node = parquet.Int(64)
		case tabular.KindFloat:
			node = parquet.Leaf(parquet.DoubleType)
		case tabular.KindBool:
			node = parquet.Leaf(parquet.BooleanType)
		default:
			node = parquet.String()
			if c.Dictionary {
				node = parquet.Encoded(node, &parquet.RLEDictionary)
			} else {
				node = parquet.Encoded(node, &parquet.Plain)
			}
		}
		group[c.Name] = parquet.Optional(node)
	}

	sorted := group.Fields()
	byName := make(map[string]parquet.Field, len(sorted))
	for _, f := range sorted {
		byName[f.Name()] = f
	}
	fields := make([]parquet.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = byName[c.Name]
	}
	return parquet.NewSchema("table", orderedNode{Node: group, fields: fields})
}

// Write persists the normalized table at path. The artifact always exists;
// a table with no columns leaves the zero-byte placeholder untouched.
func Write(path string, t *tabular.Table) error {
	if t.NumCols() == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	schema := buildSchema(t)
	w := parquet.NewGenericWriter[map[string]any](f, schema)

	n := t.NumRows()
	rows := make([]map[string]any, n)
	for r := 0; r < n; r++ {
		row := make(map[string]any, len(t.Columns))
		for c := range t.Columns {
			col := &t.Columns[c]
			if col.Nulls[r] {
				row[col.Name] = nil
				continue
			}
			switch col.Kind {
			case tabular.KindInt:
				row[col.Name] = col.Ints[r]
			case tabular.KindFloat:
				row[col.Name] = col.Floats[r]
			case tabular.KindBool:
				row[col.Name] = col.Bools[r]
			default:
				row[col.Name] = col.Text[r]
			}
		}
		rows[r] = row
	}

	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return fmt.Errorf("write artifact rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return f.Close()
}
