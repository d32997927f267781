package render

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/workbenchdata/tablescrape/internal/columnar"
	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
	"github.com/workbenchdata/tablescrape/internal/tabparse"
)

// writeRecord emits one CSV record with every field quoted. Always quoting
// keeps an all-empty record on the wire; encoding/csv's writer would emit a
// blank line there, which its reader then skips, silently dropping the
// record for single-column grids.
func writeRecord(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// normalizeGrid turns a rectangular text grid into the final typed artifact
// at outputPath. Header resolution happens here; everything downstream of
// it (name cleanup, limits, type inference) is delegated to the tabular
// parser by round-tripping through a scoped CSV temp file, so one code path
// owns those semantics for both fresh extraction and legacy reprocessing.
func normalizeGrid(rows [][]string, labels []string, firstRowIsHeader bool, s config.Settings, outputPath string) ([]diag.Diagnostic, error) {
	width := len(labels)
	if width == 0 && len(rows) > 0 {
		width = len(rows[0])
	}
	if width == 0 {
		return []diag.Diagnostic{diag.NoColumns()}, nil
	}

	var header []string
	data := rows
	if firstRowIsHeader && len(rows) > 0 {
		// The first data row becomes the header source; the supplied labels
		// are discarded.
		header = rows[0]
		data = rows[1:]
	} else {
		// With zero data rows this quietly falls back to the supplied
		// labels; that case is never an error.
		header = make([]string, width)
		copy(header, labels)
	}

	tf, err := os.CreateTemp("", "tablescrape-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create intermediate csv: %w", err)
	}
	defer os.Remove(tf.Name())
	defer tf.Close()

	w := bufio.NewWriter(tf)
	writeRecord(w, header)
	for _, row := range data {
		writeRecord(w, row)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("write intermediate csv: %w", err)
	}
	if err := tf.Close(); err != nil {
		return nil, fmt.Errorf("flush intermediate csv: %w", err)
	}

	table, diags, err := tabparse.Parse(tf.Name(), s)
	if err != nil {
		return nil, fmt.Errorf("parse intermediate csv: %w", err)
	}
	if table.NumCols() == 0 {
		return append(diags, diag.NoColumns()), nil
	}
	if err := columnar.Write(outputPath, table); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	return diags, nil
}
