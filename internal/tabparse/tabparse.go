// Package tabparse is the delimited-text tokenizer and type-inference stage
// the normalization pipeline round-trips through. It reads a CSV file whose
// first record is always the header, enforces every size limit from the
// settings, cleans column names, and opportunistically types the columns.
package tabparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
	"github.com/workbenchdata/tablescrape/internal/tabular"
)

// Parse tokenizes the CSV file at path into a typed, size-bounded table.
// The returned diagnostics are non-fatal cleanup and truncation reports in
// detection order. The error return is reserved for I/O faults.
func Parse(path string, s config.Settings) (*tabular.Table, []diag.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var diags []diag.Diagnostic

	st, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat csv: %w", err)
	}
	var src io.Reader = f
	capped := false
	if st.Size() > int64(s.MaxCSVBytes) {
		src = io.LimitReader(f, int64(s.MaxCSVBytes))
		capped = true
		diags = append(diags, diag.CSVTruncated(s.MaxCSVBytes))
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return &tabular.Table{}, diags, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	ncols := len(header)
	if ncols > s.MaxColumnsPerTable {
		diags = append(diags, diag.ColumnsTruncated(ncols-s.MaxColumnsPerTable, s.MaxColumnsPerTable))
		ncols = s.MaxColumnsPerTable
		header = header[:ncols]
	}

	names, nameDiags := cleanNames(header, s.MaxBytesPerColumnName)
	diags = append(diags, nameDiags...)

	cols := make([][]string, ncols)
	var (
		nRows         int
		skippedRows   int
		truncatedVals int
		totalBytes    int
		byteCapHit    bool
	)

readLoop:
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if capped {
				// The byte cap may have cut the final record mid-field.
				break
			}
			return nil, nil, fmt.Errorf("read csv record: %w", err)
		}

		if nRows >= s.MaxRowsPerTable {
			skippedRows++
			continue
		}

		row := make([]string, ncols)
		rowBytes := 0
		for i := 0; i < ncols; i++ {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			if len(v) > s.MaxBytesPerValue {
				v = truncateBytes(v, s.MaxBytesPerValue)
				truncatedVals++
			}
			row[i] = v
			rowBytes += len(v)
		}
		if totalBytes+rowBytes > s.MaxBytesTextData {
			byteCapHit = true
			break readLoop
		}
		totalBytes += rowBytes
		for i, v := range row {
			cols[i] = append(cols[i], v)
		}
		nRows++
	}

	if skippedRows > 0 {
		diags = append(diags, diag.RowsTruncated(skippedRows, s.MaxRowsPerTable))
	}
	if truncatedVals > 0 {
		diags = append(diags, diag.ValuesTruncated(truncatedVals, s.MaxBytesPerValue))
	}
	if byteCapHit {
		diags = append(diags, diag.TextTruncated(s.MaxBytesTextData))
	}

	table := &tabular.Table{Columns: make([]tabular.Column, ncols)}
	for i := range cols {
		table.Columns[i] = inferColumn(names[i], cols[i], s)
	}
	return table, diags, nil
}

// cleanNames makes header labels usable as column names: blanks get
// positional placeholders, over-long names are cut at a byte boundary, and
// duplicates are numbered deterministically by position. Each distinct
// cleanup reason reports once, with the affected count and the first
// resulting name as an example.
func cleanNames(raw []string, maxBytes int) ([]string, []diag.Diagnostic) {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))

	type reason struct {
		count int
		first string
	}
	var defaulted, truncated, numbered reason

	note := func(r *reason, name string) {
		r.count++
		if r.first == "" {
			r.first = name
		}
	}

	for i, name := range raw {
		name = strings.TrimSpace(name)
		wasBlank := name == ""
		if wasBlank {
			name = "Column " + strconv.Itoa(i+1)
		}
		if len(name) > maxBytes {
			name = truncateBytes(name, maxBytes)
			note(&truncated, name)
		}
		if used[name] {
			base := name
			for n := 2; ; n++ {
				suffix := " " + strconv.Itoa(n)
				candidate := base + suffix
				if len(candidate) > maxBytes {
					candidate = truncateBytes(base, maxBytes-len(suffix)) + suffix
				}
				if len(candidate) > maxBytes {
					// The limit cannot hold any numeric suffix. The byte
					// bound wins over uniqueness.
					name = truncateBytes(candidate, maxBytes)
					break
				}
				if !used[candidate] {
					name = candidate
					break
				}
			}
			note(&numbered, name)
		}
		if wasBlank {
			note(&defaulted, name)
		}
		used[name] = true
		names[i] = name
	}

	var diags []diag.Diagnostic
	if defaulted.count > 0 {
		diags = append(diags, diag.ColnameCleanup(diag.CodeColnamesDefault, defaulted.count, defaulted.first))
	}
	if truncated.count > 0 {
		diags = append(diags, diag.ColnameCleanup(diag.CodeColnamesTruncated, truncated.count, truncated.first))
	}
	if numbered.count > 0 {
		diags = append(diags, diag.ColnameCleanup(diag.CodeColnamesNumbered, numbered.count, numbered.first))
	}
	return names, diags
}

// truncateBytes cuts s to at most max bytes, trimming a trailing rune
// fragment so the cut never splits a multi-byte rune. Bytes before the cut
// are kept as-is, even when the input was never valid UTF-8.
func truncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for i := 0; i < 3 && cut != ""; i++ {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}

// inferColumn converts a text column to the narrowest type every non-empty
// value fits: canonical integers first, then floats, then booleans,
// otherwise text. Empty cells become nulls in typed columns. Text columns
// additionally carry the dictionary-encoding decision.
func inferColumn(name string, vals []string, s config.Settings) tabular.Column {
	col := tabular.Column{Name: name}

	nonEmpty := 0
	for _, v := range vals {
		if v != "" {
			nonEmpty++
		}
	}
	if nonEmpty > 0 {
		if ints, ok := tryInts(vals); ok {
			col.Kind = tabular.KindInt
			col.Ints = ints
			col.Nulls = emptyNulls(vals)
			return col
		}
		if floats, ok := tryFloats(vals); ok {
			col.Kind = tabular.KindFloat
			col.Floats = floats
			col.Nulls = emptyNulls(vals)
			return col
		}
		if bools, ok := tryBools(vals); ok {
			col.Kind = tabular.KindBool
			col.Bools = bools
			col.Nulls = emptyNulls(vals)
			return col
		}
	}

	col.Kind = tabular.KindText
	col.Text = vals
	col.Nulls = make([]bool, len(vals))
	col.Dictionary = wantDictionary(vals, s)
	return col
}

// tryInts accepts only canonical base-10 integers, so values like "007"
// keep their text form instead of silently losing digits.
func tryInts(vals []string) ([]int64, bool) {
	out := make([]int64, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || strconv.FormatInt(n, 10) != v {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func tryFloats(vals []string) ([]float64, bool) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func tryBools(vals []string) ([]bool, bool) {
	out := make([]bool, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		switch strings.ToLower(v) {
		case "true":
			out[i] = true
		case "false":
			out[i] = false
		default:
			return nil, false
		}
	}
	return out, true
}

func emptyNulls(vals []string) []bool {
	nulls := make([]bool, len(vals))
	for i, v := range vals {
		nulls[i] = v == ""
	}
	return nulls
}

// wantDictionary applies the dictionary-encoding heuristics: the distinct
// payload must fit the absolute cap and the plain payload must be at least
// the configured ratio larger.
func wantDictionary(vals []string, s config.Settings) bool {
	if len(vals) == 0 {
		return false
	}
	plain := 0
	dict := 0
	seen := make(map[string]bool)
	for _, v := range vals {
		plain += len(v)
		if !seen[v] {
			seen[v] = true
			dict += len(v)
		}
	}
	if dict > s.MaxDictionaryBytes || dict == 0 {
		return false
	}
	return float64(plain) >= s.MinDictionaryCompressionRatio*float64(dict)
}
