package render

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/workbenchdata/tablescrape/internal/capture"
	"github.com/workbenchdata/tablescrape/internal/columnar"
	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
	"github.com/workbenchdata/tablescrape/internal/tabular"
)

func testSettings() config.Settings {
	return config.Settings{
		MaxRowsPerTable:               1000,
		MaxColumnsPerTable:            10,
		MaxBytesPerValue:              10000,
		MaxBytesTextData:              100000,
		MaxBytesPerColumnName:         100,
		MaxCSVBytes:                   1000000,
		MaxDictionaryBytes:            1000,
		MinDictionaryCompressionRatio: 2.0,
	}
}

func writeCaptureSnapshot(t *testing.T, statusLine string, headers []capture.Header, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := capture.Write(path, "http://example.org/file", statusLine, headers, strings.NewReader(body)); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	return path
}

func htmlHeaders() []capture.Header {
	return []capture.Header{{Name: "Content-Type", Value: "text/html; charset=utf-8"}}
}

func artifactPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "table.parquet")
}

func assertEmptyArtifact(t *testing.T, path string) {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	if st.Size() != 0 {
		t.Fatalf("artifact size = %d, want explicitly empty", st.Size())
	}
}

func readArtifact(t *testing.T, path string) *tabular.Table {
	t.Helper()
	table, err := columnar.Read(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	return table
}

func TestRender_EmptySnapshot(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := os.WriteFile(snap, nil, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v, want none", diags)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_CarriedFetchDiagnosticsArePrepended(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := os.WriteFile(snap, nil, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	carried := []diag.Diagnostic{{Code: diag.CodeHTTPTimeout}}
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, carried)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !reflect.DeepEqual(diags, carried) {
		t.Fatalf("diags = %v, want exactly the carried ones", diags)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_CaptureHappyPath(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(), `
		<html><body>
			<table>
				<thead><tr><th>A</th><th>B</th></tr></thead>
				<tbody>
					<tr><td>1</td><td>a</td></tr>
					<tr><td>2</td><td>b</td></tr>
				</tbody>
			</table>
		</body></html>`)
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v, want none", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "A" || table.Columns[1].Name != "B" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
	if table.Columns[0].Kind != tabular.KindInt || !reflect.DeepEqual(table.Columns[0].Ints, []int64{1, 2}) {
		t.Fatalf("column A = %+v, want re-inferred ints", table.Columns[0])
	}
	if !reflect.DeepEqual(table.Columns[1].Text, []string{"a", "b"}) {
		t.Fatalf("column B = %+v", table.Columns[1])
	}
}

func TestRender_MissingCharsetFallsBackToDocument(t *testing.T) {
	body := `
		<table>
			<thead><tr><th>ééééé</th></tr></thead>
			<tbody><tr><td>a</td></tr></tbody>
		</table>`
	for _, headers := range [][]capture.Header{
		{{Name: "Content-Type", Value: "text/html"}},
		nil,
	} {
		snap := writeCaptureSnapshot(t, "200 OK", headers, body)
		out := artifactPath(t)
		diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if len(diags) != 0 {
			t.Fatalf("diags = %v", diags)
		}
		table := readArtifact(t, out)
		if table.Columns[0].Name != "ééééé" {
			t.Fatalf("name = %q, want decoded utf-8", table.Columns[0].Name)
		}
	}
}

func TestRender_FirstRowIsHeaderPromotesFirstDataRow(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(), `
		<table>
			<thead><tr><th>A</th><th>B</th></tr></thead>
			<tbody>
				<tr><td>1</td><td>a</td></tr>
				<tr><td>2</td><td>b</td></tr>
			</tbody>
		</table>`)
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1, FirstRowIsHeader: true}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	// The marked-up header is discarded; the first data row becomes the
	// header and the remaining row re-infers its types.
	if table.Columns[0].Name != "1" || table.Columns[1].Name != "a" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
	if !reflect.DeepEqual(table.Columns[0].Ints, []int64{2}) {
		t.Fatalf("column 0 = %+v", table.Columns[0])
	}
	if !reflect.DeepEqual(table.Columns[1].Text, []string{"b"}) {
		t.Fatalf("column 1 = %+v", table.Columns[1])
	}
}

func TestRender_FirstRowIsHeaderWithZeroRows(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<html><body><table><tr><th>A</th><th>B</th></tr></table></body></html>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1, FirstRowIsHeader: true}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v, zero data rows must not be an error", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "A" || table.Columns[1].Name != "B" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
	if table.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", table.NumRows())
	}
}

func TestRender_WrongTablenum(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<html><body><table><tr><th>A</th></tr><tr><td>a</td></tr></table></body></html>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 2}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []diag.Diagnostic{diag.BadTablenum(1)}
	if !reflect.DeepEqual(diags, want) {
		t.Fatalf("diags = %v, want %v", diags, want)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_TablenumZeroIsInvalid(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<table><tr><td>a</td></tr></table>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 0}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeBadTablenum {
		t.Fatalf("diags = %v", diags)
	}
}

func TestRender_HTTPNotOk(t *testing.T) {
	snap := writeCaptureSnapshot(t, "404 Not Found", htmlHeaders(),
		"<html><body>Not found</body></html>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []diag.Diagnostic{diag.HTTPNotOk("404 Not Found")}
	if !reflect.DeepEqual(diags, want) {
		t.Fatalf("diags = %v, want %v", diags, want)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_NoTables(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<html><body><p>no tables here</p></body></html>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []diag.Diagnostic{diag.NoTables()}
	if !reflect.DeepEqual(diags, want) {
		t.Fatalf("diags = %v, want %v", diags, want)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_ColspanHeadersMerge(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(), `
		<table>
			<thead>
				<tr><th colspan="2">Category</th></tr>
				<tr><th>A</th><th>B</th></tr>
			</thead>
			<tbody><tr><td>x</td><td>y</td></tr></tbody>
		</table>`)
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "Category - A" || table.Columns[1].Name != "Category - B" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
}

func TestRender_SecondTableByOrdinal(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(), `
		<table><tr><th>first</th></tr><tr><td>1</td></tr></table>
		<table><tr><th>second</th></tr><tr><td>2</td></tr></table>`)
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 2}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "second" {
		t.Fatalf("name = %q, want second", table.Columns[0].Name)
	}
}

func TestRender_LegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "legacy.parquet")
	legacy := &tabular.Table{Columns: []tabular.Column{
		{Name: "A", Kind: tabular.KindInt, Ints: []int64{1, 2}, Nulls: []bool{false, false}},
		{Name: "B", Kind: tabular.KindText, Text: []string{"a", "b"}, Nulls: []bool{false, false}},
	}}
	if err := columnar.Write(snap, legacy); err != nil {
		t.Fatalf("write legacy snapshot: %v", err)
	}

	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "A" || table.Columns[1].Name != "B" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
	// Values demote to text and re-infer: integers stay integers.
	if table.Columns[0].Kind != tabular.KindInt || !reflect.DeepEqual(table.Columns[0].Ints, []int64{1, 2}) {
		t.Fatalf("column A = %+v", table.Columns[0])
	}
	if !reflect.DeepEqual(table.Columns[1].Text, []string{"a", "b"}) {
		t.Fatalf("column B = %+v", table.Columns[1])
	}
}

func TestRender_LegacySnapshotFirstRowIsHeader(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "legacy.parquet")
	legacy := &tabular.Table{Columns: []tabular.Column{
		{Name: "1", Kind: tabular.KindText, Text: []string{"A", "1", "2"}, Nulls: make([]bool, 3)},
		{Name: "2", Kind: tabular.KindText, Text: []string{"B", "a", "b"}, Nulls: make([]bool, 3)},
	}}
	if err := columnar.Write(snap, legacy); err != nil {
		t.Fatalf("write legacy snapshot: %v", err)
	}

	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1, FirstRowIsHeader: true}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "A" || table.Columns[1].Name != "B" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
	if table.Columns[0].Kind != tabular.KindInt || !reflect.DeepEqual(table.Columns[0].Ints, []int64{1, 2}) {
		t.Fatalf("column A = %+v", table.Columns[0])
	}
}

func TestRender_SingleColumnNoHeader(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<table><tr><td>x</td></tr><tr><td>y</td></tr></table>")
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeColnamesDefault {
		t.Fatalf("diags = %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "Column 1" {
		t.Fatalf("name = %q", table.Columns[0].Name)
	}
	if !reflect.DeepEqual(table.Columns[0].Text, []string{"x", "y"}) {
		t.Fatalf("values = %+v, both data rows must survive", table.Columns[0])
	}
}

func TestRender_UndecodableCaptureReportsNoTables(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := os.WriteFile(snap, []byte("not a capture"), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeNoTables {
		t.Fatalf("diags = %v", diags)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_CorruptLegacySnapshotReportsNoTables(t *testing.T) {
	// The columnar magic alone classifies the snapshot; a body that then
	// fails to decode degrades like an undecodable capture, not a fault.
	snap := filepath.Join(t.TempDir(), "legacy.parquet")
	if err := os.WriteFile(snap, []byte("PAR1 this is not columnar data"), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeNoTables {
		t.Fatalf("diags = %v", diags)
	}
	assertEmptyArtifact(t, out)
}

func TestRender_GuardrailDiagnosticsFollowCarried(t *testing.T) {
	snap := writeCaptureSnapshot(t, "200 OK", htmlHeaders(),
		"<table><tr><td>1</td><td>2</td></tr></table>")
	carried := []diag.Diagnostic{{Code: diag.CodeHTTPTimeout}}
	out := artifactPath(t)
	diags, err := Render(snap, Params{TableNum: 1}, testSettings(), out, carried)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(diags) < 2 {
		t.Fatalf("diags = %v, want carried plus cleanup", diags)
	}
	if diags[0].Code != diag.CodeHTTPTimeout {
		t.Fatalf("carried diagnostic must come first, got %v", diags)
	}
	if diags[1].Code != diag.CodeColnamesDefault {
		t.Fatalf("expected auto-name cleanup after carried, got %v", diags)
	}
	table := readArtifact(t, out)
	if table.Columns[0].Name != "Column 1" || table.Columns[1].Name != "Column 2" {
		t.Fatalf("names = %q, %q", table.Columns[0].Name, table.Columns[1].Name)
	}
}
