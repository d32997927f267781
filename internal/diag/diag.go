// Package diag carries pipeline diagnostics as stable codes plus parameters.
// Message-catalog lookup and localization happen outside this module;
// consumers branch on Code, so the identifiers here never change.
package diag

// Diagnostic is one reportable condition. Params maps parameter names to
// values the message catalog interpolates.
type Diagnostic struct {
	Code   string
	Params map[string]any
}

// Fetch-time codes reuse the legacy catalog identifiers so existing
// consumers keep matching on them.
const (
	CodeHTTPTimeout    = "http.errors.HttpErrorTimeout"
	CodeHTTPInvalidURL = "http.errors.HttpErrorInvalidUrl"
	CodeHTTPGeneric    = "http.errors.HttpErrorGeneric"
)

// Render-time terminal codes.
const (
	CodeHTTPNotOk   = "http.notOk"
	CodeNoTables    = "html.noTables"
	CodeNoColumns   = "html.noColumns"
	CodeBadTablenum = "params.badTablenum"
)

// Cleanup and truncation codes, attached alongside a written table.
const (
	CodeColnamesDefault   = "colnames.default"
	CodeColnamesTruncated = "colnames.truncated"
	CodeColnamesNumbered  = "colnames.numbered"
	CodeRowsTruncated     = "rows.truncated"
	CodeColumnsTruncated  = "columns.truncated"
	CodeValuesTruncated   = "values.truncated"
	CodeTextTruncated     = "text.truncated"
	CodeCSVTruncated      = "csv.truncated"
)

// HTTPNotOk reports a captured status line that was not a success.
func HTTPNotOk(statusLine string) Diagnostic {
	return Diagnostic{Code: CodeHTTPNotOk, Params: map[string]any{"httpStatus": statusLine}}
}

// NoTables reports a document with no usable table elements.
func NoTables() Diagnostic {
	return Diagnostic{Code: CodeNoTables}
}

// NoColumns reports a located table that resolved to zero columns.
func NoColumns() Diagnostic {
	return Diagnostic{Code: CodeNoColumns}
}

// BadTablenum reports a requested ordinal outside [1, nTables].
func BadTablenum(nTables int) Diagnostic {
	return Diagnostic{Code: CodeBadTablenum, Params: map[string]any{"nTables": nTables}}
}

// Timeout reports a fetch attempt that exceeded its deadline.
func Timeout() Diagnostic {
	return Diagnostic{Code: CodeHTTPTimeout}
}

// InvalidURL reports a fetch target that could not be parsed.
func InvalidURL() Diagnostic {
	return Diagnostic{Code: CodeHTTPInvalidURL}
}

// TransportError reports any other transport-level fetch failure.
func TransportError(err error) Diagnostic {
	return Diagnostic{Code: CodeHTTPGeneric, Params: map[string]any{"error": err.Error()}}
}

// ColnameCleanup reports one distinct column-name cleanup reason, with the
// affected count and the first resulting name as an example.
func ColnameCleanup(code string, n int, firstColumn string) Diagnostic {
	return Diagnostic{Code: code, Params: map[string]any{"nColumns": n, "firstColumn": firstColumn}}
}

// RowsTruncated reports rows dropped past the row limit.
func RowsTruncated(nRows, maxRows int) Diagnostic {
	return Diagnostic{Code: CodeRowsTruncated, Params: map[string]any{"nRows": nRows, "maxRows": maxRows}}
}

// ColumnsTruncated reports columns dropped from the right past the limit.
func ColumnsTruncated(nColumns, maxColumns int) Diagnostic {
	return Diagnostic{Code: CodeColumnsTruncated, Params: map[string]any{"nColumns": nColumns, "maxColumns": maxColumns}}
}

// ValuesTruncated reports cell values cut at the per-value byte limit.
func ValuesTruncated(nValues, maxBytes int) Diagnostic {
	return Diagnostic{Code: CodeValuesTruncated, Params: map[string]any{"nValues": nValues, "maxBytes": maxBytes}}
}

// TextTruncated reports row intake stopping at the aggregate byte limit.
func TextTruncated(maxBytes int) Diagnostic {
	return Diagnostic{Code: CodeTextTruncated, Params: map[string]any{"maxBytes": maxBytes}}
}

// CSVTruncated reports intermediate CSV bytes beyond the tokenizer cap.
func CSVTruncated(maxBytes int) Diagnostic {
	return Diagnostic{Code: CodeCSVTruncated, Params: map[string]any{"maxBytes": maxBytes}}
}
