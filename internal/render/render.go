// Package render orchestrates one render invocation: classify the stored
// snapshot, branch to the legacy or fresh-extraction path, select the
// requested table, and assemble the diagnostics list. It never panics on
// malformed input; every domain failure travels as a diagnostic, and the
// output artifact is explicitly empty whenever no table is written.
package render

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/workbenchdata/tablescrape/internal/capture"
	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
	"github.com/workbenchdata/tablescrape/internal/htmltable"
	"github.com/workbenchdata/tablescrape/internal/snapshot"
)

// successStatusLine is compared literally against the captured status line.
// The legacy system checked exactly this string, not the status class, and
// downstream consumers depend on the resulting diagnostics, so keep it.
const successStatusLine = "200 OK"

// Params selects what to extract from the snapshot.
type Params struct {
	// TableNum is the 1-based ordinal of the table to extract.
	TableNum int
	// FirstRowIsHeader promotes the first data row to column names.
	FirstRowIsHeader bool
}

// Render processes the snapshot at snapshotPath and writes the normalized
// table artifact to outputPath. Diagnostics carried from the fetch attempt
// are always prepended to whatever this invocation produces. The error
// return is reserved for environment faults (unreadable files, full disk);
// malformed input never produces one.
func Render(snapshotPath string, p Params, s config.Settings, outputPath string, carried []diag.Diagnostic) ([]diag.Diagnostic, error) {
	diags := append([]diag.Diagnostic(nil), carried...)

	// The artifact exists even when no table is written.
	if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
		return nil, fmt.Errorf("reset artifact: %w", err)
	}

	format, err := snapshot.Classify(snapshotPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("snapshot", snapshotPath).Stringer("format", format).Msg("classified snapshot")

	switch format {
	case snapshot.Empty:
		// Nothing fetched yet, or the fetch failed: only the carried
		// diagnostics speak for this invocation.
		return diags, nil
	case snapshot.LegacyColumnar:
		more, err := renderLegacy(snapshotPath, p.FirstRowIsHeader, s, outputPath)
		if err != nil {
			return nil, err
		}
		return append(diags, more...), nil
	default:
		more, err := renderCapture(snapshotPath, p, s, outputPath)
		if err != nil {
			return nil, err
		}
		return append(diags, more...), nil
	}
}

func renderCapture(snapshotPath string, p Params, s config.Settings, outputPath string) ([]diag.Diagnostic, error) {
	resp, err := capture.Read(snapshotPath)
	if err != nil {
		// A snapshot that classified as a capture but does not decode is
		// treated like a document without tables rather than a fault; the
		// classifier intentionally accepts unknown content.
		log.Debug().Err(err).Str("snapshot", snapshotPath).Msg("capture did not decode")
		return []diag.Diagnostic{diag.NoTables()}, nil
	}

	if resp.StatusLine != successStatusLine {
		return []diag.Diagnostic{diag.HTTPNotOk(resp.StatusLine)}, nil
	}

	grids, err := htmltable.Locate(bytes.NewReader(resp.Body), resp.Charset())
	if err != nil {
		return []diag.Diagnostic{diag.NoTables()}, nil
	}
	log.Debug().Int("tables", len(grids)).Msg("located tables")

	if p.TableNum <= 0 || p.TableNum > len(grids) {
		return []diag.Diagnostic{diag.BadTablenum(len(grids))}, nil
	}

	grid := grids[p.TableNum-1]
	labels := htmltable.MergeLabels(grid.Labels())
	return normalizeGrid(grid.Rows, labels, p.FirstRowIsHeader, s, outputPath)
}
