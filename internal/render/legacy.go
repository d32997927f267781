package render

import (
	"github.com/rs/zerolog/log"

	"github.com/workbenchdata/tablescrape/internal/columnar"
	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
)

// renderLegacy reprocesses a legacy columnar snapshot through the same
// normalization stage as fresh extraction. Stored values are demoted back
// to text first so header promotion and type inference behave identically
// to the historical output. Do not "improve" this path; it exists to stay
// byte-for-byte compatible with what older snapshots produced.
func renderLegacy(snapshotPath string, firstRowIsHeader bool, s config.Settings, outputPath string) ([]diag.Diagnostic, error) {
	table, err := columnar.Read(snapshotPath)
	if err != nil {
		// A file bearing the columnar magic but failing to decode is
		// malformed input, not an environment fault; report it the same
		// way an undecodable capture is reported.
		log.Debug().Err(err).Str("snapshot", snapshotPath).Msg("legacy snapshot did not decode")
		return []diag.Diagnostic{diag.NoTables()}, nil
	}
	labels, rows := columnar.DemoteToText(table)
	return normalizeGrid(rows, labels, firstRowIsHeader, s, outputPath)
}
