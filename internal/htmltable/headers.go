package htmltable

// HeaderLabel is the shape of one column's raw header: text from a single
// header row, stacked texts from multiple header rows, or nothing but a
// position when the table had no header markup at all.
type HeaderLabel struct {
	kind  labelKind
	plain string
	parts []string
	index int
}

type labelKind int

const (
	labelPlain labelKind = iota
	labelSpanned
	labelPositional
)

// Plain wraps a single-row header text.
func Plain(text string) HeaderLabel {
	return HeaderLabel{kind: labelPlain, plain: text}
}

// Spanned wraps the top-to-bottom texts of a multi-row header column.
func Spanned(parts []string) HeaderLabel {
	return HeaderLabel{kind: labelSpanned, parts: parts}
}

// Positional marks a column with no header markup; auto-naming happens
// later, in the normalization stage.
func Positional(index int) HeaderLabel {
	return HeaderLabel{kind: labelPositional, index: index}
}

// Labels returns one HeaderLabel per grid column.
func (g *Grid) Labels() []HeaderLabel {
	w := g.Width()
	labels := make([]HeaderLabel, w)
	switch len(g.HeaderRows) {
	case 0:
		for i := range labels {
			labels[i] = Positional(i)
		}
	case 1:
		for i := range labels {
			labels[i] = Plain(g.HeaderRows[0][i])
		}
	default:
		for i := range labels {
			parts := make([]string, 0, len(g.HeaderRows))
			for _, row := range g.HeaderRows {
				parts = append(parts, row[i])
			}
			labels[i] = Spanned(parts)
		}
	}
	return labels
}

// MergeLabels collapses header label variants into one flat string per
// column. Spanned parts are deduplicated in insertion order and joined with
// " - ", so a cell spanning several columns contributes its text once per
// column, not once per header row it covers. An empty part deduplicates
// like any other text, so a column headed in only one of several rows keeps
// its separator ("year - "), matching historical output. Positional labels
// resolve to the empty string. Merging never deduplicates across columns
// and never truncates; both are normalization concerns.
func MergeLabels(labels []HeaderLabel) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		switch l.kind {
		case labelPlain:
			out[i] = l.plain
		case labelPositional:
			out[i] = ""
		case labelSpanned:
			seen := make(map[string]bool, len(l.parts))
			var distinct []string
			for _, p := range l.parts {
				if seen[p] {
					continue
				}
				seen[p] = true
				distinct = append(distinct, p)
			}
			out[i] = joinParts(distinct)
		}
	}
	return out
}

func joinParts(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n+3*(len(parts)-1))
	for i, p := range parts {
		if i > 0 {
			b = append(b, " - "...)
		}
		b = append(b, p...)
	}
	return string(b)
}
