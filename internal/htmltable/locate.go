// Package htmltable locates table elements in markup and turns each into a
// rectangular grid of text cells, with header rows kept separate and
// colspan/rowspan text replicated across every position a cell spans.
package htmltable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/workbenchdata/tablescrape/internal/tabular"
)

// ErrNoTables means the document holds no usable table: either no table
// elements at all, or only tables whose cells carry no text. The latter
// intentionally reports the same condition as the former; downstream
// consumers already branch on that behavior.
var ErrNoTables = errors.New("no tables in document")

// Grid is one located table: a padded rectangular grid plus the header
// label variants derived from its header rows.
type Grid struct {
	tabular.RawGrid
}

// Locate decodes r using the caller's charset hint (the charset parameter
// of the response's Content-Type, or empty) and returns one Grid per table
// element in document order. Nested tables are counted independently.
// Decoding never fails outright: the hint wins when present, then the
// document's own declared encoding, then the default codepage.
func Locate(r io.Reader, charsetHint string) ([]*Grid, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(1024)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read body: %w", err)
	}
	// Hint, then BOM/declared encoding, then the default codepage. The
	// chosen decoder replaces undecodable bytes instead of failing.
	hint := ""
	if charsetHint != "" {
		hint = "text/html; charset=" + charsetHint
	}
	enc, _, _ := charset.DetermineEncoding(peek, hint)
	decoded := transform.NewReader(br, enc.NewDecoder())
	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var grids []*Grid
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if g := buildGrid(n); g.HasText() {
				grids = append(grids, g)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(grids) == 0 {
		return nil, ErrNoTables
	}
	return grids, nil
}

// buildGrid converts one table element into a padded grid. Header rows are
// the thead rows plus any leading rows consisting entirely of th cells.
func buildGrid(table *html.Node) *Grid {
	var headTRs, bodyTRs []*html.Node
	collectRows(table, false, &headTRs, &bodyTRs)

	// Leading all-th rows outside thead are header markup too.
	for len(bodyTRs) > 0 && allHeaderCells(bodyTRs[0]) {
		headTRs = append(headTRs, bodyTRs[0])
		bodyTRs = bodyTRs[1:]
	}

	g := &Grid{tabular.RawGrid{
		HeaderRows: expandRows(headTRs),
		Rows:       expandRows(bodyTRs),
	}}
	g.Pad()
	return g
}

// collectRows gathers the tr elements belonging to this table, stopping at
// nested tables so their rows stay with their own grid.
func collectRows(n *html.Node, inHead bool, head, body *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "table":
			continue
		case "thead":
			collectRows(c, true, head, body)
		case "tbody", "tfoot":
			collectRows(c, inHead, head, body)
		case "tr":
			if inHead {
				*head = append(*head, c)
			} else {
				*body = append(*body, c)
			}
		default:
			collectRows(c, inHead, head, body)
		}
	}
}

// cellsOf returns the direct th/td children of a row element.
func cellsOf(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

func allHeaderCells(tr *html.Node) bool {
	cells := cellsOf(tr)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if c.Data != "th" {
			return false
		}
	}
	return true
}

// carry tracks a cell still occupying columns in later rows via rowspan.
type carry struct {
	col  int
	text string
	left int
}

// expandRows flattens row elements into text rows, replicating spanning
// cell text across every column and row the cell covers. Rowspans that
// outlast the available rows produce additional rows, matching the legacy
// extractor.
func expandRows(trs []*html.Node) [][]string {
	var out [][]string
	var pending []carry

	emitRow := func(cells []*html.Node) []string {
		var texts []string
		var next []carry
		col := 0
		rem := pending
		for _, cell := range cells {
			for len(rem) > 0 && rem[0].col <= col {
				cy := rem[0]
				rem = rem[1:]
				texts = append(texts, cy.text)
				if cy.left > 1 {
					next = append(next, carry{col: cy.col, text: cy.text, left: cy.left - 1})
				}
				col++
			}
			text := cellText(cell)
			rowspan := spanAttr(cell, "rowspan")
			colspan := spanAttr(cell, "colspan")
			for i := 0; i < colspan; i++ {
				texts = append(texts, text)
				if rowspan > 1 {
					next = append(next, carry{col: col, text: text, left: rowspan - 1})
				}
				col++
			}
		}
		for _, cy := range rem {
			texts = append(texts, cy.text)
			if cy.left > 1 {
				next = append(next, carry{col: cy.col, text: cy.text, left: cy.left - 1})
			}
		}
		pending = next
		return texts
	}

	for _, tr := range trs {
		out = append(out, emitRow(cellsOf(tr)))
	}
	for len(pending) > 0 {
		out = append(out, emitRow(nil))
	}
	return out
}

func spanAttr(cell *html.Node, name string) int {
	for _, a := range cell.Attr {
		if a.Key == name {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 1 {
				return v
			}
			return 1
		}
	}
	return 1
}

// cellText gathers all descendant text, collapsing whitespace runs the way
// the legacy extractor did.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
