package lalr

import (
	"fmt"

	"github.com/dekarrin/rosed"

	"github.com/brelyon/langforge/internal/grammar"
)

// String renders the table as a human-readable grid, one row per state and
// one column per terminal/non-terminal, in the same action/goto-split
// layout ictiobus's own LALR(1) table printer uses
// (internal/ictiobus/parse/lalr.go's lalr1Table.String).
func (t *Table) String(g *grammar.Grammar) string {
	terms := g.Terminals()
	nonTerms := g.NonTerminals()

	headers := []string{"S", "|"}
	for _, sym := range terms {
		headers = append(headers, fmt.Sprintf("A:%s", g.Node(sym).Name))
	}
	headers = append(headers, "|")
	for _, sym := range nonTerms {
		headers = append(headers, fmt.Sprintf("G:%s", g.Node(sym).Name))
	}

	data := [][]string{headers}
	for i, row := range t.Rows {
		line := []string{fmt.Sprintf("%d", i), "|"}
		for _, sym := range terms {
			cell := ""
			if act, ok := row.Action[sym]; ok {
				switch act.Kind {
				case ActionAccept:
					cell = "acc"
				case ActionReduce:
					cell = fmt.Sprintf("r(body %d)", act.Body)
				case ActionShift:
					cell = fmt.Sprintf("s%d", act.Target)
				}
			}
			line = append(line, cell)
		}
		line = append(line, "|")
		for _, sym := range nonTerms {
			cell := ""
			if target, ok := row.Goto[sym]; ok {
				cell = fmt.Sprintf("%d", target)
			}
			line = append(line, cell)
		}
		data = append(data, line)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
