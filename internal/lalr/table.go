package lalr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brelyon/langforge/internal/gerr"
	"github.com/brelyon/langforge/internal/grammar"
)

// ActionKind discriminates one table cell's behavior.
type ActionKind int

const (
	ActionError ActionKind = iota
	ActionShift
	ActionReduce
	ActionAccept
)

func (k ActionKind) String() string {
	switch k {
	case ActionShift:
		return "shift"
	case ActionReduce:
		return "reduce"
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// Action is one cell of the action table.
type Action struct {
	Kind   ActionKind
	Target ProductionItemSetId      // valid when Kind == ActionShift
	Body   grammar.ProductionBodyId // valid when Kind == ActionReduce
}

// StateRow is one row of the table: what to do on each lookahead terminal
// (Action) and which state to go to after reducing to each non-terminal
// (Goto).
type StateRow struct {
	Action map[grammar.ProductionNodeId]Action
	Goto   map[grammar.ProductionNodeId]ProductionItemSetId
}

// Table is the finished, compacted action/goto table, indexed by
// SyntaxAnalysisTableEntryId (every id in a built Table has already been
// through the row-compaction pass, so the type distinction from
// ProductionItemSetId is purely documentation at this point — but it
// stops a caller from reaching into the table with a pre-merge id left
// over from debugging the automaton).
type Table struct {
	Rows  []StateRow
	Start SyntaxAnalysisTableEntryId
}

// ConflictError reports an unresolvable (reduce/reduce) conflict, per
// §4.8: these are always fatal, unlike shift/reduce conflicts which the
// operator-precedence layer resolves automatically.
type ConflictError struct {
	State     ProductionItemSetId
	Lookahead string
	BodyA     grammar.ProductionBodyId
	BodyB     grammar.ProductionBodyId
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lalr: reduce/reduce conflict in state %d on lookahead %s between production bodies %d and %d",
		e.State, e.Lookahead, e.BodyA, e.BodyB)
}

// bodyPrecedence returns the precedence/associativity of a body's literal
// last terminal, used to resolve shift/reduce conflicts against an incoming
// operator lookahead. It looks only at that last terminal, not at whatever
// operator happens to appear furthest right in the body: a body ending
// "... PLUS SEMI" takes its precedence from SEMI (none), not from PLUS,
// since SEMI is what a parser would actually be sitting on top of when the
// conflict arises. ok is false if the body has no terminal to anchor a
// decision on, or that terminal isn't an operator.
func bodyPrecedence(g *grammar.Grammar, bodyID grammar.ProductionBodyId) (prec int, assoc grammar.Associativity, ok bool) {
	body := g.Body(bodyID)
	for i := len(body.Symbols) - 1; i >= 0; i-- {
		n := g.Node(body.Symbols[i])
		if n.Kind == grammar.KindNonTerminal {
			continue
		}
		if n.Kind == grammar.KindOperator && n.Binary.Present {
			return n.Binary.Precedence, n.Binary.Associativity, true
		}
		return 0, grammar.AssocNone, false
	}
	return 0, grammar.AssocNone, false
}

func splitShiftReduce(a, b Action) (shift, reduce Action, ok bool) {
	switch {
	case a.Kind == ActionShift && b.Kind == ActionReduce:
		return a, b, true
	case a.Kind == ActionReduce && b.Kind == ActionShift:
		return b, a, true
	default:
		return Action{}, Action{}, false
	}
}

// resolveConflict decides between two candidate actions for the same
// (state, lookahead) cell.
//
// Shift/reduce conflicts are resolved by operator precedence when both
// sides carry it: a higher-precedence lookahead shifts, a lower-precedence
// one reduces, and an equal-precedence tie follows the operator's declared
// associativity (left-associative reduces, right-associative shifts).
// When either side lacks precedence information — most commonly the
// classic dangling-else shape, where the reduce candidate is not an
// operator production at all — the conflict defaults to shift, which is
// also the reading that resolves dangling-else in favor of the nearest
// enclosing construct.
//
// Reduce/reduce conflicts are never resolved automatically; they are
// always a fatal grammar error.
func resolveConflict(g *grammar.Grammar, existing, candidate Action, la grammar.ProductionNodeId, state ProductionItemSetId) (Action, error) {
	if existing.Kind == ActionReduce && candidate.Kind == ActionReduce {
		ce := &ConflictError{State: state, Lookahead: g.Node(la).Name, BodyA: existing.Body, BodyB: candidate.Body}
		return Action{}, gerr.Wrap(ce, gerr.CategoryReduceReduceConflict, "%s", ce)
	}

	shiftAction, reduceAction, isShiftReduce := splitShiftReduce(existing, candidate)
	if !isShiftReduce {
		return candidate, nil
	}

	laNode := g.Node(la)
	if laNode.Kind == grammar.KindOperator && laNode.Binary.Present {
		if prec, assoc, ok := bodyPrecedence(g, reduceAction.Body); ok {
			switch {
			case laNode.Binary.Precedence > prec:
				return shiftAction, nil
			case laNode.Binary.Precedence < prec:
				return reduceAction, nil
			default:
				if assoc == grammar.AssocLeft {
					return reduceAction, nil
				}
				return shiftAction, nil
			}
		}
	}
	return shiftAction, nil
}

func setAction(g *grammar.Grammar, row *StateRow, la grammar.ProductionNodeId, action Action, state ProductionItemSetId) error {
	existing, has := row.Action[la]
	if !has {
		row.Action[la] = action
		return nil
	}
	resolved, err := resolveConflict(g, existing, action, la, state)
	if err != nil {
		return err
	}
	row.Action[la] = resolved
	return nil
}

// buildTable converts the merged LALR(1) automaton into an action/goto
// table keyed by the pre-compaction ProductionItemSetId, resolving every
// shift/reduce conflict along the way.
func (e *Engine) buildTable(states []*automatonState) ([]StateRow, error) {
	rows := make([]StateRow, len(states))
	for i, st := range states {
		row := StateRow{Action: map[grammar.ProductionNodeId]Action{}, Goto: map[grammar.ProductionNodeId]ProductionItemSetId{}}

		for sym, target := range st.trans {
			if e.g.Node(sym).Kind == grammar.KindNonTerminal {
				row.Goto[sym] = target
			} else {
				if err := setAction(e.g, &row, sym, Action{Kind: ActionShift, Target: target}, ProductionItemSetId(i)); err != nil {
					return nil, err
				}
			}
		}

		for _, it := range st.items {
			symbols := e.symbolsOf(it)
			if int(it.Dot) != len(symbols) {
				continue
			}
			if it.Augmented {
				for _, la := range it.La {
					if err := setAction(e.g, &row, la, Action{Kind: ActionAccept}, ProductionItemSetId(i)); err != nil {
						return nil, err
					}
				}
				continue
			}
			for _, la := range it.La {
				if err := setAction(e.g, &row, la, Action{Kind: ActionReduce, Body: it.Body}, ProductionItemSetId(i)); err != nil {
					return nil, err
				}
			}
		}

		rows[i] = row
	}
	return rows, nil
}

func rowSignature(row StateRow) string {
	var sb strings.Builder

	var actSyms []int
	for sym := range row.Action {
		actSyms = append(actSyms, int(sym))
	}
	sort.Ints(actSyms)
	for _, sym := range actSyms {
		a := row.Action[grammar.ProductionNodeId(sym)]
		fmt.Fprintf(&sb, "A%d:%d/%d/%d;", sym, a.Kind, a.Target, a.Body)
	}

	var gotoSyms []int
	for sym := range row.Goto {
		gotoSyms = append(gotoSyms, int(sym))
	}
	sort.Ints(gotoSyms)
	for _, sym := range gotoSyms {
		fmt.Fprintf(&sb, "G%d:%d;", sym, row.Goto[grammar.ProductionNodeId(sym)])
	}

	return sb.String()
}

// compactTable folds table rows that act identically across every symbol
// into one row, independent of how the rows came to be (two distinct
// LALR states can easily produce the same row when their differing items
// never manifest in a different action anywhere). This is the table-level
// merge pass; it runs after, and separately from, the automaton-level
// LR(0)-core merge in mergeLALR.
func compactTable(rows []StateRow, start ProductionItemSetId) *Table {
	sigToNew := map[string]int{}
	mapping := make([]SyntaxAnalysisTableEntryId, len(rows))
	var newRows []StateRow

	for i, row := range rows {
		sig := rowSignature(row)
		newIdx, ok := sigToNew[sig]
		if !ok {
			newIdx = len(newRows)
			sigToNew[sig] = newIdx
			newRows = append(newRows, row)
		}
		mapping[i] = SyntaxAnalysisTableEntryId(newIdx)
	}

	for i := range newRows {
		for sym, act := range newRows[i].Action {
			if act.Kind == ActionShift {
				act.Target = ProductionItemSetId(mapping[act.Target])
				newRows[i].Action[sym] = act
			}
		}
		for sym, target := range newRows[i].Goto {
			newRows[i].Goto[sym] = ProductionItemSetId(mapping[target])
		}
	}

	return &Table{Rows: newRows, Start: mapping[start]}
}

// Build runs the full pipeline: canonical LR(1) construction, LALR(1)
// state merging, table emission with conflict resolution, and the final
// row-compaction pass.
func Build(g *grammar.Grammar) (*Table, error) {
	e := newEngine(g)
	canonical := e.buildCanonical()
	merged := e.mergeLALR(canonical)
	rows, err := e.buildTable(merged)
	if err != nil {
		return nil, err
	}
	return compactTable(rows, 0), nil
}
