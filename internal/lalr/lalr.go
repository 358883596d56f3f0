// Package lalr builds the canonical LR(1) item-set automaton for a
// grammar.Grammar, merges states with identical LR(0) cores to approximate
// LALR(1) (C5), and emits the compacted shift/reduce/goto table that
// drives the generated parser (C6).
//
// The merge here happens at two points, and they are not the same pass:
// mergeLALR folds canonical LR(1) *states* together by core equality
// before the table is built at all (the classic LALR construction); later,
// compactTable folds finished table *rows* together purely by comparing
// their action/goto vectors, independent of how those rows came to exist.
// A grammar can (and occasionally does) have tables where two distinct
// LALR states nonetheless act identically on every symbol; only the
// second pass catches that.
package lalr

import (
	"fmt"
	"sort"

	"github.com/brelyon/langforge/internal/grammar"
)

// NextShiftIndex is the "dot" position within a body: the number of
// symbols already shifted. A dot equal to the body's length means the item
// is reduce-ready.
type NextShiftIndex int32

// ProductionItemSetId names one state of the (merged) LALR(1) automaton,
// before the table-row compaction pass.
type ProductionItemSetId int32

// SyntaxAnalysisTableEntryId names one row of the final, compacted
// action/goto table — the unit that actually ships to a parser driver.
// Distinct type from ProductionItemSetId for the same reason DfaStateId
// and TransformArrayId are distinct in package automaton: several
// ProductionItemSetIds can collapse onto one table row.
type SyntaxAnalysisTableEntryId int32

// Item is one LR(1) item: a production body, a dot position, and the set
// of terminals (including the end-of-input sentinel) that may legally
// follow a reduction of this item.
type Item struct {
	Augmented bool // true only for the synthetic S' -> ·Root item (accepted on the $end lookahead)
	Body      grammar.ProductionBodyId
	Dot       NextShiftIndex
	La        []grammar.ProductionNodeId // sorted, unique
}

func unionSortedIds(a, b []grammar.ProductionNodeId) []grammar.ProductionNodeId {
	if len(b) == 0 {
		return a
	}
	set := make(map[grammar.ProductionNodeId]bool, len(a)+len(b))
	for _, x := range a {
		set[x] = true
	}
	changed := false
	for _, x := range b {
		if !set[x] {
			set[x] = true
			changed = true
		}
	}
	if !changed {
		return a
	}
	out := make([]grammar.ProductionNodeId, 0, len(set))
	for x := range set {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Engine holds the per-grammar state (FIRST sets, the augmented start
// production) needed across closure/goto calls.
type Engine struct {
	g          *grammar.Grammar
	augSymbols []grammar.ProductionNodeId
	first      map[grammar.ProductionNodeId]map[grammar.ProductionNodeId]bool
}

func newEngine(g *grammar.Grammar) *Engine {
	e := &Engine{
		g:          g,
		augSymbols: []grammar.ProductionNodeId{g.Root()},
	}
	e.computeFirstSets()
	return e
}

func (e *Engine) nullable(x grammar.ProductionNodeId) bool {
	n := e.g.Node(x)
	return n.Kind == grammar.KindNonTerminal && n.MayEpsilonReduce
}

// computeFirstSets computes FIRST(X) (terminal/operator/end ids only —
// nullability is tracked separately via grammar.ProductionNode.MayEpsilonReduce)
// for every symbol, by fixpoint over the grammar's bodies.
func (e *Engine) computeFirstSets() {
	first := make(map[grammar.ProductionNodeId]map[grammar.ProductionNodeId]bool, e.g.NumNodes())
	for i := 0; i < e.g.NumNodes(); i++ {
		id := grammar.ProductionNodeId(i)
		n := e.g.Node(id)
		set := map[grammar.ProductionNodeId]bool{}
		if n.Kind != grammar.KindNonTerminal {
			set[id] = true
		}
		first[id] = set
	}

	changed := true
	for changed {
		changed = false
		for _, ntID := range e.g.NonTerminals() {
			nt := e.g.Node(ntID)
			for _, bodyID := range nt.Bodies {
				body := e.g.Body(bodyID)
				for _, sym := range body.Symbols {
					for s := range first[sym] {
						if !first[ntID][s] {
							first[ntID][s] = true
							changed = true
						}
					}
					if !e.nullable(sym) {
						break
					}
				}
			}
		}
	}

	e.first = first
}

// firstOfSeq computes FIRST(beta * la): the terminals that can begin what
// follows a dot, given the symbols remaining in the current body (beta)
// and the item's own lookahead set (la), which only matters if every
// symbol in beta is nullable.
func (e *Engine) firstOfSeq(beta []grammar.ProductionNodeId, la []grammar.ProductionNodeId) []grammar.ProductionNodeId {
	result := map[grammar.ProductionNodeId]bool{}
	allNullable := true
	for _, sym := range beta {
		for s := range e.first[sym] {
			result[s] = true
		}
		if !e.nullable(sym) {
			allNullable = false
			break
		}
	}
	if allNullable {
		for _, s := range la {
			result[s] = true
		}
	}
	out := make([]grammar.ProductionNodeId, 0, len(result))
	for s := range result {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Engine) symbolsOf(it Item) []grammar.ProductionNodeId {
	if it.Augmented {
		return e.augSymbols
	}
	return e.g.Body(it.Body).Symbols
}

func coreKey(it Item) string {
	return fmt.Sprintf("%v-%d-%d", it.Augmented, it.Body, it.Dot)
}

// closure computes the ε-closure of a seed set of items under the
// non-terminal-expansion rule (the LR(1) closure operation), propagating
// lookaheads to a fixpoint via a worklist.
func (e *Engine) closure(seed []Item) []Item {
	index := map[string]int{}
	var items []Item
	var queue []int

	addOrMerge := func(it Item) {
		k := coreKey(it)
		if idx, ok := index[k]; ok {
			merged := unionSortedIds(items[idx].La, it.La)
			if len(merged) != len(items[idx].La) {
				items[idx].La = merged
				queue = append(queue, idx)
			}
			return
		}
		idx := len(items)
		index[k] = idx
		items = append(items, it)
		queue = append(queue, idx)
	}

	for _, it := range seed {
		addOrMerge(it)
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		it := items[idx]
		symbols := e.symbolsOf(it)
		if int(it.Dot) >= len(symbols) {
			continue
		}
		b := symbols[it.Dot]
		node := e.g.Node(b)
		if node.Kind != grammar.KindNonTerminal {
			continue
		}
		beta := symbols[it.Dot+1:]
		la := e.firstOfSeq(beta, it.La)
		for _, bodyID := range node.Bodies {
			addOrMerge(Item{Body: bodyID, Dot: 0, La: la})
		}
	}

	sort.Slice(items, func(i, j int) bool { return coreKey(items[i]) < coreKey(items[j]) })
	return items
}

// gotoSet computes goto(items, x): the closure of every item in items
// advanced past x, or nil if no item in items has x next.
func (e *Engine) gotoSet(items []Item, x grammar.ProductionNodeId) []Item {
	var seed []Item
	for _, it := range items {
		symbols := e.symbolsOf(it)
		if int(it.Dot) < len(symbols) && symbols[it.Dot] == x {
			seed = append(seed, Item{Augmented: it.Augmented, Body: it.Body, Dot: it.Dot + 1, La: it.La})
		}
	}
	if len(seed) == 0 {
		return nil
	}
	return e.closure(seed)
}

type automatonState struct {
	items []Item
	trans map[grammar.ProductionNodeId]ProductionItemSetId
}

func lr1Key(items []Item) string {
	var parts []string
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s/%v", coreKey(it), it.La))
	}
	return fmt.Sprintf("%v", parts)
}

func lr0CoreKey(items []Item) string {
	var parts []string
	for _, it := range items {
		parts = append(parts, coreKey(it))
	}
	return fmt.Sprintf("%v", parts)
}

// buildCanonical runs the standard BFS construction of the canonical LR(1)
// automaton (closure + goto from the augmented start item).
func (e *Engine) buildCanonical() []*automatonState {
	start := e.closure([]Item{{Augmented: true, Dot: 0, La: []grammar.ProductionNodeId{grammar.EndNodeId}}})

	states := []*automatonState{{items: start}}
	keyToID := map[string]int{lr1Key(start): 0}
	queue := []int{0}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		st := states[cur]

		seen := map[grammar.ProductionNodeId]bool{}
		for _, it := range st.items {
			symbols := e.symbolsOf(it)
			if int(it.Dot) < len(symbols) {
				seen[symbols[it.Dot]] = true
			}
		}
		var syms []grammar.ProductionNodeId
		for s := range seen {
			syms = append(syms, s)
		}
		sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })

		st.trans = map[grammar.ProductionNodeId]ProductionItemSetId{}
		for _, x := range syms {
			target := e.gotoSet(st.items, x)
			if len(target) == 0 {
				continue
			}
			k := lr1Key(target)
			id, ok := keyToID[k]
			if !ok {
				id = len(states)
				keyToID[k] = id
				states = append(states, &automatonState{items: target})
				queue = append(queue, id)
			}
			st.trans[x] = ProductionItemSetId(id)
		}
	}

	return states
}

// mergeLALR folds canonical LR(1) states sharing an identical LR(0) core
// (body+dot pairs, ignoring lookahead) into one LALR(1) state, unioning
// their lookahead sets. Items within a core-equal group are always in the
// same relative order because closure always returns items sorted solely
// by core, so lookaheads can be merged positionally.
func (e *Engine) mergeLALR(states []*automatonState) []*automatonState {
	coreToNew := map[string]int{}
	mapping := make([]ProductionItemSetId, len(states))
	var merged []*automatonState

	for i, st := range states {
		k := lr0CoreKey(st.items)
		newIdx, ok := coreToNew[k]
		if !ok {
			newIdx = len(merged)
			coreToNew[k] = newIdx
			clone := make([]Item, len(st.items))
			copy(clone, st.items)
			merged = append(merged, &automatonState{items: clone})
		}
		mapping[i] = ProductionItemSetId(newIdx)
		for idx, it := range st.items {
			merged[newIdx].items[idx].La = unionSortedIds(merged[newIdx].items[idx].La, it.La)
		}
	}

	for i, st := range states {
		newIdx := mapping[i]
		if merged[newIdx].trans == nil {
			merged[newIdx].trans = map[grammar.ProductionNodeId]ProductionItemSetId{}
		}
		for sym, target := range st.trans {
			merged[newIdx].trans[sym] = mapping[target]
		}
	}

	return merged
}
