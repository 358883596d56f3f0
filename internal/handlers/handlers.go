// Package handlers builds the translation handler registry (C7): one
// record per (non-terminal, body) pairing a caller-assigned HandlerId with
// a description of where each of its arguments comes from, so a separate
// parser driver can reconstruct the call without ever importing this
// module — it only needs the serialized registry.
//
// The shape here is grounded on ictiobus's SDDBinding/AttrRef pairing
// (internal/ictiobus/translation/binding.go, relnodes.go): a binding there
// names its argument sources by NodeRelation (head/terminal/non-
// terminal/symbol + index) resolved at tree-walk time against a string
// production. WordDataToUser is the same idea re-expressed over the typed
// arena model — slot kind plus a typed symbol id and body position instead
// of a relation type and a string lookup.
package handlers

import (
	"sort"

	"github.com/brelyon/langforge/internal/gerr"
	"github.com/brelyon/langforge/internal/grammar"
)

// SlotKind discriminates what one argument slot of a handler call is
// bound to.
type SlotKind uint8

const (
	// SlotTerminal binds to the lexed word data of a terminal/operator
	// symbol at Position in the body.
	SlotTerminal SlotKind = iota
	// SlotNonTerminal binds to the synthesized result already produced for
	// the non-terminal symbol at Position in the body.
	SlotNonTerminal
	// SlotEpsilon is the sole slot of a handler attached to an empty body;
	// there is no input to bind, it exists only so the driver has
	// something to dispatch on for bodies with zero symbols.
	SlotEpsilon
)

func (k SlotKind) String() string {
	switch k {
	case SlotTerminal:
		return "terminal"
	case SlotNonTerminal:
		return "non-terminal"
	case SlotEpsilon:
		return "epsilon"
	default:
		return "unknown"
	}
}

// WordDataToUser is one argument slot of a handler invocation.
type WordDataToUser struct {
	Kind     SlotKind
	Symbol   grammar.ProductionNodeId // meaningless for SlotEpsilon
	Position grammar.BodySymbolId     // meaningless for SlotEpsilon
}

// Record is one handler: the body it's attached to, and the ordered list
// of argument slots a driver must supply when invoking it.
type Record struct {
	Id    grammar.HandlerId
	Owner grammar.ProductionNodeId
	Body  grammar.ProductionBodyId
	Slots []WordDataToUser
}

// Registry is the finished, validated set of every handler in a grammar.
type Registry struct {
	records []Record
}

// BuildRegistry walks every non-terminal body in g and builds its slot
// description. It is fatal (per §4.8) if the same HandlerId is attached to
// more than one body — HandlerIds must be stable and unique so a driver
// can index into its own dispatch table by id.
func BuildRegistry(g *grammar.Grammar) (*Registry, error) {
	r := &Registry{}
	seenIds := map[grammar.HandlerId]grammar.ProductionBodyId{}

	for _, ntID := range g.NonTerminals() {
		nt := g.Node(ntID)
		for _, bodyID := range nt.Bodies {
			body := g.Body(bodyID)
			if prior, dup := seenIds[body.Handler]; dup {
				return nil, gerr.New(gerr.CategoryHandlerReuse, "handlers: handler id %d attached to both body %d and body %d", body.Handler, prior, bodyID)
			}
			seenIds[body.Handler] = bodyID

			var slots []WordDataToUser
			if len(body.Symbols) == 0 {
				slots = append(slots, WordDataToUser{Kind: SlotEpsilon})
			} else {
				for i, sym := range body.Symbols {
					kind := SlotNonTerminal
					if g.Node(sym).Kind != grammar.KindNonTerminal {
						kind = SlotTerminal
					}
					slots = append(slots, WordDataToUser{Kind: kind, Symbol: sym, Position: grammar.BodySymbolId(i)})
				}
			}

			r.records = append(r.records, Record{Id: body.Handler, Owner: ntID, Body: bodyID, Slots: slots})
		}
	}

	sort.Slice(r.records, func(i, j int) bool { return r.records[i].Id < r.records[j].Id })
	return r, nil
}

// Records returns every handler record, ordered by HandlerId.
func (r *Registry) Records() []Record { return r.records }

// Lookup finds the record for a given HandlerId, if any.
func (r *Registry) Lookup(id grammar.HandlerId) (Record, bool) {
	i := sort.Search(len(r.records), func(i int) bool { return r.records[i].Id >= id })
	if i < len(r.records) && r.records[i].Id == id {
		return r.records[i], true
	}
	return Record{}, false
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int { return len(r.records) }
