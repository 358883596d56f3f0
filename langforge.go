// Package langforge is the top-level entry point: construct a Generator,
// describe a lexicon and grammar through its Add* calls in any order
// (forward and mutually-recursive non-terminal references are resolved at
// Finalize), then call Finalize to get back the compiled lexer table,
// parse table, and handler registry.
//
// The shape of this type — a builder that accumulates declarations across
// several constructor-like calls and is then handed to one terminal
// "compile everything" step — follows ictiobus.go's own top-level API
// (internal/ictiobus/ictiobus.go's NewLexer/NewParser/NewSDD family feeding
// into a Frontend), generalized so one Generator owns the whole pipeline
// instead of wiring three separately-constructed pieces together by hand.
package langforge

import (
	"github.com/brelyon/langforge/internal/automaton"
	"github.com/brelyon/langforge/internal/grammar"
	"github.com/brelyon/langforge/internal/handlers"
	"github.com/brelyon/langforge/internal/lalr"
	"github.com/brelyon/langforge/internal/wire"
)

// Generator accumulates a lexicon and grammar description and compiles it
// into the two on-disk artifacts a parser driver needs.
type Generator struct {
	gb  *grammar.Builder
	nfa *automaton.NFA[grammar.WordData]
}

// New creates an empty Generator.
func New() *Generator {
	return &Generator{
		gb:  grammar.NewBuilder(),
		nfa: automaton.New[grammar.WordData](),
	}
}

// AddTerminal declares a terminal matched by the given regex pattern, at
// the default (lowest) priority tier.
func (g *Generator) AddTerminal(name, regex string) (grammar.ProductionNodeId, error) {
	id, err := g.gb.AddTerminal(name, regex, grammar.PriorityPlain)
	if err != nil {
		return 0, err
	}
	if _, _, err := g.nfa.AddRegex(regex, grammar.WordData{Node: id, Prio: grammar.PriorityPlain}); err != nil {
		return 0, err
	}
	return id, nil
}

// AddKeyword declares a terminal matched by exact spelling, at the
// keyword priority tier, so it always wins over an overlapping
// pattern-matched terminal of equal matched length (e.g. `if` over an
// identifier pattern that would otherwise also match it).
func (g *Generator) AddKeyword(name, literal string) (grammar.ProductionNodeId, error) {
	id, err := g.gb.AddKeyword(name, literal)
	if err != nil {
		return 0, err
	}
	g.nfa.AddKeyword(literal, grammar.WordData{Node: id, Prio: grammar.PriorityKeyword})
	return id, nil
}

// AddBinaryOperator declares an operator terminal usable only in binary
// infix position, with the given spelling and precedence/associativity
// for shift/reduce resolution.
func (g *Generator) AddBinaryOperator(name, spelling string, precedence int, assoc grammar.Associativity) (grammar.ProductionNodeId, error) {
	id, err := g.gb.AddBinaryOperator(name, spelling, precedence, assoc)
	if err != nil {
		return 0, err
	}
	g.nfa.AddKeyword(spelling, grammar.WordData{Node: id, Prio: grammar.PriorityOperator})
	return id, nil
}

// AddLeftUnaryOperator declares an operator terminal usable only as a
// prefix unary operator.
func (g *Generator) AddLeftUnaryOperator(name, spelling string, precedence int) (grammar.ProductionNodeId, error) {
	id, err := g.gb.AddLeftUnaryOperator(name, spelling, precedence)
	if err != nil {
		return 0, err
	}
	g.nfa.AddKeyword(spelling, grammar.WordData{Node: id, Prio: grammar.PriorityOperator})
	return id, nil
}

// AddBinaryLeftUnaryOperator declares one operator terminal that plays
// both a binary infix role and a prefix unary role (e.g. `-`), sharing a
// single spelling and lexer registration but carrying two independent
// precedence settings.
func (g *Generator) AddBinaryLeftUnaryOperator(name, spelling string, binaryPrec int, binaryAssoc grammar.Associativity, unaryPrec int) (grammar.ProductionNodeId, error) {
	id, err := g.gb.AddBinaryLeftUnaryOperator(name, spelling, binaryPrec, binaryAssoc, unaryPrec)
	if err != nil {
		return 0, err
	}
	g.nfa.AddKeyword(spelling, grammar.WordData{Node: id, Prio: grammar.PriorityOperator})
	return id, nil
}

// AddNonTerminal declares a non-terminal with no bodies yet.
func (g *Generator) AddNonTerminal(name string) (grammar.ProductionNodeId, error) {
	return g.gb.AddNonTerminal(name)
}

// AddBody attaches one production body to an already-declared
// non-terminal. symbols may name non-terminals that have not been
// declared yet; they are resolved at Finalize.
func (g *Generator) AddBody(owner grammar.ProductionNodeId, symbols []string, handler grammar.HandlerId) (grammar.ProductionBodyId, error) {
	return g.gb.AddBody(owner, symbols, handler)
}

// SetRoot marks name as the grammar's start symbol.
func (g *Generator) SetRoot(name string) {
	g.gb.SetRoot(name)
}

// Artifacts is everything Finalize produces: the finalized grammar (kept
// around for diagnostics and table pretty-printing), and the two
// wire-ready configs a driver actually consumes.
type Artifacts struct {
	Grammar  *grammar.Grammar
	Handlers *handlers.Registry
	Dfa      wire.DfaConfig
	Syntax   wire.SyntaxConfig
}

// Finalize resolves every deferred symbol reference, builds the lexer's
// minimized DFA, builds the LALR(1) parse table, builds the handler
// registry, and returns the compiled artifacts. It is fatal (returns a
// non-nil error) on any unresolved reference, ambiguous lexeme, or
// unresolvable grammar conflict.
func (g *Generator) Finalize() (*Artifacts, error) {
	gram, err := g.gb.Finalize()
	if err != nil {
		return nil, err
	}

	dfa, err := automaton.Build(g.nfa)
	if err != nil {
		return nil, err
	}
	// The end-of-file word-data is separately configured (§4.3), not
	// derived from any DFA row: a driver that reaches EOF with an empty
	// buffer reports the grammar's End sentinel rather than any lexed
	// token.
	eofTag := grammar.WordData{Node: grammar.EndNodeId, Prio: grammar.PriorityPlain}
	minimized := dfa.Minimize(eofTag)

	table, err := lalr.Build(gram)
	if err != nil {
		return nil, err
	}

	reg, err := handlers.BuildRegistry(gram)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Grammar:  gram,
		Handlers: reg,
		Dfa:      wire.FromMinimizedTable(minimized),
		Syntax:   wire.FromTable(table, reg),
	}, nil
}
