// Package grammar builds the production model (C4): the tagged-union
// table of terminals, operators, and non-terminals that the LALR item-set
// engine (package lalr) and the lexer's NFA (package automaton) are both
// compiled from.
//
// Every cross-reference in this model is a typed arena index rather than a
// pointer or a bare int, so a ProductionBodyId can never be passed where a
// ProductionNodeId is expected — the compiler catches it. Symbol names are
// only ever used at the builder surface; once finalize succeeds, nothing
// downstream looks anything up by string again.
package grammar

import (
	"sort"

	"github.com/brelyon/langforge/internal/gerr"
	"github.com/brelyon/langforge/internal/symtab"
	"github.com/brelyon/langforge/internal/util"
)

// ProductionNodeId names one terminal, operator, or non-terminal.
type ProductionNodeId int32

// ProductionBodyId names one production body (the right-hand side of one
// non-terminal alternative).
type ProductionBodyId int32

// BodySymbolId indexes a position within a single body's symbol list. It
// is a distinct type from ProductionNodeId (which names *what* is at that
// position) precisely so a dot position and a symbol identity can never be
// confused at a call site.
type BodySymbolId int32

// HandlerId names the translation handler attached to one production body.
// Defined here rather than in package handlers so ProductionBody can carry
// it without an import cycle; package handlers is the one that interprets
// the id's meaning.
type HandlerId int32

const noHandler HandlerId = -1

// NodeKind discriminates the tagged union a ProductionNode is.
type NodeKind int

const (
	KindTerminal NodeKind = iota
	KindOperator
	KindNonTerminal
	KindEnd
)

func (k NodeKind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindOperator:
		return "operator"
	case KindNonTerminal:
		return "non-terminal"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Associativity governs how the LALR table builder resolves shift/reduce
// conflicts between two uses of the same operator.
type Associativity int

const (
	AssocNone Associativity = iota
	AssocLeft
	AssocRight
)

// OperatorRole describes one of an operator node's (up to two) roles —
// binary infix, or left-unary prefix. A node with both roles set is how
// languages with a token that's both e.g. binary minus and unary negation
// are modeled, per §4.1: two roles on one node, not two separate nodes.
type OperatorRole struct {
	Present       bool
	Precedence    int
	Associativity Associativity
}

// WordData is the tail tag the lexer's NFA/DFA (package automaton) attaches
// to accepting states: which terminal node matched, and at what priority
// (used to break ties between overlapping patterns — keywords over
// identifiers, longest-match ties broken by registration priority tier).
type WordData struct {
	Node ProductionNodeId
	Prio int
}

// Priority implements automaton.Taggable.
func (w WordData) Priority() int { return w.Prio }

// Priority tiers for terminal registration, per §4.2: a keyword always
// beats a plain pattern terminal of equal matched length, and callers can
// still express their own custom tiers above that floor if needed.
const (
	PriorityPlain    = 0
	PriorityOperator = 1
	PriorityKeyword  = 2
)

// ProductionNode is the tagged union over terminal/operator/non-terminal/
// end. Only the fields relevant to Kind are meaningful; the others are
// zero value.
type ProductionNode struct {
	Id   ProductionNodeId
	Name string
	Kind NodeKind

	// KindTerminal
	Regex     string
	IsLiteral bool // true for AddKeyword-style exact-spelling terminals
	Priority  int

	// KindOperator
	Regex2    string // operators still lex via a pattern or literal spelling
	IsLiteral2 bool
	Binary    OperatorRole
	LeftUnary OperatorRole

	// KindNonTerminal
	Bodies           []ProductionBodyId
	MayEpsilonReduce bool
}

// ProductionBody is one right-hand side alternative of a non-terminal.
type ProductionBody struct {
	Id      ProductionBodyId
	Owner   ProductionNodeId
	Symbols []ProductionNodeId // indexed by BodySymbolId
	Handler HandlerId
}

// Symbol returns the node referenced at position i of the body.
func (b *ProductionBody) Symbol(i BodySymbolId) ProductionNodeId {
	return b.Symbols[i]
}

// Len returns the number of symbols in the body (0 for an ε body).
func (b *ProductionBody) Len() BodySymbolId {
	return BodySymbolId(len(b.Symbols))
}

type pendingRef struct {
	body ProductionBodyId
	pos  BodySymbolId
	name string
}

// EndNodeId is always the first node allocated in a fresh Builder, so
// callers that need to reference the sentinel end-of-input symbol (e.g.
// when building the augmented start item) don't need a lookup.
const EndNodeId ProductionNodeId = 0

// Builder accumulates a production model through a sequence of Add* calls,
// resolves deferred forward/cyclic references at Finalize, and then hands
// back an immutable Grammar.
type Builder struct {
	names *symtab.Table[ProductionNodeId]
	nodes []ProductionNode
	bodies []ProductionBody

	pending []pendingRef
	rootName string
	haveRoot bool

	finalized bool
	errs      []error
}

// NewBuilder creates a Builder with its End sentinel node already in place.
func NewBuilder() *Builder {
	b := &Builder{names: symtab.New[ProductionNodeId]()}
	id, _ := b.names.Intern("$end")
	b.nodes = append(b.nodes, ProductionNode{Id: id, Name: "$end", Kind: KindEnd})
	return b
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

func (b *Builder) declare(name string, kind NodeKind) (ProductionNodeId, error) {
	if _, exists := b.names.Resolve(name); exists {
		return 0, gerr.New(gerr.CategoryDuplicateSymbol, "grammar: symbol %q already declared", name)
	}
	id, _ := b.names.Intern(name)
	b.nodes = append(b.nodes, ProductionNode{Id: id, Name: name, Kind: kind})
	return id, nil
}

// AddTerminal declares a plain pattern-matched terminal.
func (b *Builder) AddTerminal(name, regex string, priority int) (ProductionNodeId, error) {
	id, err := b.declare(name, KindTerminal)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	b.nodes[id].Regex = regex
	b.nodes[id].Priority = priority
	return id, nil
}

// AddKeyword declares a terminal matched by exact spelling rather than a
// regex, at the reserved keyword priority tier so it wins over any
// overlapping identifier-shaped terminal.
func (b *Builder) AddKeyword(name, literal string) (ProductionNodeId, error) {
	id, err := b.declare(name, KindTerminal)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	b.nodes[id].Regex = literal
	b.nodes[id].IsLiteral = true
	b.nodes[id].Priority = PriorityKeyword
	return id, nil
}

// AddBinaryOperator declares an operator node usable only in binary infix
// position.
func (b *Builder) AddBinaryOperator(name, spelling string, precedence int, assoc Associativity) (ProductionNodeId, error) {
	id, err := b.declare(name, KindOperator)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	b.nodes[id].Regex2 = spelling
	b.nodes[id].IsLiteral2 = true
	b.nodes[id].Priority = PriorityOperator
	b.nodes[id].Binary = OperatorRole{Present: true, Precedence: precedence, Associativity: assoc}
	return id, nil
}

// AddLeftUnaryOperator declares an operator node usable only as a prefix
// unary operator.
func (b *Builder) AddLeftUnaryOperator(name, spelling string, precedence int) (ProductionNodeId, error) {
	id, err := b.declare(name, KindOperator)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	b.nodes[id].Regex2 = spelling
	b.nodes[id].IsLiteral2 = true
	b.nodes[id].Priority = PriorityOperator
	b.nodes[id].LeftUnary = OperatorRole{Present: true, Precedence: precedence, Associativity: AssocRight}
	return id, nil
}

// AddBinaryLeftUnaryOperator declares one operator node that plays both
// roles — e.g. `-` as both subtraction and negation — sharing a single
// spelling and a single lexer terminal but carrying two independent
// precedence/associativity settings for the table builder.
func (b *Builder) AddBinaryLeftUnaryOperator(name, spelling string, binaryPrec int, binaryAssoc Associativity, unaryPrec int) (ProductionNodeId, error) {
	id, err := b.declare(name, KindOperator)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	b.nodes[id].Regex2 = spelling
	b.nodes[id].IsLiteral2 = true
	b.nodes[id].Priority = PriorityOperator
	b.nodes[id].Binary = OperatorRole{Present: true, Precedence: binaryPrec, Associativity: binaryAssoc}
	b.nodes[id].LeftUnary = OperatorRole{Present: true, Precedence: unaryPrec, Associativity: AssocRight}
	return id, nil
}

// AddNonTerminal declares a non-terminal with no bodies yet; bodies are
// attached with AddBody.
func (b *Builder) AddNonTerminal(name string) (ProductionNodeId, error) {
	id, err := b.declare(name, KindNonTerminal)
	if err != nil {
		b.fail(err)
		return 0, err
	}
	return id, nil
}

// AddBody attaches one production body to an already-declared non-terminal.
// Any symbolName not yet declared is recorded as a deferred reference and
// resolved at Finalize — this is what lets grammars declare non-terminals
// in any order, including mutual recursion, per §4.4.1.
func (b *Builder) AddBody(owner ProductionNodeId, symbolNames []string, handler HandlerId) (ProductionBodyId, error) {
	if int(owner) < 0 || int(owner) >= len(b.nodes) || b.nodes[owner].Kind != KindNonTerminal {
		err := gerr.New(gerr.CategoryUnknown, "grammar: AddBody owner is not a declared non-terminal")
		b.fail(err)
		return 0, err
	}
	bodyID := ProductionBodyId(len(b.bodies))
	symbols := make([]ProductionNodeId, len(symbolNames))
	for i, name := range symbolNames {
		if id, ok := b.names.Resolve(name); ok {
			symbols[i] = id
		} else {
			b.pending = append(b.pending, pendingRef{body: bodyID, pos: BodySymbolId(i), name: name})
		}
	}
	body := ProductionBody{Id: bodyID, Owner: owner, Symbols: symbols, Handler: handler}
	b.bodies = append(b.bodies, body)
	b.nodes[owner].Bodies = append(b.nodes[owner].Bodies, bodyID)
	return bodyID, nil
}

// SetRoot marks name as the grammar's start symbol. name need not be
// declared yet; it is resolved at Finalize like any other deferred
// reference.
func (b *Builder) SetRoot(name string) {
	b.rootName = name
	b.haveRoot = true
}

// resolvePending repeatedly walks the deferred-reference list, resolving
// whatever has become nameable since the last pass, until a pass resolves
// nothing further. This is the fixpoint required to support forward and
// mutually-cyclic non-terminal references in any declaration order.
func (b *Builder) resolvePending() {
	for {
		progress := false
		remaining := b.pending[:0]
		for _, ref := range b.pending {
			if id, ok := b.names.Resolve(ref.name); ok {
				b.bodies[ref.body].Symbols[ref.pos] = id
				progress = true
			} else {
				remaining = append(remaining, ref)
			}
		}
		b.pending = remaining
		if !progress || len(b.pending) == 0 {
			break
		}
	}
}

// computeEpsilonReduce computes, by fixpoint, which non-terminals may
// reduce via an empty body — either because they have a literally empty
// body, or because every symbol in some body is itself a may-ε-reduce
// non-terminal.
func (b *Builder) computeEpsilonReduce() {
	changed := true
	for changed {
		changed = false
		for i := range b.nodes {
			node := &b.nodes[i]
			if node.Kind != KindNonTerminal || node.MayEpsilonReduce {
				continue
			}
			for _, bodyID := range node.Bodies {
				body := &b.bodies[bodyID]
				if len(body.Symbols) == 0 {
					node.MayEpsilonReduce = true
					changed = true
					break
				}
				all := true
				for _, sym := range body.Symbols {
					if b.nodes[sym].Kind != KindNonTerminal || !b.nodes[sym].MayEpsilonReduce {
						all = false
						break
					}
				}
				if all {
					node.MayEpsilonReduce = true
					changed = true
					break
				}
			}
		}
	}
}

// Finalize resolves every deferred reference, validates the accumulated
// invariants, and returns the immutable Grammar. It is fatal (returns a
// non-nil error, per §4.8) if any reference remains unresolved, if no root
// was set, or if any other structural invariant fails.
func (b *Builder) Finalize() (*Grammar, error) {
	if b.finalized {
		return nil, gerr.New(gerr.CategoryUnknown, "grammar: Finalize called twice")
	}
	if len(b.errs) > 0 {
		return nil, gerr.Wrap(b.errs[0], gerr.CategoryOf(b.errs[0]), "grammar: %d error(s) during construction, first: %s", len(b.errs), b.errs[0])
	}

	b.resolvePending()
	if len(b.pending) > 0 {
		names := make([]string, len(b.pending))
		for i, ref := range b.pending {
			names[i] = ref.name
		}
		return nil, gerr.New(gerr.CategoryUnresolvedSymbol, "grammar: unresolved symbol reference(s): %s", util.MakeTextList(names))
	}

	if !b.haveRoot {
		return nil, gerr.New(gerr.CategoryMissingRoot, "grammar: no root symbol set")
	}
	rootID, ok := b.names.Resolve(b.rootName)
	if !ok {
		return nil, gerr.New(gerr.CategoryMissingRoot, "grammar: root symbol %q was never declared", b.rootName)
	}
	if b.nodes[rootID].Kind != KindNonTerminal {
		return nil, gerr.New(gerr.CategoryMissingRoot, "grammar: root symbol %q must be a non-terminal", b.rootName)
	}

	b.computeEpsilonReduce()

	g := &Grammar{
		nodes:  b.nodes,
		bodies: b.bodies,
		root:   rootID,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	b.finalized = true
	return g, nil
}

// Grammar is the finalized, immutable production model. Every method is
// safe for concurrent read-only use since nothing in it mutates after
// Finalize returns it.
type Grammar struct {
	nodes  []ProductionNode
	bodies []ProductionBody
	root   ProductionNodeId
}

// Root returns the grammar's start non-terminal.
func (g *Grammar) Root() ProductionNodeId { return g.root }

// Node returns the node stored at id.
func (g *Grammar) Node(id ProductionNodeId) *ProductionNode { return &g.nodes[id] }

// Body returns the body stored at id.
func (g *Grammar) Body(id ProductionBodyId) *ProductionBody { return &g.bodies[id] }

// NumNodes returns the number of production nodes, including the End
// sentinel.
func (g *Grammar) NumNodes() int { return len(g.nodes) }

// NumBodies returns the number of production bodies across all
// non-terminals.
func (g *Grammar) NumBodies() int { return len(g.bodies) }

// Terminals returns every terminal and operator node id (both are
// "shiftable" from the lexer's point of view), sorted by id.
func (g *Grammar) Terminals() []ProductionNodeId {
	var out []ProductionNodeId
	for i, n := range g.nodes {
		if n.Kind == KindTerminal || n.Kind == KindOperator {
			out = append(out, ProductionNodeId(i))
		}
	}
	return out
}

// NonTerminals returns every non-terminal node id, sorted by id.
func (g *Grammar) NonTerminals() []ProductionNodeId {
	var out []ProductionNodeId
	for i, n := range g.nodes {
		if n.Kind == KindNonTerminal {
			out = append(out, ProductionNodeId(i))
		}
	}
	return out
}

// validate re-checks invariants that declare/Finalize should already
// guarantee hold by construction. A violation here means this module's own
// bookkeeping is broken, not that the caller's grammar is wrong — declare
// already rejects a re-used name (including "$end", interned once by
// NewBuilder and never re-creatable through any public API) and Finalize
// already rejects a non-non-terminal root before calling validate. So these
// checks panic via gerr.Assert rather than return a reportable error; only
// the no-bodies check is a genuine, caller-triggerable spec error (§4.8).
func (g *Grammar) validate() error {
	seenEnd := 0
	namesSeen := map[string]bool{}
	for _, n := range g.nodes {
		if n.Kind == KindEnd {
			seenEnd++
		}
		gerr.Assert(!namesSeen[n.Name], "grammar: duplicate symbol name %q survived declaration", n.Name)
		namesSeen[n.Name] = true
		if n.Kind == KindNonTerminal && len(n.Bodies) == 0 {
			return gerr.New(gerr.CategoryNoBodies, "grammar: non-terminal %q has no bodies", n.Name)
		}
	}
	gerr.Assert(seenEnd == 1, "grammar: expected exactly one end-of-input node, found %d", seenEnd)
	gerr.Assert(g.nodes[g.root].Kind == KindNonTerminal, "grammar: root is not a non-terminal")
	return nil
}

// DebugNames returns every declared symbol name sorted, for diagnostics
// and table pretty-printing.
func (g *Grammar) DebugNames() []string {
	names := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}
