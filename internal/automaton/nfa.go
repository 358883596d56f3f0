// Package automaton implements the regex-to-NFA compiler (C2) and the
// NFA-to-DFA subset construction and minimizer (C3) described in the
// lexical half of the generator pipeline. It is deliberately generic over
// the tail-tag attached to accepting states (E), so the same engine serves
// both the lexer's terminal-priority tags (see package grammar) and any
// other byte-alphabet automaton a caller wants.
//
// States are referenced only by typed integer index (NfaNodeId,
// DfaStateId, TransformArrayId) into the owning NFA or DFA's arena; there
// are no pointers between states, so cycles (inescapable once ε and `*`
// are in the regex grammar) require no special care beyond the index
// bookkeeping that is already necessary.
package automaton

import (
	"fmt"
	"sort"

	"github.com/brelyon/langforge/internal/gerr"
)

// NfaNodeId identifies one state in an NFA's arena.
type NfaNodeId int32

// InvalidNfaNode is the sentinel for "no such node" (the wire format's -1).
const InvalidNfaNode NfaNodeId = -1

// Taggable is the constraint on the value an NFA/DFA attaches to an
// accepting state. Priority is used to resolve which of several candidate
// tags wins when more than one NFA fragment accepts along the same path;
// comparable is required so two tags of equal priority can be checked for
// disagreement (the fatal "equal-priority lexeme ambiguity" case in §4.8).
type Taggable interface {
	comparable
	Priority() int
}

type nfaNode[E Taggable] struct {
	trans   [256]NfaNodeId // at most one target per byte
	eps     []NfaNodeId
	tail    E
	hasTail bool
}

// NFA is a non-deterministic finite automaton over the 256-byte alphabet,
// built incrementally by AddRegex/AddKeyword calls that each link a fresh
// fragment in under the automaton's single shared Head via an ε-edge. This
// is what lets every terminal pattern a caller registers end up folded into
// one automaton before DFA construction.
type NFA[E Taggable] struct {
	nodes []nfaNode[E]
	Head  NfaNodeId
}

// New creates an NFA with its shared head node already allocated.
func New[E Taggable]() *NFA[E] {
	n := &NFA[E]{}
	n.Head = n.newNode()
	return n
}

func (n *NFA[E]) newNode() NfaNodeId {
	id := NfaNodeId(len(n.nodes))
	node := nfaNode[E]{}
	for b := range node.trans {
		node.trans[b] = InvalidNfaNode
	}
	n.nodes = append(n.nodes, node)
	return id
}

// NumNodes returns the number of allocated NFA nodes.
func (n *NFA[E]) NumNodes() int {
	return len(n.nodes)
}

func (n *NFA[E]) addEpsilon(from, to NfaNodeId) {
	n.nodes[from].eps = append(n.nodes[from].eps, to)
}

func (n *NFA[E]) addByte(from NfaNodeId, b byte, to NfaNodeId) {
	// ≤1 target per character: a fresh fragment never redefines an
	// existing byte edge on one of its own nodes, so last-wins here would
	// only ever fire on a caller bug.
	n.nodes[from].trans[b] = to
}

func (n *NFA[E]) setTail(node NfaNodeId, tag E) {
	n.nodes[node].hasTail = true
	n.nodes[node].tail = tag
}

// AddRegex parses pattern (see the grammar documented on parseAlternation)
// and appends the resulting fragment to the automaton, linking its entry
// from the shared Head by ε and tagging its exit with tag. Returns the
// fragment's (head, tail) node ids.
func (n *NFA[E]) AddRegex(pattern string, tag E) (head, tail NfaNodeId, err error) {
	p := &regexParser[E]{src: pattern, nfa: n}
	frag, err := p.parseAlternation()
	if err != nil {
		return InvalidNfaNode, InvalidNfaNode, gerr.Wrap(err, gerr.CategoryMalformedRegex, "malformed regex %q: %s", pattern, err)
	}
	if p.pos != len(p.src) {
		re := &RegexError{Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", p.src[p.pos])}
		return InvalidNfaNode, InvalidNfaNode, gerr.Wrap(re, gerr.CategoryMalformedRegex, "malformed regex %q: %s", pattern, re)
	}
	n.addEpsilon(n.Head, frag.entry)
	n.setTail(frag.exit, tag)
	return frag.entry, frag.exit, nil
}

// AddKeyword appends a literal-sequence fragment (no regex metacharacters
// interpreted) to the automaton, for keywords whose "pattern" is just their
// spelling.
func (n *NFA[E]) AddKeyword(literal string, tag E) (head, tail NfaNodeId) {
	frag := n.fragEmpty()
	for i := 0; i < len(literal); i++ {
		frag = n.fragConcat(frag, n.fragByte(literal[i]))
	}
	n.addEpsilon(n.Head, frag.entry)
	n.setTail(frag.exit, tag)
	return frag.entry, frag.exit
}

// RegexError reports a malformed pattern at a byte offset, per §4.2's
// "malformed regex → fatal error with position echoed."
type RegexError struct {
	Pos int
	Msg string
}

func (e *RegexError) Error() string {
	return fmt.Sprintf("malformed regex at position %d: %s", e.Pos, e.Msg)
}

// closure computes the ε-closure of the given starting node set, plus the
// best tail tag reachable in it (by priority). An equal-priority conflict
// between two different tags is a fatal error per §4.3/§4.8.
func closure[E Taggable](n *NFA[E], start []NfaNodeId) (set []NfaNodeId, tag E, hasTag bool, err error) {
	visited := make(map[NfaNodeId]bool, len(start)*2)
	stack := append([]NfaNodeId(nil), start...)

	var best E
	bestPriority := -1

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		node := n.nodes[cur]
		if node.hasTail {
			p := node.tail.Priority()
			switch {
			case !hasTag || p > bestPriority:
				best = node.tail
				bestPriority = p
				hasTag = true
			case p == bestPriority && best != node.tail:
				var zero E
				return nil, zero, false, gerr.New(gerr.CategoryAmbiguousLexeme, "ambiguous lexeme: two patterns accept the same input at priority %d with differing word data", p)
			}
		}

		for _, e := range node.eps {
			if !visited[e] {
				stack = append(stack, e)
			}
		}
	}

	ids := make([]NfaNodeId, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, best, hasTag, nil
}

// mergeClosures folds redundant ε-only nodes, per §4.2's size-only merge
// optimization: for each node N whose only outgoing edges are ε to a single
// node M, and N is not itself a tail, fold N into M. Per the open question
// in §9, a node that is its own sole ε-target (a self-loop) is skipped and
// its other ε edges are not re-queued on the same pass.
func (n *NFA[E]) mergeClosures() {
	changed := true
	for changed {
		changed = false
		for id := range n.nodes {
			nodeID := NfaNodeId(id)
			node := &n.nodes[nodeID]
			if node.hasTail {
				continue
			}
			if len(node.eps) != 1 {
				continue
			}
			target := node.eps[0]
			if target == nodeID {
				// self-loop: skip folding this node, and per the chosen
				// answer to the open question, do not re-queue its other
				// ε-edges (there are none here anyway, since eps has
				// exactly one entry and it is this self-loop).
				continue
			}
			// redirect every incoming edge of nodeID to target instead.
			redirected := false
			for j := range n.nodes {
				src := &n.nodes[j]
				for b, t := range src.trans {
					if t == nodeID {
						src.trans[b] = target
						redirected = true
					}
				}
				for k, e := range src.eps {
					if e == nodeID && NfaNodeId(j) != nodeID {
						src.eps[k] = target
						redirected = true
					}
				}
			}
			if n.Head == nodeID {
				n.Head = target
				redirected = true
			}
			if redirected {
				changed = true
			}
		}
	}
}
