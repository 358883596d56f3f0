package automaton

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"
)

// DfaStateId identifies one state produced directly by subset construction,
// before minimization has collapsed equivalent states into rows.
type DfaStateId int32

// InvalidDfaState is the sentinel for "no transition defined."
const InvalidDfaState DfaStateId = -1

// TransformArrayId identifies one row of the final, minimized transition
// table — the unit the wire format actually ships. Several DfaStateIds can
// collapse onto the same TransformArrayId; the two are deliberately
// distinct types so a caller can never mix a pre-minimization id into a
// post-minimization table by accident.
type TransformArrayId int32

// InvalidTransformArray is the sentinel for "no transition defined" in a
// minimized row.
const InvalidTransformArray TransformArrayId = -1

type dfaState[E Taggable] struct {
	trans   [256]DfaStateId
	tag     E
	hasTail bool
}

// DFA is the subset-construction result: one state per distinct reachable
// NFA node set, with dense byte transitions and (optionally) an accepting
// tag. It has not yet been minimized; call Minimize to get the final
// TransformArrayId-indexed table that ships on the wire.
type DFA[E Taggable] struct {
	states []dfaState[E]
	start  DfaStateId
}

// Build runs subset construction (Algorithm 3.20) over n, starting from the
// ε-closure of n's Head. It fails only if two accepting NFA states of equal
// priority and differing tag become reachable together (an ambiguous
// lexeme, per §4.8).
func Build[E Taggable](n *NFA[E]) (*DFA[E], error) {
	n.mergeClosures()

	dfa := &DFA[E]{}
	setKey := func(ids []NfaNodeId) string {
		var sb strings.Builder
		for _, id := range ids {
			fmt.Fprintf(&sb, "%d,", id)
		}
		return sb.String()
	}

	startSet, startTag, startHas, err := closure(n, []NfaNodeId{n.Head})
	if err != nil {
		return nil, err
	}

	seen := map[string]DfaStateId{}
	newState := func(tag E, has bool) DfaStateId {
		id := DfaStateId(len(dfa.states))
		st := dfaState[E]{tag: tag, hasTail: has}
		for b := range st.trans {
			st.trans[b] = InvalidDfaState
		}
		dfa.states = append(dfa.states, st)
		return id
	}

	startID := newState(startTag, startHas)
	dfa.start = startID
	seen[setKey(startSet)] = startID

	type pending struct {
		id  DfaStateId
		set []NfaNodeId
	}
	queue := []pending{{id: startID, set: startSet}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for b := 0; b < 256; b++ {
			var targets []NfaNodeId
			for _, nid := range cur.set {
				t := n.nodes[nid].trans[byte(b)]
				if t != InvalidNfaNode {
					targets = append(targets, t)
				}
			}
			if len(targets) == 0 {
				continue
			}
			closSet, tag, has, err := closure(n, targets)
			if err != nil {
				return nil, err
			}
			key := setKey(closSet)
			id, ok := seen[key]
			if !ok {
				id = newState(tag, has)
				seen[key] = id
				queue = append(queue, pending{id: id, set: closSet})
			}
			dfa.states[cur.id].trans[byte(b)] = id
		}
	}

	return dfa, nil
}

// MinimizedTable is the §6.2 dfa_config payload shape: a dense
// TransformArrayId-indexed transition table, one row per equivalence class
// of states, plus the tag (if any) each row accepts on and the table's
// start row.
type MinimizedTable[E Taggable] struct {
	Rows   [][256]TransformArrayId
	Tags   []E
	HasTag []bool
	Start  TransformArrayId

	// EofTag is the word-data a driver emits on end-of-input with an
	// empty buffer (§4.3/§6.3). It is not derived from any row of the
	// table — minimization never reaches an "end of file" input — it is
	// simply the value the caller configures for that event.
	EofTag E
}

// Minimize collapses equivalent states of d by iterative partition
// refinement (Moore's algorithm): two states start in the same partition
// iff they carry the same tag (or neither does), and are split apart as
// soon as some input byte sends them to states in different partitions.
// The loop runs to a fixpoint, which is reached in at most len(d.states)
// refinements. eofTag is carried straight into the result as the
// separately configured end-of-file word-data.
func (d *DFA[E]) Minimize(eofTag E) MinimizedTable[E] {
	n := len(d.states)
	groupOf := make([]int, n)
	groupKey := make(map[string]int, n)
	nextGroup := 0
	for i, st := range d.states {
		key := fmt.Sprintf("%v|%v", st.hasTail, st.tag)
		g, ok := groupKey[key]
		if !ok {
			g = nextGroup
			groupKey[key] = g
			nextGroup++
		}
		groupOf[i] = g
	}

	changed := true
	for changed {
		changed = false
		sigToGroup := map[string]int{}
		newGroupOf := make([]int, n)
		next := 0
		for i := 0; i < n; i++ {
			var sb strings.Builder
			fmt.Fprintf(&sb, "%d;", groupOf[i])
			for b := 0; b < 256; b++ {
				t := d.states[i].trans[b]
				g := -1
				if t != InvalidDfaState {
					g = groupOf[t]
				}
				fmt.Fprintf(&sb, "%d,", g)
			}
			sig := sb.String()
			g, ok := sigToGroup[sig]
			if !ok {
				g = next
				sigToGroup[sig] = g
				next++
			}
			newGroupOf[i] = g
		}
		if next != nextGroup {
			changed = true
		} else {
			for i := range newGroupOf {
				if newGroupOf[i] != groupOf[i] {
					changed = true
					break
				}
			}
		}
		groupOf = newGroupOf
		nextGroup = next
	}

	table := MinimizedTable[E]{
		Rows:   make([][256]TransformArrayId, nextGroup),
		Tags:   make([]E, nextGroup),
		HasTag: make([]bool, nextGroup),
		Start:  TransformArrayId(groupOf[d.start]),
		EofTag: eofTag,
	}
	assigned := make([]bool, nextGroup)
	for i := 0; i < n; i++ {
		g := groupOf[i]
		if assigned[g] {
			continue
		}
		assigned[g] = true
		for b := range table.Rows[g] {
			table.Rows[g][b] = InvalidTransformArray
		}
		table.Tags[g] = d.states[i].tag
		table.HasTag[g] = d.states[i].hasTail
		for b := 0; b < 256; b++ {
			t := d.states[i].trans[b]
			if t == InvalidDfaState {
				table.Rows[g][b] = InvalidTransformArray
			} else {
				table.Rows[g][b] = TransformArrayId(groupOf[t])
			}
		}
	}

	return table
}

// NumStates returns the number of pre-minimization states (diagnostic use,
// e.g. reporting compression ratio after Minimize).
func (d *DFA[E]) NumStates() int {
	return len(d.states)
}

// String renders the minimized table as a human-readable grid, one row per
// TransformArrayId and its accepted tag (if any), in the same rosed-table
// style lalr.Table.String uses for the action/goto grid.
func (t MinimizedTable[E]) String() string {
	data := [][]string{{"row", "tag"}}
	for i := range t.Rows {
		tag := "(no accept)"
		if t.HasTag[i] {
			tag = fmt.Sprintf("%v", t.Tags[i])
		}
		data = append(data, []string{fmt.Sprintf("%d", i), tag})
	}

	summary := fmt.Sprintf("start=%d rows=%d eof=%v\n", t.Start, len(t.Rows), t.EofTag)

	return summary + rosed.
		Edit("").
		InsertTableOpts(0, data, 20, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
