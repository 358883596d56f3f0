package lalr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brelyon/langforge/internal/grammar"
)

// buildArithGrammar builds the classic
//
//	Expr -> Expr PLUS Expr | Expr TIMES Expr | NUM
//
// grammar, with TIMES binding tighter than PLUS, both left-associative.
// Ambiguous on its own; only survives table construction because the
// operator-precedence conflict resolution breaks every shift/reduce tie.
func buildArithGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	b := grammar.NewBuilder()

	_, err := b.AddTerminal("NUM", `[0-9]+`, grammar.PriorityPlain)
	require.NoError(t, err)
	plus, err := b.AddBinaryOperator("PLUS", "+", 1, grammar.AssocLeft)
	require.NoError(t, err)
	times, err := b.AddBinaryOperator("TIMES", "*", 2, grammar.AssocLeft)
	require.NoError(t, err)

	expr, err := b.AddNonTerminal("Expr")
	require.NoError(t, err)
	_, err = b.AddBody(expr, []string{"Expr", "PLUS", "Expr"}, 0)
	require.NoError(t, err)
	_, err = b.AddBody(expr, []string{"Expr", "TIMES", "Expr"}, 1)
	require.NoError(t, err)
	_, err = b.AddBody(expr, []string{"NUM"}, 2)
	require.NoError(t, err)

	b.SetRoot("Expr")
	g, err := b.Finalize()
	require.NoError(t, err)

	_ = plus
	_ = times
	return g
}

func TestBuildArithGrammarNoReduceReduceConflict(t *testing.T) {
	g := buildArithGrammar(t)
	table, err := Build(g)
	require.NoError(t, err)
	assert.NotEmpty(t, table.Rows)
}

func TestUnambiguousGrammarBuildsCleanly(t *testing.T) {
	b := grammar.NewBuilder()
	_, err := b.AddTerminal("A", "a", grammar.PriorityPlain)
	require.NoError(t, err)
	_, err = b.AddTerminal("B", "b", grammar.PriorityPlain)
	require.NoError(t, err)

	s, err := b.AddNonTerminal("S")
	require.NoError(t, err)
	_, err = b.AddBody(s, []string{"A", "S", "B"}, 0)
	require.NoError(t, err)
	_, err = b.AddBody(s, nil, 1)
	require.NoError(t, err)

	b.SetRoot("S")
	g, err := b.Finalize()
	require.NoError(t, err)

	table, err := Build(g)
	require.NoError(t, err)
	assert.NotEmpty(t, table.Rows)
}

// symbolByName finds a grammar's terminal or non-terminal node by name
// (the end-of-input symbol is available under grammar.EndNodeId already,
// since it is never named by a caller).
func symbolByName(t *testing.T, g *grammar.Grammar, name string) grammar.ProductionNodeId {
	t.Helper()
	for _, id := range g.Terminals() {
		if g.Node(id).Name == name {
			return id
		}
	}
	for _, id := range g.NonTerminals() {
		if g.Node(id).Name == name {
			return id
		}
	}
	t.Fatalf("no symbol named %q in grammar", name)
	return 0
}

// driveParse walks table against a terminal token stream (already ending in
// grammar.EndNodeId), applying each cell's Action against a stack of table
// rows exactly as a shift-reduce parser driver would, and returns the
// ProductionBodyId of every reduction performed, in the order performed.
// It fails the test outright on an ActionError cell or on running out of
// tokens before reaching ActionAccept.
func driveParse(t *testing.T, g *grammar.Grammar, table *Table, tokens []grammar.ProductionNodeId) []grammar.ProductionBodyId {
	t.Helper()

	stack := []int{int(table.Start)}
	var reduces []grammar.ProductionBodyId
	pos := 0

	for {
		require.Less(t, pos, len(tokens), "ran out of lookahead before ActionAccept")
		la := tokens[pos]
		top := stack[len(stack)-1]
		act, ok := table.Rows[top].Action[la]
		require.Truef(t, ok, "no action in state %d on lookahead %s", top, g.Node(la).Name)

		switch act.Kind {
		case ActionShift:
			stack = append(stack, int(act.Target))
			pos++
		case ActionReduce:
			body := g.Body(act.Body)
			n := len(body.Symbols)
			stack = stack[:len(stack)-n]
			reduces = append(reduces, act.Body)
			under := stack[len(stack)-1]
			target, ok := table.Rows[under].Goto[body.Owner]
			require.Truef(t, ok, "no goto in state %d on %s", under, g.Node(body.Owner).Name)
			stack = append(stack, int(target))
		case ActionAccept:
			return reduces
		default:
			t.Fatalf("error action in state %d on lookahead %s", top, g.Node(la).Name)
		}
	}
}

// TestArithmeticReduceOrderFollowsPrecedence drives "1+2*3+4" through a
// built table end to end and checks that the three binary reductions fire
// in precedence order: (2*3) first (TIMES binds tighter so it reduces
// before the surrounding PLUS shifts further), then (1+(2*3)), then
// ((1+(2*3))+4) (left associativity keeps reducing instead of shifting the
// trailing PLUS).
func TestArithmeticReduceOrderFollowsPrecedence(t *testing.T) {
	g := buildArithGrammar(t)
	table, err := Build(g)
	require.NoError(t, err)

	num := symbolByName(t, g, "NUM")
	plus := symbolByName(t, g, "PLUS")
	times := symbolByName(t, g, "TIMES")
	tokens := []grammar.ProductionNodeId{num, plus, num, times, num, plus, num, grammar.EndNodeId}

	reduces := driveParse(t, g, table, tokens)

	var binary []grammar.ProductionBodyId
	for _, b := range reduces {
		if len(g.Body(b).Symbols) == 3 {
			binary = append(binary, b)
		}
	}

	plusBody := g.Body(0) // Expr -> Expr PLUS Expr, handler 0
	timesBody := g.Body(1)
	require.Equal(t, plus, plusBody.Symbols[1])
	require.Equal(t, times, timesBody.Symbols[1])

	assert.Equal(t, []grammar.ProductionBodyId{1, 0, 0}, binary,
		"expected reduce order (2*3), (1+(2*3)), ((1+(2*3))+4)")
}

// TestDanglingElseShiftsRatherThanReduces builds the classic
//
//	Stmt -> IF Expr THEN Stmt
//	     |  IF Expr THEN Stmt ELSE Stmt
//	     |  OTHER
//
// dangling-else grammar and confirms the table prefers to shift ELSE
// (attaching it to the nearest enclosing IF) rather than reduce the outer
// IF Expr THEN Stmt, since neither alternative carries operator precedence
// to break the tie explicitly — the default favors shift.
func TestDanglingElseShiftsRatherThanReduces(t *testing.T) {
	b := grammar.NewBuilder()
	_, err := b.AddKeyword("IF", "if")
	require.NoError(t, err)
	_, err = b.AddKeyword("THEN", "then")
	require.NoError(t, err)
	_, err = b.AddKeyword("ELSE", "else")
	require.NoError(t, err)
	_, err = b.AddTerminal("EXPR", `e`, grammar.PriorityPlain)
	require.NoError(t, err)
	_, err = b.AddTerminal("OTHER", `o`, grammar.PriorityPlain)
	require.NoError(t, err)

	stmt, err := b.AddNonTerminal("Stmt")
	require.NoError(t, err)
	_, err = b.AddBody(stmt, []string{"IF", "EXPR", "THEN", "Stmt"}, 0)
	require.NoError(t, err)
	_, err = b.AddBody(stmt, []string{"IF", "EXPR", "THEN", "Stmt", "ELSE", "Stmt"}, 1)
	require.NoError(t, err)
	_, err = b.AddBody(stmt, []string{"OTHER"}, 2)
	require.NoError(t, err)

	b.SetRoot("Stmt")
	g, err := b.Finalize()
	require.NoError(t, err)

	table, err := Build(g)
	require.NoError(t, err)

	ifTok := symbolByName(t, g, "IF")
	thenTok := symbolByName(t, g, "THEN")
	elseTok := symbolByName(t, g, "ELSE")
	exprTok := symbolByName(t, g, "EXPR")

	// "if e then if e then o else o": the inner IF...THEN...Stmt is
	// complete right before ELSE, so the state there must have both a
	// shift-on-ELSE and a reduce-to-Stmt candidate for body 0.
	tokens := []grammar.ProductionNodeId{
		ifTok, exprTok, thenTok, ifTok, exprTok, thenTok,
		symbolByName(t, g, "OTHER"), elseTok, symbolByName(t, g, "OTHER"),
		grammar.EndNodeId,
	}

	reduces := driveParse(t, g, table, tokens)

	// If ELSE had instead been reduced away (binding it to the outer IF),
	// the inner "if...then o" would reduce via the no-else body (body 0)
	// immediately on seeing ELSE, and the ELSE-carrying body (body 1)
	// would be the LAST reduction, consuming the outer IF. Shifting ELSE
	// (binding it to the nearest IF) instead makes body 1 close the inner
	// if/then/else first, leaving the outer if/then (body 0, no else) as
	// the final reduction.
	require.Len(t, reduces, 4)
	assert.Equal(t, []grammar.ProductionBodyId{2, 2, 1, 0}, reduces,
		"dangling else should bind to the nearest IF: inner if/then/else (body 1) reduces before the outer if/then (body 0)")
}

func TestGenuineReduceReduceConflictIsFatal(t *testing.T) {
	b := grammar.NewBuilder()
	_, err := b.AddTerminal("A", "a", grammar.PriorityPlain)
	require.NoError(t, err)

	s, err := b.AddNonTerminal("S")
	require.NoError(t, err)
	x, err := b.AddNonTerminal("X")
	require.NoError(t, err)
	y, err := b.AddNonTerminal("Y")
	require.NoError(t, err)

	_, err = b.AddBody(s, []string{"X"}, 0)
	require.NoError(t, err)
	_, err = b.AddBody(s, []string{"Y"}, 1)
	require.NoError(t, err)
	_, err = b.AddBody(x, []string{"A"}, 2)
	require.NoError(t, err)
	_, err = b.AddBody(y, []string{"A"}, 3)
	require.NoError(t, err)

	b.SetRoot("S")
	g, err := b.Finalize()
	require.NoError(t, err)

	_, err = Build(g)
	require.Error(t, err)
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
}
