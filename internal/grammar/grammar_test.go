package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brelyon/langforge/internal/gerr"
)

func simpleExprGrammar(t *testing.T) *Grammar {
	t.Helper()
	b := NewBuilder()

	num, err := b.AddTerminal("NUM", `[0-9]+`, PriorityPlain)
	require.NoError(t, err)
	plus, err := b.AddBinaryOperator("PLUS", "+", 1, AssocLeft)
	require.NoError(t, err)

	expr, err := b.AddNonTerminal("Expr")
	require.NoError(t, err)

	_, err = b.AddBody(expr, []string{"Expr", "PLUS", "NUM"}, 0)
	require.NoError(t, err)
	_, err = b.AddBody(expr, []string{"NUM"}, 1)
	require.NoError(t, err)

	b.SetRoot("Expr")

	g, err := b.Finalize()
	require.NoError(t, err)

	_ = num
	_ = plus
	return g
}

func TestFinalizeCountsTerminalsAndNonTerminals(t *testing.T) {
	g := simpleExprGrammar(t)
	assert.Len(t, g.NonTerminals(), 1)
	assert.Len(t, g.Terminals(), 2)
}

func TestForwardReferenceAcrossMutualRecursion(t *testing.T) {
	// A declares a body referencing B before B is declared, and B's body
	// refers back to A; the forward reference must resolve at Finalize.
	b := NewBuilder()
	_, err := b.AddTerminal("X", "x", PriorityPlain)
	require.NoError(t, err)

	aID, err := b.AddNonTerminal("A")
	require.NoError(t, err)
	_, err = b.AddBody(aID, []string{"X", "B"}, 0)
	require.NoError(t, err)

	bID, err := b.AddNonTerminal("B")
	require.NoError(t, err)
	_, err = b.AddBody(bID, []string{"A"}, 1)
	require.NoError(t, err)
	_, err = b.AddBody(bID, nil, 2)
	require.NoError(t, err)

	b.SetRoot("A")
	g, err := b.Finalize()
	require.NoError(t, err)

	assert.True(t, g.Node(bID).MayEpsilonReduce)
}

func TestUnresolvedReferenceIsFatal(t *testing.T) {
	b := NewBuilder()
	aID, err := b.AddNonTerminal("A")
	require.NoError(t, err)
	_, err = b.AddBody(aID, []string{"Nonexistent"}, 0)
	require.NoError(t, err)
	b.SetRoot("A")

	_, err = b.Finalize()
	require.Error(t, err)
	assert.Equal(t, gerr.CategoryUnresolvedSymbol, gerr.CategoryOf(err))
}

func TestMissingRootIsFatal(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddNonTerminal("A")
	require.NoError(t, err)

	_, err = b.Finalize()
	require.Error(t, err)
	assert.Equal(t, gerr.CategoryMissingRoot, gerr.CategoryOf(err))
}

func TestDuplicateSymbolNameIsRejected(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddTerminal("X", "x", PriorityPlain)
	require.NoError(t, err)
	_, err = b.AddTerminal("X", "y", PriorityPlain)
	assert.Error(t, err)
	assert.Equal(t, gerr.CategoryDuplicateSymbol, gerr.CategoryOf(err))
}

func TestNonTerminalWithNoBodiesIsFatal(t *testing.T) {
	b := NewBuilder()
	_, err := b.AddNonTerminal("A")
	require.NoError(t, err)
	b.SetRoot("A")

	_, err = b.Finalize()
	require.Error(t, err)
	assert.Equal(t, gerr.CategoryNoBodies, gerr.CategoryOf(err))
}

func TestBinaryLeftUnaryOperatorCarriesBothRoles(t *testing.T) {
	b := NewBuilder()
	minus, err := b.AddBinaryLeftUnaryOperator("MINUS", "-", 2, AssocLeft, 5)
	require.NoError(t, err)

	node := b.nodes[minus]
	assert.True(t, node.Binary.Present)
	assert.True(t, node.LeftUnary.Present)
	assert.Equal(t, 2, node.Binary.Precedence)
	assert.Equal(t, 5, node.LeftUnary.Precedence)
}
