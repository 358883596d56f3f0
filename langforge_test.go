package langforge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brelyon/langforge/internal/gerr"
	"github.com/brelyon/langforge/internal/grammar"
	"github.com/brelyon/langforge/internal/wire"
)

// buildArithmetic builds a small but complete language: integers, +, *
// with the usual precedence, and parenthesized grouping. This exercises
// every stage of Finalize together: lexer construction, LALR table
// construction with real shift/reduce conflicts resolved by precedence,
// and handler registry construction.
func buildArithmetic(t *testing.T) *Generator {
	t.Helper()
	g := New()

	_, err := g.AddTerminal("NUM", `[0-9]+`)
	require.NoError(t, err)
	_, err = g.AddBinaryOperator("PLUS", "+", 1, grammar.AssocLeft)
	require.NoError(t, err)
	_, err = g.AddBinaryOperator("TIMES", "*", 2, grammar.AssocLeft)
	require.NoError(t, err)
	_, err = g.AddKeyword("LPAREN", "(")
	require.NoError(t, err)
	_, err = g.AddKeyword("RPAREN", ")")
	require.NoError(t, err)

	expr, err := g.AddNonTerminal("Expr")
	require.NoError(t, err)
	_, err = g.AddBody(expr, []string{"Expr", "PLUS", "Expr"}, 0)
	require.NoError(t, err)
	_, err = g.AddBody(expr, []string{"Expr", "TIMES", "Expr"}, 1)
	require.NoError(t, err)
	_, err = g.AddBody(expr, []string{"LPAREN", "Expr", "RPAREN"}, 2)
	require.NoError(t, err)
	_, err = g.AddBody(expr, []string{"NUM"}, 3)
	require.NoError(t, err)

	g.SetRoot("Expr")
	return g
}

func TestFinalizeProducesCompleteArtifacts(t *testing.T) {
	g := buildArithmetic(t)
	artifacts, err := g.Finalize()
	require.NoError(t, err)

	assert.NotZero(t, artifacts.Dfa.RowCount)
	assert.NotEmpty(t, artifacts.Syntax.Rows)
	assert.Equal(t, 4, artifacts.Handlers.Len())
}

func TestDfaConfigRoundTripsThroughWire(t *testing.T) {
	g := buildArithmetic(t)
	artifacts, err := g.Finalize()
	require.NoError(t, err)

	encoded := wire.EncodeDfaConfig(&artifacts.Dfa)
	decoded, err := wire.DecodeDfaConfig(encoded)
	require.NoError(t, err)

	assert.Equal(t, artifacts.Dfa.RowCount, decoded.RowCount)
	assert.Equal(t, artifacts.Dfa.Start, decoded.Start)
	assert.Equal(t, artifacts.Dfa.EofNode, decoded.EofNode)
	assert.Equal(t, artifacts.Dfa.EofPrio, decoded.EofPrio)
	assert.Equal(t, int32(grammar.EndNodeId), decoded.EofNode)
	if diff := cmp.Diff(artifacts.Dfa.Trans, decoded.Trans); diff != "" {
		t.Errorf("transition table mismatch after wire round-trip (-want +got):\n%s", diff)
	}
}

func TestSyntaxConfigRoundTripsThroughWire(t *testing.T) {
	g := buildArithmetic(t)
	artifacts, err := g.Finalize()
	require.NoError(t, err)

	encoded := wire.EncodeSyntaxConfig(&artifacts.Syntax)
	decoded, err := wire.DecodeSyntaxConfig(encoded)
	require.NoError(t, err)

	assert.Equal(t, artifacts.Syntax.Start, decoded.Start)
	assert.Len(t, decoded.Rows, len(artifacts.Syntax.Rows))
	assert.Len(t, decoded.Handlers, len(artifacts.Syntax.Handlers))
}

func TestDuplicateHandlerIdIsFatal(t *testing.T) {
	g := New()
	_, err := g.AddTerminal("A", "a")
	require.NoError(t, err)
	_, err = g.AddTerminal("B", "b")
	require.NoError(t, err)

	s, err := g.AddNonTerminal("S")
	require.NoError(t, err)
	_, err = g.AddBody(s, []string{"A"}, 0)
	require.NoError(t, err)
	x, err := g.AddNonTerminal("X")
	require.NoError(t, err)
	_, err = g.AddBody(x, []string{"B"}, 0) // same handler id as S's body
	require.NoError(t, err)
	_, err = g.AddBody(s, []string{"X"}, 1)
	require.NoError(t, err)

	g.SetRoot("S")
	_, err = g.Finalize()
	require.Error(t, err)
	assert.Equal(t, gerr.CategoryHandlerReuse, gerr.CategoryOf(err))
}

func TestUnresolvedSymbolReferenceIsFatal(t *testing.T) {
	g := New()
	s, err := g.AddNonTerminal("S")
	require.NoError(t, err)
	_, err = g.AddBody(s, []string{"NeverDeclared"}, 0)
	require.NoError(t, err)
	g.SetRoot("S")

	_, err = g.Finalize()
	require.Error(t, err)
}
