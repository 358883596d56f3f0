package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTag is a minimal Taggable used only by this package's own tests;
// grammar.WordData is the real tag type used by the generator proper.
type testTag struct {
	name string
	prio int
}

func (t testTag) Priority() int { return t.prio }

func run(t *testing.T, d *MinimizedTable[testTag], input string) (testTag, bool) {
	t.Helper()
	state := d.Start
	var lastTag testTag
	var lastHas bool
	for i := 0; i < len(input); i++ {
		next := d.Rows[state][input[i]]
		if next == InvalidTransformArray {
			return lastTag, lastHas
		}
		state = next
	}
	return d.Tags[state], d.HasTag[state]
}

func TestLiteralRegex(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("abc", testTag{name: "ABC"})
	require.NoError(t, err)

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF"})

	tag, has := run(t, &min, "abc")
	require.True(t, has)
	assert.Equal(t, "ABC", tag.name)
}

func TestAlternationAndStar(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("(a|b)*c", testTag{name: "ABSTAR"})
	require.NoError(t, err)

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF"})

	for _, in := range []string{"c", "ac", "bc", "abababc", "aaac"} {
		_, has := run(t, &min, in)
		assert.Truef(t, has, "expected %q to match", in)
	}
}

func TestCharacterClassRange(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("[a-z]+", testTag{name: "LOWER"})
	require.NoError(t, err)

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF"})

	_, has := run(t, &min, "hello")
	assert.True(t, has)
}

func TestKeywordBeatsIdentifierOnPriority(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("[a-z]+", testTag{name: "IDENT", prio: 0})
	require.NoError(t, err)
	n.AddKeyword("if", testTag{name: "KW_IF", prio: 2})

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF"})

	tag, has := run(t, &min, "if")
	require.True(t, has)
	assert.Equal(t, "KW_IF", tag.name)

	tag, has = run(t, &min, "ifx")
	require.True(t, has)
	assert.Equal(t, "IDENT", tag.name)
}

func TestAmbiguousEqualPriorityIsFatal(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("ab", testTag{name: "FIRST", prio: 1})
	require.NoError(t, err)
	_, _, err = n.AddRegex("ab", testTag{name: "SECOND", prio: 1})
	require.NoError(t, err)

	_, err = Build(n)
	assert.Error(t, err)
}

func TestMalformedRegexReportsPosition(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("ab(cd", testTag{name: "BAD"})
	require.Error(t, err)
	var re *RegexError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 5, re.Pos)
}

// TestMinimizeCarriesEofTag confirms the end-of-file word-data passed to
// Minimize is not derived from the table at all (it should survive
// unchanged even though no input below ever reaches an EOF-tagged row).
func TestMinimizeCarriesEofTag(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("abc", testTag{name: "ABC"})
	require.NoError(t, err)

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF", prio: 9})

	assert.Equal(t, testTag{name: "EOF", prio: 9}, min.EofTag)
}

// TestEpsilonSelfLoopMergeSkipped exercises the open-question answer: a
// grammar whose NFA produces a node with an ε self-loop (the classic
// A*A*-shaped construction, where the junction between the two stars
// becomes its own loop target) must still minimize to a correct DFA rather
// than looping forever or losing reachable states.
func TestEpsilonSelfLoopMergeSkipped(t *testing.T) {
	n := New[testTag]()
	_, _, err := n.AddRegex("a*a*", testTag{name: "AS"})
	require.NoError(t, err)

	dfa, err := Build(n)
	require.NoError(t, err)
	min := dfa.Minimize(testTag{name: "EOF"})

	for _, in := range []string{"", "a", "aaaa"} {
		_, has := run(t, &min, in)
		assert.Truef(t, has, "expected %q to match a*a*", in)
	}
}
