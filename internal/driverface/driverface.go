// Package driverface documents the boundary between this module's
// compiled artifacts (dfa_config, syntax_config) and the driver program
// that actually lexes and parses input with them. Per §6.3, building that
// driver is out of scope here — these interfaces exist so the shape of
// the handoff is recorded and typed, not so anything in this module
// implements them.
//
// The split mirrors ictiobus.go's own Lexer/Parser/SDD interfaces
// (internal/ictiobus/ictiobus.go): there, a Frontend[E] composes a Lexer,
// a Parser and an SDD into one Analyze call. Here, ParserDriver and
// ASTBuilder are the analogous seams, but expressed against the typed
// artifacts this module produces (wire.DfaConfig / wire.SyntaxConfig)
// instead of against in-process Lexer/Parser values, since the whole
// point of shipping a binary config is that the driver can live in a
// different process, or even a different language, entirely.
package driverface

import (
	"github.com/brelyon/langforge/internal/grammar"
	"github.com/brelyon/langforge/internal/wire"
)

// Token is what a driver's lexer is expected to produce for each lexeme:
// which terminal matched, and the matched text.
type Token struct {
	Symbol grammar.ProductionNodeId
	Text   string
	Pos    int
}

// ParserDriver is implemented by a program that walks a compiled
// wire.SyntaxConfig against a stream of Tokens to perform a parse. This
// module only produces the table; driving it — maintaining the state
// stack, calling Shift/Reduce/Accept, invoking handlers by HandlerId — is
// the collaborator's job.
type ParserDriver interface {
	// LoadSyntaxConfig installs the compiled parse table the driver will
	// execute.
	LoadSyntaxConfig(cfg *wire.SyntaxConfig) error

	// Step advances the parse by one token, returning true once the
	// driver has reached Accept.
	Step(tok Token) (done bool, err error)
}

// ASTBuilder is implemented by a program that turns handler invocations
// (dispatched by a ParserDriver via HandlerId) into some caller-defined
// tree or other structured result. This module only tells the driver
// which handler fires for which body and what its argument slots are
// (package handlers); what an invocation actually builds is entirely up
// to the driver.
type ASTBuilder interface {
	// Invoke is called once per reduction, with the handler's declared
	// argument values already resolved by the driver.
	Invoke(handler grammar.HandlerId, args []any) (any, error)
}
