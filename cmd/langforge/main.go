/*
Langforge compiles a TOML lexicon/grammar description into the two
binary artifacts a parser driver loads at runtime: a compiled lexer table
(dfa_config) and a compiled LALR(1) parse table plus handler registry
(syntax_config).

Usage:

	langforge [flags]

The flags are:

	-v, --version
		Print the current version and exit.

	-c, --config FILE
		Read the lexicon/grammar description from FILE. Defaults to
		"langforge.toml" in the current working directory.

	-o, --out-dir DIR
		Write dfa_config.bin and syntax_config.bin into DIR. Defaults to the
		current working directory.

Build errors in the described grammar (an unresolved symbol, an ambiguous
lexeme, an unresolvable parse conflict) are reported to stderr and exit
with a non-zero status; nothing is written.
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/brelyon/langforge"
	"github.com/brelyon/langforge/internal/grammar"
	"github.com/brelyon/langforge/internal/version"
	"github.com/brelyon/langforge/internal/wire"
)

const (
	ExitSuccess = iota
	ExitBuildError
	ExitInitError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	configFile  = pflag.StringP("config", "c", "langforge.toml", "The TOML file describing the lexicon and grammar to compile")
	outDir      = pflag.StringP("out-dir", "o", ".", "Directory to write dfa_config.bin and syntax_config.bin into")
)

// projectConfig is the on-disk TOML shape a user writes to describe their
// language. Every declaration in package langforge's Generator has a
// corresponding array here.
type projectConfig struct {
	Root string `toml:"root"`

	Terminals []struct {
		Name  string `toml:"name"`
		Regex string `toml:"regex"`
	} `toml:"terminals"`

	Keywords []struct {
		Name    string `toml:"name"`
		Literal string `toml:"literal"`
	} `toml:"keywords"`

	BinaryOperators []struct {
		Name       string `toml:"name"`
		Spelling   string `toml:"spelling"`
		Precedence int    `toml:"precedence"`
		Assoc      string `toml:"assoc"`
	} `toml:"binary_operators"`

	LeftUnaryOperators []struct {
		Name       string `toml:"name"`
		Spelling   string `toml:"spelling"`
		Precedence int    `toml:"precedence"`
	} `toml:"left_unary_operators"`

	BinaryLeftUnaryOperators []struct {
		Name             string `toml:"name"`
		Spelling         string `toml:"spelling"`
		BinaryPrecedence int    `toml:"binary_precedence"`
		BinaryAssoc      string `toml:"binary_assoc"`
		UnaryPrecedence  int    `toml:"unary_precedence"`
	} `toml:"binary_left_unary_operators"`

	NonTerminals []struct {
		Name string `toml:"name"`
	} `toml:"nonterminals"`

	Bodies []struct {
		NonTerminal string   `toml:"nonterminal"`
		Symbols     []string `toml:"symbols"`
		Handler     int32    `toml:"handler"`
	} `toml:"bodies"`
}

func assoc(s string) grammar.Associativity {
	switch s {
	case "right":
		return grammar.AssocRight
	case "left":
		return grammar.AssocLeft
	default:
		return grammar.AssocNone
	}
}

// build turns a parsed projectConfig into compiled langforge.Artifacts.
func build(cfg *projectConfig) (*langforge.Artifacts, error) {
	g := langforge.New()

	for _, t := range cfg.Terminals {
		if _, err := g.AddTerminal(t.Name, t.Regex); err != nil {
			return nil, fmt.Errorf("terminal %q: %w", t.Name, err)
		}
	}
	for _, k := range cfg.Keywords {
		if _, err := g.AddKeyword(k.Name, k.Literal); err != nil {
			return nil, fmt.Errorf("keyword %q: %w", k.Name, err)
		}
	}
	for _, op := range cfg.BinaryOperators {
		if _, err := g.AddBinaryOperator(op.Name, op.Spelling, op.Precedence, assoc(op.Assoc)); err != nil {
			return nil, fmt.Errorf("binary operator %q: %w", op.Name, err)
		}
	}
	for _, op := range cfg.LeftUnaryOperators {
		if _, err := g.AddLeftUnaryOperator(op.Name, op.Spelling, op.Precedence); err != nil {
			return nil, fmt.Errorf("left-unary operator %q: %w", op.Name, err)
		}
	}
	for _, op := range cfg.BinaryLeftUnaryOperators {
		if _, err := g.AddBinaryLeftUnaryOperator(op.Name, op.Spelling, op.BinaryPrecedence, assoc(op.BinaryAssoc), op.UnaryPrecedence); err != nil {
			return nil, fmt.Errorf("binary/left-unary operator %q: %w", op.Name, err)
		}
	}

	declared := map[string]grammar.ProductionNodeId{}
	for _, nt := range cfg.NonTerminals {
		id, err := g.AddNonTerminal(nt.Name)
		if err != nil {
			return nil, fmt.Errorf("non-terminal %q: %w", nt.Name, err)
		}
		declared[nt.Name] = id
	}
	for _, b := range cfg.Bodies {
		owner, ok := declared[b.NonTerminal]
		if !ok {
			return nil, fmt.Errorf("body for undeclared non-terminal %q", b.NonTerminal)
		}
		if _, err := g.AddBody(owner, b.Symbols, grammar.HandlerId(b.Handler)); err != nil {
			return nil, fmt.Errorf("body of %q: %w", b.NonTerminal, err)
		}
	}

	g.SetRoot(cfg.Root)
	return g.Finalize()
}

func run() error {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return nil
	}

	var cfg projectConfig
	if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
		returnCode = ExitInitError
		return fmt.Errorf("reading %s: %w", *configFile, err)
	}

	artifacts, err := build(&cfg)
	if err != nil {
		returnCode = ExitBuildError
		return err
	}

	dfaPath := filepath.Join(*outDir, "dfa_config.bin")
	if err := os.WriteFile(dfaPath, wire.EncodeDfaConfig(&artifacts.Dfa), 0o644); err != nil {
		returnCode = ExitInitError
		return fmt.Errorf("writing %s: %w", dfaPath, err)
	}

	syntaxPath := filepath.Join(*outDir, "syntax_config.bin")
	if err := os.WriteFile(syntaxPath, wire.EncodeSyntaxConfig(&artifacts.Syntax), 0o644); err != nil {
		returnCode = ExitInitError
		return fmt.Errorf("writing %s: %w", syntaxPath, err)
	}

	fmt.Printf("wrote %s and %s (%d lexer rows, %d parser rows, %d handlers)\n",
		dfaPath, syntaxPath, artifacts.Dfa.RowCount, len(artifacts.Syntax.Rows), artifacts.Handlers.Len())
	return nil
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
	}
}
