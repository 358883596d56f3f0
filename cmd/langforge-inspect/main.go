/*
Langforge-inspect loads a pair of compiled langforge artifacts
(dfa_config.bin, syntax_config.bin) and opens an interactive REPL for
poking at them: listing table rows, walking a transition, or looking up a
handler by id. It is a diagnostic tool for grammar authors, not something
a production driver links against.

Usage:

	langforge-inspect [flags]

The flags are:

	-d, --dfa FILE
		Path to the compiled lexer table. Defaults to "dfa_config.bin".

	-s, --syntax FILE
		Path to the compiled parse table. Defaults to "syntax_config.bin".

Once started, type "help" at the prompt for the list of inspection
commands.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dekarrin/rosed"
	"github.com/spf13/pflag"

	"github.com/brelyon/langforge/internal/wire"
)

var (
	dfaPath    = pflag.StringP("dfa", "d", "dfa_config.bin", "Path to the compiled lexer table")
	syntaxPath = pflag.StringP("syntax", "s", "syntax_config.bin", "Path to the compiled parse table")
)

const helpText = `commands:
  dfa row <n>        show the transition row for lexer state <n>
  dfa walk <text>     feed <text> byte by byte from the lexer start state
  syntax row <n>      show the action/goto row for parser state <n>
  syntax handler <n>  show the argument slots of handler <n>
  help                show this text
  quit                exit
`

func loadArtifacts() (*wire.DfaConfig, *wire.SyntaxConfig, error) {
	dfaBytes, err := os.ReadFile(*dfaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", *dfaPath, err)
	}
	dfa, err := wire.DecodeDfaConfig(dfaBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", *dfaPath, err)
	}

	syntaxBytes, err := os.ReadFile(*syntaxPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", *syntaxPath, err)
	}
	syntax, err := wire.DecodeSyntaxConfig(syntaxBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", *syntaxPath, err)
	}

	return dfa, syntax, nil
}

func printDfaRow(dfa *wire.DfaConfig, n int) {
	if n < 0 || n >= len(dfa.Trans) {
		fmt.Printf("no such row %d\n", n)
		return
	}
	if dfa.TagNode[n] >= 0 {
		fmt.Printf("row %d: accepts terminal node %d (priority %d)\n", n, dfa.TagNode[n], dfa.TagPrio[n])
	} else {
		fmt.Printf("row %d: not accepting\n", n)
	}

	data := [][]string{{"byte", "-> row"}}
	for b, target := range dfa.Trans[n] {
		if target >= 0 {
			data = append(data, []string{fmt.Sprintf("%q", byte(b)), fmt.Sprintf("%d", target)})
		}
	}
	if len(data) == 1 {
		fmt.Println("(no outgoing transitions)")
		return
	}
	fmt.Println(rosed.
		Edit("").
		InsertTableOpts(0, data, 20, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String())
}

func walkDfa(dfa *wire.DfaConfig, text string) {
	state := dfa.Start
	for i := 0; i < len(text); i++ {
		next := dfa.Trans[state][text[i]]
		if next < 0 {
			fmt.Printf("stuck after %d byte(s): no transition on %q from row %d\n", i, text[i], state)
			return
		}
		state = next
	}
	if dfa.TagNode[state] >= 0 {
		fmt.Printf("ends in row %d: accepts terminal node %d\n", state, dfa.TagNode[state])
	} else {
		fmt.Printf("ends in row %d: not accepting\n", state)
	}
}

func printSyntaxRow(syntax *wire.SyntaxConfig, n int) {
	if n < 0 || n >= len(syntax.Rows) {
		fmt.Printf("no such row %d\n", n)
		return
	}
	row := syntax.Rows[n]

	data := [][]string{{"symbol", "action"}}
	for _, a := range row.Actions {
		var cell string
		switch a.Kind {
		case 1:
			cell = fmt.Sprintf("shift to row %d", a.Target)
		case 2:
			cell = fmt.Sprintf("reduce body %d", a.Body)
		case 3:
			cell = "accept"
		}
		data = append(data, []string{fmt.Sprintf("%d", a.Symbol), cell})
	}
	for _, g := range row.Gotos {
		data = append(data, []string{fmt.Sprintf("%d", g.Symbol), fmt.Sprintf("goto row %d", g.Target)})
	}
	if len(data) == 1 {
		fmt.Println("(empty row)")
		return
	}
	fmt.Println(rosed.
		Edit("").
		InsertTableOpts(0, data, 20, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String())
}

func printHandler(syntax *wire.SyntaxConfig, id int) {
	for _, h := range syntax.Handlers {
		if int(h.Id) != id {
			continue
		}
		fmt.Printf("handler %d: body %d, owner %d\n", h.Id, h.Body, h.Owner)

		data := [][]string{{"slot", "kind", "symbol", "position"}}
		for i, s := range h.Slots {
			data = append(data, []string{
				fmt.Sprintf("%d", i),
				fmt.Sprintf("%d", s.Kind),
				fmt.Sprintf("%d", s.Symbol),
				fmt.Sprintf("%d", s.Position),
			})
		}
		fmt.Println(rosed.
			Edit("").
			InsertTableOpts(0, data, 20, rosed.Options{
				TableHeaders:             true,
				NoTrailingLineSeparators: true,
			}).
			String())
		return
	}
	fmt.Printf("no such handler %d\n", id)
}

func dispatch(dfa *wire.DfaConfig, syntax *wire.SyntaxConfig, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "help":
		fmt.Print(helpText)
	case "quit", "exit":
		return true
	case "dfa":
		if len(fields) < 3 {
			fmt.Println("usage: dfa row <n> | dfa walk <text>")
			return false
		}
		switch fields[1] {
		case "row":
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				fmt.Println("not a number:", fields[2])
				return false
			}
			printDfaRow(dfa, n)
		case "walk":
			walkDfa(dfa, strings.Join(fields[2:], " "))
		default:
			fmt.Println("usage: dfa row <n> | dfa walk <text>")
		}
	case "syntax":
		if len(fields) < 3 {
			fmt.Println("usage: syntax row <n> | syntax handler <n>")
			return false
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			fmt.Println("not a number:", fields[2])
			return false
		}
		switch fields[1] {
		case "row":
			printSyntaxRow(syntax, n)
		case "handler":
			printHandler(syntax, n)
		default:
			fmt.Println("usage: syntax row <n> | syntax handler <n>")
		}
	default:
		fmt.Printf("unknown command %q; type \"help\" for a list\n", fields[0])
	}
	return false
}

func run() error {
	pflag.Parse()

	dfa, syntax, err := loadArtifacts()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: "langforge> "})
	if err != nil {
		return fmt.Errorf("create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Println(`langforge-inspect: type "help" for commands, "quit" to exit`)
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			return err
		}
		if dispatch(dfa, syntax, line) {
			return nil
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
}
