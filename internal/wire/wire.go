// Package wire implements the two binary artifacts the generator emits
// (C8): dfa_config, the compiled lexer table, and syntax_config, the
// compiled LALR(1) parse table plus its handler registry. Both are
// version-stamped so a driver built against an older layout fails loudly
// instead of misreading bytes.
//
// The outer framing — a length-prefixed blob produced from a type's own
// MarshalBinary — is exactly rezi's job (see
// internal/ictiobus's use of rezi.EncBinary/rezi.DecBinary at
// server/dao/sqlite/sessions.go and sqlite.go: encode a BinaryMarshaler,
// get back self-delimiting bytes). The retrieved examples only exercise
// rezi at that whole-object granularity, not at the level of individual
// ints/strings inside a MarshalBinary body, so the field-level primitives
// below (encInt/decInt/encString/decString/encBool/decBool) are grounded
// directly on tunaq's own pre-rezi codec
// (internal/tunascript/binary.go's encBinaryInt/decBinaryInt/
// encBinaryString/decBinaryString/encBinaryBool/decBinaryBool) — the same
// 8-byte-varint-length-prefixed int, rune-counted UTF-8 string, and
// single-byte bool encoding, carried forward unchanged since nothing in
// the pack shows rezi's own primitive-level API.
package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/dekarrin/rezi"

	"github.com/brelyon/langforge/internal/automaton"
	"github.com/brelyon/langforge/internal/grammar"
	"github.com/brelyon/langforge/internal/handlers"
	"github.com/brelyon/langforge/internal/lalr"
)

// DfaConfigVersion is bumped whenever the dfa_config layout changes in a
// way an old driver could misread silently.
const DfaConfigVersion = 1

// SyntaxConfigVersion is bumped whenever the syntax_config layout changes.
const SyntaxConfigVersion = 1

func encInt(i int) []byte {
	enc := make([]byte, 0, 8)
	enc = binary.AppendVarint(enc, int64(i))
	for len(enc) < 8 {
		enc = append(enc, 0)
	}
	return enc[:8]
}

func decInt(data []byte) (int, int, error) {
	if len(data) < 8 {
		return 0, 0, fmt.Errorf("wire: unexpected end of data reading int")
	}
	val, n := binary.Varint(data[:8])
	if n <= 0 {
		return 0, 0, fmt.Errorf("wire: malformed varint")
	}
	return int(val), 8, nil
}

func encString(s string) []byte {
	var body []byte
	count := 0
	buf := make([]byte, utf8.UTFMax)
	for _, r := range s {
		n := utf8.EncodeRune(buf, r)
		body = append(body, buf[:n]...)
		count++
	}
	return append(encInt(count), body...)
}

func decString(data []byte) (string, int, error) {
	count, read, err := decInt(data)
	if err != nil {
		return "", 0, fmt.Errorf("wire: decoding string rune count: %w", err)
	}
	data = data[read:]
	total := read
	out := make([]rune, 0, count)
	for i := 0; i < count; i++ {
		r, n := utf8.DecodeRune(data)
		if r == utf8.RuneError && n <= 1 {
			return "", 0, fmt.Errorf("wire: invalid UTF-8 in string")
		}
		out = append(out, r)
		data = data[n:]
		total += n
	}
	return string(out), total, nil
}

func encBool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func decBool(data []byte) (bool, int, error) {
	if len(data) < 1 {
		return false, 0, fmt.Errorf("wire: unexpected end of data reading bool")
	}
	switch data[0] {
	case 0:
		return false, 1, nil
	case 1:
		return true, 1, nil
	default:
		return false, 0, fmt.Errorf("wire: malformed bool byte %d", data[0])
	}
}

// DfaConfig is the on-disk lexer table: one row per TransformArrayId, a
// dense 256-wide byte transition vector per row, and which terminal (if
// any) each row accepts as, at what priority.
type DfaConfig struct {
	Version  int
	Start    int32
	RowCount int32
	Trans    [][256]int32 // -1 = no transition
	TagNode  []int32      // -1 = row is not accepting
	TagPrio  []int32

	// EofNode/EofPrio are the §6.2 trailing eof_word_data: the word-data a
	// driver emits on end-of-input with an empty buffer, carried through
	// from automaton.MinimizedTable.EofTag rather than derived from any
	// row.
	EofNode int32
	EofPrio int32
}

// FromMinimizedTable converts an automaton.MinimizedTable into the
// wire-ready, non-generic DfaConfig shape.
func FromMinimizedTable(t automaton.MinimizedTable[grammar.WordData]) DfaConfig {
	cfg := DfaConfig{
		Version:  DfaConfigVersion,
		Start:    int32(t.Start),
		RowCount: int32(len(t.Rows)),
	}
	cfg.Trans = make([][256]int32, len(t.Rows))
	cfg.TagNode = make([]int32, len(t.Rows))
	cfg.TagPrio = make([]int32, len(t.Rows))
	for i, row := range t.Rows {
		for b := 0; b < 256; b++ {
			cfg.Trans[i][b] = int32(row[b])
		}
		if t.HasTag[i] {
			cfg.TagNode[i] = int32(t.Tags[i].Node)
			cfg.TagPrio[i] = int32(t.Tags[i].Prio)
		} else {
			cfg.TagNode[i] = -1
		}
	}
	cfg.EofNode = int32(t.EofTag.Node)
	cfg.EofPrio = int32(t.EofTag.Prio)
	return cfg
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *DfaConfig) MarshalBinary() ([]byte, error) {
	var out []byte
	out = append(out, encInt(c.Version)...)
	out = append(out, encInt(int(c.Start))...)
	out = append(out, encInt(int(c.RowCount))...)
	for _, row := range c.Trans {
		for _, v := range row {
			out = append(out, encInt(int(v))...)
		}
	}
	for _, v := range c.TagNode {
		out = append(out, encInt(int(v))...)
	}
	for _, v := range c.TagPrio {
		out = append(out, encInt(int(v))...)
	}
	out = append(out, encInt(int(c.EofNode))...)
	out = append(out, encInt(int(c.EofPrio))...)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *DfaConfig) UnmarshalBinary(data []byte) error {
	var n int
	var err error
	if c.Version, n, err = decInt(data); err != nil {
		return err
	}
	data = data[n:]
	if c.Version != DfaConfigVersion {
		return fmt.Errorf("wire: dfa_config version mismatch: got %d, want %d", c.Version, DfaConfigVersion)
	}
	var start, rowCount int
	if start, n, err = decInt(data); err != nil {
		return err
	}
	data = data[n:]
	c.Start = int32(start)
	if rowCount, n, err = decInt(data); err != nil {
		return err
	}
	data = data[n:]
	c.RowCount = int32(rowCount)

	c.Trans = make([][256]int32, rowCount)
	for i := 0; i < rowCount; i++ {
		for b := 0; b < 256; b++ {
			var v int
			if v, n, err = decInt(data); err != nil {
				return err
			}
			data = data[n:]
			c.Trans[i][b] = int32(v)
		}
	}
	c.TagNode = make([]int32, rowCount)
	for i := 0; i < rowCount; i++ {
		var v int
		if v, n, err = decInt(data); err != nil {
			return err
		}
		data = data[n:]
		c.TagNode[i] = int32(v)
	}
	c.TagPrio = make([]int32, rowCount)
	for i := 0; i < rowCount; i++ {
		var v int
		if v, n, err = decInt(data); err != nil {
			return err
		}
		data = data[n:]
		c.TagPrio[i] = int32(v)
	}

	var eofNode, eofPrio int
	if eofNode, n, err = decInt(data); err != nil {
		return err
	}
	data = data[n:]
	c.EofNode = int32(eofNode)
	if eofPrio, n, err = decInt(data); err != nil {
		return err
	}
	data = data[n:]
	c.EofPrio = int32(eofPrio)
	return nil
}

// EncodeDfaConfig serializes a compiled lexer table via rezi.
func EncodeDfaConfig(cfg *DfaConfig) []byte {
	return rezi.EncBinary(cfg)
}

// DecodeDfaConfig deserializes bytes previously produced by
// EncodeDfaConfig.
func DecodeDfaConfig(data []byte) (*DfaConfig, error) {
	cfg := &DfaConfig{}
	if _, err := rezi.DecBinary(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// actionCell / gotoCell are the wire forms of one sparse table entry.
type actionCell struct {
	Symbol int32
	Kind   int32
	Target int32
	Body   int32
}

type gotoCell struct {
	Symbol int32
	Target int32
}

// SyntaxConfig is the on-disk parse table: one row per
// SyntaxAnalysisTableEntryId, each a sparse list of action cells (keyed by
// terminal/operator id) and goto cells (keyed by non-terminal id), plus
// the serialized handler registry so a driver need not separately load
// one.
type SyntaxConfig struct {
	Version int
	Start   int32
	Rows    []syntaxRow
	Handlers []handlerWire
}

type syntaxRow struct {
	Actions []actionCell
	Gotos   []gotoCell
}

type handlerWire struct {
	Id    int32
	Owner int32
	Body  int32
	Slots []slotWire
}

type slotWire struct {
	Kind     int32
	Symbol   int32
	Position int32
}

// FromTable converts a built lalr.Table and handlers.Registry into the
// wire-ready SyntaxConfig shape.
func FromTable(t *lalr.Table, reg *handlers.Registry) SyntaxConfig {
	cfg := SyntaxConfig{Version: SyntaxConfigVersion, Start: int32(t.Start)}
	for _, row := range t.Rows {
		var wr syntaxRow
		for sym, act := range row.Action {
			wr.Actions = append(wr.Actions, actionCell{
				Symbol: int32(sym), Kind: int32(act.Kind), Target: int32(act.Target), Body: int32(act.Body),
			})
		}
		for sym, target := range row.Goto {
			wr.Gotos = append(wr.Gotos, gotoCell{Symbol: int32(sym), Target: int32(target)})
		}
		cfg.Rows = append(cfg.Rows, wr)
	}
	for _, rec := range reg.Records() {
		hw := handlerWire{Id: int32(rec.Id), Owner: int32(rec.Owner), Body: int32(rec.Body)}
		for _, s := range rec.Slots {
			hw.Slots = append(hw.Slots, slotWire{Kind: int32(s.Kind), Symbol: int32(s.Symbol), Position: int32(s.Position)})
		}
		cfg.Handlers = append(cfg.Handlers, hw)
	}
	return cfg
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *SyntaxConfig) MarshalBinary() ([]byte, error) {
	var out []byte
	out = append(out, encInt(c.Version)...)
	out = append(out, encInt(int(c.Start))...)
	out = append(out, encInt(len(c.Rows))...)
	for _, row := range c.Rows {
		out = append(out, encInt(len(row.Actions))...)
		for _, a := range row.Actions {
			out = append(out, encInt(int(a.Symbol))...)
			out = append(out, encInt(int(a.Kind))...)
			out = append(out, encInt(int(a.Target))...)
			out = append(out, encInt(int(a.Body))...)
		}
		out = append(out, encInt(len(row.Gotos))...)
		for _, g := range row.Gotos {
			out = append(out, encInt(int(g.Symbol))...)
			out = append(out, encInt(int(g.Target))...)
		}
	}
	out = append(out, encInt(len(c.Handlers))...)
	for _, h := range c.Handlers {
		out = append(out, encInt(int(h.Id))...)
		out = append(out, encInt(int(h.Owner))...)
		out = append(out, encInt(int(h.Body))...)
		out = append(out, encInt(len(h.Slots))...)
		for _, s := range h.Slots {
			out = append(out, encInt(int(s.Kind))...)
			out = append(out, encInt(int(s.Symbol))...)
			out = append(out, encInt(int(s.Position))...)
		}
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *SyntaxConfig) UnmarshalBinary(data []byte) error {
	read := func() (int, error) {
		v, n, err := decInt(data)
		if err != nil {
			return 0, err
		}
		data = data[n:]
		return v, nil
	}

	v, err := read()
	if err != nil {
		return err
	}
	c.Version = v
	if c.Version != SyntaxConfigVersion {
		return fmt.Errorf("wire: syntax_config version mismatch: got %d, want %d", c.Version, SyntaxConfigVersion)
	}
	start, err := read()
	if err != nil {
		return err
	}
	c.Start = int32(start)

	rowCount, err := read()
	if err != nil {
		return err
	}
	c.Rows = make([]syntaxRow, rowCount)
	for i := 0; i < rowCount; i++ {
		actCount, err := read()
		if err != nil {
			return err
		}
		row := syntaxRow{}
		for j := 0; j < actCount; j++ {
			sym, err := read()
			if err != nil {
				return err
			}
			kind, err := read()
			if err != nil {
				return err
			}
			target, err := read()
			if err != nil {
				return err
			}
			body, err := read()
			if err != nil {
				return err
			}
			row.Actions = append(row.Actions, actionCell{Symbol: int32(sym), Kind: int32(kind), Target: int32(target), Body: int32(body)})
		}
		gotoCount, err := read()
		if err != nil {
			return err
		}
		for j := 0; j < gotoCount; j++ {
			sym, err := read()
			if err != nil {
				return err
			}
			target, err := read()
			if err != nil {
				return err
			}
			row.Gotos = append(row.Gotos, gotoCell{Symbol: int32(sym), Target: int32(target)})
		}
		c.Rows[i] = row
	}

	handlerCount, err := read()
	if err != nil {
		return err
	}
	c.Handlers = make([]handlerWire, handlerCount)
	for i := 0; i < handlerCount; i++ {
		id, err := read()
		if err != nil {
			return err
		}
		owner, err := read()
		if err != nil {
			return err
		}
		body, err := read()
		if err != nil {
			return err
		}
		slotCount, err := read()
		if err != nil {
			return err
		}
		hw := handlerWire{Id: int32(id), Owner: int32(owner), Body: int32(body)}
		for j := 0; j < slotCount; j++ {
			kind, err := read()
			if err != nil {
				return err
			}
			symbol, err := read()
			if err != nil {
				return err
			}
			position, err := read()
			if err != nil {
				return err
			}
			hw.Slots = append(hw.Slots, slotWire{Kind: int32(kind), Symbol: int32(symbol), Position: int32(position)})
		}
		c.Handlers[i] = hw
	}
	return nil
}

// EncodeSyntaxConfig serializes a compiled parse table + handler registry
// via rezi.
func EncodeSyntaxConfig(cfg *SyntaxConfig) []byte {
	return rezi.EncBinary(cfg)
}

// DecodeSyntaxConfig deserializes bytes previously produced by
// EncodeSyntaxConfig.
func DecodeSyntaxConfig(data []byte) (*SyntaxConfig, error) {
	cfg := &SyntaxConfig{}
	if _, err := rezi.DecBinary(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
