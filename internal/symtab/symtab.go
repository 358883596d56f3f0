// Package symtab interns strings and hands out stable typed indices for
// them. Each caller picks its own named index type (a distinct int32
// newtype); mixing two index kinds is a compile error because they are
// different Go types, not aliases of a shared int.
package symtab

import "github.com/brelyon/langforge/internal/gerr"

// Id is implemented by every typed index this package is asked to hand out.
// Callers define their own newtype (e.g. `type SymbolId symtab.Id`) is not
// how this is used; instead each component declares:
//
//	type SymbolId int32
//
// and instantiates Table[SymbolId]{}. The constraint below just pins the
// underlying representation so Table can do arithmetic on it.
type Id interface {
	~int32
}

const invalid = -1

// Invalid returns the sentinel value of ID that denotes "no such entry",
// matching the wire format's -1 (all-ones) convention.
func Invalid[ID Id]() ID {
	return ID(invalid)
}

// Table interns strings and assigns each a stable, densely-packed ID of the
// caller's chosen type. There is no deletion: once assigned, an ID remains
// valid for the program's lifetime.
type Table[ID Id] struct {
	byString map[string]ID
	byID     []string
}

// New creates an empty interning table.
func New[ID Id]() *Table[ID] {
	return &Table[ID]{
		byString: make(map[string]ID),
	}
}

// Intern returns the ID for s, assigning a fresh one if s has not been seen
// before. The bool result reports whether a new entry was created.
func (t *Table[ID]) Intern(s string) (ID, bool) {
	if id, ok := t.byString[s]; ok {
		return id, false
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, s)
	t.byString[s] = id
	return id, true
}

// Lookup returns the string interned under id. Panics if id is out of range;
// callers are expected to only ever pass IDs this table produced.
func (t *Table[ID]) Lookup(id ID) string {
	gerr.Assert(int(id) >= 0 && int(id) < len(t.byID), "symtab: id %d out of range (have %d entries)", id, len(t.byID))
	return t.byID[id]
}

// TryLookup is the non-panicking form of Lookup.
func (t *Table[ID]) TryLookup(id ID) (string, bool) {
	if int(id) < 0 || int(id) >= len(t.byID) {
		return "", false
	}
	return t.byID[id], true
}

// Resolve returns the existing ID for s without creating one, reporting
// false if s has never been interned. Used by deferred-registration lookups
// that must not silently create placeholder symbols.
func (t *Table[ID]) Resolve(s string) (ID, bool) {
	id, ok := t.byString[s]
	return id, ok
}

// Len returns the number of distinct strings interned.
func (t *Table[ID]) Len() int {
	return len(t.byID)
}

// All returns every interned string in ID order. The returned slice must not
// be mutated.
func (t *Table[ID]) All() []string {
	return t.byID
}
