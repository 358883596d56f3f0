// Package gerr distinguishes the two error classes the generator can
// raise: a SpecError, caused by a problem in the grammar/lexicon a caller
// fed in (fatal, reported, recoverable by fixing the input), and an
// internal bug, raised via Bug/Assert as a panic because it indicates this
// module's own invariants broke rather than anything the caller did wrong.
//
// The shape is carried over from tqerrors.interpreterError
// (internal/tqerrors/tqerrors.go): a single message rendered by Error()
// with its category prefix, and an optional wrapped cause.
package gerr

import (
	"errors"
	"fmt"
)

// Category labels which kind of specification problem a SpecError reports.
// Each corresponds to a row of the fatal-error table the generator's
// construction phases can raise.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryDuplicateSymbol
	CategoryUnresolvedSymbol
	CategoryMissingRoot
	CategoryMalformedRegex
	CategoryAmbiguousLexeme
	CategoryReduceReduceConflict
	CategoryHandlerReuse
	CategoryNoBodies
)

func (c Category) String() string {
	switch c {
	case CategoryDuplicateSymbol:
		return "duplicate-symbol"
	case CategoryUnresolvedSymbol:
		return "unresolved-symbol"
	case CategoryMissingRoot:
		return "missing-root"
	case CategoryMalformedRegex:
		return "malformed-regex"
	case CategoryAmbiguousLexeme:
		return "ambiguous-lexeme"
	case CategoryReduceReduceConflict:
		return "reduce-reduce-conflict"
	case CategoryHandlerReuse:
		return "handler-reuse"
	case CategoryNoBodies:
		return "no-bodies"
	default:
		return "unknown"
	}
}

// SpecError is a fatal, reported error caused by the grammar/lexicon a
// caller built, not by this module's own logic.
type specError struct {
	category Category
	msg      string
	wrap     error
}

func (e *specError) Error() string {
	return fmt.Sprintf("[%s] %s", e.category, e.msg)
}

func (e *specError) Unwrap() error { return e.wrap }

// CategoryOf returns the SpecError's category, unwrapping through any
// %w-wrapping to find it. Returns CategoryUnknown if err is not (or does
// not wrap) a SpecError.
func CategoryOf(err error) Category {
	var se *specError
	if errors.As(err, &se) {
		return se.category
	}
	return CategoryUnknown
}

// New returns a new SpecError in the given category.
func New(category Category, format string, a ...any) error {
	return &specError{category: category, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new SpecError in the given category that wraps cause.
func Wrap(cause error, category Category, format string, a ...any) error {
	return &specError{category: category, msg: fmt.Sprintf(format, a...), wrap: cause}
}

// IsSpec reports whether err is or wraps a SpecError (as opposed to an
// internal bug, or an error from outside this module entirely, e.g. an I/O
// failure).
func IsSpec(err error) bool {
	var se *specError
	return errors.As(err, &se)
}

// bugError marks an error as an internal invariant violation; Bug always
// panics with one rather than returning it, since there is no input fix
// that could recover from it.
type bugError struct {
	msg string
}

func (e *bugError) Error() string {
	return "internal invariant violated: " + e.msg
}

// Bug panics with a bugError. Call this, never return an error, whenever
// the generator's own internal bookkeeping is found to be inconsistent
// (an id out of range that construction should have prevented, a nil
// field construction should have populated) — that is a defect in this
// module, not a reportable problem with the caller's grammar.
func Bug(format string, a ...any) {
	panic(&bugError{msg: fmt.Sprintf(format, a...)})
}

// Assert panics via Bug if cond is false.
func Assert(cond bool, format string, a ...any) {
	if !cond {
		Bug(format, a...)
	}
}

// IsBug reports whether err originated from Bug/Assert's panic value
// (useful in a top-level recover that wants to report internal bugs
// differently from a propagated SpecError).
func IsBug(err error) bool {
	var be *bugError
	return errors.As(err, &be)
}
