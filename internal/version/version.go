// Package version contains the current version of langforge. It is split
// from the main program so both cmd/langforge and cmd/langforge-inspect
// can report it without depending on each other.
package version

// Current is the string representing the current version of langforge.
const Current = "0.1.0"
