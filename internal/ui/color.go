// Package ui provides terminal output styling for adsync: colored sprint
// functions, sync-outcome symbols, and badge helpers for rendering the
// result of a sync run.
package ui

import (
	"github.com/fatih/color"
)

// Sprint functions for styled output.
var (
	// Success is used for synced entities and completed operations (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for failed operations (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for conflicts and rollbacks (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis (bold white).
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information (faint).
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for table headers (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Symbols for the outcome an operation or entity settled in.
const (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolWarning  = "⚠"
	SymbolSkipped  = "-"
	SymbolPending  = "○"
	SymbolConflict = "!"
	// SymbolRolledBack marks creates undone by a transactional rollback.
	SymbolRolledBack = "↩"
)

// badge renders a colored symbol with an optional trailing message.
func badge(paint func(a ...interface{}) string, symbol, msg string) string {
	if msg == "" {
		return paint(symbol)
	}
	return paint(symbol) + " " + msg
}

// StatusSuccess renders a synced or completed line.
func StatusSuccess(msg string) string {
	return badge(Success, SymbolSuccess, msg)
}

// StatusError renders a failed line.
func StatusError(msg string) string {
	return badge(Error, SymbolError, msg)
}

// StatusWarning renders a cautionary line.
func StatusWarning(msg string) string {
	return badge(Warning, SymbolWarning, msg)
}

// StatusSkipped renders a line for work that was never attempted, such
// as operations held back by an open circuit breaker.
func StatusSkipped(msg string) string {
	return badge(Dim, SymbolSkipped, msg)
}

// StatusConflict renders a line for entities needing conflict resolution.
func StatusConflict(msg string) string {
	return badge(Warning, SymbolConflict, msg)
}

// StatusRolledBack renders a line for creates compensated by a
// transactional rollback.
func StatusRolledBack(msg string) string {
	return badge(Warning, SymbolRolledBack, msg)
}

// DisableColors disables all color output, for piped output or users
// who prefer none.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
