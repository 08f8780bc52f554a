package ui

// Status symbols shared by reports and command output.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolWarning  = "⚠"
	SymbolPending  = "○" // not checked, or waiting on the user
	SymbolComplete = "●" // running (services, containers)
)
