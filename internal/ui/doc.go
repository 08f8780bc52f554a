// Package ui holds the terminal pieces shared by remote_sys_info and the
// sys_info agent: colors and symbols, the spinner shown during SSH steps,
// the plain tables used by list, and the Bubble Tea pickers that choose a
// deployed host or a Host from ~/.ssh/config.
//
// Colors are ANSI indexes. DisableColors switches lipgloss to plain ASCII
// for --no-color, NO_COLOR and non-terminal output.
//
//	s := ui.NewSpinner("Connecting to nas")
//	s.Start()
//	// ... slow step ...
//	s.Success() // or s.Fail()
package ui
