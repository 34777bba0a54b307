package cli

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles ductsh uses for its own terminal
// output, as opposed to whatever a run pipeline's own stdout/stderr
// contains (which ductsh never touches).
type styles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		ok:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}
