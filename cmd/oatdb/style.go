package main

import "github.com/charmbracelet/lipgloss"

// conflictStyles mirror the arx TUI's color-scheme-to-style construction
// (cmd/arx/tui/utils/styles.go), retargeted from a full TUI theme to the
// handful of accents a conflict/diff report needs.
var (
	styleConflictPath = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CC6600"))
	styleConflictKind = lipgloss.NewStyle().Foreground(lipgloss.Color("#CC0000"))
	styleResolved     = lipgloss.NewStyle().Foreground(lipgloss.Color("#006600"))
	styleMuted        = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)
