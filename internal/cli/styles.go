package cli

import "github.com/charmbracelet/lipgloss"

var styles = struct {
	title   lipgloss.Style
	label   lipgloss.Style
	answer  lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	section lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
	label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
	answer:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
	section: lipgloss.NewStyle().Bold(true).Underline(true),
}
