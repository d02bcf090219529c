package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	labelStyle = lipgloss.NewStyle().
		Width(14).
		Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	aheadStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	behindStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	errorPrefix = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)
)
