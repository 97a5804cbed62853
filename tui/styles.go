package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/pierredavidbelanger/logscope/api"
)

const (
	colorBlue          = "33"
	colorBlueLight     = "117"
	colorGreen         = "42"
	colorWarn          = "220"
	colorError         = "203"
	colorNeutralText   = "252"
	colorNeutralSubtle = "244"
	colorBadgeTextDark = "16"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorBlueLight))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorNeutralSubtle))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorNeutralText))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorError))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("25"))
	enabledStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorGreen))
	labelStyle    = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color(colorNeutralSubtle))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(colorBlue)).Padding(0, 1)
)

var badgeStyles = map[string]lipgloss.Style{
	"debug":   badge(colorNeutralSubtle),
	"info":    badge(colorBlue),
	"warn":    badge(colorWarn),
	"error":   badge(colorError),
	"neutral": badge("240"),
}

func badge(bg string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color(colorBadgeTextDark)).Background(lipgloss.Color(bg))
}

// levelBadge renders the level as received, coloured by its class.
func levelBadge(level string) string {
	text := level
	if text == "" {
		text = "-"
	}
	return badgeStyles[api.ParseLevel(level).Class()].Render(text)
}
