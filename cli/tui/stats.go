package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tweag/nixtract/cli/reader"
)

// StatsModel is a Bubble Tea model for the stats view.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_graph":
		content = m.renderStatsGraph()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsGraph() string {
	data, ok := m.data.(*reader.GraphStats)
	if !ok {
		return "Invalid data type for stats_graph"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Graph Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Derivations", data.TotalDerivations, lipgloss.Color("#3B82F6")),
		m.renderStatBox("Edges", data.TotalBuildInputEdges, highlightColor),
		m.renderStatBox("Output Paths", data.UniqueOutputPaths, successColor),
		m.renderStatBox("Unbuildable", data.UnbuildableEdges, warningColor),
		m.renderStatBox("Broken", data.BrokenDerivationsCount, errorColor),
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(data.BuildInputTypeCounts) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Build Input Types"))
		b.WriteString("\n")
		for _, k := range sortedKeys(data.BuildInputTypeCounts) {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(k+":"),
				ValueStyle.Render(fmt.Sprintf("%d", data.BuildInputTypeCounts[k]))))
		}
	}

	if len(data.LicenseCounts) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Licenses"))
		b.WriteString("\n")
		for _, k := range sortedKeys(data.LicenseCounts) {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(k+":"),
				ValueStyle.Render(fmt.Sprintf("%d", data.LicenseCounts[k]))))
		}
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
