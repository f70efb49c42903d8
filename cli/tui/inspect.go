package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tweag/nixtract/cli/reader"
)

// InspectModel is a Bubble Tea model for the inspect view.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_derivation":
		content = m.renderInspectDerivation()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectDerivation() string {
	data, ok := m.data.(*reader.InspectDerivationResponse)
	if !ok {
		return "Invalid data type for inspect_derivation"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Derivation Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Attribute Path", data.AttributePath},
		{"Derivation Path", data.DerivationPath},
		{"Output Path", data.OutputPath},
		{"Name", data.Name},
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := ValueStyle.Render(row[1])
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	if data.ParsedName != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Parsed:"),
			ValueStyle.Render(fmt.Sprintf("%s @ %s", data.ParsedName.Name, data.ParsedName.Version))))
	}

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Broken:"),
		StateStyle(brokenState(data.Broken)).Render(fmt.Sprintf("%v", data.Broken))))

	if len(data.Licenses) > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Licenses:"),
			ValueStyle.Render(strings.Join(data.Licenses, ", "))))
	}

	if data.Homepage != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Homepage:"),
			ValueStyle.Render(data.Homepage)))
	}

	if data.Src != nil {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Source"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("  Repo:"),
			ValueStyle.Render(data.Src.GitRepoURL)))
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("  Rev:"),
			ValueStyle.Render(data.Src.Rev)))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Build Inputs:"),
		ValueStyle.Render(fmt.Sprintf("%d", data.BuildInputCount))))

	for _, bi := range data.BuildInputs {
		outputPath := bi.OutputPath
		if outputPath == "" {
			outputPath = "(unbuildable)"
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			ValueStyle.Render(bi.AttributePath),
			LabelStyle.Render("["+bi.BuildInputType+"]"),
			ValueStyle.Render(outputPath)))
	}

	return BoxStyle.Render(b.String())
}

func brokenState(broken bool) string {
	if broken {
		return "failed"
	}
	return "succeeded"
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
