package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bggsnap/bggsnap/types"
)

// expiryWarningWindow marks artifacts close to the retention cutoff.
const expiryWarningWindow = 7 * 24 * time.Hour

// keyMap defines key bindings.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ArtifactsModel is a Bubble Tea model for browsing stored artifacts.
type ArtifactsModel struct {
	artifacts []types.ArtifactMeta
	cursor    int
	width     int
	height    int
	quitting  bool

	now func() time.Time
}

// NewArtifactsModel creates an artifact browser over the given artifacts,
// expected newest first.
func NewArtifactsModel(artifacts []types.ArtifactMeta) ArtifactsModel {
	return ArtifactsModel{artifacts: artifacts, now: time.Now}
}

// Init implements tea.Model.
func (m ArtifactsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ArtifactsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.artifacts)-1 {
				m.cursor++
			}
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m ArtifactsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Stored Artifacts"))
	b.WriteString("\n\n")

	if len(m.artifacts) == 0 {
		b.WriteString(ValueStyle.Render("(no artifacts)"))
	} else {
		b.WriteString(m.renderSummary())
		b.WriteString("\n\n")
		b.WriteString(m.renderList())
		b.WriteString("\n\n")
		b.WriteString(m.renderDetail())
	}

	help := HelpStyle.Render("↑/↓ select · q quit")
	return b.String() + "\n" + help
}

func (m ArtifactsModel) renderSummary() string {
	now := m.now()
	var expired int
	var totalBytes int64
	for _, a := range m.artifacts {
		if a.Expired(now) {
			expired++
		}
		totalBytes += a.TotalBytes
	}

	boxes := []string{
		m.renderStatBox("Total", fmt.Sprintf("%d", len(m.artifacts)), highlightColor),
		m.renderStatBox("Expired", fmt.Sprintf("%d", expired), errorColor),
		m.renderStatBox("Size", formatBytes(totalBytes), successColor),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m ArtifactsModel) renderList() string {
	var b strings.Builder
	now := m.now()

	for i, a := range m.artifacts {
		line := fmt.Sprintf("%s  %s  %s",
			a.CreatedAt.Format("2006-01-02 15:04"), formatBytes(a.TotalBytes), a.Name)

		style := m.expiryStyle(a, now)
		if i == m.cursor {
			line = "> " + line
			style = SelectedStyle
		} else {
			line = "  " + line
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m ArtifactsModel) renderDetail() string {
	a := m.artifacts[m.cursor]
	now := m.now()

	var b strings.Builder
	rows := []struct {
		label string
		value string
		style lipgloss.Style
	}{
		{"Name:", a.Name, ValueStyle},
		{"Run:", a.RunID, ValueStyle},
		{"Created:", a.CreatedAt.Format("2006-01-02 15:04:05 MST"), ValueStyle},
		{"Expires:", a.ExpiresAt.Format("2006-01-02 15:04:05 MST"), m.expiryStyle(a, now)},
		{"Size:", formatBytes(a.TotalBytes), ValueStyle},
		{"URL:", a.URL, ValueStyle},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render(row.label), row.style.Render(row.value)))
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m ArtifactsModel) expiryStyle(a types.ArtifactMeta, now time.Time) lipgloss.Style {
	switch {
	case a.Expired(now):
		return ExpiredStyle
	case a.ExpiresAt.Sub(now) < expiryWarningWindow:
		return ExpiringStyle
	default:
		return LiveStyle
	}
}

func (m ArtifactsModel) renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)
	return boxStyle.Render(content)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RunArtifacts starts the artifact browser.
func RunArtifacts(artifacts []types.ArtifactMeta) error {
	p := tea.NewProgram(NewArtifactsModel(artifacts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
