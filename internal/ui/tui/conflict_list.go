// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adlift/adsync/internal/model"
)

// Choice is the direction picked for a single conflicted campaign.
type Choice string

const (
	// ChoiceKeepLocal keeps the local edit; the campaign goes back to
	// pending so the next sync pushes it.
	ChoiceKeepLocal Choice = "keep local"
	// ChoiceTakeRemote adopts the platform state.
	ChoiceTakeRemote Choice = "take remote"
	// ChoiceSkip leaves the conflict recorded for later.
	ChoiceSkip Choice = "skip"
)

// ConflictAction represents the action to perform after the interaction.
type ConflictAction int

const (
	// ConflictActionNone means no action was taken (user quit).
	ConflictActionNone ConflictAction = iota
	// ConflictActionResolve means the user chose directions and wants them applied.
	ConflictActionResolve
	// ConflictActionCancel means the user cancelled.
	ConflictActionCancel
)

// ConflictListResult contains the outcome of the interaction.
type ConflictListResult struct {
	Action ConflictAction
	// Choices maps campaign local id to the picked direction. Skipped
	// campaigns are absent.
	Choices map[string]Choice
}

// conflictKeyMap defines the key bindings for conflict resolution.
type conflictKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Local   key.Binding
	Remote  key.Binding
	Skip    key.Binding
	Confirm key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "down"),
		),
		Local: key.NewBinding(
			key.WithKeys("l", "1"),
			key.WithHelp("l/1", "keep local"),
		),
		Remote: key.NewBinding(
			key.WithKeys("r", "2"),
			key.WithHelp("r/2", "take remote"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x", "3"),
			key.WithHelp("x/3", "skip"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "apply choices"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc"),
			key.WithHelp("b/esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var conflictStyles = struct {
	Title   lipgloss.Style
	Help    lipgloss.Style
	Status  lipgloss.Style
	Confirm lipgloss.Style
	Info    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Confirm: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(0, 1),
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
}

var statusCaser = cases.Title(language.English)

// ConflictListModel is the BubbleTea model for reverse-sync conflict
// resolution. It lists campaigns whose local and platform status
// diverged and lets the operator pick a direction per campaign.
type ConflictListModel struct {
	campaigns []*model.Campaign
	choices   map[string]Choice
	table     table.Model
	keys      conflictKeyMap
	result    ConflictListResult

	confirmMode bool
	quitting    bool
}

// NewConflictListModel creates a model over conflicted campaigns.
// Campaigns without a recorded conflict are ignored.
func NewConflictListModel(campaigns []*model.Campaign) ConflictListModel {
	var conflicted []*model.Campaign
	for _, c := range campaigns {
		if c.SyncInfo.Conflict != nil {
			conflicted = append(conflicted, c)
		}
	}

	columns := []table.Column{
		{Title: "Status", Width: 6},
		{Title: "Campaign", Width: 28},
		{Title: "Field", Width: 12},
		{Title: "Local", Width: 12},
		{Title: "Platform", Width: 12},
		{Title: "Choice", Width: 12},
	}

	rows := make([]table.Row, len(conflicted))
	for i, c := range conflicted {
		rows[i] = buildConflictRow(c, "")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ConflictListModel{
		campaigns: conflicted,
		choices:   make(map[string]Choice),
		table:     t,
		keys:      defaultConflictKeyMap(),
	}
}

func buildConflictRow(c *model.Campaign, choice Choice) table.Row {
	status := "○"
	choiceStr := "-"
	if choice != "" {
		status = "✓"
		choiceStr = string(choice)
	}

	conflict := c.SyncInfo.Conflict
	return table.Row{
		status,
		c.Name,
		conflict.Field,
		statusCaser.String(string(conflict.LocalStatus)),
		statusCaser.String(string(conflict.PlatformStatus)),
		choiceStr,
	}
}

// Init implements tea.Model.
func (m ConflictListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-8, 5))

	case tea.KeyMsg:
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y":
				m.result = ConflictListResult{
					Action:  ConflictActionResolve,
					Choices: m.decidedChoices(),
				}
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Local):
			m.choose(ChoiceKeepLocal)
			return m, nil

		case key.Matches(msg, m.keys.Remote):
			m.choose(ChoiceTakeRemote)
			return m, nil

		case key.Matches(msg, m.keys.Skip):
			m.choose(ChoiceSkip)
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			if m.allDecided() {
				m.confirmMode = true
				return m, nil
			}

		case key.Matches(msg, m.keys.Back):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *ConflictListModel) choose(choice Choice) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.campaigns) {
		return
	}
	c := m.campaigns[idx]
	m.choices[c.LocalID] = choice

	rows := m.table.Rows()
	if idx < len(rows) {
		rows[idx] = buildConflictRow(c, choice)
		m.table.SetRows(rows)
	}
}

func (m ConflictListModel) allDecided() bool {
	for _, c := range m.campaigns {
		if _, ok := m.choices[c.LocalID]; !ok {
			return false
		}
	}
	return len(m.campaigns) > 0
}

// decidedChoices drops skips: they leave the conflict in place.
func (m ConflictListModel) decidedChoices() map[string]Choice {
	out := make(map[string]Choice)
	for id, choice := range m.choices {
		if choice != ChoiceSkip {
			out[id] = choice
		}
	}
	return out
}

// View implements tea.Model.
func (m ConflictListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(conflictStyles.Title.Render("Resolve Sync Conflicts"))
	b.WriteString("\n\n")
	b.WriteString(conflictStyles.Info.Render("Pick a direction for each campaign before applying"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.confirmMode {
		msg := fmt.Sprintf("Apply %d choice(s)? (y/n)", len(m.decidedChoices()))
		b.WriteString(conflictStyles.Confirm.Render(msg))
		return b.String()
	}

	decided := len(m.choices)
	total := len(m.campaigns)
	status := fmt.Sprintf("%d/%d decided", decided, total)
	if decided == total && total > 0 {
		status += " - press y to apply"
	}
	b.WriteString(conflictStyles.Status.Render(status))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m ConflictListModel) renderHelp() string {
	keys := []string{
		"up/down navigate",
		"l keep local",
		"r take remote",
		"x skip",
		"y apply",
		"b cancel",
		"q quit",
	}
	return conflictStyles.Help.Render(strings.Join(keys, " | "))
}

// Result returns the outcome of the user interaction.
func (m ConflictListModel) Result() ConflictListResult {
	return m.result
}

// RunConflictList runs the interactive conflict resolution and
// returns the picked directions.
func RunConflictList(campaigns []*model.Campaign) (ConflictListResult, error) {
	mdl := NewConflictListModel(campaigns)
	if len(mdl.campaigns) == 0 {
		return ConflictListResult{}, nil
	}

	finalModel, err := tea.NewProgram(mdl, tea.WithAltScreen()).Run()
	if err != nil {
		return ConflictListResult{}, err
	}
	if m, ok := finalModel.(ConflictListModel); ok {
		return m.Result(), nil
	}
	return ConflictListResult{}, nil
}
