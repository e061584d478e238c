package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attune-io/attune/types"
)

// ArtifactView is the payload rendered by the inspector. It carries
// exactly the data the plain inspect output prints.
type ArtifactView struct {
	Path     string
	Manifest *types.Manifest
	Records  []types.Record
	// Truncated is set when the record preview was capped by --limit.
	Truncated bool
}

// InspectModel is the Bubble Tea model for artifact inspection: a
// fixed manifest header above a scrollable record viewport.
type InspectModel struct {
	view     *ArtifactView
	records  viewport.Model
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(view *ArtifactView) InspectModel {
	return InspectModel{view: view}
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
		headerHeight := strings.Count(m.headerView(), "\n") + 2
		if !m.ready {
			m.records = viewport.New(msg.Width, max(msg.Height-headerHeight, 3))
			m.records.SetContent(m.recordsView())
			m.ready = true
		} else {
			m.records.Width = msg.Width
			m.records.Height = max(msg.Height-headerHeight, 3)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.records, cmd = m.records.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	help := HelpStyle.Render("↑/↓ scroll · q to quit")
	if !m.ready {
		return m.headerView() + "\n" + m.recordsView() + "\n" + help
	}
	return m.headerView() + "\n" + m.records.View() + "\n" + help
}

func (m InspectModel) headerView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Artifact"))
	b.WriteString("\n\n")

	man := m.view.Manifest
	rows := [][2]string{
		{"Path", m.view.Path},
		{"Kind", string(man.Kind)},
		{"Modality", string(man.Modality)},
		{"Producer", man.Producer},
		{"Run ID", man.RunID},
		{"Created", man.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Records", fmt.Sprintf("%d", man.RecordCount)},
		{"Size", fmt.Sprintf("%d bytes", man.SizeBytes)},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(row[0]+":"),
			ValueStyle.Render(row[1])))
	}
	return BoxStyle.Render(b.String())
}

func (m InspectModel) recordsView() string {
	if len(m.view.Records) == 0 {
		return RecordStyle.Render("(no records)")
	}

	var b strings.Builder
	for _, rec := range m.view.Records {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			payload = []byte("{}")
		}
		b.WriteString(fmt.Sprintf("%s  %s\n",
			IntervalStyle.Render(fmt.Sprintf("[%8.3f, %8.3f)", rec.Start, rec.End)),
			RecordStyle.Render(string(payload))))
	}
	if m.view.Truncated {
		b.WriteString(HelpStyle.Render("… more records not shown (raise --limit)"))
	}
	return b.String()
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

// RunInspectTUI runs the artifact inspector.
func RunInspectTUI(view *ArtifactView) error {
	p := tea.NewProgram(NewInspectModel(view), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
