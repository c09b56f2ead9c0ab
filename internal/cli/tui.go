package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stacklink/pkg/layout"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// =============================================================================
// LayoutModel - Interactive layout browser
// =============================================================================

// LayoutModel is the bubbletea model behind plan --tui.
type LayoutModel struct {
	Layout      *layout.Layout
	ProjectDir  string
	Cursor      int
	Offset      int
	Height      int
	HoistedOnly bool

	// visible holds indexes into Layout.Entries after filtering.
	visible []int
}

func newLayoutModel(l *layout.Layout, projectDir string) LayoutModel {
	m := LayoutModel{Layout: l, ProjectDir: projectDir, Height: 15}
	m.refilter()
	return m
}

func (m *LayoutModel) refilter() {
	m.visible = make([]int, 0, len(m.Layout.Entries))
	for i, e := range m.Layout.Entries {
		if !m.HoistedOnly || e.Hoisted {
			m.visible = append(m.visible, i)
		}
	}
	m.Cursor, m.Offset = 0, 0
}

// Selected returns the entry under the cursor.
func (m LayoutModel) Selected() (layout.Entry, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.visible) {
		return layout.Entry{}, false
	}
	return m.Layout.Entries[m.visible[m.Cursor]], true
}

func (m LayoutModel) Init() tea.Cmd {
	return nil
}

func (m LayoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.visible)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "p":
			// jump to the entry whose module directory holds this one
			if e, ok := m.Selected(); ok && !e.TopLevel() {
				for i, idx := range m.visible {
					if idx == e.Parent {
						m.Cursor = i
						if m.Cursor < m.Offset {
							m.Offset = m.Cursor
						}
						break
					}
				}
			}
		case "h":
			m.HoistedOnly = !m.HoistedOnly
			m.refilter()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LayoutModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layout of " + m.Layout.Root))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  p parent  h hoisted only  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.visible))
	for i := m.Offset; i < end; i++ {
		e := m.Layout.Entries[m.visible[i]]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-50s %s", cursor, relPath(m.ProjectDir, e.Dest), listDimStyle.Render(e.Version))

		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case e.Hoisted:
			b.WriteString(StyleHoisted.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if e, ok := m.Selected(); ok {
		b.WriteString("\n")
		b.WriteString(detailBoxStyle.Render(m.detail(e)))
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.visible)), len(m.visible))))
	return b.String()
}

func (m LayoutModel) detail(e layout.Entry) string {
	lines := []string{
		"id      " + e.ID,
		"source  " + e.Source,
		fmt.Sprintf("refs    %d", e.Refs),
	}
	if !e.TopLevel() && e.Parent < len(m.Layout.Entries) {
		lines = append(lines, "inside  "+m.Layout.Entries[e.Parent].Name)
	}
	if mark := marker(e); mark != "" {
		lines = append(lines, mark)
	}
	return strings.Join(lines, "\n")
}
