package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/engine"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)

	nodeSelectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	nodeHighlightedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	nodeValidatorStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	statusErrorStyle     = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// PickModel - Interactive module selection
// =============================================================================

// PickModel is the bubbletea model for choosing which registered modules
// take part in compiles. It starts from the stored picked state.
type PickModel struct {
	Modules   []cache.Module
	Cursor    int
	Confirmed bool
	Height    int
	Offset    int
}

// NewPickModel creates a picker over the given modules.
func NewPickModel(modules []cache.Module) PickModel {
	mods := make([]cache.Module, len(modules))
	copy(mods, modules)
	return PickModel{Modules: mods, Height: 15}
}

// Picked returns the paths that are currently checked.
func (m PickModel) Picked() []string {
	var out []string
	for _, mod := range m.Modules {
		if mod.Picked {
			out = append(out, mod.Path)
		}
	}
	return out
}

func (m PickModel) Init() tea.Cmd {
	return nil
}

func (m PickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Modules)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			if len(m.Modules) > 0 {
				m.Modules[m.Cursor].Picked = !m.Modules[m.Cursor].Picked
			}
		case "a":
			all := len(m.Picked()) < len(m.Modules)
			for i := range m.Modules {
				m.Modules[i].Picked = all
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m PickModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Modules"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ confirm  q cancel"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Modules))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		mod := m.Modules[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		check := "[ ]"
		if mod.Picked {
			check = "[" + iconSuccess + "]"
		}
		rows = append(rows, []string{cursor, check, mod.Label, mod.Path})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Module", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Modules) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 3 {
				base = base.Foreground(colorDim)
			} else if m.Modules[idx].Picked {
				base = base.Foreground(colorGreen)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d of %d picked", len(m.Picked()), len(m.Modules))))

	return b.String()
}

// =============================================================================
// BrowseModel - Interactive graph browser
// =============================================================================

// browseRow is one visible node of the browser's tree view.
type browseRow struct {
	Node      graph.Node
	Depth     int
	Container bool
}

func (r browseRow) has(flag string) bool { return r.Node.HasFlag(flag) }

// BrowseModel is the bubbletea model for folding, selecting and rotating a
// graph held by an engine. Every key press is one engine message, handled
// synchronously.
type BrowseModel struct {
	ctx    context.Context
	engine *engine.Engine

	Rows   []browseRow
	Cursor int
	Offset int
	Height int

	status string
	failed bool
}

// NewBrowseModel creates a browser over the engine's current snapshot.
func NewBrowseModel(ctx context.Context, e *engine.Engine) BrowseModel {
	m := BrowseModel{ctx: ctx, engine: e, Height: 20}
	m.refresh("")
	return m
}

// buildRows lays out the visible nodes of snap as an indented tree in
// snapshot order. Children of collapsed containers are skipped.
func buildRows(snap graph.Graph) []browseRow {
	children := make(map[string][]graph.Node)
	for _, n := range snap.Nodes {
		children[n.Parent] = append(children[n.Parent], n)
	}

	var rows []browseRow
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, n := range children[parent] {
			row := browseRow{Node: n, Depth: depth, Container: len(children[n.ID]) > 0}
			rows = append(rows, row)
			if row.Container && !row.has("collapsed") {
				walk(n.ID, depth+1)
			}
		}
	}
	walk("", 0)
	return rows
}

// refresh rebuilds the rows and keeps the cursor on the node with the given
// ID when it is still visible.
func (m *BrowseModel) refresh(keep string) {
	m.Rows = buildRows(m.engine.Snapshot())
	if keep != "" {
		for i, r := range m.Rows {
			if r.Node.ID == keep {
				m.Cursor = i
				break
			}
		}
	}
	m.Cursor = max(min(m.Cursor, len(m.Rows)-1), 0)
	m.scroll()
}

func (m *BrowseModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BrowseModel) current() (browseRow, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return browseRow{}, false
	}
	return m.Rows[m.Cursor], true
}

// send handles msg and records the outcome in the status line.
func (m *BrowseModel) send(msg engine.Message, describe func(*engine.Reply) string) {
	keep := ""
	if row, ok := m.current(); ok {
		keep = row.Node.ID
	}
	reply, err := m.engine.Handle(m.ctx, msg)
	if err != nil {
		m.status, m.failed = derrors.UserMessage(err), true
		return
	}
	m.status, m.failed = describe(reply), false
	m.refresh(keep)
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		row, ok := m.current()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				m.scroll()
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				m.scroll()
			}
		case "enter", " ":
			if !ok || !row.Container {
				break
			}
			if row.has("collapsed") {
				m.send(engine.Expand{NodeID: row.Node.ID}, func(*engine.Reply) string { return "expanded " + row.Node.ID })
			} else {
				m.send(engine.Collapse{NodeID: row.Node.ID}, func(*engine.Reply) string { return "collapsed " + row.Node.ID })
			}
		case "s":
			if !ok {
				break
			}
			m.send(engine.Select{NodeID: row.Node.ID}, func(r *engine.Reply) string {
				if r.Highlight == nil {
					return "selected " + row.Node.ID
				}
				return fmt.Sprintf("selected %s: %d nodes, %d edges highlighted", row.Node.ID, len(r.Highlight.Nodes), len(r.Highlight.Edges))
			})
		case "u", "esc":
			m.send(engine.Unselect{}, func(*engine.Reply) string { return "selection cleared" })
		case "r":
			m.send(engine.Rotate{}, func(r *engine.Reply) string { return "orientation " + r.Orientation.String() })
		case "e":
			m.send(engine.ExpandAll{}, func(*engine.Reply) string { return "expanded all" })
		case "c":
			m.send(engine.CollapseAll{}, func(*engine.Reply) string { return "collapsed to defaults" })
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
		m.scroll()
	}
	return m, nil
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("dagscope"))
	b.WriteString(listDimStyle.Render(" · " + m.engine.Orientation().String()))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ fold  s select  u unselect  r rotate  e expand all  c reset fold  q quit"))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("  (empty graph)"))
		b.WriteString("\n")
	}

	end := min(m.Offset+m.Height, len(m.Rows))
	for i := m.Offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))
	if len(m.Rows) == 0 {
		footer = "  [0/0]"
	}
	b.WriteString(listDimStyle.Render(footer))
	if m.status != "" {
		style := listDimStyle
		if m.failed {
			style = statusErrorStyle
		}
		b.WriteString("  " + style.Render(m.status))
	}
	return b.String()
}

func (m BrowseModel) renderRow(i int) string {
	row := m.Rows[i]

	cursor := "  "
	if i == m.Cursor {
		cursor = "▸ "
	}
	fold := "  "
	if row.Container {
		fold = "▾ "
		if row.has("collapsed") {
			fold = "▸ "
		}
	}

	label := row.Node.Label
	if label == "" {
		label = row.Node.ID
	}
	style := listNormalStyle
	switch {
	case row.has("selected"):
		style = nodeSelectedStyle
	case row.has("highlighted"):
		style = nodeHighlightedStyle
	case row.has("validator"):
		style = nodeValidatorStyle
	case i == m.Cursor:
		style = listSelectedStyle
	}

	line := cursor + strings.Repeat("  ", row.Depth) + fold + style.Render(label)
	if row.has("validated") {
		line += " " + StyleSuccess.Render(iconSuccess)
	}
	if row.Node.Kind != "standard" {
		line += " " + listDimStyle.Render(row.Node.Kind)
	}
	return line
}
