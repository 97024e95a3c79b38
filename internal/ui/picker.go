package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string
	SubLabel string // connector detail, dimmed
	Value    string // connector id
	Disabled bool
}

// ConnectorItems turns connectors into picker entries. Connectors that are
// not ready stay listed but cannot be chosen.
func ConnectorItems(cs []provider.Connector) []PickerItem {
	items := make([]PickerItem, 0, len(cs))
	for _, c := range cs {
		sub := c.Detail
		if !c.CanSign && c.Ready {
			sub += " (read-only)"
		}
		items = append(items, PickerItem{
			Label:    c.Name,
			SubLabel: strings.TrimSpace(sub),
			Value:    c.ID,
			Disabled: !c.Ready,
		})
	}
	return items
}

// pickerModel is the Bubble Tea model for the interactive list picker.
// The cursor only rests on enabled items.
type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items}
	m.cursor = m.nextEnabled(-1, 1)
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

// nextEnabled returns the first enabled index after from in direction dir,
// or -1.
func (m pickerModel) nextEnabled(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(m.items); i += dir {
		if !m.items[i].Disabled {
			return i
		}
	}
	return -1
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if i := m.nextEnabled(m.cursor, -1); i >= 0 {
				m.cursor = i
			}
		case "down", "j":
			if i := m.nextEnabled(m.cursor, 1); i >= 0 {
				m.cursor = i
			}
		case "enter", " ":
			if len(m.items) > 0 && !m.items[m.cursor].Disabled {
				item := m.items[m.cursor]
				m.selected = &item
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n\n")
	sb.WriteString(renderItems(m.items, m.cursor))
	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   [ q ] cancel") + "\n")
	return sb.String()
}

func renderItems(items []PickerItem, cursor int) string {
	var sb strings.Builder
	for i, item := range items {
		prefix := "    "
		if i == cursor {
			prefix = "  ▸ "
		}

		label := StyleValue.Render(item.Label)
		if item.Disabled {
			label = StyleDim.Render(item.Label)
		}
		line := prefix + label
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}

		if i == cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// PickItem runs the list picker and returns the chosen item's Value, or ""
// if the user cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	m := newPickerModel(title, items)
	if m.nextEnabled(-1, 1) < 0 {
		return "", fmt.Errorf("no connector is ready")
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}
