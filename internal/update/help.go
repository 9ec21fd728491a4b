package update

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/streakly/internal/views"
)

type helpKeyMap struct {
	global []key.Binding
	local  []key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding {
	return append(append([]key.Binding{}, k.local...), k.global...)
}

func (k helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.local, k.global}
}

func binding(keys, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return "\n\n" + m.renderHelpView()
}

func (m Model) renderHelpView() string {
	km := m.keyMap()
	var plain []string
	for _, b := range km.local {
		h := b.Help()
		plain = append(plain, "- "+h.Key+": "+h.Desc)
	}
	hm := m.helpModel
	hm.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView:    hm.View(km),
	})
}

// keyMap lists the global bindings followed by those of the current view.
func (m Model) keyMap() helpKeyMap {
	km := helpKeyMap{global: []key.Binding{
		binding(m.Keys.Today, "today"),
		binding(m.Keys.Digest, "digest"),
		binding("/", "command palette"),
		binding("r", "re-arm reminders"),
		binding(m.Keys.Help, "toggle help"),
		binding(m.Keys.Quit, "quit"),
	}}
	switch m.CurrentView {
	case ViewToday:
		km.local = []key.Binding{
			binding("j/k", "move"),
			binding("space", "toggle done"),
			binding("y/n/p/u", "yes / no / partly / unset"),
		}
	case ViewDigest:
		km.local = []key.Binding{binding("j/k", "scroll")}
	}
	return km
}
