package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding the dashboard responds to.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding
	Enter     key.Binding

	NextSection key.Binding
	PrevSection key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	Follow key.Binding
	Copy   key.Binding

	Filter      key.Binding
	LevelFilter key.Binding
	Patterns    key.Binding
	Sidebar     key.Binding
	Refresh     key.Binding

	PanLeft  key.Binding
	PanRight key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding

	Preset15m key.Binding
	Preset1h  key.Binding
	Preset6h  key.Binding
	Preset24h key.Binding
	PresetAll key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "force quit")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel/clear")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply/details")),

		NextSection: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next section")),
		PrevSection: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous section")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home/g", "oldest")),
		End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end/G", "latest")),

		Follow: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow live")),
		Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy selection")),

		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		LevelFilter: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "level filter")),
		Patterns:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "patterns")),
		Sidebar:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "tasks sidebar")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

		PanLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "pan back")),
		PanRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "pan forward")),
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),

		Preset15m: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "last 15m")),
		Preset1h:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "last 1h")),
		Preset6h:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "last 6h")),
		Preset24h: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "last 24h")),
		PresetAll: key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "everything")),
	}
}
