package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Dashboard actions
	Search        key.Binding
	Refresh       key.Binding
	Enroll        key.Binding
	Coupon        key.Binding
	ToggleArchive key.Binding

	// Forms
	EditProfile  key.Binding
	FinancialAid key.Binding
	NewChannel   key.Binding
	ComposeEmail key.Binding
	NextField    key.Binding
	PrevField    key.Binding
	Save         key.Binding

	// Search/input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back / discard"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search programs"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Enroll: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Enroll in program"),
		),
		Coupon: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Redeem coupon"),
		),
		ToggleArchive: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Toggle past courses"),
		),

		EditProfile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Edit profile"),
		),
		FinancialAid: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Request financial aid"),
		),
		NewChannel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Create channel"),
		),
		ComposeEmail: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Email program"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save form"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view, one group per
// help section.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Escape},
		{k.Search, k.Refresh, k.Enroll, k.Coupon, k.ToggleArchive},
		{k.EditProfile, k.FinancialAid, k.NewChannel, k.ComposeEmail, k.NextField, k.PrevField, k.Save},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
