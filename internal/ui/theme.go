package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette. Views read colors by role; badge colors for
// course run and financial aid statuses are derived from the roles.
type Theme struct {
	Name string

	Background    string
	Surface       string
	Selection     string
	SelectionText string
	Border        string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
	Violet  string
	Orange  string

	// StatusColors maps a lowercased status to its badge color.
	StatusColors map[string]string
}

// statusRoles assigns each dashboard status a palette role.
var statusRoles = map[string]func(Theme) string{
	"offered":            func(t Theme) string { return t.Info },
	"will-attend":        func(t Theme) string { return t.Accent },
	"currently-enrolled": func(t Theme) string { return t.Violet },
	"can-upgrade":        func(t Theme) string { return t.Warning },
	"passed":             func(t Theme) string { return t.Success },
	"not-passed":         func(t Theme) string { return t.Danger },
	"missed-deadline":    func(t Theme) string { return t.Orange },
	"not-offered":        func(t Theme) string { return t.Muted },

	// financial aid
	"pending-docs": func(t Theme) string { return t.Warning },
	"docs-sent":    func(t Theme) string { return t.Info },
	"approved":     func(t Theme) string { return t.Success },
	"skipped":      func(t Theme) string { return t.Faint },
}

func withStatusColors(t Theme) Theme {
	t.StatusColors = make(map[string]string, len(statusRoles))
	for status, role := range statusRoles {
		t.StatusColors[status] = role(t)
	}
	return t
}

// Styles holds the lipgloss styles the views render with.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[string]string
	badgeText    string
	muted        string
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Header: fg(t.Text).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:   fg(t.Warning).Bold(true),
		Selected: fg(t.SelectionText).
			Background(lipgloss.Color(t.Selection)),

		statusColors: t.StatusColors,
		badgeText:    t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns the badge style for status. Unknown statuses render
// in the muted color.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color, ok := s.statusColors[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.badgeText)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground paints every style on bgColor so segments joined into one
// bar do not show the terminal background between them.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.WarningText, &out.DangerText, &out.InfoText,
		&out.Header, &out.Logo, &out.Selected,
	} {
		*st = st.Background(bg)
	}
	return out
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var themes = map[string]Theme{
	"Nightfox": withStatusColors(nightfox),
	"Kanagawa": withStatusColors(kanagawa),
	"Slate":    withStatusColors(slate),
}

// GetTheme returns the named theme, or Nightfox when the name is unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["Nightfox"]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the theme names in cycle order.
func ThemeNames() []string {
	return themeOrder
}

// https://github.com/EdenEast/nightfox.nvim
var nightfox = Theme{
	Name:          "Nightfox",
	Background:    "#131a24",
	Surface:       "#192330",
	Selection:     "#2b3b51",
	SelectionText: "#cdcecf",
	Border:        "#719cd6",
	Text:          "#cdcecf",
	Muted:         "#738091",
	Faint:         "#71839b",
	Accent:        "#719cd6",
	Success:       "#81b29a",
	Warning:       "#dbc074",
	Danger:        "#c94f6d",
	Info:          "#63cdcf",
	Violet:        "#9d79d6",
	Orange:        "#f4a261",
}

// https://github.com/rebelot/kanagawa.nvim
var kanagawa = Theme{
	Name:          "Kanagawa",
	Background:    "#16161D",
	Surface:       "#1F1F28",
	Selection:     "#2D4F67",
	SelectionText: "#DCD7BA",
	Border:        "#7E9CD8",
	Text:          "#DCD7BA",
	Muted:         "#C8C093",
	Faint:         "#727169",
	Accent:        "#7E9CD8",
	Success:       "#98BB6C",
	Warning:       "#E6C384",
	Danger:        "#E46876",
	Info:          "#7FB4CA",
	Violet:        "#957FB8",
	Orange:        "#FFA066",
}

// Tailwind slate and sky scales.
var slate = Theme{
	Name:          "Slate",
	Background:    "#020617",
	Surface:       "#0f172a",
	Selection:     "#0284c7",
	SelectionText: "#f8fafc",
	Border:        "#38bdf8",
	Text:          "#f1f5f9",
	Muted:         "#94a3b8",
	Faint:         "#64748b",
	Accent:        "#38bdf8",
	Success:       "#22c55e",
	Warning:       "#f59e0b",
	Danger:        "#ef4444",
	Info:          "#06b6d4",
	Violet:        "#a78bfa",
	Orange:        "#f97316",
}
