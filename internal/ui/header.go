package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("scholar", styles.Logo)}

	if m.profile != nil {
		if p := m.profile.State(); p.Loaded() {
			if name := p.Data.DisplayName(); name != "" {
				parts = append(parts, bg.Render(name, styles.Text))
			}
		}
	}
	if m.username != "" {
		parts = append(parts, bg.Render("@"+m.username, styles.MutedText))
	}

	if m.isOffline() {
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	} else {
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if m.busy() {
		parts = append(parts, m.spinner.View()+bg.Render("Loading", styles.WarningText))
	}

	if !m.lastUpdated.IsZero() {
		ago := humanizeDuration(time.Since(m.lastUpdated))
		parts = append(parts, bg.Render("Updated", styles.FaintText)+bg.Space()+bg.Render(ago, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the command hints for the current screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.promptKind != promptNone {
		return styles.Header.Width(m.width).Render(m.prompt.View())
	}

	type cmd struct{ key, desc string }
	var commands []cmd
	if m.form != nil {
		commands = []cmd{
			{"tab", "Next"},
			{"shift+tab", "Prev"},
			{"ctrl+s", "Save"},
			{"esc", "Discard"},
		}
	} else {
		commands = []cmd{
			{"j/k", "Navigate"},
			{"/", "Search"},
			{"r", "Refresh"},
			{"n", "Enroll"},
			{"o", "Coupon"},
			{"p", "Profile"},
		}
		if m.keys.FinancialAid.Enabled() {
			commands = append(commands, cmd{"a", "Aid"})
		}
		if m.keys.ComposeEmail.Enabled() {
			commands = append(commands, cmd{"c", "Channel"}, cmd{"m", "Email"})
		}
		commands = append(commands, cmd{"?", "More"})
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if m.query != "" && m.form == nil {
		segments = append(segments, bg.Render("/"+truncate(m.query, 18), styles.AccentText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderBanner renders the session, offline and status lines, if any.
func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	var lines []string
	if m.sessionExpired {
		lines = append(lines, styles.DangerText.Render("Your session expired. Sign in again, then press r to reload."))
	}
	if m.isOffline() {
		lines = append(lines, styles.WarningText.Render("Cannot reach the server; showing the last known data."))
	}
	if m.status != "" {
		style := styles.SuccessText
		if m.statusIsError {
			style = styles.DangerText
		}
		lines = append(lines, style.Render(m.status))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) isOffline() bool {
	return m.offline != nil && m.offline()
}

// busy reports whether a foreground request is in flight. Background
// refreshes do not count.
func (m Model) busy() bool {
	if m.dashboard != nil {
		if m.dashboard.Dashboard().ShowSpinner() || m.dashboard.Prices().ShowSpinner() {
			return true
		}
	}
	if m.profile != nil && m.profile.State().ShowSpinner() {
		return true
	}
	return m.form != nil && m.form.view.saving
}

// statusLabel turns "will-attend" into "Will attend".
func statusLabel(status string) string {
	status = strings.TrimSpace(strings.ReplaceAll(status, "-", " "))
	status = strings.ReplaceAll(status, "_", " ")
	if status == "" {
		return "Unknown"
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

func formatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
