package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scholar/internal/api"
)

// visiblePrograms returns the dashboard programs matching the search query.
func (m Model) visiblePrograms() []api.DashboardProgram {
	if m.dashboard == nil {
		return nil
	}
	return m.dashboard.Search(m.query)
}

func (m Model) selectedProgram() (api.DashboardProgram, bool) {
	programs := m.visiblePrograms()
	if m.selected < 0 || m.selected >= len(programs) {
		return api.DashboardProgram{}, false
	}
	return programs[m.selected], true
}

func (m Model) renderDashboard() string {
	styles := m.theme.Styles()
	dash := m.dashboard.Dashboard()

	if !dash.Loaded() {
		switch {
		case dash.Err != nil:
			return styles.DangerText.Render("Dashboard unavailable: " + describeError(dash.Err))
		case dash.Processing():
			return m.spinner.View() + styles.MutedText.Render(" Loading dashboard...")
		default:
			return styles.MutedText.Render("No dashboard yet. Press r to refresh.")
		}
	}

	programs := m.visiblePrograms()
	if len(programs) == 0 {
		if m.query != "" {
			return styles.MutedText.Render(fmt.Sprintf("No programs match %q", m.query))
		}
		return styles.MutedText.Render("You are not enrolled in any program.")
	}

	listWidth := max(28, m.width/3)
	list := m.renderProgramList(programs, listWidth)
	detail := ""
	if program, ok := m.selectedProgram(); ok {
		detail = m.renderProgramDetail(program, max(20, m.width-listWidth-4))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", detail)
}

func (m Model) renderProgramList(programs []api.DashboardProgram, width int) string {
	styles := m.theme.Styles()
	lines := make([]string, 0, len(programs))
	for i, p := range programs {
		price := "n/a"
		if v, ok := m.dashboard.Price(p.ID); ok {
			price = formatPrice(v)
		}
		title := truncate(p.Title, max(width-len(price)-3, 4))
		line := padRight(title, width-len(price)-1) + " " + price
		if i == m.selected {
			lines = append(lines, styles.Selected.Render(line))
		} else {
			lines = append(lines, styles.Text.Render(line))
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderProgramDetail(p api.DashboardProgram, width int) string {
	styles := m.theme.Styles()
	now := time.Now()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(p.Title))
	b.WriteString("\n")
	if p.GradeAverage != nil {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("Average grade %.0f%%", *p.GradeAverage*100)))
		b.WriteString("\n")
	}
	if aid := p.FinancialAidUserInfo; p.FinancialAidAvailability && aid != nil {
		b.WriteString(m.renderAidLine(*aid))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	hidden := 0
	for _, c := range p.Courses {
		if m.prefs.HideArchived && courseArchived(c, now) {
			hidden++
			continue
		}
		run, ok := currentRun(c, now)
		line := styles.Text.Render(truncate(c.Title, max(width-22, 8)))
		if ok {
			line += " " + styles.StatusStyle(run.Status).Render(statusLabel(run.Status))
			if grade := run.FinalGrade; grade != nil {
				line += styles.MutedText.Render(fmt.Sprintf(" %.0f%%", *grade*100))
			} else if grade := run.CurrentGrade; grade != nil {
				line += styles.FaintText.Render(fmt.Sprintf(" %.0f%%", *grade*100))
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if hidden > 0 {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("%d past course(s) hidden, A to show", hidden)))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (m Model) renderAidLine(aid api.FinancialAidInfo) string {
	styles := m.theme.Styles()
	if !aid.HasUserApplied {
		return styles.InfoText.Render(fmt.Sprintf("Financial aid available: %s to %s, press a to apply",
			formatPrice(aid.MinPossibleCost), formatPrice(aid.MaxPossibleCost)))
	}
	return styles.MutedText.Render("Financial aid ") +
		styles.StatusStyle(aid.ApplicationStatus).Render(statusLabel(aid.ApplicationStatus))
}

// currentRun picks the run to show for a course: the latest one that has
// started, else the earliest upcoming one.
func currentRun(c api.Course, now time.Time) (api.CourseRun, bool) {
	if len(c.Runs) == 0 {
		return api.CourseRun{}, false
	}
	var started, upcoming *api.CourseRun
	for i := range c.Runs {
		run := &c.Runs[i]
		start := api.ParseDate(run.StartDate)
		if !start.IsZero() && start.After(now) {
			if upcoming == nil || start.Before(api.ParseDate(upcoming.StartDate)) {
				upcoming = run
			}
			continue
		}
		if started == nil || start.After(api.ParseDate(started.StartDate)) {
			started = run
		}
	}
	if started != nil {
		return *started, true
	}
	return *upcoming, true
}

// courseArchived reports whether every run of c has ended.
func courseArchived(c api.Course, now time.Time) bool {
	if len(c.Runs) == 0 {
		return false
	}
	for _, run := range c.Runs {
		end := api.ParseDate(run.EndDate)
		if end.IsZero() || !end.Before(now) {
			return false
		}
	}
	return true
}
