// Package status renders run summaries and persisted state for the terminal.
package status

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
	"github.com/nhle/eminus-watch/internal/sync"
	"github.com/nhle/eminus-watch/internal/theme"
)

// Report is what the status command shows.
type Report struct {
	Backend  string
	Seen     int
	Reminded int
	Channels []string
	Schedule string
	NextRun  time.Time
	History  []model.Notification
	Location *time.Location
}

var historyHeader = table.Row{
	"When",
	"Category",
	"Course",
	"Title",
	"Deadline",
	"Result",
}

var intentHeader = table.Row{
	"#",
	"Category",
	"Course",
	"Title",
	"Deadline",
	"Result",
}

// RenderReport renders the state overview and, when available, the recent
// notification history.
func RenderReport(r Report) string {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render("eminus-watch status"))
	b.WriteString("\n\n")

	channels := "none"
	if len(r.Channels) > 0 {
		channels = strings.Join(r.Channels, ", ")
	}

	lines := []string{
		fmt.Sprintf("State backend:   %s", r.Backend),
		fmt.Sprintf("Known items:     %d", r.Seen),
		fmt.Sprintf("Reminders sent:  %d", r.Reminded),
		fmt.Sprintf("Channels:        %s", channels),
	}
	if r.Schedule != "" {
		lines = append(lines, fmt.Sprintf("Schedule:        %s (next %s)",
			r.Schedule, r.NextRun.In(loc).Format("2006-01-02 15:04")))
	}
	b.WriteString(theme.BorderStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if len(r.History) == 0 {
		b.WriteString(theme.HelpStyle.Render("No notification history for this backend."))
		b.WriteString("\n")
		return b.String()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(historyHeader)
	for _, n := range r.History {
		t.AppendRow(table.Row{
			n.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			theme.CategoryStyle(n.Category).Render(string(n.Category)),
			n.CourseName,
			n.Title,
			n.Deadline.In(loc).Format("2006-01-02 15:04"),
			theme.OutcomeLabel(n.Delivered),
		})
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderSummary renders the result of one run, listing each intent and its
// delivery outcome.
func RenderSummary(s *sync.Summary) string {
	var b strings.Builder

	title := "Run " + s.RunID
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(theme.HeaderStyle.Render(title))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Courses %d (recent %d), assignments %d, rejected %d, skipped %d\n",
		s.CoursesTotal, s.CoursesRecent, s.Assignments, s.Rejected, s.Skipped)
	fmt.Fprintf(&b, "New %d, reminders %d, delivered %d\n", s.NewItems, s.Reminders, s.Delivered())

	if len(s.Intents) == 0 {
		b.WriteString(theme.HelpStyle.Render("No new activities or pending reminders."))
		b.WriteString("\n")
		return b.String()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(intentHeader)
	for i, in := range s.Intents {
		result := theme.WarnStyle.Render("pending")
		if i < len(s.Outcomes) {
			result = outcomeLabel(s.Outcomes[i])
		}
		t.AppendRow(table.Row{
			i + 1,
			theme.CategoryStyle(in.Category).Render(string(in.Category)),
			in.CourseName,
			in.Title,
			in.FormattedDeadline,
			result,
		})
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func outcomeLabel(o notify.Outcome) string {
	if o.Delivered() {
		return theme.OutcomeLabel(true)
	}
	if errors.Is(o.Err, notify.ErrSkipped) {
		return theme.WarnStyle.Render("skipped")
	}
	return theme.FailStyle.Render("failed: " + o.Err.Error())
}
