package status

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/notify"
	"github.com/nhle/eminus-watch/internal/sync"
)

func TestRenderReport(t *testing.T) {
	deadline := time.Date(2025, 2, 14, 23, 59, 0, 0, time.UTC)

	out := RenderReport(Report{
		Backend:  model.BackendSQLite,
		Seen:     12,
		Reminded: 3,
		Channels: []string{"discord", "telegram"},
		Schedule: "*/5 * * * *",
		NextRun:  deadline,
		Location: time.UTC,
		History: []model.Notification{{
			Category:   model.CategoryReminder,
			CourseName: "Redes",
			Title:      "Práctica 3",
			Deadline:   deadline,
			Delivered:  true,
			CreatedAt:  deadline.Add(-9 * time.Minute),
		}},
	})

	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "Known items:     12")
	assert.Contains(t, out, "discord, telegram")
	assert.Contains(t, out, "Práctica 3")
	assert.Contains(t, out, "2025-02-14 23:50")
	assert.Contains(t, out, "sent")
}

func TestRenderReportWithoutHistory(t *testing.T) {
	out := RenderReport(Report{Backend: model.BackendFile})

	assert.Contains(t, out, "Channels:        none")
	assert.Contains(t, out, "No notification history")
}

func TestRenderSummary(t *testing.T) {
	newItem := notify.Intent{Category: model.CategoryNewItem, CourseName: "Redes", Title: "Tarea 1", FormattedDeadline: "14 de febrero de 2025, 23:59"}
	reminder := notify.Intent{Category: model.CategoryReminder, CourseName: "Redes", Title: "Tarea 2"}

	out := RenderSummary(&sync.Summary{
		RunID:    "run-1",
		NewItems: 1,
		Intents:  []notify.Intent{newItem, reminder},
		Outcomes: []notify.Outcome{
			{Intent: newItem},
			{Intent: reminder, Err: errors.New("webhook down")},
		},
	})

	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "delivered 1")
	assert.Contains(t, out, "Tarea 1")
	assert.Contains(t, out, "failed: webhook down")
}

func TestRenderSummaryDryRun(t *testing.T) {
	out := RenderSummary(&sync.Summary{
		RunID:   "run-2",
		DryRun:  true,
		Intents: []notify.Intent{{Category: model.CategoryNewItem, Title: "Tarea 1"}},
	})

	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "pending")
}

func TestRenderSummaryEmpty(t *testing.T) {
	out := RenderSummary(&sync.Summary{RunID: "run-3"})
	assert.Contains(t, out, "No new activities or pending reminders")
}
