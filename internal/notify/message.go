package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/nhle/eminus-watch/internal/model"
)

const (
	titleNewItem  = "🆕 Nueva Actividad en Eminus"
	titleReminder = "⏰ RECORDATORIO: Actividad por Vencer"
	footerText    = "Bot de Monitoreo Eminus UV"
)

// Field is a name/value pair shown under the message description.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is the channel-neutral rendering of an intent. Description and
// field values use **bold** markers; each channel converts them.
type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// Render lays out an intent the way every channel shows it.
func Render(in Intent) Message {
	msg := Message{
		Color:     in.Color,
		Footer:    footerText,
		Timestamp: in.CreatedAt,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	msg.Fields = []Field{
		{Name: "📝 Tarea", Value: boldSafe(in.Title)},
		{Name: "📅 Fecha de Entrega", Value: in.FormattedDeadline, Inline: true},
	}

	switch in.Category {
	case model.CategoryReminder:
		msg.Title = titleReminder
		msg.Description = fmt.Sprintf(
			"⚠️ La actividad **%s** del curso **%s** está por vencer en menos de %d minutos",
			boldSafe(in.Title), boldSafe(in.CourseName), in.WindowMinutes,
		)
		msg.Fields = append(msg.Fields, Field{
			Name: "⚠️ Estado", Value: "**¡URGENTE! Entrega pronto**", Inline: true,
		})
	default:
		msg.Title = titleNewItem
		msg.Description = fmt.Sprintf(
			"Se ha detectado una nueva tarea para el curso **%s**", boldSafe(in.CourseName),
		)
	}

	return msg
}

// boldSafe swaps ASCII asterisks in portal text for U+2217 so the value can
// neither open nor close a bold span.
func boldSafe(s string) string {
	return strings.ReplaceAll(s, "*", "∗")
}

// replaceBold rewrites **x** pairs using openTag and closeTag. An unpaired marker is
// left as is.
func replaceBold(s, openTag, closeTag string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "**")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "**")
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		b.WriteString(openTag)
		b.WriteString(s[start+2 : start+2+end])
		b.WriteString(closeTag)
		s = s[start+2+end+2:]
	}
	b.WriteString(s)
	return b.String()
}

// plainText drops the bold markers.
func plainText(s string) string {
	return replaceBold(s, "", "")
}

// htmlText escapes s and turns bold markers into <b> tags.
func htmlText(s string) string {
	return replaceBold(html.EscapeString(s), "<b>", "</b>")
}
