package notify

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English, // fallback for unmatched locales
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Formatter renders deadlines for humans in a fixed time zone.
type Formatter struct {
	spanish bool
	loc     *time.Location
}

// NewFormatter returns a formatter for the given BCP 47 locale (e.g. "es-MX").
// Unknown or unsupported locales fall back to English.
func NewFormatter(locale string, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}

	f := &Formatter{loc: loc}
	tag, err := language.Parse(locale)
	if err != nil {
		return f
	}

	_, idx, conf := localeMatcher.Match(tag)
	f.spanish = conf != language.No && supportedLocales[idx] == language.Spanish
	return f
}

// Format renders t with a long month name and a 24-hour clock, e.g.
// "14 de febrero de 2025, 23:59" or "February 14, 2025, 23:59".
func (f *Formatter) Format(t time.Time) string {
	t = t.In(f.loc)
	if f.spanish {
		return fmt.Sprintf("%d de %s de %d, %02d:%02d",
			t.Day(), spanishMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%s %d, %d, %02d:%02d",
		t.Month(), t.Day(), t.Year(), t.Hour(), t.Minute())
}
