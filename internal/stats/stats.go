// Package stats turns timestamps and counters into short display text.
package stats

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
)

// RelativeTime describes how long ago epochMs was, measured from nowMs.
// Past one week it falls back to the en-US date of epochMs in UTC.
func RelativeTime(epochMs, nowMs int64) string {
	return relative(epochMs, nowMs, dateLayout(language.AmericanEnglish))
}

func relative(epochMs, nowMs int64, layout string) string {
	d := (nowMs - epochMs) / 1000
	switch {
	case d < 1:
		return "just now"
	case d < minute:
		return fmt.Sprintf("%ds", d)
	case d < hour:
		return fmt.Sprintf("%dm", d/minute)
	case d < day:
		return fmt.Sprintf("%dh", d/hour)
	case d < week:
		return fmt.Sprintf("%dd", d/day)
	default:
		return time.UnixMilli(epochMs).UTC().Format(layout)
	}
}

// Formatter renders dates and counters for one guild language.
type Formatter struct {
	tag     language.Tag
	layout  string
	printer *message.Printer
}

// NewFormatter parses lang and falls back to English when it is empty or
// unknown.
func NewFormatter(lang string) *Formatter {
	tag := language.AmericanEnglish
	if lang = strings.TrimSpace(lang); lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			tag = parsed
		}
	}
	return &Formatter{
		tag:     tag,
		layout:  dateLayout(tag),
		printer: message.NewPrinter(tag),
	}
}

func (f *Formatter) Tag() language.Tag { return f.tag }

func (f *Formatter) RelativeTime(epochMs, nowMs int64) string {
	return relative(epochMs, nowMs, f.layout)
}

// Date formats t in UTC using the language's short date layout.
func (f *Formatter) Date(t time.Time) string {
	return t.UTC().Format(f.layout)
}

// Count formats n with the language's digit grouping.
func (f *Formatter) Count(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// Duration renders an uptime such as "3d 4h 5m".
func (f *Formatter) Duration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	days := int64(d / (24 * time.Hour))
	hours := int64(d/time.Hour) % 24
	minutes := int64(d/time.Minute) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func dateLayout(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "fr", "es", "it", "pt":
		return "02/01/2006"
	case "de":
		return "02.01.2006"
	case "ja", "zh":
		return "2006/1/2"
	default:
		return "1/2/2006"
	}
}
