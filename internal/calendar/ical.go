package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

const icalLineLimit = 75

// ExportICal renders events as an iCalendar feed of all-day VEVENTs.
func ExportICal(events []store.CalendarEvent, owners map[uuid.UUID]string, now time.Time) string {
	var sb strings.Builder
	writeLine(&sb, "BEGIN:VCALENDAR")
	writeLine(&sb, "VERSION:2.0")
	writeLine(&sb, "PRODID:-//TeamTasks//Shared Calendar//EN")
	writeLine(&sb, "CALSCALE:GREGORIAN")
	writeLine(&sb, "X-WR-CALNAME:TeamTasks")

	stamp := now.UTC().Format("20060102T150405Z")
	for _, e := range events {
		start, err := time.Parse(DateLayout, e.EventDate)
		if err != nil {
			continue
		}
		writeLine(&sb, "BEGIN:VEVENT")
		writeLine(&sb, "UID:"+e.ID.String()+"@teamtasks")
		writeLine(&sb, "DTSTAMP:"+stamp)
		writeLine(&sb, "DTSTART;VALUE=DATE:"+start.Format("20060102"))
		writeLine(&sb, "DTEND;VALUE=DATE:"+start.AddDate(0, 0, 1).Format("20060102"))
		writeLine(&sb, "SUMMARY:"+EscapeICalValue(e.Title))
		writeLine(&sb, "CATEGORIES:"+strings.ToUpper(string(e.EventType)))
		if e.Notes != nil {
			writeLine(&sb, "DESCRIPTION:"+EscapeICalValue(*e.Notes))
		}
		if e.MeetingLink != nil {
			if link := sanitizeURI(*e.MeetingLink); link != "" {
				writeLine(&sb, "URL:"+link)
			}
		}
		if name, ok := owners[e.UserID]; ok && name != "" {
			writeLine(&sb, "X-TEAMTASKS-OWNER:"+EscapeICalValue(name))
		}
		if e.EventType == store.EventLeave {
			writeLine(&sb, "TRANSP:TRANSPARENT")
		}
		writeLine(&sb, "END:VEVENT")
	}
	writeLine(&sb, "END:VCALENDAR")
	return sb.String()
}

// EscapeICalValue escapes TEXT values per RFC 5545 3.3.11.
func EscapeICalValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func sanitizeURI(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, "\r\n\t") {
		return ""
	}
	if _, err := url.Parse(value); err != nil {
		return ""
	}
	return value
}

// writeLine folds content lines longer than 75 octets without splitting a
// UTF-8 sequence.
func writeLine(sb *strings.Builder, line string) {
	limit := icalLineLimit
	for len(line) > limit {
		cut := limit
		for cut > 0 && !startsRune(line[cut]) {
			cut--
		}
		fmt.Fprintf(sb, "%s\r\n ", line[:cut])
		line = line[cut:]
		// Continuation lines carry a leading space.
		limit = icalLineLimit - 1
	}
	sb.WriteString(line)
	sb.WriteString("\r\n")
}

func startsRune(b byte) bool {
	return b&0xC0 != 0x80
}
