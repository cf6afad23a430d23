// Package calendar lays out the shared month view and validates events.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

// DateLayout is the form of CalendarEvent.EventDate.
const DateLayout = "2006-01-02"

// MonthLayout is the form of the ?month= query parameter.
const MonthLayout = "2006-01"

// Cell is one square of the month grid. Day is zero for padding cells.
type Cell struct {
	Day  int    `json:"day"`
	Date string `json:"date,omitempty"`
}

func (c Cell) Blank() bool { return c.Day == 0 }

// Grid describes the month containing a reference date.
type Grid struct {
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Title       string   `json:"title"`
	FirstDay    int      `json:"firstDay"`
	DaysInMonth int      `json:"daysInMonth"`
	Weeks       [][]Cell `json:"weeks"`
}

// MonthGrid computes the grid for the month of ref. FirstDay is the weekday
// of the 1st with Sunday as 0; the first row starts with that many blank
// cells and the last row is padded to seven.
func MonthGrid(ref time.Time) Grid {
	y, m, _ := ref.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	lead := int(first.Weekday())

	cells := make([]Cell, 0, 42)
	for i := 0; i < lead; i++ {
		cells = append(cells, Cell{})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Day: d, Date: first.AddDate(0, 0, d-1).Format(DateLayout)})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Cell{})
	}

	weeks := make([][]Cell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}

	return Grid{
		Year:        y,
		Month:       int(m),
		Title:       first.Format("January 2006"),
		FirstDay:    lead,
		DaysInMonth: days,
		Weeks:       weeks,
	}
}

// Range returns the first and last date of the grid's month.
func (g Grid) Range() (from, to string) {
	first := time.Date(g.Year, time.Month(g.Month), 1, 0, 0, 0, 0, time.UTC)
	return first.Format(DateLayout), first.AddDate(0, 1, -1).Format(DateLayout)
}

// Prev and Next return the ?month= values of the neighbouring months.
func (g Grid) Prev() string {
	return time.Date(g.Year, time.Month(g.Month)-1, 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
}

func (g Grid) Next() string {
	return time.Date(g.Year, time.Month(g.Month)+1, 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
}

// ParseMonth reads "YYYY-MM"; an empty value means the month of now.
func ParseMonth(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(MonthLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: want YYYY-MM", value)
	}
	return t, nil
}

// EventsOn returns the events whose date string equals day exactly.
func EventsOn(events []store.CalendarEvent, day string) []store.CalendarEvent {
	var out []store.CalendarEvent
	for _, e := range events {
		if e.EventDate == day {
			out = append(out, e)
		}
	}
	return out
}

// ByDay groups events by date for templates.
func ByDay(events []store.CalendarEvent) map[string][]store.CalendarEvent {
	out := make(map[string][]store.CalendarEvent)
	for _, e := range events {
		out[e.EventDate] = append(out[e.EventDate], e)
	}
	return out
}
