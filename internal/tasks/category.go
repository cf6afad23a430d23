// Package tasks holds the task lifecycle: due-date categorization, the
// filter tiles shown on the Dashboard and My Tasks, and task creation with
// staged attachments.
package tasks

import (
	"fmt"
	"strings"
	"time"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

// Category buckets a task by its due date relative to today.
type Category string

const (
	Overdue Category = "overdue"
	Today   Category = "today"
	Next    Category = "next"
)

// Categories lists the tiles in display order.
var Categories = []Category{Overdue, Today, Next}

// Categorize compares due and now as calendar dates. now is read in its own
// location; due is taken by its calendar date as stored.
func Categorize(due, now time.Time) Category {
	d := civil(due)
	today := civil(now)
	switch {
	case d.Before(today):
		return Overdue
	case d.Equal(today):
		return Today
	default:
		return Next
	}
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Counts holds the numbers shown on the three tiles.
type Counts struct {
	Overdue int `json:"overdue"`
	Today   int `json:"today"`
	Next    int `json:"next"`
}

func (c Counts) Of(cat Category) int {
	switch cat {
	case Overdue:
		return c.Overdue
	case Today:
		return c.Today
	case Next:
		return c.Next
	}
	return 0
}

func Count(tasks []store.Task, now time.Time) Counts {
	var c Counts
	for _, t := range tasks {
		switch Categorize(t.DueDate, now) {
		case Overdue:
			c.Overdue++
		case Today:
			c.Today++
		case Next:
			c.Next++
		}
	}
	return c
}

// Filter is the selected tile. The zero value shows every task.
type Filter struct {
	cat Category
}

var FilterAll = Filter{}

func FilterOf(cat Category) Filter { return Filter{cat: cat} }

// ParseFilter accepts "", "all", "overdue", "today" and "next".
func ParseFilter(s string) (Filter, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case "", "all":
		return FilterAll, nil
	case Overdue:
		return FilterOf(Overdue), nil
	case Today:
		return FilterOf(Today), nil
	case Next:
		return FilterOf(Next), nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}

func (f Filter) All() bool { return f.cat == "" }

func (f Filter) Category() Category { return f.cat }

func (f Filter) String() string {
	if f.All() {
		return "all"
	}
	return string(f.cat)
}

// Toggle returns the filter after the user selects the given tile: selecting
// the active tile again clears the filter.
func (f Filter) Toggle(selected Category) Filter {
	if f.cat == selected {
		return FilterAll
	}
	return FilterOf(selected)
}

// Apply returns the tasks matching the filter, keeping their order.
func Apply(tasks []store.Task, f Filter, now time.Time) []store.Task {
	if f.All() {
		return tasks
	}
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		if Categorize(t.DueDate, now) == f.cat {
			out = append(out, t)
		}
	}
	return out
}
