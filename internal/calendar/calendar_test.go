package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/store/memstore"
)

func TestMonthGrid(t *testing.T) {
	testCases := []struct {
		name     string
		ref      time.Time
		firstDay int
		days     int
		weeks    int
		title    string
	}{
		// 1 Jan 2025 is a Wednesday.
		{name: "january 2025", ref: time.Date(2025, 1, 17, 12, 0, 0, 0, time.UTC), firstDay: 3, days: 31, weeks: 5, title: "January 2025"},
		// 1 Feb 2026 is a Sunday and February 2026 fills exactly four rows.
		{name: "february 2026", ref: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), firstDay: 0, days: 28, weeks: 4, title: "February 2026"},
		{name: "leap february", ref: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), firstDay: 4, days: 29, weeks: 5, title: "February 2024"},
		// 1 Aug 2026 is a Saturday, so the month spans six rows.
		{name: "six rows", ref: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), firstDay: 6, days: 31, weeks: 6, title: "August 2026"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := MonthGrid(tc.ref)
			if g.FirstDay != tc.firstDay || g.DaysInMonth != tc.days || len(g.Weeks) != tc.weeks || g.Title != tc.title {
				t.Fatalf("MonthGrid() = first %d days %d weeks %d title %q", g.FirstDay, g.DaysInMonth, len(g.Weeks), g.Title)
			}
			for i := 0; i < tc.firstDay; i++ {
				if !g.Weeks[0][i].Blank() {
					t.Errorf("cell %d of first week should be blank", i)
				}
			}
			if first := g.Weeks[0][tc.firstDay]; first.Day != 1 {
				t.Errorf("first day cell = %+v", first)
			}
			count := 0
			for _, w := range g.Weeks {
				if len(w) != 7 {
					t.Fatalf("week has %d cells", len(w))
				}
				for _, c := range w {
					if !c.Blank() {
						count++
					}
				}
			}
			if count != tc.days {
				t.Errorf("grid holds %d days, want %d", count, tc.days)
			}
		})
	}
}

func TestGridRangeAndNeighbours(t *testing.T) {
	g := MonthGrid(time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC))
	from, to := g.Range()
	if from != "2025-12-01" || to != "2025-12-31" {
		t.Errorf("Range() = %s..%s", from, to)
	}
	if g.Prev() != "2025-11" || g.Next() != "2026-01" {
		t.Errorf("Prev/Next = %s/%s", g.Prev(), g.Next())
	}
	if g.Weeks[0][g.FirstDay].Date != "2025-12-01" {
		t.Errorf("first cell date = %s", g.Weeks[0][g.FirstDay].Date)
	}
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	got, err := ParseMonth("", now)
	if err != nil || got.Month() != time.July || got.Day() != 1 {
		t.Errorf("ParseMonth(\"\") = %v, %v", got, err)
	}
	got, err = ParseMonth("2024-02", now)
	if err != nil || got.Year() != 2024 || got.Month() != time.February {
		t.Errorf("ParseMonth(2024-02) = %v, %v", got, err)
	}
	if _, err := ParseMonth("02/2024", now); err == nil {
		t.Error("expected error for bad month")
	}
}

func TestEventsOnExactMatch(t *testing.T) {
	events := []store.CalendarEvent{
		{Title: "standup", EventDate: "2025-01-05"},
		{Title: "vacation", EventDate: "2025-01-15"},
		{Title: "retro", EventDate: "2025-01-05"},
	}
	got := EventsOn(events, "2025-01-05")
	if len(got) != 2 || got[0].Title != "standup" || got[1].Title != "retro" {
		t.Errorf("EventsOn() = %+v", got)
	}
	if len(EventsOn(events, "2025-1-5")) != 0 {
		t.Error("EventsOn() must not normalise dates")
	}
	if len(ByDay(events)["2025-01-15"]) != 1 {
		t.Error("ByDay() grouping wrong")
	}
}

func TestValidate(t *testing.T) {
	owner := uuid.New()
	testCases := []struct {
		name     string
		in       NewEvent
		wantErr  bool
		wantLink bool
	}{
		{name: "meeting keeps link", in: NewEvent{Title: "Sync", EventType: store.EventMeeting, EventDate: "2025-01-05", MeetingLink: "https://meet.example.com/abc"}, wantLink: true},
		{name: "leave drops link", in: NewEvent{Title: "Off", EventType: store.EventLeave, EventDate: "2025-01-05", MeetingLink: "https://meet.example.com/abc"}},
		{name: "missing title", in: NewEvent{EventType: store.EventPersonal, EventDate: "2025-01-05"}, wantErr: true},
		{name: "bad type", in: NewEvent{Title: "x", EventType: "Party", EventDate: "2025-01-05"}, wantErr: true},
		{name: "bad date", in: NewEvent{Title: "x", EventType: store.EventPersonal, EventDate: "5 Jan"}, wantErr: true},
		{name: "bad link", in: NewEvent{Title: "x", EventType: store.EventMeeting, EventDate: "2025-01-05", MeetingLink: "javascript:alert(1)"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := tc.in.Validate(owner)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("Validate() error = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if (ev.MeetingLink != nil) != tc.wantLink {
				t.Errorf("meeting link = %v, want present=%t", ev.MeetingLink, tc.wantLink)
			}
			if ev.UserID != owner {
				t.Error("owner not set")
			}
		})
	}
}

func TestServiceMonthAndOwnerDelete(t *testing.T) {
	_, s := memstore.New()
	svc := NewService(s.Calendar)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	inMonth, err := svc.Create(ctx, owner, NewEvent{Title: "Review", EventType: store.EventMeeting, EventDate: "2025-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, other, NewEvent{Title: "Trip", EventType: store.EventLeave, EventDate: "2025-04-01"}); err != nil {
		t.Fatal(err)
	}

	m, err := svc.Month(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Events) != 1 || m.Events[0].ID != inMonth.ID {
		t.Errorf("Month() events = %+v", m.Events)
	}

	if err := svc.Delete(ctx, other, inMonth.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("non-owner Delete() error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, owner, inMonth.ID); err != nil {
		t.Errorf("owner Delete() error = %v", err)
	}
}

func TestExportICal(t *testing.T) {
	owner := uuid.New()
	notes := "Bring slides; agenda, etc.\nSecond line"
	link := "https://meet.example.com/room"
	events := []store.CalendarEvent{
		{ID: uuid.New(), UserID: owner, Title: "Planning", EventType: store.EventMeeting, EventDate: "2025-01-31", Notes: &notes, MeetingLink: &link},
		{ID: uuid.New(), UserID: owner, Title: "Broken", EventType: store.EventPersonal, EventDate: "not-a-date"},
	}
	out := ExportICal(events, map[uuid.UUID]string{owner: "Ada"}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"DTSTART;VALUE=DATE:20250131\r\n",
		"DTEND;VALUE=DATE:20250201\r\n",
		"SUMMARY:Planning\r\n",
		`DESCRIPTION:Bring slides\; agenda\, etc.\nSecond line`,
		"URL:https://meet.example.com/room\r\n",
		"X-TEAMTASKS-OWNER:Ada\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 1 {
		t.Error("event with an unparsable date should be skipped")
	}
}

func TestWriteLineFolds(t *testing.T) {
	var sb strings.Builder
	long := "SUMMARY:" + strings.Repeat("é", 100)
	writeLine(&sb, long)
	for _, line := range strings.Split(strings.TrimSuffix(sb.String(), "\r\n"), "\r\n") {
		if len(line) > icalLineLimit {
			t.Errorf("line of %d octets exceeds limit", len(line))
		}
	}
	unfolded := strings.ReplaceAll(strings.TrimSuffix(sb.String(), "\r\n"), "\r\n ", "")
	if unfolded != long {
		t.Error("unfolding did not restore the original line")
	}
}
