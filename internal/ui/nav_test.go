package ui

import (
	"testing"

	"github.com/google/uuid"
)

func TestNavURL(t *testing.T) {
	task := uuid.MustParse("7d3c2a10-0000-4000-8000-000000000001")
	peer := uuid.MustParse("7d3c2a10-0000-4000-8000-000000000002")

	testCases := []struct {
		name string
		nav  Nav
		want string
	}{
		{name: "home", nav: Nav{Screen: ScreenHome}, want: "/"},
		{name: "dashboard filter", nav: Nav{Screen: ScreenDashboard, Filter: "overdue"}, want: "/dashboard?filter=overdue"},
		{name: "all filter is omitted", nav: Nav{Screen: ScreenMyTasks, Filter: "all"}, want: "/tasks"},
		{name: "selected task", nav: Nav{Screen: ScreenMyTasks, Task: task}, want: "/tasks/" + task.String()},
		{name: "task ignored elsewhere", nav: Nav{Screen: ScreenCalendar, Task: task, Month: "2026-03"}, want: "/calendar?month=2026-03"},
		{name: "chat peer", nav: Nav{Screen: ScreenEmployees}.WithPeer(peer), want: "/employees?chat=" + peer.String()},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.nav.URL(); got != tc.want {
				t.Errorf("URL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScreensHavePathsAndTitles(t *testing.T) {
	for s := ScreenHome; s <= ScreenSettings; s++ {
		if s.Path() == "" || s.String() == "" {
			t.Errorf("screen %d has no path or title", s)
		}
	}
	if (Nav{Screen: ScreenDashboard, Filter: "today"}).With(ScreenSettings).URL() != "/settings" {
		t.Error("With() should drop parameters")
	}
}
