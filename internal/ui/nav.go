package ui

import (
	"net/url"

	"github.com/google/uuid"
)

// Screen identifies a page of the application.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenLogin
	ScreenSignUp
	ScreenDashboard
	ScreenMyTasks
	ScreenEmployees
	ScreenCalendar
	ScreenSettings
)

var screenPaths = map[Screen]string{
	ScreenHome:      "/",
	ScreenLogin:     "/login",
	ScreenSignUp:    "/signup",
	ScreenDashboard: "/dashboard",
	ScreenMyTasks:   "/tasks",
	ScreenEmployees: "/employees",
	ScreenCalendar:  "/calendar",
	ScreenSettings:  "/settings",
}

var screenTitles = map[Screen]string{
	ScreenHome:      "Home",
	ScreenLogin:     "Sign in",
	ScreenSignUp:    "Sign up",
	ScreenDashboard: "Dashboard",
	ScreenMyTasks:   "My Tasks",
	ScreenEmployees: "Employees",
	ScreenCalendar:  "Calendar",
	ScreenSettings:  "Settings",
}

func (s Screen) String() string { return screenTitles[s] }

// Path is the URL path the screen is served at.
func (s Screen) Path() string { return screenPaths[s] }

// MenuScreens are the entries of the signed-in navigation bar.
var MenuScreens = []Screen{ScreenDashboard, ScreenMyTasks, ScreenEmployees, ScreenCalendar, ScreenSettings}

// Nav is the current screen plus the optional parameters it was opened with.
type Nav struct {
	Screen Screen
	Task   uuid.UUID
	Peer   uuid.UUID
	Filter string
	Month  string
}

// URL renders the nav state as a link. A selected task on the task screens
// opens the task view.
func (n Nav) URL() string {
	path := n.Screen.Path()
	if n.Task != uuid.Nil && (n.Screen == ScreenDashboard || n.Screen == ScreenMyTasks) {
		path = "/tasks/" + n.Task.String()
	}

	q := url.Values{}
	if n.Peer != uuid.Nil {
		q.Set("chat", n.Peer.String())
	}
	if n.Filter != "" && n.Filter != "all" {
		q.Set("filter", n.Filter)
	}
	if n.Month != "" {
		q.Set("month", n.Month)
	}
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

// With returns a copy pointing at another screen with no parameters.
func (n Nav) With(s Screen) Nav { return Nav{Screen: s} }

func (n Nav) WithFilter(filter string) Nav {
	n.Filter = filter
	return n
}

func (n Nav) WithPeer(id uuid.UUID) Nav {
	n.Peer = id
	return n
}

func (n Nav) WithMonth(month string) Nav {
	n.Month = month
	return n
}
