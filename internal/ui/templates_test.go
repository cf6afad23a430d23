package ui

import "testing"

func TestTemplatesEmbedded(t *testing.T) {
	names := []string{
		"home.html",
		"login.html",
		"signup.html",
		"tasks.html",
		"task_view.html",
		"employees.html",
		"calendar.html",
		"settings.html",
	}
	for _, name := range names {
		if _, ok := templates[name]; !ok {
			t.Fatalf("expected parsed template %s", name)
		}
	}
	if _, ok := templates["base.html"]; ok {
		t.Error("base.html should only be used as a layout")
	}
}
