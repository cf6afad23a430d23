package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/client"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

func (a *app) calendarCmd() *cobra.Command {
	var month, export string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the shared calendar for a month",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.requireLogin()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if export != "" {
				f, err := os.Create(export)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := a.client.ExportICal(ctx, f); err != nil {
					return wrap(err)
				}
				fmt.Fprintf(a.out, "%s wrote %s\n", successStyle.Render("✓"), export)
				return nil
			}
			view, err := a.client.Month(ctx, month)
			if err != nil {
				return wrap(err)
			}
			names, err := a.names(ctx)
			if err != nil {
				return wrap(err)
			}
			a.printMonth(view, names)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to show, YYYY-MM (default current)")
	cmd.Flags().StringVar(&export, "export", "", "write every event as iCalendar to this file")
	cmd.AddCommand(a.calendarAddCmd(), a.calendarRemoveCmd())
	return cmd
}

func (a *app) printMonth(view client.MonthView, names map[uuid.UUID]string) {
	g := view.Grid
	today := a.now().Format(calendar.DateLayout)
	byDay := calendar.ByDay(view.Events)

	fmt.Fprintf(a.out, "%s  %s\n", titleStyle.Render(g.Title), mutedStyle.Render("‹ "+view.Prev+" · "+view.Next+" ›"))
	fmt.Fprintln(a.out, mutedStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa"))
	for _, week := range g.Weeks {
		var b strings.Builder
		for _, c := range week {
			if c.Blank() {
				b.WriteString("    ")
				continue
			}
			day := fmt.Sprintf("%3d", c.Day)
			switch {
			case c.Date == today:
				day = titleStyle.Render(day)
			case len(byDay[c.Date]) > 0:
				day = warningStyle.Render(day)
			}
			mark := " "
			if len(byDay[c.Date]) > 0 {
				mark = "•"
			}
			b.WriteString(day + mark)
		}
		fmt.Fprintln(a.out, b.String())
	}

	if len(view.Events) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("No events this month."))
		return
	}
	fmt.Fprintln(a.out, rule(40))
	for _, ev := range view.Events {
		line := fmt.Sprintf("%s  %-9s %s %s", ev.EventDate, ev.EventType, ev.Title, mutedStyle.Render("· "+names[ev.UserID]+" · "+ev.ID.String()[:8]))
		if ev.MeetingLink != nil && *ev.MeetingLink != "" {
			line += "\n            " + *ev.MeetingLink
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *app) calendarAddCmd() *cobra.Command {
	var (
		in        client.NewEvent
		eventType string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event to the shared calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.EventType = parseEventType(eventType)
			ev, err := a.client.CreateEvent(cmd.Context(), in)
			if err != nil {
				return wrap(err)
			}
			fmt.Fprintf(a.out, "%s %s on %s\n", successStyle.Render("✓"), ev.Title, ev.EventDate)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "event title")
	cmd.Flags().StringVar(&eventType, "type", string(store.EventMeeting), "Meeting, Leave or Personal")
	cmd.Flags().StringVar(&in.EventDate, "date", "", "event date YYYY-MM-DD")
	cmd.Flags().StringVar(&in.MeetingLink, "link", "", "meeting link")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	return cmd
}

// parseEventType matches case-insensitively and leaves unknown values for
// the server to reject.
func parseEventType(s string) store.EventType {
	for _, t := range []store.EventType{store.EventMeeting, store.EventLeave, store.EventPersonal} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t
		}
	}
	return store.EventType(s)
}

func (a *app) calendarRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete one of your events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			if err := a.client.DeleteEvent(cmd.Context(), id); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("event not found or not yours")
				}
				return wrap(err)
			}
			fmt.Fprintln(a.out, successStyle.Render("✓")+" deleted")
			return nil
		},
	}
}
