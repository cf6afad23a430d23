package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitea.jw6.us/james/teamtasks/internal/client"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, create and update tasks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(a.tasksListCmd(), a.tasksAddCmd(), a.tasksShowCmd(), a.tasksStatusCmd(), a.tasksRemoveCmd(), a.tasksCommentCmd())
	return cmd
}

func (a *app) tasksListCmd() *cobra.Command {
	var scope, filter string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks assigned to you (or created by you with --scope created)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := tasks.ParseFilter(filter)
			if err != nil {
				return err
			}
			list, err := a.client.Tasks(cmd.Context(), scope, f.String())
			if err != nil {
				return wrap(err)
			}
			names, err := a.names(cmd.Context())
			if err != nil {
				return wrap(err)
			}
			a.printTaskList(list, f, names)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "assigned", "assigned or created")
	cmd.Flags().StringVar(&filter, "filter", "all", "all, overdue, today or next")
	return cmd
}

func (a *app) printTaskList(list client.TaskList, f tasks.Filter, names map[uuid.UUID]string) {
	fmt.Fprintln(a.out, renderTiles(list.Counts, f))
	if len(list.Tasks) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("No tasks."))
		return
	}
	now := a.now()
	fmt.Fprintf(a.out, "%-8s %-32s %-8s %-12s %-12s %s\n", "ID", "TITLE", "PRIORITY", "DUE", "STATUS", "WITH")
	fmt.Fprintln(a.out, rule(88))
	for _, t := range list.Tasks {
		with := names[t.CreatedBy]
		if list.Scope == "created" {
			with = "-"
			if t.AssignedTo != nil {
				with = names[*t.AssignedTo]
			}
		}
		cat := tasks.Categorize(t.DueDate, now)
		due := categoryStyles[cat].Render(fmt.Sprintf("%-12s", t.DueDate.Format("2006-01-02")))
		fmt.Fprintf(a.out, "%-8s %-32s %-8s %s %-12s %s\n",
			t.ID.String()[:8], truncate(t.Title, 32), t.Priority, due, statusText(t.Status), with)
	}
}

func (a *app) tasksAddCmd() *cobra.Command {
	var (
		in       client.NewTask
		assignee string
		priority string
		attach   []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task and assign it to a teammate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if assignee != "" {
				u, err := a.client.UserByEmail(ctx, assignee)
				if err != nil {
					return wrap(err)
				}
				in.AssignedTo = u.ID.String()
			}
			in.Priority = store.Priority(priority)

			var files []client.Upload
			for _, path := range attach {
				up, f, err := client.OpenUpload(path)
				if err != nil {
					return err
				}
				defer f.Close()
				files = append(files, up)
			}

			task, err := a.client.CreateTask(ctx, in, files)
			if err != nil {
				return wrap(err)
			}
			if task == nil {
				fmt.Fprintln(a.out, mutedStyle.Render("Nothing created: --title, --due and --assignee are required."))
				return nil
			}
			fmt.Fprintf(a.out, "%s created %s %s\n", successStyle.Render("✓"), task.ID.String()[:8], task.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "task description")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee email")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High (default Medium)")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "file to attach (repeatable)")
	return cmd
}

func (a *app) tasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its attachments and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			d, err := a.client.Task(ctx, id)
			if err != nil {
				return wrap(err)
			}
			names, err := a.names(ctx)
			if err != nil {
				return wrap(err)
			}
			a.printDetail(d, names)
			return nil
		},
	}
}

func (a *app) printDetail(d tasks.Detail, names map[uuid.UUID]string) {
	t := d.Task
	fmt.Fprintln(a.out, titleStyle.Render(t.Title))
	if t.Description != "" {
		fmt.Fprintln(a.out, t.Description)
	}
	assignee := "-"
	if t.AssignedTo != nil {
		assignee = names[*t.AssignedTo]
	}
	fmt.Fprintf(a.out, "%s %s · %s · due %s\n", statusText(t.Status), mutedStyle.Render(string(t.Priority)),
		mutedStyle.Render("by "+names[t.CreatedBy]+" for "+assignee), t.DueDate.Format("2006-01-02"))

	if len(d.Attachments) > 0 {
		fmt.Fprintln(a.out, rule(40))
		for _, att := range d.Attachments {
			fmt.Fprintf(a.out, "📎 %s  %s\n", att.FileName, mutedStyle.Render(att.FileURL))
		}
	}
	fmt.Fprintln(a.out, rule(40))
	if len(d.Comments) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("No comments."))
	}
	for _, c := range d.Comments {
		author := "Deleted user"
		if c.UserID != nil {
			author = names[*c.UserID]
		}
		fmt.Fprintf(a.out, "%s %s\n  %s\n", titleStyle.Render(author), mutedStyle.Render(c.CreatedAt.Local().Format("2006-01-02 15:04")), c.Comment)
	}
}

func (a *app) tasksStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <not-started|in-progress|completed>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			id, err := a.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err := a.client.SetStatus(cmd.Context(), id, status)
			if err != nil {
				return wrap(err)
			}
			fmt.Fprintf(a.out, "%s %s is now %s\n", successStyle.Render("✓"), t.Title, statusText(t.Status))
			return nil
		},
	}
}

// parseStatus accepts the stored labels and their dashed lowercase forms.
func parseStatus(s string) (store.Status, error) {
	norm := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s)))
	for _, st := range []store.Status{store.StatusNotStarted, store.StatusInProgress, store.StatusCompleted} {
		if strings.ToLower(string(st)) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (a *app) tasksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task you created",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteTask(cmd.Context(), id); err != nil {
				if client.IsNotFound(err) {
					return errors.New("task not found or not created by you")
				}
				return wrap(err)
			}
			fmt.Fprintln(a.out, successStyle.Render("✓")+" deleted")
			return nil
		},
	}
}

func (a *app) tasksCommentCmd() *cobra.Command {
	var attach string
	cmd := &cobra.Command{
		Use:   "comment <id> <text...>",
		Short: "Comment on a task, optionally attaching a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			if text := strings.Join(args[1:], " "); text != "" {
				if _, err := a.client.Comment(ctx, id, text); err != nil {
					return wrap(err)
				}
			}
			if attach != "" {
				up, f, err := client.OpenUpload(attach)
				if err != nil {
					return err
				}
				defer f.Close()
				if _, err := a.client.Attach(ctx, id, up); err != nil {
					return wrap(err)
				}
			}
			fmt.Fprintln(a.out, successStyle.Render("✓")+" added")
			return nil
		},
	}
	cmd.Flags().StringVar(&attach, "attach", "", "file to attach to the task")
	return cmd
}

// resolveTask accepts a full id or a unique prefix of one of the caller's
// created or assigned tasks.
func (a *app) resolveTask(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	var matches []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, scope := range []string{"created", "assigned"} {
		list, err := a.client.Tasks(ctx, scope, "")
		if err != nil {
			return uuid.Nil, wrap(err)
		}
		for _, t := range list.Tasks {
			if strings.HasPrefix(t.ID.String(), strings.ToLower(ref)) && !seen[t.ID] {
				seen[t.ID] = true
				matches = append(matches, t.ID)
			}
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("no task matches %q", ref)
	case 1:
		return matches[0], nil
	}
	return uuid.Nil, fmt.Errorf("%q matches %d tasks", ref, len(matches))
}

// names maps user ids to display names.
func (a *app) names(ctx context.Context) (map[uuid.UUID]string, error) {
	users, err := a.client.Users(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		out[u.ID] = u.DisplayName()
	}
	return out, nil
}
