package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

type toggle struct {
	flag  string
	label string
	field func(*store.Settings) *bool
}

var toggles = []toggle{
	{"email", "Email notifications", func(s *store.Settings) *bool { return &s.EmailNotifications }},
	{"push", "Push notifications", func(s *store.Settings) *bool { return &s.PushNotifications }},
	{"reminders", "Task reminders", func(s *store.Settings) *bool { return &s.TaskReminders }},
	{"chat", "Chat notifications", func(s *store.Settings) *bool { return &s.ChatNotifications }},
	{"sound", "Notification sound", func(s *store.Settings) *bool { return &s.NotificationSound }},
	{"message-sound", "Message sound", func(s *store.Settings) *bool { return &s.MessageSound }},
}

func (a *app) settingsCmd() *cobra.Command {
	var (
		name     string
		password string
	)
	flags := map[string]*bool{}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change notification settings and your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if name != "" {
				if err := a.client.UpdateProfile(ctx, name); err != nil {
					return wrap(err)
				}
			}
			if cmd.Flags().Changed("password") {
				confirm, err := a.prompt("Confirm password: ")
				if err != nil {
					return err
				}
				if err := a.client.ChangePassword(ctx, password, confirm); err != nil {
					return wrap(err)
				}
				fmt.Fprintln(a.out, successStyle.Render("✓")+" password changed")
			}

			s, err := a.client.Settings(ctx)
			if err != nil {
				return wrap(err)
			}
			changed := false
			for _, t := range toggles {
				if cmd.Flags().Changed(t.flag) {
					*t.field(&s) = *flags[t.flag]
					changed = true
				}
			}
			if changed {
				if s, err = a.client.UpdateSettings(ctx, s); err != nil {
					return wrap(err)
				}
			}

			fmt.Fprintln(a.out, titleStyle.Render("Settings"))
			for _, t := range toggles {
				state := mutedStyle.Render("off")
				if *t.field(&s) {
					state = successStyle.Render("on")
				}
				fmt.Fprintf(a.out, "  %-22s %s  %s\n", t.label, state, mutedStyle.Render("--"+t.flag))
			}
			if s.ProfilePhotoURL != nil {
				fmt.Fprintf(a.out, "  %-22s %s\n", "Profile photo", *s.ProfilePhotoURL)
			}
			return nil
		},
	}
	for _, t := range toggles {
		flags[t.flag] = cmd.Flags().Bool(t.flag, false, "turn "+t.label+" on or off")
	}
	cmd.Flags().StringVar(&name, "name", "", "update your full name")
	cmd.Flags().StringVar(&password, "password", "", "change your password (confirmation is prompted)")
	return cmd
}
