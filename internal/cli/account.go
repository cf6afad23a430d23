package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a token in the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt("Password: "); err != nil {
					return err
				}
			}
			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.remember(resp.Token, resp.User.Email, resp.User.DisplayName())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var email, name, password, confirm string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			for _, f := range []struct {
				dst   *string
				label string
			}{
				{&email, "Email: "},
				{&name, "Full name: "},
				{&password, "Password: "},
				{&confirm, "Confirm password: "},
			} {
				if *f.dst != "" {
					continue
				}
				if *f.dst, err = a.prompt(f.label); err != nil {
					return err
				}
			}
			resp, err := a.client.SignUp(cmd.Context(), email, name, password, confirm)
			if err != nil {
				return err
			}
			return a.remember(resp.Token, resp.User.Email, resp.User.DisplayName())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to prompting)")
	return cmd
}

func (a *app) remember(token, email, name string) error {
	a.profile.Token = token
	a.profile.Email = email
	if err := a.profile.Save(a.profilePath); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s signed in as %s\n", successStyle.Render("✓"), name)
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Mark yourself offline and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.profile.Token != "" {
				if err := a.client.SetPresence(context.WithoutCancel(cmd.Context()), false); err != nil {
					fmt.Fprintln(a.out, mutedStyle.Render("could not mark offline: "+err.Error()))
				}
			}
			a.profile.Token = ""
			if err := a.profile.Save(a.profilePath); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			me, err := a.client.Me(cmd.Context())
			if err != nil {
				return wrap(err)
			}
			fmt.Fprintf(a.out, "%s <%s>\n", titleStyle.Render(me.DisplayName()), me.Email)
			fmt.Fprintln(a.out, mutedStyle.Render("server "+a.profile.Server))
			return nil
		},
	}
}
