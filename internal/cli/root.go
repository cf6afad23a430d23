// Package cli implements the taskctl command tree.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gitea.jw6.us/james/teamtasks/internal/client"
)

var (
	version = "dev"
	commit  = "none"
)

// SetVersion sets the version information shown by `taskctl version`.
func SetVersion(v, c string) {
	version = v
	commit = c
}

type app struct {
	profilePath string
	server      string
	profile     *Profile
	client      *client.Client

	in  *bufio.Reader
	out io.Writer
	now func() time.Time
}

// NewRootCommand builds the command tree reading from in and writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out, now: time.Now}

	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Command-line client for TeamTasks",
		Long: `taskctl talks to a TeamTasks server: create and track tasks, see who is
online, chat with teammates and manage the shared calendar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.profilePath, "config", DefaultProfilePath(), "profile file")
	root.PersistentFlags().StringVar(&a.server, "server", "", "server URL (overrides the profile)")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.tasksCmd(),
		a.teamCmd(),
		a.chatCmd(),
		a.calendarCmd(),
		a.settingsCmd(),
		a.onlineCmd(),
		a.versionCmd(),
	)
	return root
}

// Execute runs taskctl against the process's stdin and stdout. Cancelling
// ctx stops --watch, --follow and online.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdin, os.Stdout).ExecuteContext(ctx)
}

func (a *app) load() error {
	p, err := LoadProfile(a.profilePath)
	if err != nil {
		return err
	}
	if a.server != "" {
		p.Server = a.server
	}
	a.profile = p
	a.client = client.New(p.Server, p.Token)
	return nil
}

// requireLogin fails early when no token is stored.
func (a *app) requireLogin() error {
	if a.profile.Token == "" {
		return errors.New("not signed in: run `taskctl login` first")
	}
	return nil
}

// wrap turns an expired or rejected token into a hint to sign in again.
func wrap(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w: run `taskctl login`", err)
	}
	return err
}

// prompt reads a line from the input, printing label first.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimSpace(line), nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taskctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "taskctl %s (%s)\n", version, commit)
			return nil
		},
	}
}
