package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitea.jw6.us/james/teamtasks/internal/client"
	"gitea.jw6.us/james/teamtasks/internal/events"
	"gitea.jw6.us/james/teamtasks/internal/presence"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

const (
	rosterInterval = 5 * time.Second
	threadInterval = 3 * time.Second
)

func (a *app) teamCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show teammates, who is online and unread messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			show := func(ctx context.Context) error {
				view, err := a.client.Team(ctx)
				if err != nil {
					return wrap(err)
				}
				a.printTeam(view)
				return nil
			}
			if !watch {
				return show(cmd.Context())
			}
			client.Poll(cmd.Context(), rosterInterval, show)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh every 5 seconds until interrupted")
	return cmd
}

func (a *app) printTeam(view client.TeamView) {
	fmt.Fprintf(a.out, "%s %s\n", titleStyle.Render("Team"), mutedStyle.Render(fmt.Sprintf("%d online · %s", view.Online, a.now().Format("15:04:05"))))
	if len(view.Members) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("Nobody else has signed up yet."))
	}
	for _, m := range view.Members {
		line := fmt.Sprintf("%s %-24s %s", onlineDot(m.IsOnline), truncate(m.DisplayName(), 24), mutedStyle.Render(m.Email))
		if !m.IsOnline {
			line += mutedStyle.Render("  last seen " + m.LastSeen.Local().Format("2006-01-02 15:04"))
		}
		if m.Unread > 0 {
			line += " " + badgeStyle.Render(fmt.Sprintf("%d", m.Unread))
		}
		fmt.Fprintln(a.out, line)
	}
	fmt.Fprintln(a.out)
}

func (a *app) chatCmd() *cobra.Command {
	var (
		follow bool
		send   string
		attach string
	)
	cmd := &cobra.Command{
		Use:   "chat <email>",
		Short: "Read (and mark read) the conversation with a teammate, or send a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()
			me, err := a.client.Me(ctx)
			if err != nil {
				return wrap(err)
			}
			peer, err := a.client.UserByEmail(ctx, args[0])
			if err != nil {
				return wrap(err)
			}
			if peer.ID == me.ID {
				return errors.New("you cannot chat with yourself")
			}

			if send != "" || attach != "" {
				var file *client.Upload
				if attach != "" {
					up, f, err := client.OpenUpload(attach)
					if err != nil {
						return err
					}
					defer f.Close()
					file = &up
				}
				if _, err := a.client.Send(ctx, peer.ID, send, file); err != nil {
					return wrap(err)
				}
			}

			t := &threadPrinter{app: a, me: me.ID, labels: map[uuid.UUID]string{me.ID: "you", peer.ID: peer.DisplayName()}}
			fetch := func(ctx context.Context) error {
				msgs, err := a.client.Thread(ctx, peer.ID)
				if err != nil {
					return wrap(err)
				}
				t.print(msgs)
				return nil
			}
			if !follow {
				return fetch(ctx)
			}
			a.client.Follow(ctx, threadInterval, fromPeer(peer.ID), fetch)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new messages (live, or every 3 seconds if the stream is unavailable)")
	cmd.Flags().StringVarP(&send, "send", "m", "", "message to send before showing the thread")
	cmd.Flags().StringVar(&attach, "attach", "", "file to send with the message")
	return cmd
}

// fromPeer matches chat events for messages the peer sent.
func fromPeer(peer uuid.UUID) func(events.Event) bool {
	return func(ev events.Event) bool {
		if ev.Kind != events.KindChatMessage {
			return false
		}
		var msg struct {
			SenderID uuid.UUID `json:"senderId"`
		}
		return json.Unmarshal(ev.Payload, &msg) == nil && msg.SenderID == peer
	}
}

// threadPrinter prints each message once across repeated fetches.
type threadPrinter struct {
	*app
	me     uuid.UUID
	labels map[uuid.UUID]string
	seen   map[uuid.UUID]bool
}

func (t *threadPrinter) print(msgs []store.ChatMessage) {
	if t.seen == nil {
		t.seen = map[uuid.UUID]bool{}
		if len(msgs) == 0 {
			fmt.Fprintln(t.out, mutedStyle.Render("No messages yet."))
		}
	}
	for _, m := range msgs {
		if t.seen[m.ID] {
			continue
		}
		t.seen[m.ID] = true
		who := t.labels[m.SenderID]
		style := titleStyle
		if m.SenderID == t.me {
			style = mutedStyle
		}
		line := fmt.Sprintf("%s %s %s", mutedStyle.Render(m.CreatedAt.Local().Format("15:04")), style.Render(who+":"), m.Message)
		if m.HasAttachment && m.AttachmentName != nil {
			line += " 📎 " + *m.AttachmentName
			if m.AttachmentURL != nil {
				line += " " + mutedStyle.Render(*m.AttachmentURL)
			}
		}
		fmt.Fprintln(t.out, line)
	}
}

// visibility is the part of presence.Heartbeat that job control drives.
type visibility interface {
	SetVisible(visible bool)
}

func (a *app) onlineCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "online",
		Short: "Stay online until interrupted (heartbeat every 30 seconds, away while suspended)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if off {
				if err := a.client.SetPresence(cmd.Context(), false); err != nil {
					return wrap(err)
				}
				fmt.Fprintln(a.out, "Marked offline.")
				return nil
			}
			fmt.Fprintln(a.out, successStyle.Render("●")+" online, press Ctrl-C to go offline")
			hb := presence.NewHeartbeat(a.client)
			go watchSuspend(cmd.Context(), hb)
			hb.Run(cmd.Context())
			fmt.Fprintln(a.out, mutedStyle.Render("○ offline"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "mark yourself offline and exit")
	return cmd
}
