package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"health-companion/internal/analytics"
	"health-companion/internal/consultation"
)

const chatHelp = `Commands:
  /quick <id>   send a preset prompt (pain, recovery, robotic, peer)
  /history      print the conversation so far
  /analytics    print the dashboard summary
  /reset        start a new conversation
  /quit         leave`

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd.Context(), a.svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sess, err := a.svc.CreateSession(ctx, "")
			if err != nil {
				return err
			}
			resp, err := a.svc.SubmitUtterance(ctx, sess.ID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func newAnalyticsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print a synthetic dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sess, err := a.svc.CreateSession(ctx, "")
			if err != nil {
				return err
			}
			ds, err := a.svc.Analytics(ctx, sess.ID)
			if err != nil {
				return err
			}
			printAnalytics(cmd.OutOrStdout(), ds)
			return nil
		},
	}
}

// runChat reads one line per turn until EOF or /quit.
func runChat(ctx context.Context, svc consultation.Service, in io.Reader, out io.Writer) error {
	sess, err := svc.CreateSession(ctx, "")
	if err != nil {
		return err
	}
	id := sess.ID

	fmt.Fprintf(out, "Companion: %s\n", svc.Greeting(sess.Profile))
	fmt.Fprintln(out, "Type /help for commands.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			resp, err := svc.SubmitUtterance(ctx, id, line)
			if err != nil {
				return err
			}
			printReply(out, resp)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/quick":
			resp, err := svc.RunQuickAction(ctx, id, strings.TrimSpace(arg))
			if err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			printReply(out, resp)
		case "/history":
			s, err := svc.GetSession(ctx, id)
			if err != nil {
				return err
			}
			printHistory(out, s.History())
		case "/analytics":
			ds, err := svc.Analytics(ctx, id)
			if err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			printAnalytics(out, ds)
		case "/reset":
			s, err := svc.ResetSession(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			fmt.Fprintf(out, "Companion: %s\n", svc.Greeting(s.Profile))
		default:
			fmt.Fprintf(out, "! unknown command %s\n", command)
		}
	}
}

func printReply(out io.Writer, resp *consultation.ComposedResponse) {
	fmt.Fprintf(out, "Companion: %s\n", resp.Text)
	fmt.Fprintf(out, "  [confidence %.0f%% | source: %s]\n", resp.Confidence*100, resp.Source)
}

func printHistory(out io.Writer, msgs []consultation.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, "(no messages yet)")
		return
	}
	for _, m := range msgs {
		who := "You"
		if m.Role == consultation.RoleAssistant {
			who = "Companion"
		}
		fmt.Fprintf(out, "%s %s: %s\n", m.Timestamp.Format("15:04"), who, m.Content)
	}
}

func printAnalytics(out io.Writer, ds *analytics.Dataset) {
	h := ds.Headline
	fmt.Fprintf(out, "Active patients:      %d\n", h.ActivePatients)
	fmt.Fprintf(out, "Conversations:        %d\n", h.Conversations)
	fmt.Fprintf(out, "Anxiety reduction:    %.1f%%\n", h.AnxietyReductionPct)
	fmt.Fprintf(out, "Avg response time:    %.1fs\n", h.ResponseTimeSeconds)
	fmt.Fprintf(out, "Uptime:               %.1f%%\n", h.UptimePct)
	fmt.Fprintf(out, "Daily series:         %d days\n", len(ds.Daily))
	for _, o := range ds.Outcomes {
		fmt.Fprintf(out, "  %-28s %3d%% (baseline %d%%)\n", o.Name, o.Improvement, o.Baseline)
	}
}
