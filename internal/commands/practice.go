package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/session"
	"github.com/ashureev/confido/internal/tui"
)

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice <agent>",
		Short: "Start a practice session with an interactive timer",
		Long: `Start a practice session. The agent may be an id, a category such as
interview or confidence, or part of an agent name.

Examples:
  confidoctl practice -u alice interview
  confidoctl practice -u alice "pitch partner" --title "Demo day"`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			actor, err := actorFlag(cmd)
			if err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("title")
			ctx := cmd.Context()

			ag, ok, err := a.agents.Resolve(ctx, actor, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no agent matches %q; try an agent id or one of interview, conversation, confidence, networking", args[0])
			}
			sess, err := a.lifecycle.Start(ctx, actor, ag, title)
			if err != nil {
				return err
			}

			noUI, _ := cmd.Flags().GetBool("no-ui")
			if noUI {
				fmt.Fprintf(cmd.OutOrStdout(), "Started session %s with %s\n", sess.ID, ag.Name)
				return nil
			}

			view := session.NewView(*sess)
			keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
			go a.lifecycle.KeepAlive(keepAliveCtx, actor, view, session.HeartbeatInterval)
			done, err := tui.RunPracticeTUI(view, ag.Name, sess.Title, func(v *session.View) (*domain.Session, error) {
				return a.lifecycle.CompleteView(ctx, actor, v)
			})
			stopKeepAlive()
			if err != nil {
				return err
			}
			if done == nil {
				if err := a.lifecycle.Heartbeat(ctx, actor, view); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s left open at %s\n", sess.ID, tui.FormatElapsed(view.ElapsedSeconds()))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s in %s\n", done.Title, tui.FormatElapsed(done.DurationSeconds))
			return nil
		}),
	}
	cmd.Flags().StringP("user", "u", "", "User id")
	cmd.Flags().StringP("title", "t", "", "Session title")
	cmd.Flags().Bool("no-ui", false, "Start the session without the timer")
	return cmd
}
