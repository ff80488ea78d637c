package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/confido/internal/analytics"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/tui"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a user's dashboard and progress",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			actor, err := actorFlag(cmd)
			if err != nil {
				return err
			}
			d, err := a.reader.Dashboard(cmd.Context(), actor)
			if err != nil {
				return err
			}
			progress, err := a.progress.Progress(cmd.Context(), actor)
			if err != nil {
				return err
			}
			printDashboard(cmd.OutOrStdout(), d, progress)
			return nil
		}),
	}
	cmd.Flags().StringP("user", "u", "", "User id")
	return cmd
}

func printDashboard(w io.Writer, d analytics.Dashboard, progress []domain.UserProgress) {
	fmt.Fprintf(w, "Sessions:        %d\n", d.TotalSessions)
	fmt.Fprintf(w, "Minutes:         %.2f\n", d.TotalMinutes)
	fmt.Fprintf(w, "This week:       %d\n", d.ThisWeekSessions)
	fmt.Fprintf(w, "Avg confidence:  %d%%\n", d.AverageConfidence)
	if len(progress) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-14s %-9s %-9s %s\n", "SKILL", "SESSIONS", "MINUTES", "CONFIDENCE")
	fmt.Fprintln(w, strings.Repeat("-", 46))
	for _, p := range progress {
		fmt.Fprintf(w, "%-14s %-9d %-9.2f %.0f%%\n", p.SkillArea, p.TotalSessions, p.TotalTimeMinutes, p.AverageConfidence*100)
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Search a user's practice history",
		Long: `Search a user's practice history.

Examples:
  confidoctl history -u alice --status completed --sort confidence
  confidoctl history -u alice --period week -q interview`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			actor, err := actorFlag(cmd)
			if err != nil {
				return err
			}
			search, _ := cmd.Flags().GetString("query")
			status, _ := cmd.Flags().GetString("status")
			period, _ := cmd.Flags().GetString("period")
			sortKey, _ := cmd.Flags().GetString("sort")

			q, err := analytics.ParseHistoryQuery(search, status, period, sortKey)
			if err != nil {
				return err
			}
			records, err := a.reader.History(cmd.Context(), actor, q)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		}),
	}
	cmd.Flags().StringP("user", "u", "", "User id")
	cmd.Flags().StringP("query", "q", "", "Match agent name or session id")
	cmd.Flags().StringP("status", "s", "all", "all, active, paused or completed")
	cmd.Flags().StringP("period", "p", "all", "all, today, week or month")
	cmd.Flags().String("sort", "date", "date, duration or confidence")
	return cmd
}

func printHistory(w io.Writer, records []domain.SessionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	fmt.Fprintf(w, "%-10s %-17s %-30s %-10s %-9s %s\n", "ID", "DATE", "AGENT", "STATUS", "DURATION", "CONFIDENCE")
	fmt.Fprintln(w, strings.Repeat("-", 92))
	for _, r := range records {
		name := r.AgentName()
		if name == "" {
			name = string(r.AgentType)
		}
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		conf := "-"
		if c, ok := r.Confidence(); ok {
			conf = fmt.Sprintf("%.0f%%", c*100)
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%-10s %-17s %-30s %-10s %-9s %s\n",
			id,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			name,
			r.Status,
			tui.FormatElapsed(r.DurationSeconds),
			conf)
	}
}
