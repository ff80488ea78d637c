package commands

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/ashureev/confido/internal/agent"
	"github.com/ashureev/confido/internal/identity"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the featured system personas",
		Long:  "Create the featured system personas. Personas that already exist are left untouched.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			n, err := a.agents.Seed(cmd.Context(), agent.SystemPersonas)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d personas\n", n, len(agent.SystemPersonas))
			return nil
		}),
	}
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development identity token",
		Long: `Issue an identity token signed with JWT_SECRET.

Examples:
  confidoctl token --user alice
  confidoctl token --user alice --email alice@example.com --ttl 24h`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			actor, err := actorFlag(cmd)
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			tok, err := a.verifier.Issue(identity.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: actor.UserID},
				Email:            email,
				Name:             name,
				Provider:         "confidoctl",
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		}),
	}
	cmd.Flags().StringP("user", "u", "", "Subject user id")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("name", "", "Display name claim")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Complete sessions left open too long",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			after, _ := cmd.Flags().GetDuration("after")
			if after <= 0 {
				after = a.cfg.SessionAutocompleteAfter
			}
			if after <= 0 {
				return fmt.Errorf("--after must be positive when SESSION_AUTOCOMPLETE_AFTER is unset")
			}
			n, err := a.lifecycle.ReconcileStale(cmd.Context(), after)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %d stale sessions\n", n)
			return nil
		}),
	}
	cmd.Flags().Duration("after", 0, "Idle time after which an open session is completed")
	return cmd
}
