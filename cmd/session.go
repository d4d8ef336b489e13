package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	GroupID: "access",
	Short:   "Manage session tokens",
}

var (
	sessionTTL   string
	sessionLabel string
	sessionRun   bool
)

var sessionCreateCmd = &cobra.Command{
	Use:   "create <scope>",
	Short: "Issue a new session token scoped to a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a single session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionRevoke,
}

var sessionRevokeAllCmd = &cobra.Command{
	Use:   "revoke-all",
	Short: "Revoke every active session",
	Args:  cobra.NoArgs,
	RunE:  runSessionRevokeAll,
}

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionTTL, "ttl", "24h", "time to live, e.g. 30m, 24h, 7d")
	sessionCreateCmd.Flags().StringVar(&sessionLabel, "label", "", "human-readable label")
	sessionCreateCmd.Flags().BoolVar(&sessionRun, "run-only", false, "forbid exposing values through this token, except via `run`")

	sessionCmd.AddCommand(sessionCreateCmd, sessionListCmd, sessionRevokeCmd, sessionRevokeAllCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	scope := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	ttl, err := session.ParseTTL(sessionTTL)
	if err != nil {
		return err
	}

	var label *string
	if sessionLabel != "" {
		label = &sessionLabel
	}

	token, id, expiresAt, err := c.CreateSession(scope, ttl, label, sessionRun)
	if err != nil {
		return err
	}

	payload(token)
	statusf(colorSuccess, "Session %q created (scope=%s, expires=%s)\n", id, scope, expiresAt.Format(time.RFC3339))
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	sessions, err := c.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		infof("No sessions.\n")
		return nil
	}

	now := time.Now().UTC()
	for _, s := range sessions {
		status := "active"
		if s.Revoked {
			status = "revoked"
		} else if now.After(s.ExpiresAt) {
			status = "expired"
		}
		label := "-"
		if s.Label != nil {
			label = *s.Label
		}
		payload(fmt.Sprintf("%-16s scope=%-16s status=%-8s label=%s expires=%s",
			s.ID, s.Scope, status, label, s.ExpiresAt.Format(time.RFC3339)))
	}
	return nil
}

func runSessionRevoke(cmd *cobra.Command, args []string) error {
	id := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	if err := c.RevokeSession(id); err != nil {
		return err
	}
	statusf(colorSuccess, "Session %q revoked.\n", id)
	return nil
}

func runSessionRevokeAll(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	count, err := c.RevokeAllSessions()
	if err != nil {
		return err
	}
	statusf(colorSuccess, "%d session(s) revoked.\n", count)
	return nil
}
