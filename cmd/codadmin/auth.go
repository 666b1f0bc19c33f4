// Session commands: login, logout and whoami.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/session"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// envPassword lets scripts pass the password without a flag.
const envPassword = "CODADMIN_PASSWORD"

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login [actor]",
		Short: "Sign in as platform, merchant or buyer",
		Long: `Login signs in with email and password and stores the session in the
data directory. The actor defaults to the configured one.

The password is read from --password or the CODADMIN_PASSWORD environment
variable.

Example:
  codadmin login merchant --email owner@example.com --password secret
  codadmin login platform --email admin@example.com`,
		Args: checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := a.settings.Actor
			if len(args) == 1 {
				actor = types.Actor(args[0])
			}
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if email == "" || password == "" {
				return usageError{err: fmt.Errorf("--email and --password are required")}
			}
			auth := session.NewAuthenticator(a.transportOptions(), a.store)
			sess, err := auth.Login(cmd.Context(), actor, email, password)
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), a.flags.jsonMode, sess)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or $"+envPassword+")")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [actor]",
		Short: "Sign out and drop the stored session",
		Args:  checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var actor types.Actor
			if len(args) == 1 {
				actor = types.Actor(args[0])
			} else {
				sess, err := a.currentSession(ctx)
				if err != nil {
					return err
				}
				actor = sess.Identity.Actor
			}
			auth := session.NewAuthenticator(a.transportOptions(), a.store)
			if err := auth.Logout(ctx, actor); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", actor)
			return err
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.currentSession(ctx)
			if err != nil {
				return err
			}
			if refresh {
				auth := session.NewAuthenticator(a.transportOptions(), a.store)
				if sess, err = auth.Refresh(ctx, sess.Identity.Actor); err != nil {
					return err
				}
			}
			return printSession(cmd.OutOrStdout(), a.flags.jsonMode, sess)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "renew the token and reload the profile")
	return cmd
}

// sessionView is the printed form of a session; the token is never shown.
type sessionView struct {
	Actor       types.Actor `json:"actor"`
	Role        string      `json:"role"`
	Client      bool        `json:"client"`
	Permissions []string    `json:"permissions"`
	Email       string      `json:"email,omitempty"`
	Since       time.Time   `json:"since"`
}

func printSession(w io.Writer, jsonMode bool, sess session.Session) error {
	id := sess.Identity
	sv := sessionView{
		Actor:       id.Actor,
		Role:        id.RoleName,
		Client:      id.IsClient(),
		Permissions: id.Permissions,
		Email:       id.Profile.String(types.ColumnEmail),
		Since:       sess.CreatedAt,
	}
	if sv.Permissions == nil {
		sv.Permissions = []string{}
	}
	if jsonMode {
		return printJSON(w, sv)
	}
	fmt.Fprintf(w, "Actor:       %s\n", sv.Actor)
	if sv.Email != "" {
		fmt.Fprintf(w, "Email:       %s\n", sv.Email)
	}
	fmt.Fprintf(w, "Role:        %s\n", orDash(sv.Role))
	fmt.Fprintf(w, "Client:      %s\n", yesNo(sv.Client))
	_, err := fmt.Fprintf(w, "Permissions: %s\n", orDash(strings.Join(sv.Permissions, ", ")))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
