package main

import (
	"fmt"
	"io"

	"github.com/CANDRY15/flashprint/cmd/flashprintctl/client"
	"github.com/CANDRY15/flashprint/identity"
	"github.com/CANDRY15/flashprint/model"
	"github.com/spf13/cobra"
)

// notifier prints identity notifications, errors to stderr
type notifier struct {
	out io.Writer
	err io.Writer
}

func (n notifier) Notify(title, description string, isError bool) {
	w := n.out
	if isError {
		w = n.err
	}
	fmt.Fprintf(w, "%s: %s\n", title, description)
}

// navigator has nowhere to go in a terminal
type navigator struct{}

func (navigator) Navigate(string) {}

func (a *app) identity(c *client.Client) *identity.Context {
	return identity.New(c, c, notifier{out: a.out, err: a.err}, navigator{}, a.log,
		identity.WithSiteOrigin(a.conf.GetString("site_origin")))
}

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email := a.conf.GetString("email")
			password := a.conf.GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or FLASHPRINT_EMAIL and FLASHPRINT_PASSWORD) are required")
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			id := a.identity(c)
			defer id.Close()
			if err := id.Start(ctx); err != nil {
				return err
			}

			if err := id.SignIn(ctx, email, password); err != nil {
				return err
			}
			return saveSession(a.conf.GetString("session_file"), c.Session())
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	_ = a.conf.BindPFlag("email", cmd.Flags().Lookup("email"))
	_ = a.conf.BindPFlag("password", cmd.Flags().Lookup("password"))
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account; a confirmation link is emailed",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			id := a.identity(c)
			defer id.Close()

			return id.SignUp(a.context(cmd), email, password).Err
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().String("site-origin", "", "site origin used for the confirmation redirect")
	_ = a.conf.BindPFlag("site_origin", cmd.Flags().Lookup("site-origin"))
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			id := a.identity(c)
			defer id.Close()
			if err := id.Start(ctx); err != nil {
				return err
			}

			// An expired session is dropped by Start; there is nothing left to revoke
			if id.Snapshot().Session != nil {
				if err := id.SignOut(ctx); err != nil {
					return err
				}
			}
			return saveSession(a.conf.GetString("session_file"), nil)
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and whether they are an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)

			session, err := c.GetSession(ctx)
			if err != nil {
				return err
			}
			if session == nil {
				_ = saveSession(a.conf.GetString("session_file"), nil)
				return fmt.Errorf("session expired, run `flashprintctl login`")
			}
			// A refresh may have rotated the tokens
			if err := saveSession(a.conf.GetString("session_file"), session); err != nil {
				return err
			}

			isAdmin, err := c.HasRole(ctx, session.User.ID, model.RoleAdmin)
			if err != nil {
				a.log.Warn("admin role check failed", "error", err)
				isAdmin = false
			}

			a.printf("%s (id %d)\n", session.User.Email, session.User.ID)
			a.printf("admin: %t\n", isAdmin)
			a.printf("expires: %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
