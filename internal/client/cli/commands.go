package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/sessiongate/internal/client/app"
	"github.com/atinyakov/sessiongate/internal/client/form"
	"github.com/atinyakov/sessiongate/internal/client/nav"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/spf13/cobra"
)

const logoutPrompt = "Are you sure? You will be logged out."

func newLoginCmd(s *session) *cobra.Command {
	var f form.Login
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and open the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Email == "" {
				f.Email = s.prompt("Email")
			}
			if f.Password == "" {
				f.Password = s.prompt("Password")
			}
			return s.login(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.Email, "email", "", "account email")
	cmd.Flags().StringVar(&f.Password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newSignupCmd(s *session) *cobra.Command {
	var (
		f    form.Signup
		role string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and open the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Name == "" {
				f.Name = s.prompt("Name")
			}
			if f.Email == "" {
				f.Email = s.prompt("Email")
			}
			if f.Password == "" {
				f.Password = s.prompt("Password")
			}
			f.Role = models.Role(strings.ToUpper(strings.TrimSpace(role)))
			return s.signup(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "display name")
	cmd.Flags().StringVar(&f.Email, "email", "", "account email")
	cmd.Flags().StringVar(&f.Password, "password", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "USER or ADMIN")
	return cmd
}

func newLogoutCmd(s *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !s.confirm(logoutPrompt) {
				fmt.Fprintln(s.out, "Cancelled")
				return nil
			}
			s.app.Logout()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newDashboardCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the protected dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd.Context(), string(nav.Dashboard))
		},
	}
}

func newVersionCmd(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessiongate client\nVersion: %s\nBuild Date: %s\n",
				orNA(build.Version), orNA(build.BuildDate))
		},
	}
}

func (s *session) login(ctx context.Context, f form.Login) error {
	errs, out := s.app.SubmitLogin(ctx, f)
	return s.afterSubmit(ctx, errs, out.Success())
}

func (s *session) signup(ctx context.Context, f form.Signup) error {
	errs, out := s.app.SubmitSignup(ctx, f)
	return s.afterSubmit(ctx, errs, out.Success())
}

func (s *session) afterSubmit(ctx context.Context, errs form.Errors, ok bool) error {
	if !errs.OK() {
		app.RenderFormErrors(s.out, errs)
		return errReported
	}
	if !ok {
		return errReported
	}
	return s.render(ctx)
}

// open visits path and renders whatever view ends up shown.
func (s *session) open(ctx context.Context, path string) error {
	s.app.Visit(ctx, path)
	return s.render(ctx)
}

// render prints the current view. Failing views return errReported.
func (s *session) render(ctx context.Context) error {
	switch s.app.Current() {
	case nav.Login:
		fmt.Fprintln(s.out, "Login")
		fmt.Fprintln(s.out, "Not signed in. Use 'login' or 'signup'.")
		return errReported
	case nav.Signup:
		fmt.Fprintln(s.out, "Sign Up")
		fmt.Fprintln(s.out, "Use 'signup' to create an account.")
	case nav.NotFound:
		app.RenderNotFound(s.out)
		return errReported
	case nav.Dashboard:
		snap, ok := s.waitDashboard(ctx)
		if !ok {
			return errReported
		}
		if snap.State == app.Failed && snap.Redirected {
			// the notifier already reported the reason
			return errReported
		}
		app.RenderDashboard(s.out, snap)
		if snap.State != app.Ready {
			return errReported
		}
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
