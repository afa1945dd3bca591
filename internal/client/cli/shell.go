package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/sessiongate/internal/client/app"
	"github.com/atinyakov/sessiongate/internal/client/form"
	"github.com/atinyakov/sessiongate/internal/client/nav"
	"github.com/atinyakov/sessiongate/internal/models"
	"github.com/spf13/cobra"
)

const shellHelp = `Available commands:
  goto <path>   open /login, /signup, /dashboard or any other path
  back          return to the previous view
  login         sign in
  signup        create an account
  logout        sign out
  refresh       re-check the session on the dashboard
  where         print the current view
  help, exit`

func newShellCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session moving between the views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.repl(cmd.Context())
		},
	}
}

// repl runs the interactive shell loop until exit or end of input.
func (s *session) repl(ctx context.Context) error {
	s.report(s.open(ctx, string(nav.Dashboard)))

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(s.out, "sessiongate %s> ", s.app.Current())
		line, err := s.in.ReadString('\n')
		args := strings.Fields(line)
		if len(args) == 0 {
			if err == io.EOF {
				fmt.Fprintln(s.out)
				return nil
			}
			continue
		}

		switch args[0] {
		case "help":
			fmt.Fprintln(s.out, shellHelp)
		case "goto", "open":
			if len(args) < 2 {
				fmt.Fprintln(s.out, "Usage: goto <path>")
				continue
			}
			s.report(s.open(ctx, args[1]))
		case "back":
			route, ok := s.history.Back()
			if !ok {
				fmt.Fprintln(s.out, "Nothing to go back to")
				continue
			}
			s.app.Replace(ctx, string(route))
			s.report(s.render(ctx))
		case "login":
			s.leaveFailedDashboard()
			f := form.Login{Email: s.prompt("Email"), Password: s.prompt("Password")}
			s.report(s.login(ctx, f))
		case "signup":
			s.leaveFailedDashboard()
			f := form.Signup{
				Name:     s.prompt("Name"),
				Email:    s.prompt("Email"),
				Password: s.prompt("Password"),
				Role:     models.Role(strings.ToUpper(s.prompt("Role (USER/ADMIN)"))),
			}
			s.report(s.signup(ctx, f))
		case "logout":
			if s.confirm(logoutPrompt) {
				s.app.Logout()
			}
		case "refresh":
			d := s.app.Dashboard()
			if d == nil {
				fmt.Fprintln(s.out, "Not on the dashboard")
				continue
			}
			d.Refresh(ctx)
			s.report(s.render(ctx))
		case "where":
			fmt.Fprintln(s.out, s.app.Current())
		case "exit", "quit":
			fmt.Fprintln(s.out, "Bye")
			return nil
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}

		if err == io.EOF {
			return nil
		}
	}
}

// leaveFailedDashboard performs the error view's "Go to Login" action.
func (s *session) leaveFailedDashboard() {
	if d := s.app.Dashboard(); d != nil && d.Snapshot().State == app.Failed {
		d.ReturnToLogin()
	}
}

func (s *session) report(err error) {
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(s.out, "Error:", err)
	}
}
