// Package cli implements the sessiongate command-line client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/atinyakov/sessiongate/internal/client/app"
	"github.com/atinyakov/sessiongate/internal/client/authapi"
	"github.com/atinyakov/sessiongate/internal/client/authflow"
	"github.com/atinyakov/sessiongate/internal/client/credential"
	"github.com/atinyakov/sessiongate/internal/client/identity"
	"github.com/atinyakov/sessiongate/internal/client/nav"
	"github.com/atinyakov/sessiongate/internal/client/notify"
	"github.com/atinyakov/sessiongate/internal/config"
	"github.com/atinyakov/sessiongate/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errReported marks failures the user has already been told about.
var errReported = errors.New("reported")

// BuildInfo is printed by the version command.
type BuildInfo struct {
	Version   string
	BuildDate string
}

// session is the state shared by the commands of one invocation.
type session struct {
	cfg       config.Client
	cfgFile   string
	ephemeral bool

	in  *bufio.Reader
	out io.Writer

	log     *zap.Logger
	store   credential.Store
	history *nav.History
	app     *app.App
}

// NewRootCmd builds the command tree reading prompts from in and writing
// views to out.
func NewRootCmd(build BuildInfo, in io.Reader, out io.Writer) *cobra.Command {
	s := &session{
		cfg: config.DefaultClient(),
		in:  bufio.NewReader(in),
		out: out,
	}

	root := &cobra.Command{
		Use:   "sessiongate",
		Short: "Sign in to a sessiongate auth service and open the dashboard",
		Long: `sessiongate keeps one session credential on disk and lets you sign in,
sign up, view the protected dashboard and log out.

Example usage:
  sessiongate signup --name Ann --email ann@example.com
  sessiongate login --email ann@example.com
  sessiongate dashboard
  sessiongate shell
  sessiongate logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init(cmd)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&s.cfgFile, "config", "", "JSON config file")
	flags.StringVar(&s.cfg.BaseURL, "url", s.cfg.BaseURL, "auth service base URL (env SESSIONGATE_URL)")
	flags.StringVar(&s.cfg.CredentialPath, "credentials", "", "credential file (env SESSIONGATE_CREDENTIALS)")
	flags.StringVar(&s.cfg.CAFile, "ca", "", "CA certificate to trust for https")
	flags.DurationVar(&s.cfg.Timeout, "timeout", s.cfg.Timeout, "request timeout")
	flags.StringVar(&s.cfg.LogLevel, "log-level", s.cfg.LogLevel, "log level")
	flags.BoolVar(&s.ephemeral, "ephemeral", false, "keep the credential in memory only")

	root.AddCommand(
		newLoginCmd(s),
		newSignupCmd(s),
		newLogoutCmd(s),
		newDashboardCmd(s),
		newShellCmd(s),
		newVersionCmd(build),
	)
	return root
}

// Execute runs the client and returns the process exit code.
func Execute(build BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd(build, os.Stdin, os.Stdout)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return 1
}

// init resolves the configuration and wires the client. Flags given on the
// command line win over the environment and the config file.
func (s *session) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.LoadClient(s.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = s.cfg.BaseURL
	}
	if flags.Changed("credentials") {
		cfg.CredentialPath = s.cfg.CredentialPath
	}
	if flags.Changed("ca") {
		cfg.CAFile = s.cfg.CAFile
	}
	if flags.Changed("timeout") {
		cfg.Timeout = s.cfg.Timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = s.cfg.LogLevel
	}
	s.cfg = cfg

	log := logger.New()
	if err := log.InitConsole(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	s.log = log.Log

	if s.ephemeral {
		s.store = credential.NewMemoryStore()
	} else {
		path := cfg.CredentialPath
		if path == "" {
			if path, err = credential.DefaultPath(); err != nil {
				return err
			}
		}
		s.store = credential.NewFileStore(path, s.log)
	}

	httpClient, err := authapi.NewHTTPClient(cfg.CAFile, cfg.Timeout)
	if err != nil {
		return err
	}
	api := authapi.New(cfg.BaseURL, httpClient, s.log)

	s.history = nav.NewHistory(nav.Root)
	s.app = app.New(app.Deps{
		Store:     s.store,
		Validator: identity.NewValidator(s.store, api, s.log),
		Auth:      app.FromOrchestrator(authflow.New(s.store, api, s.log)),
		Navigator: s.history,
		Notifier:  notify.NewConsole(s.out),
		Logger:    s.log,
	})
	s.log.Debug("client ready", zap.String("url", cfg.BaseURL))
	return nil
}

// waitDashboard blocks until the mounted dashboard settles, bounded by the
// request timeout.
func (s *session) waitDashboard(ctx context.Context) (app.Snapshot, bool) {
	d := s.app.Dashboard()
	if d == nil {
		return app.Snapshot{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout+time.Second)
	defer cancel()
	snap, err := d.Wait(ctx)
	if err != nil {
		s.log.Debug("dashboard wait", zap.Error(err))
	}
	return snap, true
}
