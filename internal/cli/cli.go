// Package cli implements the mailnotify command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/spf13/pflag"
	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/api"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/client"
	"github.com/viant/mailnotify/config"
	"github.com/viant/mailnotify/credential"
	"github.com/viant/mailnotify/session"
)

// Exit codes.
const (
	ExitOK = iota
	ExitError
	ExitUsage
	// ExitSignedOut means the user has to log in (again) before retrying.
	ExitSignedOut
)

const userAgent = "mailnotify-cli"

type usageError struct {
	message string
}

func (e *usageError) Error() string {
	return e.message
}

func usagef(format string, args ...interface{}) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {summary: "sign in with email and password or a secret resource", run: runLogin},
	"register":      {summary: "create an account and sign in", run: runRegister},
	"logout":        {summary: "clear stored credentials", run: runLogout},
	"status":        {summary: "show whether a session is stored", run: runStatus},
	"whoami":        {summary: "show the signed in user", run: runWhoami},
	"forgot":        {summary: "request a password reset link", run: runForgot},
	"reset":         {summary: "set a new password with a reset token", run: runReset},
	"accounts":      {summary: "list|connect|pause|resume|disconnect email accounts", run: runAccounts},
	"channels":      {summary: "list|create|update|delete notification channels", run: runChannels},
	"rules":         {summary: "list|create|update|delete filter rules", run: runRules},
	"notifications": {summary: "list notification history", run: runNotifications},
}

type app struct {
	store    credential.Store
	logger   mailnotify.Logger
	client   *client.Client
	session  *session.Store
	services *api.Services
	stdout   io.Writer
	stderr   io.Writer
	signOut  atomic.Pointer[broadcast.SignedOut]
}

// Run executes one CLI invocation and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("mailnotify", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	configPath := global.StringP("config", "c", "", "config file (default ./mailnotify.yaml or ~/.mailnotify/mailnotify.yaml)")
	apiURL := global.String("api-url", "", "backend origin, overrides config")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return ExitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %v\n", rest[0])
		usage(stderr, global)
		return ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitError
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	a, err := newApp(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitError
	}
	defer a.close()
	return a.exit(cmd.run(ctx, a, rest[1:]))
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	logger := cfg.NewLogger(stderr)
	store, err := cfg.NewStore()
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg.APIURL,
		client.WithStore(store),
		client.WithLogger(logger),
		client.WithTimeout(cfg.Timeout),
		client.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}
	ret := &app{
		store:    store,
		logger:   logger,
		client:   c,
		session:  session.New(c, session.WithLogger(logger)),
		services: api.New(c),
		stdout:   stdout,
		stderr:   stderr,
	}
	c.SignedOut().Subscribe(func(event broadcast.SignedOut) {
		ret.signOut.Store(&event)
	})
	return ret, nil
}

// requireSession is the guard every protected command runs first.
func (a *app) requireSession(ctx context.Context) error {
	a.session.Bootstrap(ctx)
	return a.session.RequireAuthenticated()
}

func (a *app) exit(err error) int {
	if err == nil {
		return ExitOK
	}
	a.session.Wait()
	signOut := a.signOut.Load()
	var usageErr *usageError
	var validationErr *api.ValidationError
	switch {
	case errors.As(err, &usageErr):
		fmt.Fprintf(a.stderr, "usage: %v\n", usageErr.message)
		return ExitUsage
	case mailnotify.IsSignedOut(err) || signOut != nil:
		reason := ""
		if signOut != nil {
			reason = fmt.Sprintf(" (%v)", signOut.Reason)
		}
		fmt.Fprintf(a.stderr, "Your session has ended%s. Please log in again: mailnotify login\n", reason)
		return ExitSignedOut
	case errors.Is(err, session.ErrNotAuthenticated):
		fmt.Fprintln(a.stderr, "Not logged in. Run: mailnotify login")
		return ExitSignedOut
	case errors.As(err, &validationErr):
		fmt.Fprintln(a.stderr, validationErr.Error())
		return ExitUsage
	}
	fmt.Fprintf(a.stderr, "error: %v\n", mailnotify.ErrorMessage(err))
	return ExitError
}

func (a *app) close() {
	a.session.Close()
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Errorf("failed to close credential store: %v", err)
		}
	}
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: mailnotify [flags] <command> [args]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nflags:")
	fmt.Fprint(w, strings.TrimRight(global.FlagUsages(), "\n")+"\n")
}
