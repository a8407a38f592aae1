package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"github.com/viant/mailnotify/api"
	"github.com/viant/scy/cred/secret"
)

func newFlagSet(a *app, name string) *pflag.FlagSet {
	ret := pflag.NewFlagSet(name, pflag.ContinueOnError)
	ret.SetOutput(a.stderr)
	return ret
}

func parse(name string, flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return usagef("%v %v", name, err)
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet(a, "login")
	email := flags.StringP("email", "e", "", "account email")
	password := flags.StringP("password", "p", "", "account password")
	resource := flags.StringP("secret", "s", "", "scy secret resource holding username and password")
	if err := parse("login", flags, args); err != nil {
		return err
	}
	if *resource != "" {
		secrets := secret.New()
		generic, err := secrets.GetCredentials(ctx, *resource)
		if err != nil {
			return fmt.Errorf("failed to load credentials from %v: %w", *resource, err)
		}
		*email, *password = generic.Username, generic.Password
	}
	if *email == "" || *password == "" {
		return usagef("login -e <email> -p <password> | login -s <secret resource>")
	}
	if _, err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %v\n", a.session.State().Email())
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet(a, "register")
	email := flags.StringP("email", "e", "", "account email")
	password := flags.StringP("password", "p", "", "account password, 8 to 72 characters")
	if err := parse("register", flags, args); err != nil {
		return err
	}
	if err := api.ValidateRegistration(*email, *password); err != nil {
		return err
	}
	if _, err := a.session.Register(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Registered and logged in as %v\n", *email)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func runStatus(ctx context.Context, a *app, _ []string) error {
	state := a.session.Bootstrap(ctx)
	if !state.Authenticated {
		fmt.Fprintln(a.stdout, "Not logged in")
		return nil
	}
	a.session.Wait()
	state = a.session.State()
	if state.ProfileLoaded() {
		fmt.Fprintf(a.stdout, "Logged in as %v\n", state.Email())
	} else {
		fmt.Fprintln(a.stdout, "Logged in")
	}
	pair, err := a.client.Store().Load(ctx)
	if err != nil {
		return err
	}
	if expiry, ok := pair.AccessExpiry(); ok {
		fmt.Fprintf(a.stdout, "Access token expires %v\n", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	profile, err := a.session.FetchProfile(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%v\n", profile.ID)
	fmt.Fprintf(w, "Email\t%v\n", profile.Email)
	fmt.Fprintf(w, "Notifications paused\t%v\n", profile.NotificationsPaused)
	fmt.Fprintf(w, "Member since\t%v\n", profile.CreatedAt.Format(time.DateOnly))
	return w.Flush()
}

func runForgot(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet(a, "forgot")
	email := flags.StringP("email", "e", "", "account email")
	if err := parse("forgot", flags, args); err != nil {
		return err
	}
	message, err := a.services.Auth.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, message)
	return nil
}

func runReset(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet(a, "reset")
	token := flags.StringP("token", "t", "", "token from the reset link")
	password := flags.StringP("password", "p", "", "new password")
	if err := parse("reset", flags, args); err != nil {
		return err
	}
	message, err := a.services.Auth.ResetPassword(ctx, *token, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, message)
	return nil
}

func runAccounts(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usagef("accounts list|connect|pause|resume|disconnect [id]")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	accounts := a.services.EmailAccounts
	switch args[0] {
	case "list":
		list, err := accounts.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tADDRESS\tPROVIDER\tSTATUS")
		for _, account := range list {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", account.ID, account.EmailAddress, account.Provider, account.Status)
		}
		return w.Flush()
	case "connect":
		authorizationURL, err := accounts.Connect(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Open this URL to authorize access:\n%v\n", authorizationURL)
		return nil
	case "pause", "resume", "disconnect":
		id, _, err := parseID("accounts "+args[0], args[1:])
		if err != nil {
			return err
		}
		switch args[0] {
		case "pause":
			_, err = accounts.Pause(ctx, id)
		case "resume":
			_, err = accounts.Resume(ctx, id)
		default:
			err = accounts.Disconnect(ctx, id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Account %v: %v done\n", id, args[0])
		return nil
	}
	return usagef("unknown accounts subcommand: %v", args[0])
}

func runNotifications(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return usagef("notifications list [--page N] [--size N]")
	}
	flags := newFlagSet(a, "notifications list")
	page := flags.Int("page", 0, "zero based page")
	size := flags.Int("size", api.DefaultPageSize, "page size")
	if err := parse("notifications list", flags, args[1:]); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	result, err := a.services.Notifications.List(ctx, *page, *size)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tFROM\tSUBJECT\tCHANNEL\tSTATUS")
	for _, notification := range result.Content {
		received := notification.CreatedAt
		if notification.EmailReceivedAt != nil {
			received = *notification.EmailReceivedAt
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", received.Local().Format(time.DateTime), notification.SenderAddress,
			notification.Subject, notification.ChannelType, notification.DeliveryStatus)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "page %d of %d (%d total)\n", result.Number+1, max(result.TotalPages, 1), result.TotalElements)
	if result.HasNext() {
		fmt.Fprintf(a.stdout, "next: mailnotify notifications list --page %d --size %d\n", result.Number+1, result.Size)
	}
	return nil
}
