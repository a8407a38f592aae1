package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/viant/mailnotify/api"
)

func parseID(name string, args []string) (uuid.UUID, []string, error) {
	if len(args) == 0 {
		return uuid.Nil, nil, usagef("%v <id>", name)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, nil, usagef("%v: invalid id: %v", name, args[0])
	}
	return id, args[1:], nil
}

func parseChannel(a *app, name string, args []string) (*api.ChannelRequest, error) {
	request := &api.ChannelRequest{}
	flags := newFlagSet(a, name)
	flags.StringVarP(&request.ChannelType, "type", "t", api.ChannelSlack, "slack|whatsapp")
	flags.StringVar(&request.BotToken, "bot-token", "", "Slack bot token")
	flags.StringVar(&request.SlackChannelID, "slack-channel", "", "Slack channel id")
	flags.StringVar(&request.WhatsappPhoneNumber, "phone", "", "WhatsApp phone number")
	flags.StringVar(&request.TwilioSid, "twilio-sid", "", "Twilio account sid")
	flags.BoolVar(&request.ConsentGiven, "consent", false, "consent to receive notifications on this channel")
	if err := parse(name, flags, args); err != nil {
		return nil, err
	}
	return request, nil
}

func runChannels(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usagef("channels list|create|update|delete [id] [flags]")
	}
	channels := a.services.Channels
	switch args[0] {
	case "list":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		list, err := channels.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tDESTINATION")
		for _, channel := range list {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", channel.ID, channel.ChannelType, channel.Status, destination(channel))
		}
		return w.Flush()
	case "create":
		request, err := parseChannel(a, "channels create", args[1:])
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		channel, err := channels.Create(ctx, request)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Created %v channel %v\n", channel.ChannelType, channel.ID)
		return nil
	case "update":
		id, rest, err := parseID("channels update", args[1:])
		if err != nil {
			return err
		}
		request, err := parseChannel(a, "channels update", rest)
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		channel, err := channels.Update(ctx, id, request)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated %v channel %v: %v\n", channel.ChannelType, channel.ID, destination(channel))
		return nil
	case "delete":
		id, _, err := parseID("channels delete", args[1:])
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		if err = channels.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted channel %v\n", id)
		return nil
	}
	return usagef("unknown channels subcommand: %v", args[0])
}

func destination(channel *api.Channel) string {
	if channel.ChannelType == api.ChannelWhatsApp {
		return channel.WhatsappPhoneNumber
	}
	return channel.SlackChannelID
}

func parseRule(a *app, name string, args []string) (*api.FilterRuleRequest, error) {
	request := &api.FilterRuleRequest{}
	flags := newFlagSet(a, name)
	flags.StringVarP(&request.RuleType, "type", "t", api.RuleSender, "sender|subject_keyword")
	flags.StringVarP(&request.Pattern, "pattern", "p", "", "sender address or subject keyword")
	flags.BoolVar(&request.Active, "active", true, "whether the rule triggers notifications")
	flags.IntVar(&request.Priority, "priority", 0, "evaluation priority")
	if err := parse(name, flags, args); err != nil {
		return nil, err
	}
	return request, nil
}

func runRules(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usagef("rules list|create|update|delete [id] [flags]")
	}
	rules := a.services.FilterRules
	switch args[0] {
	case "list":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		list, err := rules.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tPATTERN\tACTIVE\tPRIORITY")
		for _, rule := range list {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", rule.ID, rule.RuleType, rule.Pattern, rule.Active, rule.Priority)
		}
		return w.Flush()
	case "create":
		request, err := parseRule(a, "rules create", args[1:])
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		rule, err := rules.Create(ctx, request)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Created %v rule %v\n", rule.RuleType, rule.ID)
		return nil
	case "update":
		id, rest, err := parseID("rules update", args[1:])
		if err != nil {
			return err
		}
		request, err := parseRule(a, "rules update", rest)
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		rule, err := rules.Update(ctx, id, request)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated %v rule %v: %v\n", rule.RuleType, rule.ID, rule.Pattern)
		return nil
	case "delete":
		id, _, err := parseID("rules delete", args[1:])
		if err != nil {
			return err
		}
		if err = a.requireSession(ctx); err != nil {
			return err
		}
		if err = rules.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted rule %v\n", id)
		return nil
	}
	return usagef("unknown rules subcommand: %v", args[0])
}
