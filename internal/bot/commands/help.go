package commands

import (
	"context"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// Help lists what the bot can do.
type Help struct{}

func (c *Help) Meta() command.Metadata {
	return command.Metadata{
		Key:   "help",
		Match: []string{`^help\b`},
	}
}

func (c *Help) Execute(_ context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)
	return command.Result{
		Status: storage.StatusComplete,
		Reply:  loc.Sprintf("reply.help.body"),
	}, nil
}
