package commands

import (
	"context"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// Fallback answers any message no other command claimed.
type Fallback struct{}

func (c *Fallback) Meta() command.Metadata {
	return command.Metadata{Key: command.KeyFallback, Fallback: true}
}

func (c *Fallback) Execute(_ context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)
	return command.Result{
		Status: storage.StatusComplete,
		Reply:  loc.Sprintf("reply.fallback.body"),
	}, nil
}
