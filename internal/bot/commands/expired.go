package commands

import (
	"context"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// SessionExpiry closes out a pending continuation that sat idle past the
// expiry threshold. It completes immediately, so the user's next message
// starts a fresh interaction.
type SessionExpiry struct{}

func (c *SessionExpiry) Meta() command.Metadata {
	return command.Metadata{Key: command.KeyExpired}
}

func (c *SessionExpiry) Execute(_ context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)
	result := command.Result{
		Status: storage.StatusComplete,
		Reply:  loc.Sprintf("reply.expired.body"),
	}
	if call.Last != nil {
		result.Payload = map[string]string{"abandoned_command": call.Last.CommandKey}
	}
	return result, nil
}
