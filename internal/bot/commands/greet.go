package commands

import (
	"context"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// Greet replies to salutations.
type Greet struct{}

func (c *Greet) Meta() command.Metadata {
	return command.Metadata{
		Key:   "greet",
		Match: []string{`^(hi|hello|hey)\b`},
	}
}

func (c *Greet) Execute(_ context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)
	return command.Result{
		Status: storage.StatusComplete,
		Reply:  loc.Sprintf("reply.greet.hello", call.User.DisplayName),
	}, nil
}
