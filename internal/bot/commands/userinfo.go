package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/render"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// UserInformation onboards users with an incomplete profile: it prompts for
// a name on first contact and stores the next message as the display name.
// It is programmatic-only; the dispatcher routes to it directly whenever the
// user has no display name, so it never needs a match pattern.
type UserInformation struct{}

func (c *UserInformation) Meta() command.Metadata {
	return command.Metadata{Key: command.KeyUserInfo}
}

func (c *UserInformation) Execute(ctx context.Context, call *command.Context) (command.Result, error) {
	loc := render.ForLocale(call.User.Locale)

	if !call.Continuing(command.KeyUserInfo) {
		return command.Result{
			Status: storage.StatusPendingInput,
			Reply:  loc.Sprintf("reply.userinfo.prompt"),
		}, nil
	}

	name := strings.TrimSpace(call.Input)
	if name == "" {
		return command.Result{
			Status: storage.StatusPendingInput,
			Reply:  loc.Sprintf("reply.userinfo.again"),
		}, nil
	}

	if err := call.Store.UpdateUserDisplayName(ctx, call.User.ID, name); err != nil {
		return command.Result{}, fmt.Errorf("store display name: %w", err)
	}
	return command.Result{
		Status:  storage.StatusComplete,
		Reply:   loc.Sprintf("reply.userinfo.welcome", name),
		Payload: map[string]string{"display_name": name},
	}, nil
}
