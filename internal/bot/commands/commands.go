// Package commands holds the closed set of command handlers the bot ships
// with, plus the bootstrap that builds the registry from them.
package commands

import (
	"fmt"
	"log"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
)

// DefaultSet returns the externally configured command handlers in the order
// they are registered. Order matters: it is the pattern-matching scan order.
func DefaultSet() []command.Handler {
	return []command.Handler{
		&UserInformation{},
		&Greet{},
		&Help{},
		&Survey{},
	}
}

// Bootstrap builds the registry: built-ins first (fallback, then session
// expiry), then the supplied handlers in order. It logs the registered total
// once registration finishes.
func Bootstrap(externals ...command.Handler) (*command.Registry, error) {
	registry := command.NewRegistry()

	builtins := []command.Handler{
		&Fallback{},
		&SessionExpiry{},
	}
	for _, h := range append(builtins, externals...) {
		if err := registry.Register(h); err != nil {
			return nil, fmt.Errorf("register command: %w", err)
		}
	}

	log.Printf("finished registering commands total=%d", registry.Len())
	return registry, nil
}
