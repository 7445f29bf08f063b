package dispatch

import (
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
)

// Match selects the definition for a fresh interaction by scanning the
// registry in registration order; the first pattern match wins. Fallback and
// programmatic-only definitions are never candidates. When nothing matches,
// the fallback definition answers.
//
// A definition carrying more than one pattern halts the whole scan and the
// fallback answers. Multiple patterns per command are not supported in this
// version; the halt is preserved behavior, not a per-candidate skip.
func Match(registry *command.Registry, input string) (command.Definition, error) {
	for _, def := range registry.Definitions() {
		if def.Fallback {
			continue
		}
		if def.Programmatic() {
			continue
		}
		if def.Composite() {
			break
		}
		if def.Matches(input) {
			return def, nil
		}
	}
	return registry.Lookup(command.KeyFallback)
}
