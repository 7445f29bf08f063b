package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrDuplicateKey indicates two definitions were registered under one key.
	ErrDuplicateKey = errors.New("command key already registered")
	// ErrUnknownCommand indicates a lookup referenced a key that is not
	// registered, usually configuration drift between deploys.
	ErrUnknownCommand = errors.New("command is not registered")
)

// Definition is one registered command plus its routing metadata.
type Definition struct {
	Key      string
	Fallback bool
	Handler  Handler

	patterns []string
	matcher  *regexp.Regexp
}

// Programmatic reports whether the definition carries no match pattern and is
// therefore never selected by pattern matching.
func (d Definition) Programmatic() bool {
	return len(d.patterns) == 0
}

// Composite reports whether the definition carries more than one pattern,
// which this version does not support matching against.
func (d Definition) Composite() bool {
	return len(d.patterns) > 1
}

// Matches reports whether the definition's single pattern matches input.
// The search is case-insensitive and unanchored unless the pattern anchors
// itself.
func (d Definition) Matches(input string) bool {
	return d.matcher != nil && d.matcher.MatchString(input)
}

// Registry holds registered command definitions in registration order.
//
// Registration order is semantically significant: it is the scan order for
// pattern matching, so operators control precedence purely by ordering.
// The registry is built once during startup and read-only afterwards, which
// makes it safe to share across concurrent dispatch cycles.
type Registry struct {
	defs        []Definition
	index       map[string]int
	fallbackKey string
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a handler's definition to the registry. It fails when the key
// is already taken, when a second fallback is declared, or when the match
// pattern does not compile.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("command handler is required")
	}
	meta := h.Meta()
	key := strings.TrimSpace(meta.Key)
	if key == "" {
		return fmt.Errorf("command key is required")
	}
	if _, exists := r.index[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	if meta.Fallback && r.fallbackKey != "" {
		return fmt.Errorf("fallback command already registered as %s, cannot register %s", r.fallbackKey, key)
	}

	def := Definition{
		Key:      key,
		Fallback: meta.Fallback,
		Handler:  h,
		patterns: slices.Clone(meta.Match),
	}
	if len(def.patterns) == 1 {
		matcher, err := regexp.Compile("(?i)" + def.patterns[0])
		if err != nil {
			return fmt.Errorf("compile match pattern for %s: %w", key, err)
		}
		def.matcher = matcher
	}

	r.index[key] = len(r.defs)
	r.defs = append(r.defs, def)
	if meta.Fallback {
		r.fallbackKey = key
	}
	return nil
}

// Lookup returns the definition registered under key.
func (r *Registry) Lookup(key string) (Definition, error) {
	idx, ok := r.index[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownCommand, key)
	}
	return r.defs[idx], nil
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	return slices.Clone(r.defs)
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}
