package shared

import (
	"context"
	"strings"
)

// SystemName is recorded as the actor of automated actions.
const SystemName = "system"

// Caller is the identity on whose behalf an action runs. It is supplied by
// the external auth layer; the engine only reads it.
type Caller struct {
	ID     string
	Name   string
	system bool
	caps   map[Capability]struct{}
}

// NewCaller builds a caller holding the given capabilities.
func NewCaller(id, name string, caps ...Capability) Caller {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		c = Capability(strings.TrimSpace(string(c)))
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return Caller{ID: id, Name: strings.TrimSpace(name), caps: set}
}

// SystemCaller is used by scheduled jobs. It holds no privileged capability.
func SystemCaller() Caller {
	return Caller{ID: SystemName, Name: SystemName, system: true, caps: map[Capability]struct{}{}}
}

// Has reports whether the caller holds the capability.
func (c Caller) Has(cap Capability) bool {
	_, ok := c.caps[cap]
	return ok
}

// IsSystem reports whether the caller is the scheduler.
func (c Caller) IsSystem() bool {
	return c.system
}

// DisplayName resolves the name written to collection logs.
func (c Caller) DisplayName() string {
	if c.system {
		return SystemName
	}
	if c.Name != "" {
		return c.Name
	}
	if c.ID != "" {
		return c.ID
	}
	return "unknown"
}

// Capabilities returns the caller capabilities in no particular order.
func (c Caller) Capabilities() []Capability {
	out := make([]Capability, 0, len(c.caps))
	for cap := range c.caps {
		out = append(out, cap)
	}
	return out
}

type callerContextKey struct{}

// ContextWithCaller stores the caller in context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok
}
