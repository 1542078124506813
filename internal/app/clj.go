package app

import (
	"context"
	"strings"
)

// cljCommand wraps a clj invocation; trailing arguments are appended verbatim.
type cljCommand struct {
	name   string
	info   string
	prefix func(env *Env) string
}

func (c cljCommand) Describe() Spec {
	return Spec{
		Name:        c.name,
		Banner:      "Usage: " + c.name,
		Info:        c.info,
		Passthrough: true,
	}
}

func (c cljCommand) Run(ctx context.Context, env *Env, _ Options, args []string) error {
	return env.Runner.System(ctx, buildCommandLine(c.prefix(env), args))
}

func buildCommandLine(prefix string, args []string) string {
	parts := append([]string{strings.TrimSpace(prefix)}, args...)
	return strings.Join(parts, " ")
}
