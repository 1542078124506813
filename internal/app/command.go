package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cli-cmds/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Spec describes a subcommand: its help text, arguments and flags.
type Spec struct {
	Name       string
	Banner     string
	Info       string
	Separators []string
	Args       cobra.PositionalArgs
	Flags      []FlagSpec

	// Passthrough hands every argument, flags included, to Run untouched.
	Passthrough bool
}

// FlagSpec declares one flag. Arg names the flag's value; an empty Arg makes it a boolean switch.
// Set receives the parsed value ("true"/"false" for switches) and records it on the options.
type FlagSpec struct {
	Name    string
	Short   string
	Arg     string
	Usage   string
	Default string
	Set     func(o *Options, value string)
}

// Command is one entry of the command table.
type Command interface {
	Describe() Spec
	Run(ctx context.Context, env *Env, opts Options, args []string) error
}

// Registry lists every subcommand in help order.
var Registry = []Command{
	cljCommand{name: "test", info: "Run clojure tests", prefix: func(env *Env) string { return env.Config.Clj.Test }},
	cljCommand{name: "repl", info: "Run clojure repl", prefix: func(env *Env) string { return env.Config.Clj.Repl }},
	mtagCommand{},
	probeCommand{},
	showCommand{},
}

// Lookup returns the registered command called name.
func Lookup(name string) (Command, bool) {
	for _, c := range Registry {
		if c.Describe().Name == name {
			return c, true
		}
	}
	return nil, false
}

// NewRootCommand builds the cobra tree for Registry.
func NewRootCommand(env *Env) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "cmds",
		Short:         "Personal command toolbox: clojure test wrapper and music library tools",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			// anything left over here is not a registered subcommand
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.ParseLevel(env.Config.LogLevel)
			if verbose {
				level = slog.LevelDebug
			}
			logger.Setup(env.Stderr, level)
			slog.Debug("config loaded",
				slog.String("path", env.Config.Path),
				slog.String("music_db", env.Config.Music.DB),
				slog.String("music_root", env.Config.Music.Root),
			)
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	for _, c := range Registry {
		root.AddCommand(newSubcommand(env, c))
	}
	return root
}

func newSubcommand(env *Env, c Command) *cobra.Command {
	spec := c.Describe()

	long := spec.Info
	if len(spec.Separators) > 0 {
		long += "\n\n" + strings.Join(spec.Separators, "\n")
	}

	cmd := &cobra.Command{
		Use:                strings.TrimPrefix(spec.Banner, "Usage: "),
		Short:              spec.Info,
		Long:               long,
		DisableFlagParsing: spec.Passthrough,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := NewOptions()
			for _, f := range spec.Flags {
				if flag := cmd.Flags().Lookup(f.Name); flag != nil && f.Set != nil {
					f.Set(&opts, flag.Value.String())
				}
			}
			return c.Run(cmd.Context(), env, opts, args)
		},
	}
	if spec.Args != nil {
		cmd.Args = func(cmd *cobra.Command, args []string) error {
			if err := spec.Args(cmd, args); err != nil {
				return usageError{fmt.Errorf("%s: %w", spec.Name, err)}
			}
			return nil
		}
	}

	for _, f := range spec.Flags {
		registerFlag(cmd.Flags(), f)
	}
	return cmd
}

func registerFlag(fs *pflag.FlagSet, f FlagSpec) {
	if f.Arg == "" {
		fs.BoolP(f.Name, f.Short, f.Default == "true", f.Usage)
		return
	}
	usage := f.Usage
	if !strings.Contains(usage, "`") {
		usage = fmt.Sprintf("`%s`: %s", f.Arg, usage)
	}
	fs.StringP(f.Name, f.Short, f.Default, usage)
}
