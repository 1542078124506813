package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cli-cmds/internal/musicdb"

	"github.com/spf13/cobra"
)

const itemSeparator = "    ITEM: String, will be compared in `jq` to FILTER"

var filterFlag = FlagSpec{
	Name:    "filter",
	Short:   "f",
	Arg:     "FILTER",
	Usage:   "any `FILTER` expression jq will accept",
	Default: DefaultFilter,
	Set:     func(o *Options, v string) { o.Filter = v },
}

var dryRunFlag = FlagSpec{
	Name:  "dry-run",
	Short: "n",
	Usage: "Do not tag, just print",
	Set:   func(o *Options, v string) { o.DryRun = v == "true" },
}

// ItemID derives the database identifier from an item: everything before the first '.'.
func ItemID(item string) string {
	if i := strings.IndexByte(item, '.'); i >= 0 {
		return item[:i]
	}
	return item
}

func musicSpec(name, info string, flags ...FlagSpec) Spec {
	return Spec{
		Name:       name,
		Banner:     fmt.Sprintf("Usage: %s [OPTS] ITEM", name),
		Info:       info,
		Separators: []string{itemSeparator},
		Args:       cobra.ExactArgs(1),
		Flags:      flags,
	}
}

// selectItem opens the database and resolves item against opts.Filter.
func selectItem(ctx context.Context, env *Env, opts Options, item string) (MusicDB, []musicdb.Record, error) {
	db, err := env.OpenDB(env)
	if err != nil {
		return nil, nil, err
	}

	id := ItemID(item)
	records, err := db.Select(id, opts.Filter)
	if err != nil {
		return nil, nil, err
	}

	slog.DebugContext(ctx, "selected",
		slog.String("item", item),
		slog.String("id", id),
		slog.String("filter", opts.Filter),
		slog.Int("records", len(records)),
	)
	if len(records) == 0 {
		slog.WarnContext(ctx, "no records matched", slog.String("id", id), slog.String("filter", opts.Filter))
	}
	return db, records, nil
}

type mtagCommand struct{}

func (mtagCommand) Describe() Spec {
	return musicSpec("mtag", "Tag the file with metadata (uses ffmpeg)", dryRunFlag, filterFlag)
}

func (mtagCommand) Run(ctx context.Context, env *Env, opts Options, args []string) error {
	db, records, err := selectItem(ctx, env, opts, args[0])
	if err != nil {
		return err
	}
	return db.Tag(ctx, records, musicdb.TagOptions{DryRun: opts.DryRun})
}

type probeCommand struct{}

func (probeCommand) Describe() Spec {
	return musicSpec("probe", "Probe the file for its current metadata (uses: ffprobe)", filterFlag)
}

func (probeCommand) Run(ctx context.Context, env *Env, opts Options, args []string) error {
	db, records, err := selectItem(ctx, env, opts, args[0])
	if err != nil {
		return err
	}
	for _, rec := range records {
		md, err := db.Metadata(ctx, rec)
		if err != nil {
			return err
		}
		if err := printJSON(env, md); err != nil {
			return err
		}
	}
	return nil
}

type showCommand struct{}

func (showCommand) Describe() Spec {
	return musicSpec("show", "Show the items info wrt the music db", filterFlag)
}

func (showCommand) Run(ctx context.Context, env *Env, opts Options, args []string) error {
	_, records, err := selectItem(ctx, env, opts, args[0])
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := printJSON(env, rec); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(env *Env, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(env.Stdout, string(b))
	return err
}
