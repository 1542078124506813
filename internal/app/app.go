package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"cli-cmds/internal/config"
	"cli-cmds/internal/exe"
	"cli-cmds/internal/musicdb"
)

// ExitInterrupted is the exit status after SIGINT.
const ExitInterrupted = 130

// exitUsage is the exit status for bad flags or arguments.
const exitUsage = 2

// DefaultFilter is the jq filter an ITEM is compared against unless --filter says otherwise.
const DefaultFilter = ".id"

// Options captures the parsed flags of one invocation.
type Options struct {
	Filter string
	DryRun bool
}

// NewOptions returns the options in effect when no flag is given.
func NewOptions() Options {
	return Options{Filter: DefaultFilter}
}

// MusicDB is the part of the music database the music commands use.
type MusicDB interface {
	Select(id, filter string) ([]musicdb.Record, error)
	Metadata(ctx context.Context, rec musicdb.Record) (musicdb.Metadata, error)
	Tag(ctx context.Context, records []musicdb.Record, opts musicdb.TagOptions) error
}

// Env carries the collaborators of a single process run.
type Env struct {
	Config config.Config
	Runner *exe.Runner
	Stdout io.Writer
	Stderr io.Writer
	OpenDB func(env *Env) (MusicDB, error)

	exit func(int)
}

// NewEnv wires the default collaborators for cfg.
func NewEnv(cfg config.Config) *Env {
	return &Env{
		Config: cfg,
		Runner: &exe.Runner{},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		OpenDB: openMusicDB,
		exit:   os.Exit,
	}
}

func openMusicDB(env *Env) (MusicDB, error) {
	if err := env.Config.RequireMusic(); err != nil {
		return nil, err
	}
	return musicdb.Open(env.Config.Music.DB, musicdb.Options{
		Root:       env.Config.Music.Root,
		Extensions: env.Config.Music.AudioExtensions,
		FFmpeg:     env.Config.FFmpegBin,
		FFprobe:    env.Config.FFprobeBin,
		Exec:       env.Runner,
		Out:        env.Stdout,
	})
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Main dispatches args and returns the process exit status.
// The first signal on sigs cancels the run and yields ExitInterrupted; a second one exits immediately.
func Main(ctx context.Context, args []string, env *Env, sigs <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var interrupted atomic.Bool
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-sigs:
		case <-done:
			return
		}
		interrupted.Store(true)
		cancel()

		select {
		case <-sigs:
			if env.exit != nil {
				env.exit(ExitInterrupted)
			}
		case <-done:
		}
	}()

	root := NewRootCommand(env)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if interrupted.Load() {
		return ExitInterrupted
	}
	if err == nil {
		return 0
	}

	fmt.Fprintf(env.Stderr, "Error: %v\n", err)

	var uerr usageError
	if errors.As(err, &uerr) {
		return exitUsage
	}
	return exe.ExitCode(err)
}
