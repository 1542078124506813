package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cli-cmds/internal/config"
	"cli-cmds/internal/exe"
	"cli-cmds/internal/musicdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	records  []musicdb.Record
	id       string
	filter   string
	tagCalls int
	tagged   []musicdb.Record
	tagOpts  musicdb.TagOptions
}

func (f *fakeDB) Select(id, filter string) ([]musicdb.Record, error) {
	f.id, f.filter = id, filter
	return f.records, nil
}

func (f *fakeDB) Metadata(_ context.Context, rec musicdb.Record) (musicdb.Metadata, error) {
	return musicdb.Metadata{File: rec.ID() + ".mp3", Format: musicdb.Format{FormatName: "mp3"}}, nil
}

func (f *fakeDB) Tag(_ context.Context, records []musicdb.Record, opts musicdb.TagOptions) error {
	f.tagCalls++
	f.tagged = records
	f.tagOpts = opts
	return nil
}

func newTestEnv(cfg config.Config, db MusicDB) (*Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Env{
		Config: cfg,
		Runner: &exe.Runner{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stderr},
		Stdout: &stdout,
		Stderr: &stderr,
		OpenDB: openMusicDB,
		exit:   func(int) {},
	}
	if db != nil {
		env.OpenDB = func(*Env) (MusicDB, error) { return db, nil }
	}
	return env, &stdout, &stderr
}

func TestItemID(t *testing.T) {
	tests := map[string]string{
		"track.mp3":     "track",
		"album.v2.flac": "album",
		"plain":         "plain",
		".hidden":       "",
		"":              "",
	}
	for input, want := range tests {
		assert.Equal(t, want, ItemID(input), "ItemID(%q)", input)
	}
}

func TestRegistry(t *testing.T) {
	want := []string{"test", "repl", "mtag", "probe", "show"}
	require.Len(t, Registry, len(want))
	for i, name := range want {
		assert.Equal(t, name, Registry[i].Describe().Name)
		_, ok := Lookup(name)
		assert.True(t, ok, "Lookup(%q)", name)
	}
	_, ok := Lookup("nope")
	assert.False(t, ok)

	mtag, _ := Lookup("mtag")
	spec := mtag.Describe()
	assert.Equal(t, "Usage: mtag [OPTS] ITEM", spec.Banner)
	assert.Equal(t, "Tag the file with metadata (uses ffmpeg)", spec.Info)
}

func TestMusicCommandsDefaultFilter(t *testing.T) {
	for _, name := range []string{"mtag", "probe", "show"} {
		db := &fakeDB{}
		env, _, stderr := newTestEnv(config.Default(), db)

		require.Equal(t, 0, Main(context.Background(), []string{name, "track.mp3"}, env, nil), "%s: %s", name, stderr.String())
		assert.Equal(t, ".id", db.filter, name)
		assert.Equal(t, "track", db.id, name)
	}
}

func TestMusicCommandsFilterFlag(t *testing.T) {
	for _, args := range [][]string{
		{"show", "-f", ".artist", "Someone"},
		{"show", "--filter", ".artist", "Someone"},
		{"probe", "--filter=.artist", "Someone"},
	} {
		db := &fakeDB{}
		env, _, stderr := newTestEnv(config.Default(), db)

		require.Equal(t, 0, Main(context.Background(), args, env, nil), "%v: %s", args, stderr.String())
		assert.Equal(t, ".artist", db.filter, "%v", args)
	}
}

func TestMtagDryRun(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"mtag", "track.mp3"}, false},
		{[]string{"mtag", "-n", "track.mp3"}, true},
		{[]string{"mtag", "--dry-run", "track.mp3"}, true},
	}

	for _, tt := range tests {
		db := &fakeDB{records: []musicdb.Record{{"id": "track"}}}
		env, _, stderr := newTestEnv(config.Default(), db)

		require.Equal(t, 0, Main(context.Background(), tt.args, env, nil), "%v: %s", tt.args, stderr.String())
		assert.Equal(t, 1, db.tagCalls, "%v", tt.args)
		assert.Equal(t, tt.want, db.tagOpts.DryRun, "%v", tt.args)
		require.Len(t, db.tagged, 1)
		assert.Equal(t, "track", db.tagged[0].ID())
	}
}

func TestShowAndProbeOutput(t *testing.T) {
	db := &fakeDB{records: []musicdb.Record{{"id": "track", "title": "Song"}}}

	env, stdout, stderr := newTestEnv(config.Default(), db)
	require.Equal(t, 0, Main(context.Background(), []string{"show", "track"}, env, nil), stderr.String())
	assert.Contains(t, stdout.String(), `"title": "Song"`)

	env, stdout, stderr = newTestEnv(config.Default(), db)
	require.Equal(t, 0, Main(context.Background(), []string{"probe", "track"}, env, nil), stderr.String())
	assert.Contains(t, stdout.String(), `"format_name": "mp3"`)
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"show"},
		{"show", "a", "b"},
		{"mtag", "--bogus", "a"},
		{"nope"},
		{"nope", "track"},
	} {
		env, _, _ := newTestEnv(config.Default(), &fakeDB{})
		assert.Equal(t, 2, Main(context.Background(), args, env, nil), "%v", args)
	}
}

func TestUnknownCommandNamesIt(t *testing.T) {
	env, _, stderr := newTestEnv(config.Default(), &fakeDB{})

	require.Equal(t, 2, Main(context.Background(), []string{"nope"}, env, nil))
	assert.Contains(t, stderr.String(), `unknown command "nope"`)
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	env, stdout, _ := newTestEnv(config.Default(), &fakeDB{})

	require.Equal(t, 0, Main(context.Background(), []string{}, env, nil))
	assert.Contains(t, stdout.String(), "mtag")
}

func TestMusicRequiresDatabase(t *testing.T) {
	env, _, stderr := newTestEnv(config.Default(), nil)

	assert.Equal(t, 1, Main(context.Background(), []string{"show", "track"}, env, nil))
	assert.Contains(t, stderr.String(), "MUSIC_DB")
}

func TestShowAgainstDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db.json")
	content := "{\"id\":\"track\",\"title\":\"Song\"}\n{\"id\":\"other\",\"title\":\"Else\"}\n"
	require.NoError(t, os.WriteFile(dbPath, []byte(content), 0o644))

	cfg := config.Default()
	cfg.Music.DB = dbPath
	env, stdout, stderr := newTestEnv(cfg, nil)

	require.Equal(t, 0, Main(context.Background(), []string{"show", "track.flac"}, env, nil), stderr.String())
	assert.Contains(t, stdout.String(), "Song")
	assert.NotContains(t, stdout.String(), "Else")
}

func TestBuildCommandLine(t *testing.T) {
	assert.Equal(t, "clj -A:nREVL:test -M --port 7888", buildCommandLine("clj -A:nREVL:test ", []string{"-M", "--port", "7888"}))
	assert.Equal(t, "clj -A:nREVL:test", buildCommandLine("clj -A:nREVL:test", nil))
}

func TestCljCommandsForwardArgs(t *testing.T) {
	cfg := config.Default()
	cfg.Clj.Test = "echo testing"
	cfg.Clj.Repl = "echo repl"

	env, stdout, stderr := newTestEnv(cfg, nil)
	require.Equal(t, 0, Main(context.Background(), []string{"test", "--focus", "a.b", "-x"}, env, nil), stderr.String())
	assert.Equal(t, "testing --focus a.b -x\n", stdout.String())

	env, stdout, _ = newTestEnv(cfg, nil)
	require.Equal(t, 0, Main(context.Background(), []string{"repl", "one", "two"}, env, nil))
	assert.Equal(t, "repl one two\n", stdout.String())
}

func TestCljCommandPropagatesExitStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Clj.Repl = "exit 5"

	env, _, _ := newTestEnv(cfg, nil)
	assert.Equal(t, 5, Main(context.Background(), []string{"repl"}, env, nil))
}

func TestInterruptExits130(t *testing.T) {
	cfg := config.Default()
	cfg.Clj.Test = "sleep 5"

	env, _, _ := newTestEnv(cfg, nil)
	sigs := make(chan os.Signal, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		sigs <- os.Interrupt
	}()

	start := time.Now()
	assert.Equal(t, ExitInterrupted, Main(context.Background(), []string{"test"}, env, sigs))
	assert.Less(t, time.Since(start), 4*time.Second, "interrupt did not stop the command promptly")
}
