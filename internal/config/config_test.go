package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultTestCommand, cfg.Clj.Test)
	assert.Equal(t, DefaultReplCommand, cfg.Clj.Repl)
	assert.Equal(t, DefaultAudioExtensions, cfg.Music.AudioExtensions)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, "ffprobe", cfg.FFprobeBin)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmds.toml")
	content := `
[clj]
repl = "clj -M:dev"

[music]
db = "/srv/music/db.json"
root = "/srv/music"
audio_extensions = ["flac"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "clj -M:dev", cfg.Clj.Repl)
	assert.Equal(t, DefaultTestCommand, cfg.Clj.Test, "test command keeps its default")
	assert.Equal(t, "/srv/music/db.json", cfg.Music.DB)
	assert.Equal(t, "/srv/music", cfg.Music.Root)
	assert.Equal(t, []string{"flac"}, cfg.Music.AudioExtensions)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmds.toml")
	require.NoError(t, os.WriteFile(path, []byte("[clj\ntest = "), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cmds.toml")
	require.NoError(t, os.WriteFile(path, []byte("[music]\ndb = \"/from/file.json\"\n"), 0o644))

	t.Setenv("CMDS_CONFIG", path)
	t.Setenv("MUSIC_DB", "/from/env.json")
	t.Setenv("MUSIC_ROOT", dir)
	t.Setenv("FFMPEG_BIN", "/opt/ffmpeg")
	t.Setenv("FFPROBE_BIN", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/env.json", cfg.Music.DB)
	assert.Equal(t, dir, cfg.Music.Root)
	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, "ffprobe", cfg.FFprobeBin)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestRequireMusic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		cfg  MusicConfig
		ok   bool
	}{
		{"db only", MusicConfig{DB: "db.json"}, true},
		{"db and root", MusicConfig{DB: "db.json", Root: dir}, true},
		{"missing db", MusicConfig{Root: dir}, false},
		{"relative root", MusicConfig{DB: "db.json", Root: "music"}, false},
		{"root is file", MusicConfig{DB: "db.json", Root: file}, false},
		{"root missing", MusicConfig{DB: "db.json", Root: filepath.Join(dir, "gone")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{Music: tt.cfg}.RequireMusic()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
