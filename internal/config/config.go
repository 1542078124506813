package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultTestCommand = "clj -A:tee:clj-tests --config-file tests.local.edn --focus-meta :test/focused --watch"
	DefaultReplCommand = "clj -A:nREVL:test"
)

// DefaultAudioExtensions lists the file suffixes considered when locating a record's media file.
var DefaultAudioExtensions = []string{"mp3", "flac", "m4a", "ogg", "opus", "wav", "aac"}

// Config represents file- and environment-derived settings.
type Config struct {
	Clj   CljConfig   `toml:"clj"`
	Music MusicConfig `toml:"music"`

	FFmpegBin  string `toml:"-"`
	FFprobeBin string `toml:"-"`
	LogLevel   string `toml:"-"`
	Path       string `toml:"-"`
}

// CljConfig holds the command prefixes for the Clojure wrapper commands.
type CljConfig struct {
	Test string `toml:"test"`
	Repl string `toml:"repl"`
}

// MusicConfig locates the music database and library.
type MusicConfig struct {
	DB              string   `toml:"db"`
	Root            string   `toml:"root"`
	AudioExtensions []string `toml:"audio_extensions"`
}

// Default returns the settings used when neither a config file nor the environment say otherwise.
func Default() Config {
	return Config{
		Clj: CljConfig{
			Test: DefaultTestCommand,
			Repl: DefaultReplCommand,
		},
		Music: MusicConfig{
			AudioExtensions: append([]string(nil), DefaultAudioExtensions...),
		},
		FFmpegBin:  "ffmpeg",
		FFprobeBin: "ffprobe",
	}
}

// Load reads .env (if present), the TOML config file (if present) and the environment.
// Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	path := Path()
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}

	if v := strings.TrimSpace(os.Getenv("MUSIC_DB")); v != "" {
		cfg.Music.DB = v
	}
	if v := strings.TrimSpace(os.Getenv("MUSIC_ROOT")); v != "" {
		cfg.Music.Root = v
	}
	if v := strings.TrimSpace(os.Getenv("FFMPEG_BIN")); v != "" {
		cfg.FFmpegBin = v
	}
	if v := strings.TrimSpace(os.Getenv("FFPROBE_BIN")); v != "" {
		cfg.FFprobeBin = v
	}
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))

	cfg.Music.DB = expandHome(cfg.Music.DB)
	cfg.Music.Root = expandHome(cfg.Music.Root)

	return cfg, nil
}

// LoadFile parses the TOML file at path on top of Default.
// A missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	cfg.Path = path
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config file %q: %w", path, err)
	}

	if strings.TrimSpace(cfg.Clj.Test) == "" {
		cfg.Clj.Test = DefaultTestCommand
	}
	if strings.TrimSpace(cfg.Clj.Repl) == "" {
		cfg.Clj.Repl = DefaultReplCommand
	}
	if len(cfg.Music.AudioExtensions) == 0 {
		cfg.Music.AudioExtensions = append([]string(nil), DefaultAudioExtensions...)
	}

	return cfg, nil
}

// Path returns the config file location.
// CMDS_CONFIG wins, then ./cmds.toml, then ~/.config/cmds/config.toml.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("CMDS_CONFIG")); v != "" {
		return v
	}

	if _, err := os.Stat("cmds.toml"); err == nil {
		return "cmds.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "cmds.toml"
	}

	return filepath.Join(home, ".config", "cmds", "config.toml")
}

// RequireMusic validates the settings the music commands depend on.
func (c Config) RequireMusic() error {
	if c.Music.DB == "" {
		return errors.New("MUSIC_DB is required (path to the music database JSON file)")
	}
	if c.Music.Root == "" {
		return nil
	}
	if !filepath.IsAbs(c.Music.Root) {
		return fmt.Errorf("MUSIC_ROOT must be an absolute path: %q", c.Music.Root)
	}
	info, err := os.Stat(c.Music.Root)
	if err != nil {
		return fmt.Errorf("MUSIC_ROOT %q is not accessible: %w", c.Music.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("MUSIC_ROOT %q is not a directory", c.Music.Root)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
