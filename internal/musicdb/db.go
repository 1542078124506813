// Package musicdb resolves items of the personal music database and
// inspects or tags their media files through ffprobe and ffmpeg.
//
// The database is a JSON file holding either an array of objects or one
// object per line. Every object should carry an "id"; the media file is
// taken from "path"/"file" or found under the library root by id.
package musicdb

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/itchyny/gojq"
)

// ErrNotFound is returned when a record's media file cannot be located.
var ErrNotFound = errors.New("media file not found")

// Executor runs an external tool and returns its standard output.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Options configures a DB.
type Options struct {
	Root       string
	Extensions []string
	FFmpeg     string
	FFprobe    string
	Exec       Executor
	Out        io.Writer
}

// DB is a loaded music database.
type DB struct {
	records []Record
	opts    Options
}

// New wraps already-decoded records.
func New(records []Record, opts Options) *DB {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.FFprobe == "" {
		opts.FFprobe = "ffprobe"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &DB{records: records, opts: opts}
}

// Open loads the database file at path.
func Open(path string, opts Options) (*DB, error) {
	records, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(records, opts), nil
}

// Load reads a JSON array of objects or a stream of JSON objects from path.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open music db %q: %w", path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode music db %q: %w", path, err)
	}
	return records, nil
}

// Decode reads records from r.
func Decode(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()
	if first == '[' {
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// Select returns the records for which filter yields id.
// filter is a jq expression evaluated against each record; any emitted value
// equal to id (compared as a string) selects the record.
func (db *DB) Select(id, filter string) ([]Record, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", filter, err)
	}

	var selected []Record
	for _, rec := range db.records {
		ok, err := matches(code, rec, id)
		if err != nil {
			return nil, fmt.Errorf("filter %q on record %q: %w", filter, rec.ID(), err)
		}
		if ok {
			selected = append(selected, rec)
		}
	}
	return selected, nil
}

func matches(code *gojq.Code, rec Record, id string) (bool, error) {
	iter := code.Run(map[string]any(rec))
	for {
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				return false, nil
			}
			return false, err
		}
		if s, ok := valueString(v); ok && s == id {
			return true, nil
		}
	}
}

// Locate returns the media file for rec.
func (db *DB) Locate(rec Record) (string, error) {
	if p := rec.Path(); p != "" {
		if !filepath.IsAbs(p) && db.opts.Root != "" {
			p = filepath.Join(db.opts.Root, p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: record %q: %v", ErrNotFound, rec.ID(), err)
		}
		return p, nil
	}

	id := rec.ID()
	if id == "" {
		return "", fmt.Errorf("%w: record has no id or path", ErrNotFound)
	}
	if db.opts.Root == "" {
		return "", fmt.Errorf("%w: record %q has no path and MUSIC_ROOT is not set", ErrNotFound, id)
	}

	pattern := "**/" + escapeGlob(id) + ".*"
	found, err := doublestar.Glob(os.DirFS(db.opts.Root), pattern)
	if err != nil {
		return "", fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(found)

	for _, m := range found {
		if !db.isAudio(m) {
			continue
		}
		full := filepath.Join(db.opts.Root, filepath.FromSlash(m))
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			return full, nil
		}
	}
	return "", fmt.Errorf("%w: no audio file named %q under %s", ErrNotFound, id, db.opts.Root)
}

func (db *DB) isAudio(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if len(db.opts.Extensions) == 0 {
		return ext != ""
	}
	for _, e := range db.opts.Extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
