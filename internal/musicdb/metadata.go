package musicdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// Metadata is what ffprobe reports about a media file.
// The typed fields cover what the tools read; Raw keeps the full report for printing.
type Metadata struct {
	File    string   `json:"file"`
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams,omitempty"`

	Raw map[string]any `json:"-"`
}

// MarshalJSON prints the complete ffprobe report when one was decoded.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.Raw == nil {
		type plain Metadata
		return json.Marshal(plain(m))
	}
	out := make(map[string]any, len(m.Raw)+1)
	for k, v := range m.Raw {
		out[k] = v
	}
	out["file"] = m.File
	return json.Marshal(out)
}

// Format is ffprobe's container section.
type Format struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration,omitempty"`
	Size       string            `json:"size,omitempty"`
	BitRate    string            `json:"bit_rate,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Stream is one entry of ffprobe's streams section.
type Stream struct {
	Index      int               `json:"index"`
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	SampleRate string            `json:"sample_rate,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Metadata probes the media file of rec with ffprobe.
func (db *DB) Metadata(ctx context.Context, rec Record) (Metadata, error) {
	file, err := db.Locate(rec)
	if err != nil {
		return Metadata{}, err
	}
	if db.opts.Exec == nil {
		return Metadata{}, fmt.Errorf("probe %s: no executor configured", file)
	}

	out, err := db.opts.Exec.Output(ctx, db.opts.FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		file,
	)
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s: %w", file, err)
	}

	md := Metadata{File: file}
	if err := json.Unmarshal(out, &md); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output for %s: %w", file, err)
	}
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&md.Raw); err != nil {
		return Metadata{}, fmt.Errorf("decode ffprobe output for %s: %w", file, err)
	}
	md.File = file
	return md, nil
}

// CurrentTags reads the tags embedded in file without a subprocess.
// Files without readable tags yield an empty map.
func CurrentTags(file string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string]string)
	m, err := tag.ReadFrom(f)
	if err != nil {
		// untagged or unsupported container: everything counts as a change
		return out, nil
	}

	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("title", m.Title())
	set("artist", m.Artist())
	set("album", m.Album())
	set("album_artist", m.AlbumArtist())
	set("genre", m.Genre())
	set("composer", m.Composer())
	set("comment", m.Comment())
	if y := m.Year(); y > 0 {
		set("date", strconv.Itoa(y))
	}
	if n, _ := m.Track(); n > 0 {
		set("track", strconv.Itoa(n))
	}
	if n, _ := m.Disc(); n > 0 {
		set("disc", strconv.Itoa(n))
	}
	return out, nil
}
