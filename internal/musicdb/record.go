package musicdb

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
)

// Record is one entry of the music database: an arbitrary JSON object.
type Record map[string]any

// TagKeys are the record keys written as container metadata when a record has no "tags" object.
var TagKeys = []string{"title", "artist", "album", "album_artist", "genre", "date", "track", "disc", "comment", "composer"}

// ID returns the record's "id" rendered as a string.
func (r Record) ID() string {
	s, _ := valueString(r["id"])
	return s
}

// Path returns the media file recorded under "path" or "file", if any.
func (r Record) Path() string {
	for _, key := range []string{"path", "file"} {
		if s, ok := valueString(r[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// Tags returns the metadata the record wants written to its media file.
// Keys are lower-cased; empty values are dropped.
func (r Record) Tags() map[string]string {
	out := make(map[string]string)
	if nested, ok := r["tags"].(map[string]any); ok {
		for k, v := range nested {
			if s, ok := valueString(v); ok && s != "" {
				out[strings.ToLower(k)] = s
			}
		}
		return out
	}
	for _, k := range TagKeys {
		if s, ok := valueString(r[k]); ok && s != "" {
			out[k] = s
		}
	}
	return out
}

// valueString renders a decoded JSON value the way it would compare against a plain item string.
func valueString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case *big.Int:
		return t.String(), true
	case json.Number:
		return numberString(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// numberString keeps integers digit for digit and renders other numbers like float64 would.
func numberString(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
