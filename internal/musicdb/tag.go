package musicdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// TagOptions controls Tag.
type TagOptions struct {
	DryRun bool
}

// Change is one metadata field that differs between the file and its record.
type Change struct {
	Key  string
	From string
	To   string
}

// Plan is the set of changes Tag would apply to one file.
type Plan struct {
	ID      string
	File    string
	Tags    map[string]string
	Changes []Change
}

// PlanTag compares the tags of rec's media file with the tags the record wants.
func (db *DB) PlanTag(rec Record) (Plan, error) {
	file, err := db.Locate(rec)
	if err != nil {
		return Plan{}, err
	}

	current, err := CurrentTags(file)
	if err != nil {
		return Plan{}, err
	}

	want := rec.Tags()
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	plan := Plan{ID: rec.ID(), File: file, Tags: want}
	for _, k := range keys {
		if current[k] != want[k] {
			plan.Changes = append(plan.Changes, Change{Key: k, From: current[k], To: want[k]})
		}
	}
	return plan, nil
}

// Tag writes each record's tags into its media file with ffmpeg.
// Intended changes are always printed; with DryRun nothing is written.
func (db *DB) Tag(ctx context.Context, records []Record, opts TagOptions) error {
	var tagged, skipped int
	for _, rec := range records {
		plan, err := db.PlanTag(rec)
		if err != nil {
			return err
		}

		if len(plan.Changes) == 0 {
			slog.InfoContext(ctx, "already up to date", slog.String("id", plan.ID), slog.String("file", plan.File))
			skipped++
			continue
		}

		fmt.Fprintf(db.opts.Out, "%s\n", plan.File)
		for _, c := range plan.Changes {
			fmt.Fprintf(db.opts.Out, "  %s: %q -> %q\n", c.Key, c.From, c.To)
		}

		if opts.DryRun {
			slog.InfoContext(ctx, "dry-run: would tag", slog.String("file", plan.File), slog.Int("changes", len(plan.Changes)))
			continue
		}

		if err := db.writeTags(ctx, plan); err != nil {
			return err
		}
		tagged++
	}

	slog.DebugContext(ctx, "tagging complete",
		slog.Int("records", len(records)),
		slog.Int("tagged", tagged),
		slog.Int("skipped", skipped),
		slog.Bool("dry_run", opts.DryRun),
	)
	return nil
}

func (db *DB) writeTags(ctx context.Context, plan Plan) error {
	if db.opts.Exec == nil {
		return fmt.Errorf("tag %s: no executor configured", plan.File)
	}

	orig, err := os.Stat(plan.File)
	if err != nil {
		return fmt.Errorf("stat %s: %w", plan.File, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(plan.File), ".mtag-*"+filepath.Ext(plan.File))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := []string{"-v", "error", "-y", "-i", plan.File, "-map", "0", "-c", "copy", "-map_metadata", "0"}
	keys := make([]string, 0, len(plan.Tags))
	for k := range plan.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", k, plan.Tags[k]))
	}
	args = append(args, tmpPath)

	if _, err := db.opts.Exec.Output(ctx, db.opts.FFmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg %s: %w", plan.File, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("stat tagged output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty file for %s", plan.File)
	}

	// the temp file is created 0600; the library file keeps its own mode
	if err := os.Chmod(tmpPath, orig.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod tagged output: %w", err)
	}
	if err := os.Rename(tmpPath, plan.File); err != nil {
		return fmt.Errorf("replace %s: %w", plan.File, err)
	}

	slog.InfoContext(ctx, "tagged",
		slog.String("file", plan.File),
		slog.Int("changes", len(plan.Changes)),
		slog.String("size", humanBytes(info.Size())),
	)
	return nil
}

func humanBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(1024), 0
	for m := n / 1024; m >= 1024 && exp < 4; m /= 1024 {
		div *= 1024
		exp++
	}
	value := float64(n) / float64(div)
	unit := []string{"KB", "MB", "GB", "TB", "PB"}[exp]
	return fmt.Sprintf("%.1f %s", value, unit)
}
