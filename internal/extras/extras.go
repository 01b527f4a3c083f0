// Package extras manages the single supplementary row each post owns:
// presentation fields plus narration-audio pipeline state. Upserts are
// partial; a column is only written when the patch carries it.
package extras

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"presshub/internal/meta"
	"presshub/pkg/database"
	"presshub/pkg/models"
)

// GalleryItem accepts either a bare id or an {id,url} object on the wire.
type GalleryItem struct {
	ID  int64  `json:"id"`
	URL string `json:"url,omitempty"`
}

func (g *GalleryItem) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var id int64
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("gallery item: %w", err)
		}
		*g = GalleryItem{ID: id}
		return nil
	}

	// alias avoids recursing into this method
	type item GalleryItem
	var it item
	if err := json.Unmarshal(b, &it); err != nil {
		return fmt.Errorf("gallery item: %w", err)
	}
	*g = GalleryItem(it)
	return nil
}

// Patch carries the optional extras fields. nil means "not supplied, leave
// the column untouched". Gallery distinguishes absent (nil pointer) from
// supplied-empty (cleared to NULL).
type Patch struct {
	Subtitle      *string        `json:"subtitle"`
	Highlight     *bool          `json:"highlight"`
	Format        *string        `json:"format"`
	Gallery       *[]GalleryItem `json:"gallery"`
	VideoEmbed    *string        `json:"video_embed"`
	AudioStatus   *string        `json:"audio_status"`
	AudioURL      *string        `json:"audio_url"`
	AudioLang     *string        `json:"audio_lang"`
	AudioChars    *int64         `json:"audio_chars"`
	AudioDuration *float64       `json:"audio_duration"`
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.Subtitle == nil && p.Highlight == nil && p.Format == nil &&
		p.Gallery == nil && p.VideoEmbed == nil && !p.hasAudio()
}

func (p Patch) hasAudio() bool {
	return p.AudioStatus != nil || p.AudioURL != nil || p.AudioLang != nil ||
		p.AudioChars != nil || p.AudioDuration != nil
}

// normalizeGallery renders the gallery as a JSON array of {id,url} objects,
// or nil when the supplied list is empty.
func normalizeGallery(items []GalleryItem) (any, error) {
	if len(items) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal gallery: %w", err)
	}
	return string(b), nil
}

// Upsert writes the supplied fields in one statement: a full row on first
// write, a column-by-column update on conflict. Audio columns only join the
// update clause when the patch carries audio fields, so an ordinary content
// edit never clobbers in-flight narration state; audio_updated_at is stamped
// whenever they do. now is the caller's UTC timestamp string.
// Metadata mirrors of subtitle/format/audio fields are written afterwards.
func Upsert(ctx context.Context, db database.DBTX, postID int64, p Patch, now string) error {
	type col struct {
		name string
		val  any
	}

	var cols []col
	if p.Subtitle != nil {
		cols = append(cols, col{"subtitle", *p.Subtitle})
	}
	if p.Highlight != nil {
		cols = append(cols, col{"highlight", *p.Highlight})
	}
	if p.Format != nil {
		cols = append(cols, col{"format", *p.Format})
	}
	if p.Gallery != nil {
		gallery, err := normalizeGallery(*p.Gallery)
		if err != nil {
			return err
		}
		cols = append(cols, col{"gallery", gallery})
	}
	if p.VideoEmbed != nil {
		cols = append(cols, col{"video_embed", *p.VideoEmbed})
	}
	if p.AudioStatus != nil {
		cols = append(cols, col{"audio_status", *p.AudioStatus})
	}
	if p.AudioURL != nil {
		cols = append(cols, col{"audio_url", *p.AudioURL})
	}
	if p.AudioLang != nil {
		cols = append(cols, col{"audio_lang", *p.AudioLang})
	}
	if p.AudioChars != nil {
		cols = append(cols, col{"audio_chars", *p.AudioChars})
	}
	if p.AudioDuration != nil {
		cols = append(cols, col{"audio_duration", *p.AudioDuration})
	}
	if p.hasAudio() {
		cols = append(cols, col{"audio_updated_at", now})
	}
	cols = append(cols, col{"updated_at", now})

	names := []string{"post_id"}
	placeholders := []string{"?"}
	args := []any{postID}
	var sets []string
	for _, c := range cols {
		names = append(names, c.name)
		placeholders = append(placeholders, "?")
		args = append(args, c.val)
		sets = append(sets, c.name+" = excluded."+c.name)
	}

	sqlStr := `
		INSERT INTO post_extras (` + strings.Join(names, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT(post_id) DO UPDATE SET ` + strings.Join(sets, ", ")

	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert extras: %w", err)
	}

	return mirrorMeta(ctx, db, postID, p)
}

// mirrorMeta keeps the generic metadata table in step with the extras row
// for consumers that read attributes through post_meta.
func mirrorMeta(ctx context.Context, db database.DBTX, postID int64, p Patch) error {
	if p.Subtitle != nil {
		if err := meta.Set(ctx, db, postID, meta.KeySubtitle, *p.Subtitle); err != nil {
			return err
		}
	}
	if p.Format != nil {
		if err := meta.Set(ctx, db, postID, meta.KeyFormat, *p.Format); err != nil {
			return err
		}
	}
	if p.AudioStatus != nil {
		if err := meta.Set(ctx, db, postID, meta.KeyAudioStatus, *p.AudioStatus); err != nil {
			return err
		}
	}
	if p.AudioURL != nil {
		if err := meta.Set(ctx, db, postID, meta.KeyAudioURL, *p.AudioURL); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the extras row, or nil when the post never had one.
func Get(ctx context.Context, db database.DBTX, postID int64) (*models.PostExtras, error) {
	row := db.QueryRowContext(ctx, `
		SELECT post_id, subtitle, highlight, format, gallery, video_embed,
		       audio_status, audio_url, audio_lang, audio_chars, audio_duration,
		       audio_updated_at, updated_at
		FROM post_extras
		WHERE post_id = ?
	`, postID)

	var (
		e         models.PostExtras
		highlight sql.NullBool
		chars     sql.NullInt64
		duration  sql.NullFloat64
		strs      [7]sql.NullString // subtitle, format, gallery, video, audio_status, audio_url, audio_lang
		audioAt   sql.NullString
	)

	err := row.Scan(
		&e.PostID, &strs[0], &highlight, &strs[1], &strs[2], &strs[3],
		&strs[4], &strs[5], &strs[6], &chars, &duration,
		&audioAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get extras: %w", err)
	}

	set := func(dst **string, v sql.NullString) {
		if v.Valid {
			s := v.String
			*dst = &s
		}
	}
	set(&e.Subtitle, strs[0])
	set(&e.Format, strs[1])
	set(&e.Gallery, strs[2])
	set(&e.VideoEmbed, strs[3])
	set(&e.AudioStatus, strs[4])
	set(&e.AudioURL, strs[5])
	set(&e.AudioLang, strs[6])
	set(&e.AudioUpdatedAt, audioAt)

	if highlight.Valid {
		b := highlight.Bool
		e.Highlight = &b
	}
	if chars.Valid {
		n := chars.Int64
		e.AudioChars = &n
	}
	if duration.Valid {
		f := duration.Float64
		e.AudioDuration = &f
	}

	return &e, nil
}
