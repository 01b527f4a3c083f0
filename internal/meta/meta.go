// Package meta is the generic per-post key/value side table. Writes follow a
// clear-then-set pattern so at most one live row exists per (post, key).
package meta

import (
	"context"
	"database/sql"
	"fmt"

	"presshub/pkg/database"
)

// Key is a registered metadata key. Callers never pass raw strings.
type Key string

const (
	KeyFeaturedImage Key = "featured_image_id"
	KeyScheduledAt   Key = "scheduled_at"
	KeyTrashStatus   Key = "trash_prev_status"
	KeyTrashTime     Key = "trash_time"

	// read-compatibility mirrors of the extras row
	KeySubtitle    Key = "subtitle"
	KeyFormat      Key = "format"
	KeyAudioStatus Key = "audio_status"
	KeyAudioURL    Key = "audio_url"
)

// Set deletes any existing row for (postID, key) and inserts a new one when
// value is non-nil. A nil value therefore clears the key.
func Set(ctx context.Context, db database.DBTX, postID int64, key Key, value any) error {
	if _, err := db.ExecContext(ctx, `
		DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?
	`, postID, string(key)); err != nil {
		return fmt.Errorf("clear meta %s: %w", key, err)
	}

	if value == nil {
		return nil
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
	`, postID, string(key), fmt.Sprint(value)); err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value and whether the key exists.
func Get(ctx context.Context, db database.DBTX, postID int64, key Key) (string, bool, error) {
	var value sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT meta_value FROM post_meta
		WHERE post_id = ? AND meta_key = ?
		LIMIT 1
	`, postID, string(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value.String, true, nil
}

// DeleteAll removes every metadata row for a post (hard delete path).
func DeleteAll(ctx context.Context, db database.DBTX, postID int64) error {
	if _, err := db.ExecContext(ctx, `
		DELETE FROM post_meta WHERE post_id = ?
	`, postID); err != nil {
		return fmt.Errorf("delete meta: %w", err)
	}
	return nil
}
