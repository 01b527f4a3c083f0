// Package slug generates URL-safe, collision-free post identifiers.
package slug

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"presshub/pkg/database"
)

const (
	// MaxLen bounds every emitted slug, suffix included.
	MaxLen = 200

	fallback = "post"
)

var (
	wordSeparatorRe   = regexp.MustCompile(`[\s_/]+`)
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
)

// Make normalizes free text into a slug token:
// lowercase, separators to dashes, strip the rest, collapse and trim dashes,
// truncate to MaxLen. Empty input falls back to "post".
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return fallback
	}
	return truncate(s, MaxLen)
}

// EnsureUnique probes for a non-trashed post of the same type already holding
// the slug and suffixes -2, -3, ... until free. excludeID skips the post being
// updated; pass 0 on create. A trashed post's slug is considered free.
func EnsureUnique(ctx context.Context, db database.DBTX, base, postType string, excludeID int64) (string, error) {
	if base == "" {
		base = fallback
	}
	base = truncate(base, MaxLen)

	candidate := base
	for n := 2; ; n++ {
		var id int64
		err := db.QueryRowContext(ctx, `
			SELECT id FROM posts
			WHERE slug = ? AND type = ? AND status != 'trash' AND id != ?
			LIMIT 1
		`, candidate, postType, excludeID).Scan(&id)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe slug: %w", err)
		}

		suffix := "-" + strconv.Itoa(n)
		candidate = strings.TrimRight(truncate(base, MaxLen-len(suffix)), "-") + suffix
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
