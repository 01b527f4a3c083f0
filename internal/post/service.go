// Package post implements the publishing lifecycle: create, update,
// quick edit, trash, restore and hard delete, each inside one transaction,
// plus the read-side listing projection.
package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"presshub/internal/extras"
	"presshub/internal/meta"
	"presshub/internal/schedule"
	"presshub/internal/slug"
	"presshub/internal/taxonomy"
	"presshub/pkg/models"
)

var ErrBadStatus = errors.New("invalid status")

type Service struct {
	DB       *sql.DB
	Resolver *schedule.Resolver
}

func NewService(db *sql.DB, resolver *schedule.Resolver) *Service {
	return &Service{DB: db, Resolver: resolver}
}

type CreateInput struct {
	AuthorID        int64
	Title           string
	Content         string
	Excerpt         string
	Status          string // publish|draft|pending; empty defaults to draft
	Slug            string
	CategoryIDs     []int64
	TagNames        []string
	FeaturedImageID int64 // 0 means none
	Extras          extras.Patch
	ScheduledAt     string // empty means not scheduled
}

type CreateResult struct {
	ID     int64  `json:"id"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// Create inserts a post with its taxonomy, metadata and extras in one
// transaction. A schedule resolving strictly in the future promotes the
// status to future and the timestamp pair carries the schedule, not now.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	var out CreateResult

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	if !editableStatus(status) {
		return out, fmt.Errorf("%w: %q", ErrBadStatus, in.Status)
	}

	now := s.Resolver.Now()
	dates := now
	if in.ScheduledAt != "" {
		z, future, err := s.Resolver.Resolve(in.ScheduledAt)
		if err != nil {
			return out, err
		}
		if future {
			status = models.StatusFuture
		}
		dates = z
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	base := in.Slug
	if base == "" {
		base = in.Title
	}
	postSlug, err := slug.EnsureUnique(ctx, tx, slug.Make(base), models.TypePost, 0)
	if err != nil {
		return out, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (author_id, type, title, content, excerpt, status, slug,
			date_local, date_gmt, modified_local, modified_gmt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.AuthorID, models.TypePost, in.Title, in.Content, in.Excerpt, status, postSlug,
		dates.LocalString(), dates.UTCString(), now.LocalString(), now.UTCString())
	if err != nil {
		return out, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return out, fmt.Errorf("last insert id: %w", err)
	}

	// audit copy of what the caller actually asked for
	if in.ScheduledAt != "" {
		if err := meta.Set(ctx, tx, id, meta.KeyScheduledAt, in.ScheduledAt); err != nil {
			return out, err
		}
	}

	if err := taxonomy.ValidateCategoryIDs(ctx, tx, in.CategoryIDs); err != nil {
		return out, err
	}
	if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyCategory, in.CategoryIDs); err != nil {
		return out, err
	}

	tagIDs, err := resolveTagNames(ctx, tx, in.TagNames)
	if err != nil {
		return out, err
	}
	if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyTag, tagIDs); err != nil {
		return out, err
	}

	if in.FeaturedImageID > 0 {
		if err := meta.Set(ctx, tx, id, meta.KeyFeaturedImage, in.FeaturedImageID); err != nil {
			return out, err
		}
	}

	if err := extras.Upsert(ctx, tx, id, in.Extras, now.UTCString()); err != nil {
		return out, err
	}

	if err := tx.Commit(); err != nil {
		return out, fmt.Errorf("commit: %w", err)
	}

	out = CreateResult{ID: id, Slug: postSlug, Status: status}
	return out, nil
}

// UpdateInput carries the full-update payload. nil pointers mean "field not
// supplied, leave it alone". The two Clear flags encode an explicit JSON
// null, which is distinct from omission.
type UpdateInput struct {
	Title   *string
	Content *string
	Excerpt *string
	Status  *string
	Slug    *string

	CategoryIDs *[]int64
	TagNames    *[]string

	FeaturedImageID    *int64
	ClearFeaturedImage bool

	Extras *extras.Patch

	ScheduledAt   *string
	ClearSchedule bool
}

// Update applies a partial edit. Schedule semantics: an explicit null resets
// the timestamps to now and drops the audit meta; a string re-resolves and,
// when the instant is in the future, overrides any supplied status with
// future, otherwise the supplied status (or publish) stands.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := getPost(ctx, tx, id)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Content != nil {
		add("content", *in.Content)
	}
	if in.Excerpt != nil {
		add("excerpt", *in.Excerpt)
	}
	if in.Slug != nil {
		uniq, err := slug.EnsureUnique(ctx, tx, slug.Make(*in.Slug), p.Type, id)
		if err != nil {
			return err
		}
		add("slug", uniq)
	}

	status := ""
	if in.Status != nil {
		status = *in.Status
	}

	now := s.Resolver.Now()
	switch {
	case in.ClearSchedule:
		add("date_local", now.LocalString())
		add("date_gmt", now.UTCString())
		if err := meta.Set(ctx, tx, id, meta.KeyScheduledAt, nil); err != nil {
			return err
		}
	case in.ScheduledAt != nil:
		z, future, err := s.Resolver.Resolve(*in.ScheduledAt)
		if err != nil {
			return err
		}
		if future {
			status = models.StatusFuture
		} else if status == "" {
			status = models.StatusPublish
		}
		add("date_local", z.LocalString())
		add("date_gmt", z.UTCString())
		if err := meta.Set(ctx, tx, id, meta.KeyScheduledAt, *in.ScheduledAt); err != nil {
			return err
		}
	}

	if status != "" {
		if !models.ValidStatus(status) {
			return fmt.Errorf("%w: %q", ErrBadStatus, status)
		}
		add("status", status)
	}

	add("modified_local", now.LocalString())
	add("modified_gmt", now.UTCString())

	args = append(args, id)
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?
	`, args...); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if in.CategoryIDs != nil {
		if err := taxonomy.ValidateCategoryIDs(ctx, tx, *in.CategoryIDs); err != nil {
			return err
		}
		if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyCategory, *in.CategoryIDs); err != nil {
			return err
		}
	}
	if in.TagNames != nil {
		tagIDs, err := resolveTagNames(ctx, tx, *in.TagNames)
		if err != nil {
			return err
		}
		if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyTag, tagIDs); err != nil {
			return err
		}
	}

	switch {
	case in.ClearFeaturedImage:
		if err := meta.Set(ctx, tx, id, meta.KeyFeaturedImage, nil); err != nil {
			return err
		}
	case in.FeaturedImageID != nil && *in.FeaturedImageID > 0:
		if err := meta.Set(ctx, tx, id, meta.KeyFeaturedImage, *in.FeaturedImageID); err != nil {
			return err
		}
	}

	if in.Extras != nil && !in.Extras.Empty() {
		if err := extras.Upsert(ctx, tx, id, *in.Extras, now.UTCString()); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QuickEditInput is the narrow edit path: no schedule, no extras, no
// on-the-fly tag creation — tag bindings arrive pre-resolved.
type QuickEditInput struct {
	Title          *string
	Slug           *string
	Status         *string // publish|draft|pending only
	CategoryIDs    *[]int64
	TagTaxonomyIDs *[]int64
}

func (s *Service) QuickEdit(ctx context.Context, id int64, in QuickEditInput) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := getPost(ctx, tx, id)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if in.Title != nil {
		add("title", *in.Title)
	}

	// slug only regenerates when explicitly supplied, or when a title
	// arrives for a post that never had a slug
	switch {
	case in.Slug != nil:
		uniq, err := slug.EnsureUnique(ctx, tx, slug.Make(*in.Slug), p.Type, id)
		if err != nil {
			return err
		}
		add("slug", uniq)
	case in.Title != nil && p.Slug == "":
		uniq, err := slug.EnsureUnique(ctx, tx, slug.Make(*in.Title), p.Type, id)
		if err != nil {
			return err
		}
		add("slug", uniq)
	}

	if in.Status != nil {
		if !editableStatus(*in.Status) {
			return fmt.Errorf("%w: %q", ErrBadStatus, *in.Status)
		}
		add("status", *in.Status)
	}

	now := s.Resolver.Now()
	add("modified_local", now.LocalString())
	add("modified_gmt", now.UTCString())

	args = append(args, id)
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?
	`, args...); err != nil {
		return fmt.Errorf("quick edit post: %w", err)
	}

	if in.CategoryIDs != nil {
		if err := taxonomy.ValidateCategoryIDs(ctx, tx, *in.CategoryIDs); err != nil {
			return err
		}
		if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyCategory, *in.CategoryIDs); err != nil {
			return err
		}
	}
	if in.TagTaxonomyIDs != nil {
		if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyTag, *in.TagTaxonomyIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Trash moves a post to the trash, remembering its status and when it was
// trashed so Restore can undo it. Already-trashed posts are a no-op.
func (s *Service) Trash(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := getPost(ctx, tx, id)
	if err != nil {
		return err
	}
	if p.Status == models.StatusTrash {
		return nil
	}

	if err := meta.Set(ctx, tx, id, meta.KeyTrashStatus, p.Status); err != nil {
		return err
	}
	now := s.Resolver.Now()
	if err := meta.Set(ctx, tx, id, meta.KeyTrashTime, now.UTC.Unix()); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET status = ?, modified_local = ?, modified_gmt = ? WHERE id = ?
	`, models.StatusTrash, now.LocalString(), now.UTCString(), id); err != nil {
		return fmt.Errorf("trash post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Restore brings a trashed post back to its pre-trash status (draft when the
// bookkeeping meta is missing) and drops the trash bookkeeping.
func (s *Service) Restore(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := getPost(ctx, tx, id); err != nil {
		return err
	}

	prev, ok, err := meta.Get(ctx, tx, id, meta.KeyTrashStatus)
	if err != nil {
		return err
	}
	if !ok || !models.ValidStatus(prev) || prev == models.StatusTrash {
		prev = models.StatusDraft
	}

	now := s.Resolver.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET status = ?, modified_local = ?, modified_gmt = ? WHERE id = ?
	`, prev, now.LocalString(), now.UTCString(), id); err != nil {
		return fmt.Errorf("restore post: %w", err)
	}

	if err := meta.Set(ctx, tx, id, meta.KeyTrashStatus, nil); err != nil {
		return err
	}
	if err := meta.Set(ctx, tx, id, meta.KeyTrashTime, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete erases the post and every dependent row: relationships (with their
// counts recomputed), metadata, the extras row and comments. Deleting an
// absent id is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// replacing with the empty set detaches every edge and keeps the
	// denormalized counts honest
	if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyCategory, nil); err != nil {
		return err
	}
	if err := taxonomy.ReplaceRelationships(ctx, tx, id, models.TaxonomyTag, nil); err != nil {
		return err
	}

	if err := meta.DeleteAll(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_extras WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete extras: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get reads a single post row.
func (s *Service) Get(ctx context.Context, id int64) (*models.Post, error) {
	return getPost(ctx, s.DB, id)
}

// editableStatus is the status set callers may request directly; future and
// trash are only ever assigned by the engine itself.
func editableStatus(s string) bool {
	switch s {
	case models.StatusPublish, models.StatusDraft, models.StatusPending:
		return true
	}
	return false
}

func resolveTagNames(ctx context.Context, tx *sql.Tx, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := taxonomy.GetOrCreateTagID(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
