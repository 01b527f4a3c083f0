// Package taxonomy keeps category/tag relationships and their denormalized
// counts consistent. All writes are expected to run on the caller's
// transaction; standalone calls against *sql.DB work the same way.
package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"presshub/internal/slug"
	"presshub/pkg/database"
	"presshub/pkg/models"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidParent   = errors.New("invalid parent category")
	ErrCategoryExists  = errors.New("category already exists")
)

// normalizeIDs de-duplicates and drops non-positive ids, preserving order.
func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ReplaceRelationships swaps the full relationship set of a post for one
// taxonomy and recomputes counts for every binding touched on either side.
func ReplaceRelationships(ctx context.Context, db database.DBTX, postID int64, taxonomy string, ids []int64) error {
	// current set, so removed bindings get recounted too
	rows, err := db.QueryContext(ctx, `
		SELECT tr.term_taxonomy_id
		FROM term_relationships tr
		JOIN term_taxonomy tt ON tt.id = tr.term_taxonomy_id
		WHERE tr.post_id = ? AND tt.taxonomy = ?
	`, postID, taxonomy)
	if err != nil {
		return fmt.Errorf("read relationships: %w", err)
	}
	var previous []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan relationship: %w", err)
		}
		previous = append(previous, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}

	target, err := existingIDs(ctx, db, taxonomy, normalizeIDs(ids))
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		DELETE FROM term_relationships
		WHERE post_id = ? AND term_taxonomy_id IN (
			SELECT id FROM term_taxonomy WHERE taxonomy = ?
		)
	`, postID, taxonomy); err != nil {
		return fmt.Errorf("delete relationships: %w", err)
	}

	if len(target) > 0 {
		values := make([]string, 0, len(target))
		args := make([]any, 0, len(target)*2)
		for _, id := range target {
			values = append(values, "(?, ?)")
			args = append(args, postID, id)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO term_relationships (post_id, term_taxonomy_id)
			VALUES `+strings.Join(values, ", "), args...); err != nil {
			return fmt.Errorf("insert relationships: %w", err)
		}
	}

	union := normalizeIDs(append(append([]int64{}, previous...), target...))
	return recount(ctx, db, union)
}

// existingIDs keeps only ids that are live bindings of the named taxonomy,
// preserving order. Unknown ids never become dangling edges.
func existingIDs(ctx context.Context, db database.DBTX, taxonomy string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := []any{taxonomy}
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM term_taxonomy
		WHERE taxonomy = ? AND id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("filter bindings: %w", err)
	}
	defer rows.Close()

	known := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan binding id: %w", err)
		}
		known[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	out := make([]int64, 0, len(known))
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// recount rewrites the denormalized count of each binding from the live
// relationship rows.
func recount(ctx context.Context, db database.DBTX, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := db.ExecContext(ctx, `
		UPDATE term_taxonomy
		SET count = (
			SELECT COUNT(*) FROM term_relationships
			WHERE term_relationships.term_taxonomy_id = term_taxonomy.id
		)
		WHERE id IN (`+placeholders(len(ids))+`)
	`, args...); err != nil {
		return fmt.Errorf("recount terms: %w", err)
	}
	return nil
}

// GetOrCreateTagID resolves a tag name to its term_taxonomy id, creating the
// term and the tag binding on demand. Creation is insert-or-ignore keyed on
// the unique slug index followed by a re-select, so two concurrent callers
// introducing the same name converge on one row.
func GetOrCreateTagID(ctx context.Context, db database.DBTX, name string) (int64, error) {
	termSlug := slug.Make(name)

	if _, err := db.ExecContext(ctx, `
		INSERT INTO terms (name, slug) VALUES (?, ?)
		ON CONFLICT(slug) DO NOTHING
	`, strings.TrimSpace(name), termSlug); err != nil {
		return 0, fmt.Errorf("insert term: %w", err)
	}

	var termID int64
	if err := db.QueryRowContext(ctx, `
		SELECT id FROM terms WHERE slug = ?
	`, termSlug).Scan(&termID); err != nil {
		return 0, fmt.Errorf("select term: %w", err)
	}

	// count starts at zero; the next ReplaceRelationships that attaches the
	// tag corrects it
	if _, err := db.ExecContext(ctx, `
		INSERT INTO term_taxonomy (term_id, taxonomy, count) VALUES (?, ?, 0)
		ON CONFLICT(term_id, taxonomy) DO NOTHING
	`, termID, models.TaxonomyTag); err != nil {
		return 0, fmt.Errorf("insert tag taxonomy: %w", err)
	}

	var ttID int64
	if err := db.QueryRowContext(ctx, `
		SELECT id FROM term_taxonomy WHERE term_id = ? AND taxonomy = ?
	`, termID, models.TaxonomyTag).Scan(&ttID); err != nil {
		return 0, fmt.Errorf("select tag taxonomy: %w", err)
	}
	return ttID, nil
}

// ValidateCategoryIDs rejects the set if any id is not an existing category
// binding. Runs before any row is written.
func ValidateCategoryIDs(ctx context.Context, db database.DBTX, ids []int64) error {
	target := normalizeIDs(ids)
	if len(target) == 0 {
		return nil
	}
	args := []any{models.TaxonomyCategory}
	for _, id := range target {
		args = append(args, id)
	}

	var n int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM term_taxonomy
		WHERE taxonomy = ? AND id IN (`+placeholders(len(target))+`)
	`, args...).Scan(&n); err != nil {
		return fmt.Errorf("validate categories: %w", err)
	}
	if n != len(target) {
		return ErrInvalidCategory
	}
	return nil
}

// CreateCategory registers a new category binding. parentID 0 means top
// level; anything else must reference an existing category.
func CreateCategory(ctx context.Context, db database.DBTX, name, description string, parentID int64) (*models.TermTaxonomy, error) {
	if parentID != 0 {
		if err := ValidateCategoryIDs(ctx, db, []int64{parentID}); err != nil {
			return nil, ErrInvalidParent
		}
	}

	termSlug := slug.Make(name)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO terms (name, slug) VALUES (?, ?)
		ON CONFLICT(slug) DO NOTHING
	`, strings.TrimSpace(name), termSlug); err != nil {
		return nil, fmt.Errorf("insert term: %w", err)
	}

	var termID int64
	if err := db.QueryRowContext(ctx, `
		SELECT id FROM terms WHERE slug = ?
	`, termSlug).Scan(&termID); err != nil {
		return nil, fmt.Errorf("select term: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO term_taxonomy (term_id, taxonomy, description, parent_id, count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(term_id, taxonomy) DO NOTHING
	`, termID, models.TaxonomyCategory, description, parentID)
	if err != nil {
		return nil, fmt.Errorf("insert category taxonomy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCategoryExists
	}

	return getBinding(ctx, db, termID, models.TaxonomyCategory)
}

// UpdateCategoryParent re-parents a category. Self-parenting and missing
// parents are rejected before anything is written.
func UpdateCategoryParent(ctx context.Context, db database.DBTX, ttID, parentID int64) error {
	if parentID == ttID {
		return ErrInvalidParent
	}
	if parentID != 0 {
		if err := ValidateCategoryIDs(ctx, db, []int64{parentID}); err != nil {
			return ErrInvalidParent
		}
	}

	res, err := db.ExecContext(ctx, `
		UPDATE term_taxonomy SET parent_id = ?
		WHERE id = ? AND taxonomy = ?
	`, parentID, ttID, models.TaxonomyCategory)
	if err != nil {
		return fmt.Errorf("update category parent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidCategory
	}
	return nil
}

func getBinding(ctx context.Context, db database.DBTX, termID int64, taxonomy string) (*models.TermTaxonomy, error) {
	row := db.QueryRowContext(ctx, `
		SELECT tt.id, tt.term_id, t.name, t.slug, tt.taxonomy, tt.description, tt.parent_id, tt.count
		FROM term_taxonomy tt
		JOIN terms t ON t.id = tt.term_id
		WHERE tt.term_id = ? AND tt.taxonomy = ?
	`, termID, taxonomy)

	var tt models.TermTaxonomy
	if err := row.Scan(&tt.ID, &tt.TermID, &tt.Name, &tt.Slug, &tt.Taxonomy, &tt.Description, &tt.ParentID, &tt.Count); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	return &tt, nil
}

// ListByTaxonomy returns all bindings of one taxonomy ordered by term name.
func ListByTaxonomy(ctx context.Context, db database.DBTX, taxonomy string) ([]models.TermTaxonomy, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tt.id, tt.term_id, t.name, t.slug, tt.taxonomy, tt.description, tt.parent_id, tt.count
		FROM term_taxonomy tt
		JOIN terms t ON t.id = tt.term_id
		WHERE tt.taxonomy = ?
		ORDER BY t.name ASC
	`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list taxonomy: %w", err)
	}
	defer rows.Close()

	out := make([]models.TermTaxonomy, 0)
	for rows.Next() {
		var tt models.TermTaxonomy
		if err := rows.Scan(&tt.ID, &tt.TermID, &tt.Name, &tt.Slug, &tt.Taxonomy, &tt.Description, &tt.ParentID, &tt.Count); err != nil {
			return nil, fmt.Errorf("scan binding row: %w", err)
		}
		out = append(out, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
