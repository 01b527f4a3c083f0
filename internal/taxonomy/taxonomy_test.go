package taxonomy

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presshub/pkg/database"
	"presshub/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// makeBinding inserts a term plus a binding with an explicit id so scenarios
// can reference fixed term-taxonomy ids.
func makeBinding(t *testing.T, db *sql.DB, ttID int64, name, taxonomy string) {
	t.Helper()

	res, err := db.Exec(`INSERT INTO terms (name, slug) VALUES (?, ?)`, name, name)
	require.NoError(t, err)
	termID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO term_taxonomy (id, term_id, taxonomy, count) VALUES (?, ?, ?, 0)
	`, ttID, termID, taxonomy)
	require.NoError(t, err)
}

func storedCount(t *testing.T, db *sql.DB, ttID int64) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.QueryRow(`SELECT count FROM term_taxonomy WHERE id = ?`, ttID).Scan(&n))
	return n
}

func liveCount(t *testing.T, db *sql.DB, ttID int64) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM term_relationships WHERE term_taxonomy_id = ?
	`, ttID).Scan(&n))
	return n
}

func postRelationships(t *testing.T, db *sql.DB, postID int64) []int64 {
	t.Helper()

	rows, err := db.Query(`
		SELECT term_taxonomy_id FROM term_relationships WHERE post_id = ? ORDER BY term_taxonomy_id
	`, postID)
	require.NoError(t, err)
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		out = append(out, id)
	}
	return out
}

func TestReplaceRelationshipsCountsMatchLiveRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	makeBinding(t, db, 7, "tech", models.TaxonomyCategory)

	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5, 7}))
	require.NoError(t, ReplaceRelationships(ctx, db, 43, models.TaxonomyCategory, []int64{7}))

	for _, ttID := range []int64{5, 7} {
		assert.Equal(t, liveCount(t, db, ttID), storedCount(t, db, ttID), "tt %d", ttID)
	}
	assert.Equal(t, int64(1), storedCount(t, db, 5))
	assert.Equal(t, int64(2), storedCount(t, db, 7))
}

func TestReplaceRelationshipsShrinkScenario(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	makeBinding(t, db, 7, "tech", models.TaxonomyCategory)

	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5, 7}))
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{7}))

	// removed binding recounted down, kept binding unchanged
	assert.Equal(t, int64(0), storedCount(t, db, 5))
	assert.Equal(t, int64(1), storedCount(t, db, 7))
	assert.Equal(t, []int64{7}, postRelationships(t, db, 42))
}

func TestReplaceRelationshipsEmptyTargetClears(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5}))
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, nil))

	assert.Empty(t, postRelationships(t, db, 42))
	assert.Equal(t, int64(0), storedCount(t, db, 5))
}

func TestReplaceRelationshipsNormalizesTarget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)

	// duplicates and junk ids are dropped before insert
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5, 5, 0, -3}))

	assert.Equal(t, []int64{5}, postRelationships(t, db, 42))
	assert.Equal(t, int64(1), storedCount(t, db, 5))
}

func TestReplaceRelationshipsDropsUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	makeBinding(t, db, 9, "golang", models.TaxonomyTag)

	// 999 does not exist and 9 belongs to the other taxonomy
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5, 999, 9}))

	assert.Equal(t, []int64{5}, postRelationships(t, db, 42))
}

func TestReplaceRelationshipsLeavesOtherTaxonomyAlone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	makeBinding(t, db, 9, "golang", models.TaxonomyTag)

	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, []int64{5}))
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyTag, []int64{9}))

	// replacing categories must not drop the tag edge
	require.NoError(t, ReplaceRelationships(ctx, db, 42, models.TaxonomyCategory, nil))

	assert.Equal(t, []int64{9}, postRelationships(t, db, 42))
	assert.Equal(t, int64(1), storedCount(t, db, 9))
}

func TestGetOrCreateTagID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id1, err := GetOrCreateTagID(ctx, db, "Slow Burn")
	require.NoError(t, err)
	assert.Positive(t, id1)

	// same name (any casing) resolves to the same binding
	id2, err := GetOrCreateTagID(ctx, db, "slow burn")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM terms WHERE slug = 'slow-burn'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetOrCreateTagIDReusesExistingTerm(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// term already exists as a category; registering the tag shares it
	cat, err := CreateCategory(ctx, db, "Culture", "", 0)
	require.NoError(t, err)

	tagID, err := GetOrCreateTagID(ctx, db, "Culture")
	require.NoError(t, err)
	assert.NotEqual(t, cat.ID, tagID)

	var termCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM terms WHERE slug = 'culture'`).Scan(&termCount))
	assert.Equal(t, 1, termCount)
}

func TestGetOrCreateTagIDStartsAtZeroCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := GetOrCreateTagID(ctx, db, "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(0), storedCount(t, db, id))

	// the first sync that attaches it corrects the count
	require.NoError(t, ReplaceRelationships(ctx, db, 1, models.TaxonomyTag, []int64{id}))
	assert.Equal(t, int64(1), storedCount(t, db, id))
}

func TestValidateCategoryIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	makeBinding(t, db, 5, "news", models.TaxonomyCategory)
	makeBinding(t, db, 9, "golang", models.TaxonomyTag)

	assert.NoError(t, ValidateCategoryIDs(ctx, db, []int64{5}))
	assert.NoError(t, ValidateCategoryIDs(ctx, db, nil))

	// nonexistent id
	assert.ErrorIs(t, ValidateCategoryIDs(ctx, db, []int64{5, 999}), ErrInvalidCategory)
	// tag binding is not a category
	assert.ErrorIs(t, ValidateCategoryIDs(ctx, db, []int64{9}), ErrInvalidCategory)
}

func TestCreateCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	parent, err := CreateCategory(ctx, db, "News", "top level", 0)
	require.NoError(t, err)
	assert.Equal(t, "news", parent.Slug)
	assert.Equal(t, int64(0), parent.ParentID)

	child, err := CreateCategory(ctx, db, "World News", "", parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, child.ParentID)
}

func TestCreateCategoryInvalidParent(t *testing.T) {
	db := newTestDB(t)

	_, err := CreateCategory(context.Background(), db, "Orphan", "", 12345)
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestCreateCategoryDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := CreateCategory(ctx, db, "News", "", 0)
	require.NoError(t, err)

	_, err = CreateCategory(ctx, db, "News", "", 0)
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestUpdateCategoryParent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := CreateCategory(ctx, db, "A", "", 0)
	require.NoError(t, err)
	b, err := CreateCategory(ctx, db, "B", "", 0)
	require.NoError(t, err)

	require.NoError(t, UpdateCategoryParent(ctx, db, b.ID, a.ID))

	cats, err := ListByTaxonomy(ctx, db, models.TaxonomyCategory)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, a.ID, cats[1].ParentID)

	// self-parenting rejected
	assert.ErrorIs(t, UpdateCategoryParent(ctx, db, a.ID, a.ID), ErrInvalidParent)
	// missing parent rejected
	assert.ErrorIs(t, UpdateCategoryParent(ctx, db, a.ID, 999), ErrInvalidParent)
}

func TestListByTaxonomy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := CreateCategory(ctx, db, "Zebra", "", 0)
	require.NoError(t, err)
	_, err = CreateCategory(ctx, db, "Alpha", "", 0)
	require.NoError(t, err)
	_, err = GetOrCreateTagID(ctx, db, "sometag")
	require.NoError(t, err)

	cats, err := ListByTaxonomy(ctx, db, models.TaxonomyCategory)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Alpha", cats[0].Name)
	assert.Equal(t, "Zebra", cats[1].Name)

	tags, err := ListByTaxonomy(ctx, db, models.TaxonomyTag)
	require.NoError(t, err)
	require.Len(t, tags, 1)
}
