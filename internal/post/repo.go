package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presshub/pkg/database"
	"presshub/pkg/models"
)

var ErrNotFound = errors.New("post not found")

const postColumns = `id, author_id, type, title, content, excerpt, status, slug, guid,
	date_local, date_gmt, modified_local, modified_gmt`

func scanPost(scanner interface{ Scan(dest ...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.AuthorID, &p.Type, &p.Title, &p.Content, &p.Excerpt,
		&p.Status, &p.Slug, &p.GUID,
		&p.DateLocal, &p.DateGMT, &p.ModifiedLocal, &p.ModifiedGMT,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// getPost loads a post row or reports ErrNotFound.
func getPost(ctx context.Context, db database.DBTX, id int64) (*models.Post, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+postColumns+` FROM posts WHERE id = ?
	`, id)

	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}
