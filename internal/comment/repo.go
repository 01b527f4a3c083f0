package comment

import (
	"context"
	"database/sql"
	"fmt"

	"presshub/internal/schedule"
	"presshub/pkg/models"
)

type Repo struct {
	DB       *sql.DB
	Resolver *schedule.Resolver
}

func NewRepo(db *sql.DB, resolver *schedule.Resolver) *Repo {
	return &Repo{DB: db, Resolver: resolver}
}

func (r *Repo) Create(ctx context.Context, postID int64, authorName, content string) (*models.Comment, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO comments (post_id, author_name, content, created_at)
		VALUES (?, ?, ?, ?)
	`, postID, authorName, content, r.Resolver.Now().LocalString())
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, post_id, author_name, content, created_at
		FROM comments
		WHERE id = ?
	`, id)

	var cm models.Comment
	if err := row.Scan(&cm.ID, &cm.PostID, &cm.AuthorName, &cm.Content, &cm.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	return &cm, nil
}

func (r *Repo) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]models.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, post_id, author_name, content, created_at
		FROM comments
		WHERE post_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0, limit)
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.AuthorName, &cm.Content, &cm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM comments
		WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// postExists guards comment creation against dangling post ids. Trashed
// posts do not take new comments.
func (r *Repo) postExists(ctx context.Context, postID int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts WHERE id = ? AND type = ? AND status != ?
	`, postID, models.TypePost, models.StatusTrash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check post: %w", err)
	}
	return n > 0, nil
}
