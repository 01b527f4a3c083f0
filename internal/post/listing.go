package post

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"presshub/internal/meta"
	"presshub/pkg/models"
)

type ListQuery struct {
	Search       string // keyword in title/content
	Status       string // empty hides trash, shows everything else
	AuthorID     int64
	CategoryID   int64
	CategorySlug string
	YearMonth    string // "2024-03"
	Slug         string
	Page         int
	PerPage      int
	OrderBy      string // date|modified|title; default date
	Order        string // asc|desc; default desc
}

// Row is one listing entry, the post row enriched with everything the
// admin table renders.
type Row struct {
	models.Post
	AuthorName       string `json:"author_name"`
	CategoryNames    string `json:"category_names"`
	TagNames         string `json:"tag_names"`
	FeaturedImageURL string `json:"featured_image_url"`
	Subtitle         string `json:"subtitle"`
	Format           string `json:"format"`
	AudioStatus      string `json:"audio_status"`
	AudioURL         string `json:"audio_url"`
	CommentCount     int64  `json:"comment_count"`
}

type MonthCount struct {
	Month string `json:"month"` // "2024-03"
	Count int64  `json:"count"`
}

// List returns one page of enriched rows plus the unpaged total.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Row, int, error) {
	countSQL, countArgs := buildListSQL(q, true)
	var total int
	if err := s.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan: %w", err)
	}

	listSQL, listArgs := buildListSQL(q, false)
	rows, err := s.DB.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, q.PerPage)
	for rows.Next() {
		var (
			r           Row
			authorName  sql.NullString
			catNames    sql.NullString
			tagNames    sql.NullString
			imageURL    sql.NullString
			subtitle    sql.NullString
			format      sql.NullString
			audioStatus sql.NullString
			audioURL    sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.AuthorID, &r.Type, &r.Title, &r.Content, &r.Excerpt,
			&r.Status, &r.Slug, &r.GUID,
			&r.DateLocal, &r.DateGMT, &r.ModifiedLocal, &r.ModifiedGMT,
			&authorName, &catNames, &tagNames, &imageURL,
			&subtitle, &format, &audioStatus, &audioURL,
			&r.CommentCount,
		); err != nil {
			return nil, 0, fmt.Errorf("list scan: %w", err)
		}
		r.AuthorName = authorName.String
		r.CategoryNames = catNames.String
		r.TagNames = tagNames.String
		r.FeaturedImageURL = imageURL.String
		r.Subtitle = subtitle.String
		r.Format = format.String
		r.AudioStatus = audioStatus.String
		r.AudioURL = audioURL.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// buildListSQL builds either the COUNT(*) or the enriched SELECT. Enrichment
// runs as correlated subqueries so the page stays one query.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT p.id, p.author_id, p.type, p.title, p.content, p.excerpt,
			p.status, p.slug, p.guid,
			p.date_local, p.date_gmt, p.modified_local, p.modified_gmt,
			(SELECT display_name FROM users WHERE users.id = p.author_id),
			(SELECT GROUP_CONCAT(t.name, ', ')
				FROM term_relationships tr
				JOIN term_taxonomy tt ON tt.id = tr.term_taxonomy_id
				JOIN terms t ON t.id = tt.term_id
				WHERE tr.post_id = p.id AND tt.taxonomy = 'category'),
			(SELECT GROUP_CONCAT(t.name, ', ')
				FROM term_relationships tr
				JOIN term_taxonomy tt ON tt.id = tr.term_taxonomy_id
				JOIN terms t ON t.id = tt.term_id
				WHERE tr.post_id = p.id AND tt.taxonomy = 'post_tag'),
			(SELECT a.guid FROM posts a
				WHERE a.type = 'attachment' AND CAST(a.id AS TEXT) = (
					SELECT meta_value FROM post_meta
					WHERE post_id = p.id AND meta_key = '` + string(meta.KeyFeaturedImage) + `'
				)),
			(SELECT subtitle FROM post_extras WHERE post_id = p.id),
			(SELECT format FROM post_extras WHERE post_id = p.id),
			(SELECT audio_status FROM post_extras WHERE post_id = p.id),
			(SELECT audio_url FROM post_extras WHERE post_id = p.id),
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = p.id)
		FROM posts p
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM posts p`
	}

	where := []string{"p.type = ?"}
	args := []any{models.TypePost}

	if strings.TrimSpace(q.Status) != "" {
		where = append(where, "p.status = ?")
		args = append(args, strings.TrimSpace(q.Status))
	} else {
		// trash only shows up when asked for by name
		where = append(where, "p.status != ?")
		args = append(args, models.StatusTrash)
	}

	if kw := strings.TrimSpace(q.Search); kw != "" {
		where = append(where, "(LOWER(p.title) LIKE ? OR LOWER(p.content) LIKE ?)")
		like := "%" + strings.ToLower(kw) + "%"
		args = append(args, like, like)
	}

	if q.AuthorID > 0 {
		where = append(where, "p.author_id = ?")
		args = append(args, q.AuthorID)
	}

	if q.CategoryID > 0 {
		where = append(where, `p.id IN (
			SELECT tr.post_id FROM term_relationships tr
			JOIN term_taxonomy tt ON tt.id = tr.term_taxonomy_id
			WHERE tt.id = ? AND tt.taxonomy = 'category'
		)`)
		args = append(args, q.CategoryID)
	}

	if cs := strings.TrimSpace(q.CategorySlug); cs != "" {
		where = append(where, `p.id IN (
			SELECT tr.post_id FROM term_relationships tr
			JOIN term_taxonomy tt ON tt.id = tr.term_taxonomy_id
			JOIN terms t ON t.id = tt.term_id
			WHERE t.slug = ? AND tt.taxonomy = 'category'
		)`)
		args = append(args, cs)
	}

	if ym := strings.TrimSpace(q.YearMonth); ym != "" {
		where = append(where, "strftime('%Y-%m', p.date_local) = ?")
		args = append(args, ym)
	}

	if slug := strings.TrimSpace(q.Slug); slug != "" {
		where = append(where, "p.slug = ?")
		args = append(args, slug)
	}

	sqlStr := baseSelect + " WHERE " + strings.Join(where, " AND ")

	if !countOnly {
		orderCol := "p.date_local"
		switch q.OrderBy {
		case "modified":
			orderCol = "p.modified_local"
		case "title":
			orderCol = "p.title"
		}
		dir := "DESC"
		if strings.EqualFold(q.Order, "asc") {
			dir = "ASC"
		}
		sqlStr += " ORDER BY " + orderCol + " " + dir + ", p.id " + dir

		perPage := q.PerPage
		if perPage <= 0 || perPage > 100 {
			perPage = 20
		}
		page := q.Page
		if page < 1 {
			page = 1
		}
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, perPage, (page-1)*perPage)
	}

	return sqlStr, args
}

// MonthCounts is the archive dropdown histogram: posts per civil month,
// newest first, trash excluded.
func (s *Service) MonthCounts(ctx context.Context) ([]MonthCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT strftime('%Y-%m', date_local) AS month, COUNT(*)
		FROM posts
		WHERE type = ? AND status != ?
		GROUP BY month
		ORDER BY month DESC
	`, models.TypePost, models.StatusTrash)
	if err != nil {
		return nil, fmt.Errorf("month counts: %w", err)
	}
	defer rows.Close()

	out := make([]MonthCount, 0)
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
