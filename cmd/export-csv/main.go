// export-csv dumps the posts and comments tables to CSV for offline
// analysis or migration into another system.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"presshub/pkg/database"
)

func main() {
	var (
		postsOut    = flag.String("posts", "data/posts.csv", "output CSV path for posts")
		commentsOut = flag.String("comments", "data/comments.csv", "output CSV path for comments")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportPosts(ctx, db, *postsOut); err != nil {
		log.Fatalf("export posts failed: %v", err)
	}
	if err := exportComments(ctx, db, *commentsOut); err != nil {
		log.Fatalf("export comments failed: %v", err)
	}

	log.Printf("exported posts to %s and comments to %s", *postsOut, *commentsOut)
}

func exportPosts(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "author_id", "type", "title", "status", "slug",
		"date_local", "date_gmt", "modified_local", "modified_gmt",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, author_id, type, title, status, slug,
               date_local, date_gmt, modified_local, modified_gmt
        FROM posts
        ORDER BY date_local DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			authorID int64
			fields   [8]string
		)
		if err := rows.Scan(&id, &authorID,
			&fields[0], &fields[1], &fields[2], &fields[3],
			&fields[4], &fields[5], &fields[6], &fields[7]); err != nil {
			return err
		}

		record := append([]string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(authorID, 10),
		}, fields[:]...)
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportComments(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "post_id", "author_name", "content", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, post_id, author_name, content, created_at
        FROM comments
        ORDER BY created_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			postID     int64
			authorName string
			content    string
			createdAt  string
		)
		if err := rows.Scan(&id, &postID, &authorName, &content, &createdAt); err != nil {
			return err
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(postID, 10),
			authorName,
			content,
			createdAt,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
