package models

type Comment struct {
	ID         int64  `json:"id"`
	PostID     int64  `json:"post_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}
