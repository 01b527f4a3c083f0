package models

// Post statuses. Trash is entered/left only via the lifecycle service;
// future is assigned when a schedule resolves strictly after now.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusTrash   = "trash"
	StatusFuture  = "future"
)

// Post types sharing the posts table.
const (
	TypePost       = "post"
	TypeAttachment = "attachment"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPublish, StatusDraft, StatusPending, StatusTrash, StatusFuture:
		return true
	}
	return false
}

type Post struct {
	ID            int64  `json:"id"`
	AuthorID      int64  `json:"author_id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
	Status        string `json:"status"`
	Slug          string `json:"slug"`
	GUID          string `json:"guid,omitempty"`
	DateLocal     string `json:"date_local"`
	DateGMT       string `json:"date_gmt"`
	ModifiedLocal string `json:"modified_local"`
	ModifiedGMT   string `json:"modified_gmt"`
}
