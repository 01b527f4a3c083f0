package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"presshub/internal/extras"
	"presshub/internal/schedule"
	"presshub/internal/taxonomy"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/posts", h.list)
	r.GET("/posts/months", h.months)
	r.GET("/posts/:id", h.get)
	r.POST("/posts", h.create)
	r.PUT("/posts/:id", h.update)
	r.POST("/posts/:id/quick-edit", h.quickEdit)
	r.POST("/posts/:id/trash", h.trash)
	r.POST("/posts/:id/restore", h.restore)
	r.DELETE("/posts/:id", h.delete)
}

type createPostReq struct {
	AuthorID        int64        `json:"author_id"`
	Title           string       `json:"title" binding:"required"`
	Content         string       `json:"content"`
	Excerpt         string       `json:"excerpt"`
	Status          string       `json:"status"`
	Slug            string       `json:"slug"`
	CategoryIDs     []int64      `json:"category_ids"`
	Tags            []string     `json:"tags"`
	FeaturedImageID int64        `json:"featured_image_id"`
	Extras          extras.Patch `json:"extras"`
	ScheduledAt     string       `json:"scheduled_at"`
}

func (h *Handler) create(c *gin.Context) {
	var req createPostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Service.Create(c.Request.Context(), CreateInput{
		AuthorID:        req.AuthorID,
		Title:           req.Title,
		Content:         req.Content,
		Excerpt:         req.Excerpt,
		Status:          req.Status,
		Slug:            req.Slug,
		CategoryIDs:     req.CategoryIDs,
		TagNames:        req.Tags,
		FeaturedImageID: req.FeaturedImageID,
		Extras:          req.Extras,
		ScheduledAt:     req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// updatePostReq keeps "field: null" distinct from "field absent" for the two
// clearable fields by deferring their decode to raw JSON.
type updatePostReq struct {
	Title           *string         `json:"title"`
	Content         *string         `json:"content"`
	Excerpt         *string         `json:"excerpt"`
	Status          *string         `json:"status"`
	Slug            *string         `json:"slug"`
	CategoryIDs     *[]int64        `json:"category_ids"`
	Tags            *[]string       `json:"tags"`
	FeaturedImageID json.RawMessage `json:"featured_image_id"`
	Extras          *extras.Patch   `json:"extras"`
	ScheduledAt     json.RawMessage `json:"scheduled_at"`
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	in := UpdateInput{
		Title:       req.Title,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Status:      req.Status,
		Slug:        req.Slug,
		CategoryIDs: req.CategoryIDs,
		TagNames:    req.Tags,
		Extras:      req.Extras,
	}

	if len(req.FeaturedImageID) > 0 {
		if string(req.FeaturedImageID) == "null" {
			in.ClearFeaturedImage = true
		} else {
			var n int64
			if err := json.Unmarshal(req.FeaturedImageID, &n); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid featured_image_id"})
				return
			}
			in.FeaturedImageID = &n
		}
	}
	if len(req.ScheduledAt) > 0 {
		if string(req.ScheduledAt) == "null" {
			in.ClearSchedule = true
		} else {
			var ts string
			if err := json.Unmarshal(req.ScheduledAt, &ts); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
				return
			}
			in.ScheduledAt = &ts
		}
	}

	if err := h.Service.Update(c.Request.Context(), id, in); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type quickEditReq struct {
	Title       *string  `json:"title"`
	Slug        *string  `json:"slug"`
	Status      *string  `json:"status"`
	CategoryIDs *[]int64 `json:"category_ids"`
	TagIDs      *[]int64 `json:"tag_ids"`
}

func (h *Handler) quickEdit(c *gin.Context) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req quickEditReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	err := h.Service.QuickEdit(c.Request.Context(), id, QuickEditInput{
		Title:          req.Title,
		Slug:           req.Slug,
		Status:         req.Status,
		CategoryIDs:    req.CategoryIDs,
		TagTaxonomyIDs: req.TagIDs,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *Handler) trash(c *gin.Context) {
	h.lifecycle(c, h.Service.Trash, "trashed")
}

func (h *Handler) restore(c *gin.Context) {
	h.lifecycle(c, h.Service.Restore, "restored")
}

func (h *Handler) delete(c *gin.Context) {
	h.lifecycle(c, h.Service.Delete, "deleted")
}

func (h *Handler) lifecycle(c *gin.Context, op func(ctx context.Context, id int64) error, verb string) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": verb})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search:       c.Query("search"),
		Status:       c.Query("status"),
		AuthorID:     int64(parseInt(c.Query("author_id"), 0)),
		CategoryID:   int64(parseInt(c.Query("category_id"), 0)),
		CategorySlug: c.Query("category"),
		YearMonth:    c.Query("month"),
		Slug:         c.Query("slug"),
		Page:         parseInt(c.Query("page"), 1),
		PerPage:      parseInt(c.Query("per_page"), 20),
		OrderBy:      c.Query("order_by"),
		Order:        c.Query("order"),
	}

	items, total, err := h.Service.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     q.Page,
		"per_page": q.PerPage,
		"items":    items,
	})
}

func (h *Handler) months(c *gin.Context) {
	items, err := h.Service.MonthCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "months failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrBadStatus),
		errors.Is(err, schedule.ErrBadTimestamp),
		errors.Is(err, taxonomy.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

func parsePostID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
