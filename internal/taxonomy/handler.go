package taxonomy

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"presshub/pkg/models"
)

type Handler struct {
	DB *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/categories", h.listCategories)
	r.POST("/categories", h.createCategory)
	r.PUT("/categories/:id/parent", h.updateParent)
	r.GET("/tags", h.listTags)
}

func (h *Handler) listCategories(c *gin.Context) {
	items, err := ListByTaxonomy(c.Request.Context(), h.DB, models.TaxonomyCategory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listTags(c *gin.Context) {
	items, err := ListByTaxonomy(c.Request.Context(), h.DB, models.TaxonomyTag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createCategoryReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    int64  `json:"parent_id"`
}

func (h *Handler) createCategory(c *gin.Context) {
	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cat, err := CreateCategory(c.Request.Context(), h.DB, req.Name, req.Description, req.ParentID)
	switch {
	case errors.Is(err, ErrInvalidParent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent category"})
		return
	case errors.Is(err, ErrCategoryExists):
		c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, cat)
}

type updateParentReq struct {
	ParentID int64 `json:"parent_id"`
}

func (h *Handler) updateParent(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateParentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	err := UpdateCategoryParent(c.Request.Context(), h.DB, id, req.ParentID)
	switch {
	case errors.Is(err, ErrInvalidParent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent category"})
		return
	case errors.Is(err, ErrInvalidCategory):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func parseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
