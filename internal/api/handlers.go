package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/routekit/sitemap/internal/storage"
)

type Handler struct {
	store storage.Store
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count,omitempty"`
}

func NewHandler(store storage.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "welcome"})
}

func (h *Handler) About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "a demo application for the sitemap extension"})
}

func (h *Handler) ListPosts(c *gin.Context) {
	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	posts, err := h.store.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  posts,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.store.GetPostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch post"})
		return
	}

	if post == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
