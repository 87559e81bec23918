package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"digestbot/library"
	"digestbot/types"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// RegisterArticleRoutes registers library item routes.
func RegisterArticleRoutes(r *gin.Engine, lib Searcher) {
	r.GET("/api/library/:user_id/search", handleSearchLibrary(lib))
}

// handleSearchLibrary previews what a digest selector query would return.
// GET /api/library/:user_id/search?q=in:inbox&limit=20
func handleSearchLibrary(lib Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultSearchLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxSearchLimit)
		}

		items, err := lib.Search(c.Request.Context(), c.Param("user_id"), types.SearchOptions{
			Limit: limit,
			Query: c.Query("q"),
		})
		if errors.Is(err, library.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search library: " + err.Error()})
			return
		}

		if items == nil {
			items = []types.LibraryItem{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
	}
}
