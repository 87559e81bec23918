package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRSSRoutes registers feed ingestion endpoints.
func RegisterRSSRoutes(r *gin.Engine, ingester FeedIngester) {
	r.POST("/api/library/:user_id/ingest", handleIngestFeed(ingester))
}

// IngestRequest names the feed to ingest.
type IngestRequest struct {
	FeedURL string `json:"feed_url" binding:"required"`
	Count   int    `json:"count" binding:"gte=0"`
}

// handleIngestFeed fetches a feed into the user's library and reports counts.
func handleIngestFeed(ingester FeedIngester) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := ingester.Ingest(c.Request.Context(), c.Param("user_id"), req.FeedURL, req.Count)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to ingest feed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
