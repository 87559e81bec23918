package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digestbot/digest"
	"digestbot/types"
)

// RegisterDigestRoutes registers digest run and enqueue endpoints.
func RegisterDigestRoutes(r *gin.Engine, runner DigestRunner, queue JobQueue) {
	g := r.Group("/api/digests")
	g.POST("", handleRunDigest(runner))
	g.POST("/enqueue", handleEnqueueDigest(queue))
}

// handleRunDigest builds the digest synchronously and returns the outcome.
func handleRunDigest(runner DigestRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var job types.DigestJob
		if err := c.ShouldBindJSON(&job); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		out := runner.Run(c.Request.Context(), job)
		status := http.StatusOK
		switch {
		case out.Status == digest.StatusCompleted:
			status = http.StatusCreated
		case out.Failed():
			status = http.StatusInternalServerError
		}
		c.JSON(status, out)
	}
}

// handleEnqueueDigest publishes the job and returns 202 Accepted.
func handleEnqueueDigest(queue JobQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		if queue == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
			return
		}

		var job types.DigestJob
		if err := c.ShouldBindJSON(&job); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := queue.Dispatch(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to enqueue digest: " + err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "user_id": job.UserID})
	}
}
