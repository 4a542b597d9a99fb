package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/directive"
	"github.com/lysyi3m/issue-comb/app/tasks"
)

func NewHandler(issueRepo database.IssueRepository, scheduler tasks.SchedulerInterface, version string) *Handler {
	return &Handler{
		issueRepo: issueRepo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if count, err := h.issueRepo.CountIssues(c.Request.Context()); err == nil {
		health["issues"] = count
	}

	if last := h.scheduler.LastRun(); last != nil {
		health["last_run_at"] = last.FinishedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIGetLastRun(c *gin.Context) {
	last := h.scheduler.LastRun()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":      last,
		"duration": last.Duration().String(),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if !h.scheduler.Trigger() {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "A run is already pending",
		})
		return
	}

	slog.Info("Run triggered via API", "client", c.ClientIP())

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Run scheduled",
	})
}

func (h *Handler) APIGetIssue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue id"})
		return
	}

	issue, err := h.issueRepo.GetIssue(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_issue", "issue", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if issue == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	response := issueResponse{Issue: issue}
	if block, err := directive.Extract(issue.BodyText()); err == nil {
		response.HasDirective = true
		response.Feed, _ = block.Directive.Feed()
	} else if !errors.Is(err, directive.ErrNotFound) {
		slog.Debug("Issue directive unreadable", "issue", id, "error", err)
	}

	c.JSON(http.StatusOK, response)
}
