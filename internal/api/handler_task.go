package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/service/task"
)

// ListTasks handles GET /tasks?userId=&q=&date=
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := h.owner(c, c.Query("userId"))
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), userID, c.Query("q"), c.Query("date"))
	if err != nil {
		h.respondError(c, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tasks": newTaskList(tasks, h.opts.Location)})
}

// CreateTask handles POST /tasks
func (h *Handler) CreateTask(c *gin.Context) {
	var req task.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}
	userID, ok := h.owner(c, req.UserID)
	if !ok {
		return
	}
	req.UserID = userID

	id, err := h.tasks.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "create task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// UpdateTaskStatus handles PATCH /tasks/:id
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.tasks.UpdateStatus(c.Request.Context(), id, req.Status, c.GetString(ctxUserID)); err != nil {
		h.respondError(c, "update status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TaskActivity handles GET /tasks/:id/activity
func (h *Handler) TaskActivity(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	entries, err := h.tasks.Activity(c.Request.Context(), id, c.GetString(ctxUserID))
	if err != nil {
		h.respondError(c, "task activity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activity": newActivityList(entries)})
}

// Board handles GET /board?userId=
func (h *Handler) Board(c *gin.Context) {
	userID, ok := h.owner(c, c.Query("userId"))
	if !ok {
		return
	}

	b, err := h.tasks.Board(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "board", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "board": newBoardJSON(b, h.opts.Location)})
}

// owner resolves the user a request acts for. An authenticated request
// defaults to its token subject and may not name anyone else.
func (h *Handler) owner(c *gin.Context, requested string) (string, bool) {
	subject := c.GetString(ctxUserID)
	switch {
	case subject == "":
		return requested, true
	case requested == "":
		return subject, true
	case requested != subject:
		h.respondError(c, "authorize", errSubjectMismatch)
		return "", false
	}
	return requested, true
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}
