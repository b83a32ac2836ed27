package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/service/auth"
	"taskmanager/internal/service/task"
	"taskmanager/pkg/logger"
)

var errSubjectMismatch = errors.New("token does not belong to this user")

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, task.ErrMissingData),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, task.ErrInvalidPriority),
		errors.Is(err, model.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, task.ErrForbidden),
		errors.Is(err, errSubjectMismatch):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTransitionNotAllowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err once and writes {ok:false,error}.
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), h.logger).Error(op+" failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}
