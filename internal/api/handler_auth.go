package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmanager/internal/service/auth"
)

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	userID, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "register", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "userId": userID})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"userId":    res.UserID,
		"firstName": res.FirstName,
		"lastName":  res.LastName,
		"token":     res.Token,
	})
}

// Logout handles POST /logout
func (h *Handler) Logout(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.UserID); err != nil {
		h.respondError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
