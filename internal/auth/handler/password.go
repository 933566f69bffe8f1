package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/credentials"
)

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordLogin signs in against the list's stored password hash and mints
// a fully populated session token; no lazy resolution is needed because
// the record id is already in hand.
func (h *Handler) PasswordLogin(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	itemID, err := h.creds.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, err := h.sessions.ForItem(c.Request.Context(), req.Email, itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	if !h.issueSession(c, tok) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}

func (h *Handler) PasswordRegister(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	itemID, err := h.creds.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	tok, err := h.sessions.ForItem(c.Request.Context(), req.Email, itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	if !h.issueSession(c, tok) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
