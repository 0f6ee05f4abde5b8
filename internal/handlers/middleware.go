package handlers

import (
	"net/http"
	"strings"

	"mobiremote/internal/models"

	"github.com/gin-gonic/gin"
)

const ctxIdentity = "identity"

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// authenticate stores the caller's identity for later handlers.
func (h *Handler) authenticate(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
		return
	}
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
		return
	}

	id, err := h.services.Operators.Verify(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(ctxIdentity, id)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	if identity(c).Role != models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAdminOnly})
		return
	}
	c.Next()
}

func identity(c *gin.Context) models.Identity {
	v, _ := c.Get(ctxIdentity)
	id, _ := v.(models.Identity)
	return id
}
