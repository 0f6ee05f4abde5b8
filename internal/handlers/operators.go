package handlers

import (
	"errors"
	"net/http"

	"mobiremote/internal/models"
	"mobiremote/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest creates an API account. Role is honoured only when an
// admin registers someone; the first account is always admin.
type RegisterRequest struct {
	Username string      `json:"username" binding:"required" example:"night-shift"`
	Password string      `json:"password" binding:"required" example:"correct horse"`
	Role     models.Role `json:"role" example:"operator"`
}

type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Register operator
// @Description  Open while the controller has no accounts (the first one becomes admin); afterwards an admin bearer token is required.
// @Tags         operators
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Account"
// @Success      201   {object}  models.Operator
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	// a bad or missing token just means an anonymous caller here
	var by models.Identity
	if token, ok := bearerToken(c); ok {
		by, _ = h.services.Operators.Verify(token)
	}

	op, err := h.services.Operators.Register(c.Request.Context(), by, req.Username, req.Password, req.Role)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, op)
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOperatorExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errRegister, "operator_register_failed", err, "username", req.Username)
	}
}

// @Summary      Issue access token
// @Tags         operators
// @Accept       json
// @Produce      json
// @Param        body  body      TokenRequest  true  "Credentials"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/token [post]
func (h *Handler) issueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	token, err := h.services.Operators.SignIn(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrBadCredentials) {
		if h.log != nil {
			h.log.Infow("operator_sign_in_refused", "username", req.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errBadCredentials})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSignIn, "operator_sign_in_failed", err, "username", req.Username)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
