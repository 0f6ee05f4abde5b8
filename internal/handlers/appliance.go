package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mobiremote/internal/command"
	"mobiremote/internal/controller"
	"mobiremote/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errGetStatus       = "failed to load status"
	errSubmit          = "failed to queue command"
	errBusy            = "appliance busy, retry after the current command"
	errUnknownCommand  = "unknown command or empty payload"
	errInvalidBodyPref = "invalid body: "
	errStopped         = "controller is shutting down"
	errAdminOnly       = "admin role required"
	errFieldTooLong    = "broker fields are limited to 30 bytes"
	errRegister        = "failed to register operator"
	errSignIn          = "failed to issue token"
	errBadCredentials  = "invalid credentials"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// CommandRequest mirrors one MQTT command message: the topic suffix after
// cmnd/ and its payload.
type CommandRequest struct {
	// Allowed: target, power, status; inittemp and initpower need the admin role
	Command string `json:"command" binding:"required" example:"target"`
	Payload string `json:"payload" example:"8"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Appliance status
// @Tags         appliance
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/appliance/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	snap, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "appliance_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Submit command
// @Description  Same commands as the MQTT cmnd/ topics. Execution is asynchronous; 409 means one command is running and one is already waiting.
// @Tags         appliance
// @Accept       json
// @Produce      json
// @Param        body  body   CommandRequest  true  "Command"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/appliance/commands [post]
// @Security     BearerAuth
func (h *Handler) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	cmd := command.FromSuffix(strings.ToLower(strings.TrimSpace(req.Command)), req.Payload)
	cmd.Source = models.SourceHTTP
	if cmd.Kind == models.CommandInvalid {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownCommand})
		return
	}

	if !identity(c).Role.Permits(cmd.Kind) {
		c.JSON(http.StatusForbidden, gin.H{"error": cmd.Kind.String() + ": " + errAdminOnly})
		return
	}
	h.submit(c, cmd)
}

// BrokerRequest replaces the stored broker settings. Empty fields fall back
// to the configuration file.
type BrokerRequest struct {
	Server      string `json:"server" example:"broker.lan:1883"`
	User        string `json:"user"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix" example:"garage/cooler/"`
}

// @Summary      Provision broker settings
// @Description  Stored values override the configuration file from the next start. Admin only.
// @Tags         appliance
// @Accept       json
// @Produce      json
// @Param        body  body      BrokerRequest  true  "Broker settings"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/appliance/broker [put]
// @Security     BearerAuth
func (h *Handler) putBroker(c *gin.Context) {
	var req BrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	b := models.BrokerSettings{
		Server:      strings.TrimSpace(req.Server),
		User:        req.User,
		Password:    req.Password,
		TopicPrefix: strings.TrimSpace(req.TopicPrefix),
	}
	if !b.Fits() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errFieldTooLong})
		return
	}
	h.submit(c, models.Command{Kind: models.CommandProvisionBroker, Broker: b, Source: models.SourceHTTP})
}

// @Summary      Reset broker settings
// @Description  Clears the stored settings; the configuration file applies from the next start. Admin only.
// @Tags         appliance
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/appliance/broker [delete]
// @Security     BearerAuth
func (h *Handler) deleteBroker(c *gin.Context) {
	h.submit(c, models.Command{Kind: models.CommandResetConfig, Source: models.SourceHTTP})
}

func (h *Handler) submit(c *gin.Context, cmd models.Command) {
	err := h.commands.Submit(c.Request.Context(), cmd)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted, "command": cmd.String()})
	case errors.Is(err, controller.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": errBusy})
	case errors.Is(err, controller.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errStopped})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errSubmit, "appliance_submit_failed", err, "command", cmd.String())
	}
}
