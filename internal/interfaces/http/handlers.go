package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	"github.com/garyjia/mission-orders/pkg/utils"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Handlers contains HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// MeResponse is the authenticated user with their current roles
type MeResponse struct {
	User  *entity.User    `json:"user,omitempty"`
	ID    string          `json:"id"`
	Roles []workflow.Role `json:"roles"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	respondOK(c, http.StatusOK, response)
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	actor := actorFrom(c)

	resp := MeResponse{ID: actor.ID, Roles: actor.Roles.Slice()}
	user, err := h.services.Users.GetByID(c.Request.Context(), actor.ID)
	switch {
	case err == nil:
		resp.User = user
	case errors.Is(err, port.ErrNotFound):
		// token subject without a profile row
	default:
		h.respondError(c, "Get profile", err)
		return
	}

	respondOK(c, http.StatusOK, resp)
}

// ProfileRequest is the body of PUT /api/me
type ProfileRequest struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

// UpdateMe handles PUT /api/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile := port.ProfileUpdate{
		FullName:   utils.SanitizeString(req.FullName),
		Phone:      utils.SanitizeString(req.Phone),
		Department: utils.SanitizeString(req.Department),
	}
	if profile.FullName == "" {
		h.respondError(c, "Update profile", workflow.NewValidationError("full_name", "is required"))
		return
	}

	actor := actorFrom(c)
	ctx := c.Request.Context()
	if err := h.services.Users.UpdateProfile(ctx, actor.ID, profile); err != nil {
		h.respondError(c, "Update profile", err)
		return
	}
	user, err := h.services.Users.GetByID(ctx, actor.ID)
	if err != nil {
		h.respondError(c, "Update profile", err)
		return
	}

	h.logger.Info("Profile updated", "user_id", actor.ID)
	respondOK(c, http.StatusOK, MeResponse{User: user, ID: actor.ID, Roles: actor.Roles.Slice()})
}

// bindOptionalJSON decodes the request body into v; an empty body is accepted
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parseDate accepts a calendar date or an RFC3339 timestamp
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, workflow.NewValidationError(field, "expected YYYY-MM-DD or RFC3339")
	}
	return t.UTC(), nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, workflow.NewValidationError(key, "must be an integer")
	}
	return n, nil
}
