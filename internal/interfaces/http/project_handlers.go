package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/mission-orders/internal/application/service"
)

// ProjectRequest is the body of the project create call
type ProjectRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	TotalBudget float64 `json:"total_budget"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

// ListProjects handles GET /api/projects
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.services.Projects.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "List projects", err)
		return
	}

	respondOK(c, http.StatusOK, projects)
}

// GetProject handles GET /api/projects/:id
func (h *Handlers) GetProject(c *gin.Context) {
	project, err := h.services.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Get project", err)
		return
	}

	respondOK(c, http.StatusOK, project)
}

// CreateProject handles POST /api/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	in := service.CreateProjectInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		TotalBudget: req.TotalBudget,
	}
	var err error
	if in.StartDate, err = optionalDate("start_date", req.StartDate); err != nil {
		h.respondError(c, "Create project", err)
		return
	}
	if in.EndDate, err = optionalDate("end_date", req.EndDate); err != nil {
		h.respondError(c, "Create project", err)
		return
	}

	project, err := h.services.Projects.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.respondError(c, "Create project", err)
		return
	}

	respondOK(c, http.StatusCreated, project)
}

func optionalDate(field, raw string) (*time.Time, error) {
	t, err := parseDate(field, raw)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
