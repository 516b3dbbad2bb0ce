package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/application/service"
	appwf "github.com/garyjia/mission-orders/internal/application/workflow"
	"github.com/garyjia/mission-orders/internal/domain/expense"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// MissionRequest is the body of mission create and update calls
type MissionRequest struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Destination    string        `json:"destination"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	ProjectID      string        `json:"project_id"`
	Expenses       expense.Input `json:"expenses"`
	ParticipantIDs []string      `json:"participant_ids"`
	Submit         bool          `json:"submit"`
}

// ActionRequest is the body of approve and reject calls
type ActionRequest struct {
	Comment        string `json:"comment"`
	ExpectedStatus string `json:"expected_status"`
}

// PaymentRequest is the body of the payment call
type PaymentRequest struct {
	ActualAmount    float64 `json:"actual_amount"`
	PaymentMethod   string  `json:"payment_method"`
	PaymentProofURL string  `json:"payment_proof_url"`
}

// CommentRequest is the body of the comment call
type CommentRequest struct {
	Comment string `json:"comment"`
}

// MissionDetailResponse is a mission detail with the caller's permissions
type MissionDetailResponse struct {
	*service.MissionDetail
	CanAct           bool               `json:"can_act"`
	CanEdit          bool               `json:"can_edit"`
	AvailableActions []workflow.Trigger `json:"available_actions"`
}

func (r MissionRequest) toInput() (service.MissionInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return service.MissionInput{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return service.MissionInput{}, err
	}
	return service.MissionInput{
		Title:          r.Title,
		Description:    r.Description,
		Destination:    r.Destination,
		StartDate:      start,
		EndDate:        end,
		ProjectID:      r.ProjectID,
		Expenses:       r.Expenses,
		ParticipantIDs: r.ParticipantIDs,
	}, nil
}

// CreateMission handles POST /api/missions
func (h *Handlers) CreateMission(c *gin.Context) {
	var req MissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.respondError(c, "Create mission", err)
		return
	}

	mission, err := h.services.Missions.Create(c.Request.Context(), actorFrom(c), service.CreateMissionInput{
		MissionInput: in,
		Submit:       req.Submit,
	})
	if err != nil {
		if mission != nil {
			h.respondErrorWith(c, "Submit new mission", err, mission)
			return
		}
		h.respondError(c, "Create mission", err)
		return
	}

	respondOK(c, http.StatusCreated, mission)
}

// ListMissions handles GET /api/missions
func (h *Handlers) ListMissions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.respondError(c, "List missions", err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.respondError(c, "List missions", err)
		return
	}

	filter := port.MissionFilter{
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		filter.AgentID = actorFrom(c).ID
	}

	missions, err := h.services.Missions.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "List missions", err)
		return
	}

	respondOK(c, http.StatusOK, missions)
}

// MissionStats handles GET /api/missions/stats
func (h *Handlers) MissionStats(c *gin.Context) {
	stats, err := h.services.Missions.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Mission stats", err)
		return
	}

	respondOK(c, http.StatusOK, stats)
}

// GetMission handles GET /api/missions/:id
func (h *Handlers) GetMission(c *gin.Context) {
	actor := actorFrom(c)

	detail, err := h.services.Missions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Get mission", err)
		return
	}

	actions := h.services.Engine.AvailableActions(detail.Mission, actor)
	if actions == nil {
		actions = []workflow.Trigger{}
	}

	respondOK(c, http.StatusOK, MissionDetailResponse{
		MissionDetail:    detail,
		CanAct:           h.services.Engine.CanAct(detail.Mission, actor),
		CanEdit:          detail.Mission.Status == workflow.StateDraft && detail.Mission.IsOwnedBy(actor.ID),
		AvailableActions: actions,
	})
}

// UpdateMission handles PUT /api/missions/:id
func (h *Handlers) UpdateMission(c *gin.Context) {
	var req MissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.respondError(c, "Update mission", err)
		return
	}

	mission, err := h.services.Missions.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, "Update mission", err)
		return
	}

	respondOK(c, http.StatusOK, mission)
}

// DeleteMission handles DELETE /api/missions/:id
func (h *Handlers) DeleteMission(c *gin.Context) {
	if err := h.services.Missions.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, "Delete mission", err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}

// SubmitMission handles POST /api/missions/:id/submit
func (h *Handlers) SubmitMission(c *gin.Context) {
	mission, err := h.services.Engine.Submit(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.respondError(c, "Submit mission", err)
		return
	}

	respondOK(c, http.StatusOK, mission)
}

// ApproveMission handles POST /api/missions/:id/approve
func (h *Handlers) ApproveMission(c *gin.Context) {
	in, bound := h.bindAction(c)
	if !bound {
		return
	}

	mission, err := h.services.Engine.Approve(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.respondError(c, "Approve mission", err)
		return
	}

	respondOK(c, http.StatusOK, mission)
}

// RejectMission handles POST /api/missions/:id/reject
func (h *Handlers) RejectMission(c *gin.Context) {
	in, bound := h.bindAction(c)
	if !bound {
		return
	}

	mission, err := h.services.Engine.Reject(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.respondError(c, "Reject mission", err)
		return
	}

	respondOK(c, http.StatusOK, mission)
}

func (h *Handlers) bindAction(c *gin.Context) (appwf.ActionInput, bool) {
	var req ActionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return appwf.ActionInput{}, false
	}

	in := appwf.ActionInput{Comment: req.Comment}
	if req.ExpectedStatus != "" {
		expected := workflow.State(req.ExpectedStatus)
		if !expected.IsValid() {
			badRequest(c, "unknown expected_status "+req.ExpectedStatus)
			return appwf.ActionInput{}, false
		}
		in.ExpectedStatus = expected
	}
	return in, true
}

// MarkPaid handles POST /api/missions/:id/payment
func (h *Handlers) MarkPaid(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	mission, err := h.services.Engine.MarkPaid(c.Request.Context(), c.Param("id"), actorFrom(c), appwf.PaymentInput{
		ActualAmount: req.ActualAmount,
		Method:       req.PaymentMethod,
		ProofURL:     req.PaymentProofURL,
	})
	if err != nil {
		h.respondError(c, "Mark mission paid", err)
		return
	}

	respondOK(c, http.StatusOK, mission)
}

// ListSignatures handles GET /api/missions/:id/signatures
func (h *Handlers) ListSignatures(c *gin.Context) {
	signatures, err := h.services.Engine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "List signatures", err)
		return
	}

	respondOK(c, http.StatusOK, signatures)
}

// MissionDocument handles GET /api/missions/:id/document
func (h *Handlers) MissionDocument(c *gin.Context) {
	doc, err := h.services.Documents.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Render mission document", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// ListComments handles GET /api/missions/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	comments, err := h.services.Missions.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "List comments", err)
		return
	}

	respondOK(c, http.StatusOK, comments)
}

// AddComment handles POST /api/missions/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	comment, err := h.services.Missions.AddComment(c.Request.Context(), actorFrom(c), c.Param("id"), req.Comment)
	if err != nil {
		h.respondError(c, "Add comment", err)
		return
	}

	respondOK(c, http.StatusCreated, comment)
}
