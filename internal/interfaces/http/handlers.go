package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/service"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	"github.com/garyjia/purchase-requisition/internal/domain/permission"
	domainwf "github.com/garyjia/purchase-requisition/internal/domain/workflow"
)

// HealthReporter reports whether the application is ready to serve
type HealthReporter interface {
	Ready() bool
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	requisitions service.RequisitionService
	projects     service.ProjectService
	health       HealthReporter
	logger       Logger
}

// NewHandlers creates a new Handlers instance. health may be nil.
func NewHandlers(
	requisitions service.RequisitionService,
	projects service.ProjectService,
	health HealthReporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		requisitions: requisitions,
		projects:     projects,
		health:       health,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RequisitionResponse is a requisition as returned by the API
type RequisitionResponse struct {
	*entity.Requisition
	Total             string             `json:"total"`
	AvailableTriggers []domainwf.Trigger `json:"available_events"`
}

// CreateRequisitionRequest is the body of POST /api/requisitions
type CreateRequisitionRequest struct {
	Total     decimal.Decimal `json:"total"`
	ProjectID *int64          `json:"project_id"`
	Notes     string          `json:"notes"`
}

// UpdateDraftRequest is the body of PATCH /api/requisitions/:id
type UpdateDraftRequest struct {
	Total        *decimal.Decimal `json:"total"`
	ProjectID    *int64           `json:"project_id"`
	ClearProject bool             `json:"clear_project"`
	Notes        *string          `json:"notes"`
}

// TransitionRequest is the body of POST /api/requisitions/:id/transitions
type TransitionRequest struct {
	Event   string                 `json:"event" binding:"required"`
	Notes   string                 `json:"notes"`
	Reason  string                 `json:"reason"`
	Payload map[string]interface{} `json:"payload"`
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// ListRequisitionsRequest represents query parameters for listing requisitions
type ListRequisitionsRequest struct {
	Status      string `form:"status"`
	RequesterID string `form:"requester_id"`
	ProjectID   *int64 `form:"project_id"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// PageRequest represents limit/offset query parameters
type PageRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// PermissionsResponse describes what the current actor may do
type PermissionsResponse struct {
	ActorID string                `json:"actor_id"`
	Roles   []entity.Role         `json:"roles"`
	Rules   []permission.RuleView `json:"rules"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if h.health != nil && !h.health.Ready() {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data: HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequisition handles POST /api/requisitions
func (h *Handlers) CreateRequisition(c *gin.Context) {
	var req CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	actor := actorFrom(c)
	r, err := h.requisitions.Create(c.Request.Context(), actor, service.CreateRequisitionInput{
		Total:     req.Total,
		ProjectID: req.ProjectID,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: h.toRequisitionResponse(actor, r)})
}

// ListRequisitions handles GET /api/requisitions
func (h *Handlers) ListRequisitions(c *gin.Context) {
	var req ListRequisitionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}
	limit, offset := normalizePage(req.Limit, req.Offset)

	actor := actorFrom(c)
	list, err := h.requisitions.List(c.Request.Context(), actor, port.RequisitionFilter{
		Status:      req.Status,
		RequesterID: req.RequesterID,
		ProjectID:   req.ProjectID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]RequisitionResponse, 0, len(list))
	for _, r := range list {
		out = append(out, h.toRequisitionResponse(actor, r))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetRequisition handles GET /api/requisitions/:id
func (h *Handlers) GetRequisition(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	actor := actorFrom(c)
	r, err := h.requisitions.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toRequisitionResponse(actor, r)})
}

// UpdateRequisition handles PATCH /api/requisitions/:id
func (h *Handlers) UpdateRequisition(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	actor := actorFrom(c)
	r, err := h.requisitions.UpdateDraft(c.Request.Context(), actor, id, service.UpdateDraftInput{
		Total:        req.Total,
		ProjectID:    req.ProjectID,
		ClearProject: req.ClearProject,
		Notes:        req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toRequisitionResponse(actor, r)})
}

// TransitionRequisition handles POST /api/requisitions/:id/transitions
func (h *Handlers) TransitionRequisition(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	actor := actorFrom(c)
	r, err := h.requisitions.Transition(c.Request.Context(), actor, id, workflow.TransitionCommand{
		Trigger: domainwf.Trigger(req.Event),
		Notes:   req.Notes,
		Reason:  req.Reason,
		Payload: req.Payload,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toRequisitionResponse(actor, r)})
}

// CreateProject handles POST /api/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	p, err := h.projects.Create(c.Request.Context(), actorFrom(c), service.CreateProjectInput{
		Code: req.Code,
		Name: req.Name,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: p})
}

// ListProjects handles GET /api/projects
func (h *Handlers) ListProjects(c *gin.Context) {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}
	limit, offset := normalizePage(req.Limit, req.Offset)

	projects, err := h.projects.List(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: projects})
}

// GetProject handles GET /api/projects/:id
func (h *Handlers) GetProject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	p, err := h.projects.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

// MyPermissions handles GET /api/me/permissions
func (h *Handlers) MyPermissions(c *gin.Context) {
	actor := actorFrom(c)
	ability := permission.Evaluate(actor)

	resp := PermissionsResponse{
		ActorID: ability.ActorID(),
		Roles:   []entity.Role{},
		Rules:   ability.Views(),
	}
	if actor.IsAuthenticated() {
		resp.Roles = append(resp.Roles, actor.Roles...)
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

func (h *Handlers) toRequisitionResponse(actor *entity.User, r *entity.Requisition) RequisitionResponse {
	triggers := h.requisitions.AvailableTriggers(actor, r)
	if triggers == nil {
		triggers = []domainwf.Trigger{}
	}
	return RequisitionResponse{
		Requisition:       r,
		Total:             r.Total.StringFixed(2),
		AvailableTriggers: triggers,
	}
}

func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid id", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Info("Bad request", "path", c.Request.URL.Path, "reason", msg, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps error kinds to status codes. Missing and unreadable
// resources share 404.
func (h *Handlers) writeError(c *gin.Context, err error) {
	resp := Response{Success: false, Error: err.Error()}
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		code = http.StatusNotFound
		resp.Error = "not found"
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, service.ErrDuplicate):
		code = http.StatusConflict
	case workflow.IsRetryable(err):
		code = http.StatusServiceUnavailable
		resp.Error = "temporarily unavailable, retry"
		resp.Retryable = true
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "status", code, "error", err)
	}
	c.JSON(code, resp)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
