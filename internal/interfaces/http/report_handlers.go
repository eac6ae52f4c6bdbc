package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/application/service"
	"github.com/garyjia/travel-reimbursement/internal/application/workflow"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// TransitionRequest is the optional body of a transition call
type TransitionRequest struct {
	Comment   string        `json:"comment"`
	RefundSum *entity.Money `json:"refundSum"`
}

// BatchTransitionRequest fires one trigger on many reports
type BatchTransitionRequest struct {
	IDs       []string      `json:"ids"`
	Comment   string        `json:"comment"`
	RefundSum *entity.Money `json:"refundSum"`
}

// BookRequest lists the reports to book
type BookRequest struct {
	IDs []string `json:"ids"`
}

// FindReports handles GET /api/reports
func (h *Handlers) FindReports(c *gin.Context) {
	filter := port.ReportFilter{
		Kind:    entity.Kind(c.Query("kind")),
		Owner:   c.Query("owner"),
		State:   c.Query("state"),
		Project: c.Query("project"),
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		h.writeError(c, &entity.ValidationError{Field: "kind", Message: "unknown report kind"})
		return
	}
	if raw := c.Query("booked"); raw != "" {
		booked, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(c, &entity.ValidationError{Field: "booked", Message: "must be true or false"})
			return
		}
		filter.Booked = &booked
	}
	if ids := c.Query("ids"); ids != "" {
		filter.IDs = strings.Split(ids, ",")
	}

	limit := queryInt(c, "limit", defaultPageLimit)
	if limit > maxPageLimit {
		limit = defaultPageLimit
	}
	page := port.Page{Limit: limit, Page: queryInt(c, "page", 1)}

	sort := port.Sort{Field: "createdAt", Desc: true}
	if raw := c.Query("sort"); raw != "" {
		sort = port.Sort{Field: strings.TrimPrefix(raw, "-"), Desc: strings.HasPrefix(raw, "-")}
	}

	result, err := h.services.Reports.Find(c.Request.Context(), actorFrom(c), filter, sort, page)
	if err != nil {
		h.writeError(c, err)
		return
	}

	projection := service.ParseProjection(c.Query("fields"))
	if projection.IsZero() {
		ok(c, http.StatusOK, result)
		return
	}
	items := make([]map[string]interface{}, 0, len(result.Items))
	for _, r := range result.Items {
		fields, err := projection.Apply(r)
		if err != nil {
			h.writeError(c, err)
			return
		}
		items = append(items, fields)
	}
	ok(c, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": result.Total,
		"page":  result.Page,
		"limit": result.Limit,
	})
}

// CreateReport handles POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var report entity.Report
	if !bindJSON(c, &report) {
		return
	}
	created, err := h.services.Reports.Create(c.Request.Context(), actorFrom(c), &report)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.services.Reports.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	projection := service.ParseProjection(c.Query("fields"))
	if projection.IsZero() {
		ok(c, http.StatusOK, report)
		return
	}
	fields, err := projection.Apply(report)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, fields)
}

// SaveReport handles PUT /api/reports/:id
func (h *Handlers) SaveReport(c *gin.Context) {
	var report entity.Report
	if !bindJSON(c, &report) {
		return
	}
	report.ID = c.Param("id")
	saved, err := h.services.Reports.Save(c.Request.Context(), actorFrom(c), &report)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, saved)
}

// DeleteReport handles DELETE /api/reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Reports.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// GetHistory handles GET /api/reports/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.services.Reports.GetHistory(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, history)
}

// GetSnapshot handles GET /api/snapshots/:id
func (h *Handlers) GetSnapshot(c *gin.Context) {
	snapshot, err := h.services.Reports.GetSnapshot(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, snapshot)
}

// PermittedTriggers handles GET /api/reports/:id/triggers
func (h *Handlers) PermittedTriggers(c *gin.Context) {
	triggers, err := h.services.Workflow.PermittedTriggers(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, triggers)
}

// Apply handles POST /api/transitions/:kind/:trigger/:id
func (h *Handlers) Apply(c *gin.Context) {
	kind, trigger, valid := h.transitionParams(c)
	if !valid {
		return
	}
	var req TransitionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Workflow.Apply(c.Request.Context(), actorFrom(c), kind, c.Param("id"), trigger,
		workflow.Payload{Comment: req.Comment, RefundSum: req.RefundSum})
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// ApplyBatch handles POST /api/transitions/:kind/:trigger
func (h *Handlers) ApplyBatch(c *gin.Context) {
	kind, trigger, valid := h.transitionParams(c)
	if !valid {
		return
	}
	var req BatchTransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Workflow.ApplyBatch(c.Request.Context(), actorFrom(c), kind, req.IDs, trigger,
		workflow.Payload{Comment: req.Comment, RefundSum: req.RefundSum})
	h.writeBatch(c, result, err)
}

// Book handles POST /api/book
func (h *Handlers) Book(c *gin.Context) {
	var req BookRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.services.Workflow.Book(c.Request.Context(), actorFrom(c), req.IDs)
	h.writeBatch(c, result, err)
}

func (h *Handlers) transitionParams(c *gin.Context) (entity.Kind, domainwf.Trigger, bool) {
	kind := entity.Kind(c.Param("kind"))
	if !kind.IsValid() {
		h.writeError(c, &entity.ValidationError{Field: "kind", Message: "unknown report kind"})
		return "", "", false
	}
	return kind, domainwf.Trigger(c.Param("trigger")), true
}
