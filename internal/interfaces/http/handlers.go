package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-reimbursement/internal/application/workflow"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// Actor headers set by the authenticating proxy in front of the service
const (
	HeaderActorID     = "X-Actor-ID"
	HeaderActorName   = "X-Actor-Name"
	HeaderActorLang   = "X-Actor-Lang"
	HeaderActorGrants = "X-Actor-Grants"

	actorKey = "actor"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response is the standard API response format
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string                    `json:"code"`
	Message string                    `json:"message"`
	Fields  []*entity.ValidationError `json:"fields,omitempty"`
	Result  *workflow.BatchResult     `json:"result,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// writeError maps domain errors onto status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	body := &ErrorBody{Message: err.Error()}
	status := http.StatusInternalServerError

	var ve entity.ValidationErrors
	var single *entity.ValidationError
	var refErr *entity.ReferentialIntegrityError
	switch {
	case errors.As(err, &ve):
		status, body.Code, body.Fields = http.StatusBadRequest, "validation", ve
	case errors.As(err, &single):
		status, body.Code, body.Fields = http.StatusBadRequest, "validation", []*entity.ValidationError{single}
	case entity.IsNotFound(err):
		status, body.Code = http.StatusNotFound, "not_found"
	case entity.IsNotAllowed(err), errors.Is(err, entity.ErrHistoric):
		status, body.Code = http.StatusForbidden, "not_allowed"
	case errors.Is(err, entity.ErrStateConflict):
		status, body.Code = http.StatusConflict, "conflict"
	case errors.As(err, &refErr):
		status, body.Code = http.StatusConflict, "referenced"
	default:
		body.Code = "internal"
		body.Message = "internal error"
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, Response{Success: false, Error: body})
}

// writeBatch answers a batch call. A batch where every item failed is
// reported as 422 with the per item tally.
func (h *Handlers) writeBatch(c *gin.Context, result *workflow.BatchResult, err error) {
	if err != nil && errors.Is(err, entity.ErrBatchFailed) && result != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Error:   &ErrorBody{Code: "batch_failed", Message: err.Error(), Result: result},
		})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// actorMiddleware reads the caller from the proxy headers. Requests
// without an actor id are rejected.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.Actor{
			ID:   c.GetHeader(HeaderActorID),
			Name: c.GetHeader(HeaderActorName),
			Lang: c.GetHeader(HeaderActorLang),
		}
		if actor.ID == "" {
			fail(c, http.StatusUnauthorized, "unauthenticated", HeaderActorID+" header is required")
			return
		}
		if raw := c.GetHeader(HeaderActorGrants); raw != "" {
			if err := json.Unmarshal([]byte(raw), &actor.Grants); err != nil {
				fail(c, http.StatusBadRequest, "validation", "invalid "+HeaderActorGrants+" header")
				return
			}
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, exists := c.Get(actorKey); exists {
		if actor, isActor := v.(entity.Actor); isActor {
			return actor
		}
	}
	return entity.Actor{}
}

// requireAdmin aborts unless the actor may manage catalog data
func requireAdmin(c *gin.Context) bool {
	if !actorFrom(c).IsAdmin() {
		fail(c, http.StatusForbidden, "not_allowed", "admin access required")
		return false
	}
	return true
}

// bindJSON decodes the body into v and answers 400 on malformed input
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, http.StatusBadRequest, "validation", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter with a default
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
