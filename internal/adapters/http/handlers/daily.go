package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/dto"
	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

// DailyWorkflow is the part of app.DailyService the HTTP surface uses.
type DailyWorkflow interface {
	CurrentDate() string
	Today(ctx context.Context) (*app.Snapshot, error)
	Lookup(ctx context.Context, date string) (*domain.DailyRecord, error)
	Explain(ctx context.Context, date string) (*app.Snapshot, error)
	Illustrate(ctx context.Context, date string) (*app.Snapshot, error)
	History(ctx context.Context, limit int) ([]*domain.DailyRecord, error)
}

// DailyHandler serves the daily wisdom endpoints.
type DailyHandler struct {
	workflow     DailyWorkflow
	historyLimit int
}

// NewDailyHandler creates a handler. historyLimit is used when a history
// request gives no limit.
func NewDailyHandler(workflow DailyWorkflow, historyLimit int) *DailyHandler {
	if historyLimit < 1 {
		historyLimit = 7
	}

	return &DailyHandler{workflow: workflow, historyLimit: historyLimit}
}

// GetToday handles GET /api/v1/daily.
// It initializes today's entry: a cached record is returned as is, otherwise
// base content is generated and stored before responding.
func (h *DailyHandler) GetToday(c *gin.Context) {
	snap, err := h.workflow.Today(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDailyResponse(snap))
}

// GetByDate handles GET /api/v1/daily/:date. It only reads the cache.
func (h *DailyHandler) GetByDate(c *gin.Context) {
	rec, err := h.workflow.Lookup(c.Request.Context(), c.Param("date"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRecordResponse(rec))
}

// PostExplanation handles POST /api/v1/daily/explanation?date=YYYY-MM-DD.
// The date defaults to today.
func (h *DailyHandler) PostExplanation(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}

	snap, err := h.workflow.Explain(c.Request.Context(), date)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDailyResponse(snap))
}

// PostIllustration handles POST /api/v1/daily/illustration?date=YYYY-MM-DD.
// Provider failures are reported in the illustration field, not as an error status.
func (h *DailyHandler) PostIllustration(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}

	snap, err := h.workflow.Illustrate(c.Request.Context(), date)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDailyResponse(snap))
}

// GetHistory handles GET /api/v1/history?limit=n.
func (h *DailyHandler) GetHistory(c *gin.Context) {
	var q dto.HistoryQuery
	if !bindQuery(c, &q) {
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = h.historyLimit
	}

	records, err := h.workflow.History(c.Request.Context(), limit)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToHistoryResponse(records))
}

func (h *DailyHandler) bindDate(c *gin.Context) (string, bool) {
	var q dto.DateQuery
	if !bindQuery(c, &q) {
		return "", false
	}

	if q.Date == "" {
		return h.workflow.CurrentDate(), true
	}

	return q.Date, true
}

// bindQuery writes a 400 and returns false when the query does not bind or validate.
func bindQuery(c *gin.Context, v any) bool {
	err := dto.BindQueryAndValidate(c, v)
	if err == nil {
		return true
	}

	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		dto.RespondWithValidationErrors(c, fields)
	} else {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
	}

	return false
}

// RegisterDailyRoutes registers the daily routes on the given router group.
func (h *DailyHandler) RegisterDailyRoutes(rg *gin.RouterGroup) {
	daily := rg.Group("/daily")
	daily.GET("", h.GetToday)
	daily.GET("/:date", h.GetByDate)
	daily.POST("/explanation", h.PostExplanation)
	daily.POST("/illustration", h.PostIllustration)

	rg.GET("/history", h.GetHistory)
}
