package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Service is what the handlers need from the run service.
type Service interface {
	Start(ctx context.Context, params domain.Params, useCase domain.UseCase) (*domain.Run, *domain.Result, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	LatestRun(ctx context.Context, ppid, date string, useCase domain.UseCase) (*domain.Run, error)
	ListRuns(ctx context.Context, ppid string) ([]*domain.Run, error)
	GetResult(ctx context.Context, ppid string, useCase domain.UseCase, tagname, date string) (*records.Record, error)
}

// Handler serves the alarm reason API
type Handler struct {
	svc Service
	log *logging.Logger
}

func New(svc Service) *Handler {
	return &Handler{svc: svc, log: logging.New("alarm_reasons_http")}
}

// CreateRunRequest selects the plant day and use case to analyze. Date is a
// shorthand for a single entry of Dates.
type CreateRunRequest struct {
	PPID    string       `json:"ppid"`
	Date    string       `json:"date,omitempty"`
	Dates   []string     `json:"dates,omitempty"`
	Index   int          `json:"index"`
	Bucket  string       `json:"bucket,omitempty"`
	Paths   loader.Paths `json:"paths"`
	UseCase string       `json:"use_case"`
}

func (r CreateRunRequest) params() domain.Params {
	dates := r.Dates
	if len(dates) == 0 && r.Date != "" {
		dates = []string{r.Date}
	}
	return domain.Params{
		PPID:   r.PPID,
		Dates:  dates,
		Index:  r.Index,
		Bucket: r.Bucket,
		Paths:  r.Paths,
	}
}

// CreateRun runs an analysis and returns its ledger entry with the result
func (h *Handler) CreateRun(c *gin.Context) {
	var body CreateRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	useCase, err := domain.ParseUseCase(body.UseCase)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, result, err := h.svc.Start(c.Request.Context(), body.params(), useCase)
	switch {
	case errors.Is(err, domain.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil && run == nil:
		h.log.Error("create_run", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "run": run})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "result": result})
}

// GetRun retrieves an analysis run by ID
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.runError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// LatestRun retrieves the latest run of a plant day and use case
func (h *Handler) LatestRun(c *gin.Context) {
	useCase, err := domain.ParseUseCase(c.Query("use_case"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ppid, date := c.Query("ppid"), c.Query("date")
	if ppid == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ppid and date are required"})
		return
	}

	run, err := h.svc.LatestRun(c.Request.Context(), ppid, date, useCase)
	if err != nil {
		h.runError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// ListRuns lists the runs of a plant
func (h *Handler) ListRuns(c *gin.Context) {
	ppid := c.Query("ppid")
	if ppid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ppid is required"})
		return
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), ppid)
	if err != nil {
		h.log.Error("list_runs", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) runError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	h.log.Error("get_run", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
}

// GetResult returns the stored record of an alarmed tag on one day
func (h *Handler) GetResult(c *gin.Context) {
	useCase, err := domain.ParseUseCase(c.Param("usecase"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.GetResult(c.Request.Context(), c.Param("ppid"), useCase, c.Param("tagname"), c.Param("date"))
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		h.log.Error("get_result", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get result"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
