package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/middleware"
	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
	"github.com/noah-isme/sma-daily-scheduler/pkg/response"
)

type dailyScheduler interface {
	GenerateDay(ctx context.Context, req dto.GenerateDayRequest) (*dto.DayResult, error)
	GenerateWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.WeekResult, error)
	DayScheduleCached(ctx context.Context, date string) ([]models.DailySchedule, bool, error)
	TeacherSchedule(ctx context.Context, query dto.TeacherScheduleQuery) ([]models.DailySchedule, error)
	Stats(ctx context.Context, query dto.StatsQuery) (*dto.StatsResponse, error)
	UpdateDayStatus(ctx context.Context, date string, req dto.UpdateDayStatusRequest) (int64, error)
}

type scheduleRunner interface {
	Start(ctx context.Context, req dto.StartRunRequest) (*dto.RunStatus, error)
	Get(ctx context.Context, id string) (*dto.RunStatus, error)
	Cancel(ctx context.Context, id string) (*dto.RunStatus, error)
}

type scheduleExporter interface {
	ExportDay(ctx context.Context, date, format string) (*service.ExportResult, error)
}

// DailyScheduleHandler exposes day generation, background runs and schedule reads.
type DailyScheduleHandler struct {
	schedules dailyScheduler
	runs      scheduleRunner
	exports   scheduleExporter
}

// NewDailyScheduleHandler constructs the handler.
func NewDailyScheduleHandler(schedules *service.DailyScheduleService, runs *service.ScheduleRunService, exports *service.ExportService) *DailyScheduleHandler {
	return &DailyScheduleHandler{schedules: schedules, runs: runs, exports: exports}
}

// Register mounts the routes on a group, usually {prefix}/schedules/daily.
func (h *DailyScheduleHandler) Register(group *gin.RouterGroup) {
	group.POST("/generate", h.GenerateDay)
	group.POST("/generate-week", h.GenerateWeek)
	group.POST("/runs", h.StartRun)
	group.GET("/runs/:id", h.GetRun)
	group.DELETE("/runs/:id", h.CancelRun)
	group.GET("/stats", h.Stats)
	group.GET("/teachers/:teacherId", h.TeacherSchedule)
	group.GET("/:date", h.Day)
	group.GET("/:date/export", h.Export)
	group.PATCH("/:date/status", h.UpdateStatus)
}

// GenerateDay godoc
// @Summary Generate and store the schedule of one date
// @Tags Daily Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateDayRequest true "Date to generate"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /schedules/daily/generate [post]
func (h *DailyScheduleHandler) GenerateDay(c *gin.Context) {
	var req dto.GenerateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.schedules.GenerateDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// GenerateWeek godoc
// @Summary Generate and store consecutive working days
// @Description Weekends are skipped. Without atomic, a date that fails to store is reported and the rest continue.
// @Description A cancelled request answers 409 with the dates already stored in data.
// @Tags Daily Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateWeekRequest true "Range to generate"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/daily/generate-week [post]
func (h *DailyScheduleHandler) GenerateWeek(c *gin.Context) {
	var req dto.GenerateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate week payload"))
		return
	}
	result, err := h.schedules.GenerateWeek(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	failed := 0
	for _, day := range result.Days {
		if day.Status == dto.DayStatusFailed {
			failed++
		}
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"days":   len(result.Days),
		"failed": failed,
	})
}

// StartRun godoc
// @Summary Queue a background multi-day generation
// @Tags Daily Schedule
// @Accept json
// @Produce json
// @Param payload body dto.StartRunRequest true "Run range"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/daily/runs [post]
func (h *DailyScheduleHandler) StartRun(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}
	run, err := h.runs.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+run.ID)
	response.Accepted(c, run)
}

// GetRun godoc
// @Summary Get background run status
// @Tags Daily Schedule
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/daily/runs/{id} [get]
func (h *DailyScheduleHandler) GetRun(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// CancelRun godoc
// @Summary Cancel a background run
// @Description A running run stops after the date it is generating.
// @Tags Daily Schedule
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/daily/runs/{id} [delete]
func (h *DailyScheduleHandler) CancelRun(c *gin.Context) {
	run, err := h.runs.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// Day godoc
// @Summary Stored schedule of a date
// @Description meta.cache_hit tells whether the rows were served from Redis.
// @Tags Daily Schedule
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/daily/{date} [get]
func (h *DailyScheduleHandler) Day(c *gin.Context) {
	rows, hit, err := h.schedules.DayScheduleCached(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	meta["count"] = len(rows)
	response.JSON(c, http.StatusOK, rows, meta)
}

// Export godoc
// @Summary Download the stored schedule of a date
// @Tags Daily Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /schedules/daily/{date}/export [get]
func (h *DailyScheduleHandler) Export(c *gin.Context) {
	result, err := h.exports.ExportDay(c.Request.Context(), c.Param("date"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// UpdateStatus godoc
// @Summary Mark the stored rows of a date as scheduled, completed or cancelled
// @Tags Daily Schedule
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body dto.UpdateDayStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/daily/{date}/status [patch]
func (h *DailyScheduleHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateDayStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	affected, err := h.schedules.UpdateDayStatus(c.Request.Context(), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"date": c.Param("date"), "status": req.Status, "rows": affected})
}

// TeacherSchedule godoc
// @Summary What a teacher teaches over a date range
// @Tags Daily Schedule
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param from query string true "From (YYYY-MM-DD)"
// @Param to query string true "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/daily/teachers/{teacherId} [get]
func (h *DailyScheduleHandler) TeacherSchedule(c *gin.Context) {
	query := dto.TeacherScheduleQuery{
		TeacherID: c.Param("teacherId"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	rows, err := h.schedules.TeacherSchedule(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"count": len(rows)})
}

// Stats godoc
// @Summary Substitution statistics over stored dates
// @Tags Daily Schedule
// @Produce json
// @Param from query string true "From (YYYY-MM-DD)"
// @Param to query string true "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/daily/stats [get]
func (h *DailyScheduleHandler) Stats(c *gin.Context) {
	var query dto.StatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stats query"))
		return
	}
	stats, err := h.schedules.Stats(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
