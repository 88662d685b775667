package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
	"github.com/noah-isme/sma-daily-scheduler/pkg/response"
)

type teacherAvailabilityService interface {
	Preferences(ctx context.Context, teacherID string) (*models.TeacherPreference, error)
	UpsertPreferences(ctx context.Context, teacherID string, req dto.UpsertPreferenceRequest) (*models.TeacherPreference, error)
	CreateLeave(ctx context.Context, teacherID string, req dto.CreateLeaveRequest) (*models.TeacherLeave, error)
	Leaves(ctx context.Context, teacherID string, query dto.LeaveQuery) ([]models.TeacherLeave, error)
}

// TeacherAvailabilityHandler exposes the preferences and leaves read by the generator.
type TeacherAvailabilityHandler struct {
	service teacherAvailabilityService
}

// NewTeacherAvailabilityHandler constructs the handler.
func NewTeacherAvailabilityHandler(service teacherAvailabilityService) *TeacherAvailabilityHandler {
	return &TeacherAvailabilityHandler{service: service}
}

// Register mounts the routes on {prefix}/teachers.
func (h *TeacherAvailabilityHandler) Register(group *gin.RouterGroup) {
	group.GET("/:teacherId/preferences", h.GetPreferences)
	group.PUT("/:teacherId/preferences", h.UpsertPreferences)
	group.GET("/:teacherId/leaves", h.ListLeaves)
	group.POST("/:teacherId/leaves", h.CreateLeave)
}

// GetPreferences godoc
// @Summary Get teacher scheduling preferences
// @Tags Teacher Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacherId}/preferences [get]
func (h *TeacherAvailabilityHandler) GetPreferences(c *gin.Context) {
	pref, err := h.service.Preferences(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref)
}

// UpsertPreferences godoc
// @Summary Replace teacher scheduling preferences
// @Tags Teacher Availability
// @Accept json
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.UpsertPreferenceRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacherId}/preferences [put]
func (h *TeacherAvailabilityHandler) UpsertPreferences(c *gin.Context) {
	var req dto.UpsertPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	pref, err := h.service.UpsertPreferences(c.Request.Context(), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref)
}

// ListLeaves godoc
// @Summary Leaves of a teacher overlapping a date range
// @Tags Teacher Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param from query string true "From (YYYY-MM-DD)"
// @Param to query string true "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/leaves [get]
func (h *TeacherAvailabilityHandler) ListLeaves(c *gin.Context) {
	var query dto.LeaveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave query"))
		return
	}
	leaves, err := h.service.Leaves(c.Request.Context(), c.Param("teacherId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, map[string]interface{}{"count": len(leaves)})
}

// CreateLeave godoc
// @Summary Record an approved teacher leave
// @Description Generation run after this call treats the covered dates as vacation.
// @Tags Teacher Availability
// @Accept json
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacherId}/leaves [post]
func (h *TeacherAvailabilityHandler) CreateLeave(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	leave, err := h.service.CreateLeave(c.Request.Context(), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}
