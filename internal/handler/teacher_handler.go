package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
	"github.com/campus-lms/timetable-api/pkg/response"
)

type availabilityChecker interface {
	Check(ctx context.Context, teacherID, classID string) (*dto.AvailabilityResult, error)
	ListForClass(ctx context.Context, classID string) (*dto.AvailableTeachersResult, error)
}

type loadManager interface {
	GetLoad(ctx context.Context, teacherID string) (*models.TeacherLoad, error)
	SyncAll(ctx context.Context) (*dto.LoadSyncResult, error)
}

// TeacherHandler exposes availability and load endpoints.
type TeacherHandler struct {
	availability availabilityChecker
	loads        loadManager
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(availability availabilityChecker, loads loadManager) *TeacherHandler {
	return &TeacherHandler{availability: availability, loads: loads}
}

// Availability godoc
// @Summary Check whether a teacher can take on a class
// @Description Capacity is checked before slot collisions; a full teacher is unavailable regardless of grid state.
// @Tags Teachers
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param classId query string true "Candidate class ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [get]
func (h *TeacherHandler) Availability(c *gin.Context) {
	classID := c.Query("classId")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId query parameter is required"))
		return
	}
	result, err := h.availability.Check(c.Request.Context(), c.Param("teacherId"), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AvailableForClass godoc
// @Summary List every approved teacher with availability for one class
// @Tags Teachers
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/available-teachers [get]
func (h *TeacherHandler) AvailableForClass(c *gin.Context) {
	result, err := h.availability.ListForClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetLoad godoc
// @Summary Get one teacher's weekly-hours aggregate
// @Tags Teachers
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teacher-loads/{teacherId} [get]
func (h *TeacherHandler) GetLoad(c *gin.Context) {
	load, err := h.loads.GetLoad(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil)
}

// SyncLoads godoc
// @Summary Recompute every teacher's weekly-hours aggregate
// @Description Full recomputation from the persisted slot set; reports how many loads changed.
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher-loads/sync [post]
func (h *TeacherHandler) SyncLoads(c *gin.Context) {
	result, err := h.loads.SyncAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
