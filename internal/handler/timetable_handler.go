package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
	"github.com/campus-lms/timetable-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error)
}

type timetableProvider interface {
	ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetable, error)
	TeacherTimetable(ctx context.Context, teacherID string) (*dto.TeacherTimetable, error)
}

type conflictDetector interface {
	DetectAll(ctx context.Context) ([]models.ConflictReport, error)
}

type timetableExporter interface {
	ExportClass(ctx context.Context, classID, format string) ([]byte, string, string, error)
}

// TimetableHandler exposes generation, projection, conflict and export
// endpoints.
type TimetableHandler struct {
	generator  scheduleGenerator
	timetables timetableProvider
	conflicts  conflictDetector
	exporter   timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator scheduleGenerator, timetables timetableProvider, conflicts conflictDetector, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{
		generator:  generator,
		timetables: timetables,
		conflicts:  conflicts,
		exporter:   exporter,
	}
}

// Generate godoc
// @Summary Generate a class's weekly timetable
// @Description Fills the 20-cell weekly grid for one class by rotating its eligible subjects. Idempotent unless forceUpdate is set.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClassTimetable godoc
// @Summary Get one class's weekly timetable
// @Tags Timetables
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/class/{classId} [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	result, err := h.timetables.ClassTimetable(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TeacherTimetable godoc
// @Summary Get one teacher's slots across all classes
// @Tags Timetables
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/teacher/{teacherId} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	result, err := h.timetables.TeacherTimetable(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary Detect teacher and classroom double-bookings
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	reports, err := h.conflicts.DetectAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, map[string]interface{}{"total": len(reports)})
}

// Export godoc
// @Summary Export a class timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /timetables/class/{classId}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, filename, err := h.exporter.ExportClass(c.Request.Context(), c.Param("classId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
