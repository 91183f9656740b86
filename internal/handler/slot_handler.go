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

type slotEditor interface {
	CreateSlot(ctx context.Context, req dto.SlotUpsertRequest) (*models.TimeSlot, error)
	UpdateSlot(ctx context.Context, id string, req dto.SlotUpsertRequest) (*models.TimeSlot, error)
	DeleteSlot(ctx context.Context, id string) error
}

// SlotHandler exposes administrative slot edits.
type SlotHandler struct {
	service slotEditor
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(service slotEditor) *SlotHandler {
	return &SlotHandler{service: service}
}

// Create godoc
// @Summary Place a single time slot administratively
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.SlotUpsertRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req dto.SlotUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Edit an existing time slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.SlotUpsertRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *SlotHandler) Update(c *gin.Context) {
	var req dto.SlotUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete a time slot
// @Tags Slots
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
