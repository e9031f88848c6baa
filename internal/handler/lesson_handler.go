package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbill/tutorbill-api/internal/service"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
	"github.com/tutorbill/tutorbill-api/pkg/response"
)

// LessonHandler exposes the per-student schedule endpoints.
type LessonHandler struct {
	lessons *service.LessonService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons *service.LessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// List returns the student's schedule in insertion order.
func (h *LessonHandler) List(c *gin.Context) {
	lessons, err := h.lessons.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Create adds one slot to the student's schedule and rebills the current month.
func (h *LessonHandler) Create(c *gin.Context) {
	var req service.LessonSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// BulkRestore replaces lessons in bulk with a single billing recompute.
func (h *LessonHandler) BulkRestore(c *gin.Context) {
	var req service.BulkRestoreLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lessons, err := h.lessons.BulkRestore(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lessons)
}

// Update replaces one slot in full.
func (h *LessonHandler) Update(c *gin.Context) {
	var req service.LessonSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete removes one slot from the schedule.
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.lessons.Delete(c.Request.Context(), c.Param("id"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
