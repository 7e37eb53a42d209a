package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-credit-api/internal/models"
	"github.com/noah-isme/tuition-credit-api/internal/service"
	"github.com/noah-isme/tuition-credit-api/pkg/response"
)

// EnrollmentHandler exposes ledger row endpoints and the order-completion
// boundary.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Filter by status (ACTIVE, CANCELLED)"
// @Param category query string false "Filter by category (REGULAR, THEME)"
// @Param expired query bool false "Filter by stored expiry flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.CourseID = c.Query("courseId")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.Category = models.EnrollmentCategory(strings.ToUpper(c.Query("category")))
	if raw := c.Query("expired"); raw != "" {
		if expired, err := strconv.ParseBool(raw); err == nil {
			filter.Expired = &expired
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment detail
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	detail, err := h.enrollments.FindDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// CompleteOrder godoc
// @Summary Convert a confirmed order into ledger rows
// @Description Idempotency caveat: replaying a completed order re-applies its line items.
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /orders/{id}/complete [post]
func (h *EnrollmentHandler) CompleteOrder(c *gin.Context) {
	result := h.enrollments.ProcessOrderCompletion(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, result, nil)
}
