package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-credit-api/internal/service"
	"github.com/noah-isme/tuition-credit-api/pkg/response"
)

// CreditHandler exposes student credit reads, the expiring list and the
// expiry sweep trigger.
type CreditHandler struct {
	credits *service.CreditService
}

// NewCreditHandler constructs CreditHandler.
func NewCreditHandler(credits *service.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// StudentCredits godoc
// @Summary Student credit summary grouped by theme, regular and expired
// @Tags Credits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/credits [get]
func (h *CreditHandler) StudentCredits(c *gin.Context) {
	credits, err := h.credits.GetStudentCredits(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credits, nil)
}

// StudentValidCredits godoc
// @Summary Remaining sessions across currently-valid enrollments
// @Tags Credits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/credits/valid [get]
func (h *CreditHandler) StudentValidCredits(c *gin.Context) {
	credits, err := h.credits.GetStudentValidCredits(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credits, nil)
}

// Expiring godoc
// @Summary Enrollments lapsing within the given window, soonest first
// @Tags Credits
// @Produce json
// @Param days query int false "Window in days (default from config)"
// @Success 200 {object} response.Envelope
// @Router /enrollments/expiring [get]
func (h *CreditHandler) Expiring(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			days = parsed
		}
	}
	expiring, err := h.credits.ListExpiring(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expiring, nil)
}

// Sweep godoc
// @Summary Flag every enrollment whose validity window has closed
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/expiry-sweep [post]
func (h *CreditHandler) Sweep(c *gin.Context) {
	result, err := h.credits.SweepExpired(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
