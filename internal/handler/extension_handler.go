package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-credit-api/internal/service"
	appErrors "github.com/noah-isme/tuition-credit-api/pkg/errors"
	"github.com/noah-isme/tuition-credit-api/pkg/response"
)

// ExtensionHandler exposes the audited validity-extension workflow.
type ExtensionHandler struct {
	credits *service.CreditService
}

// NewExtensionHandler constructs ExtensionHandler.
func NewExtensionHandler(credits *service.CreditService) *ExtensionHandler {
	return &ExtensionHandler{credits: credits}
}

// Create godoc
// @Summary Extend an enrollment's validity window
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.ExtendValidityRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/extensions [post]
func (h *ExtensionHandler) Create(c *gin.Context) {
	var req service.ExtendValidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ext, err := h.credits.ExtendValidity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ext)
}

// List godoc
// @Summary Extension audit trail for an enrollment, newest first
// @Tags Extensions
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/extensions [get]
func (h *ExtensionHandler) List(c *gin.Context) {
	extensions, err := h.credits.ListExtensions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, extensions, nil)
}
