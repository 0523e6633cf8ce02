package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/middleware"
	"github.com/mindsettler/service-booking/internal/response"
)

// BookingHandler handles HTTP requests for the public booking lifecycle.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all public booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("/draft", h.CreateDraft)
		bookings.GET("/verify-email", h.VerifyEmail)
		bookings.GET("/status", h.GetStatus)
		bookings.POST("/cancel", h.RequestCancellation)
		bookings.GET("/verify-cancellation", h.VerifyCancellation)
	}
}

// CreateDraft handles POST /api/v1/bookings/draft.
func (h *BookingHandler) CreateDraft(c *gin.Context) {
	var req application.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateDraft(c.Request.Context(), middleware.ClientIP(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Outcome == application.DraftOutcomeCreated {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// VerifyEmail handles GET /api/v1/bookings/verify-email.
func (h *BookingHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}

	result, err := h.service.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetStatus handles GET /api/v1/bookings/status.
func (h *BookingHandler) GetStatus(c *gin.Context) {
	ackID := c.Query("acknowledgement_id")
	if ackID == "" {
		response.BadRequest(c, "acknowledgement_id is required")
		return
	}

	result, err := h.service.GetStatus(c.Request.Context(), ackID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBookingRequest identifies the booking the user wants to cancel.
type CancelBookingRequest struct {
	AcknowledgementID string `json:"acknowledgement_id" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
}

// RequestCancellation handles POST /api/v1/bookings/cancel.
func (h *BookingHandler) RequestCancellation(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RequestCancellation(c.Request.Context(), req.AcknowledgementID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// VerifyCancellation handles GET /api/v1/bookings/verify-cancellation.
func (h *BookingHandler) VerifyCancellation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}

	result, err := h.service.VerifyCancellation(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with sane defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
