package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/middleware"
	"github.com/mindsettler/service-booking/internal/response"
)

// AdminHandler handles HTTP requests for the reviewer's booking operations.
type AdminHandler struct {
	service *application.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers all admin routes on the given router group behind
// the API key check.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, apiKey string) {
	admin := r.Group("/admin")
	admin.Use(middleware.AdminKeyMiddleware(apiKey))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/bookings/:ack_id", h.GetBooking)
		admin.POST("/bookings/:ack_id/approve", h.Approve)
		admin.POST("/bookings/:ack_id/reject", h.Reject)
		admin.POST("/bookings/:ack_id/cancel", h.Cancel)
		admin.POST("/bookings/:ack_id/complete", h.Complete)
		admin.GET("/stats", h.GetStats)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	status := c.Query("status")

	result, err := h.service.ListBookings(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/admin/bookings/:ack_id.
func (h *AdminHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetBooking(c.Request.Context(), c.Param("ack_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Approve handles POST /api/v1/admin/bookings/:ack_id/approve.
func (h *AdminHandler) Approve(c *gin.Context) {
	var req application.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Approve(c.Request.Context(), c.Param("ack_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reject handles POST /api/v1/admin/bookings/:ack_id/reject.
func (h *AdminHandler) Reject(c *gin.Context) {
	var req application.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Reject(c.Request.Context(), c.Param("ack_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Cancel handles POST /api/v1/admin/bookings/:ack_id/cancel.
func (h *AdminHandler) Cancel(c *gin.Context) {
	var req application.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), c.Param("ack_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Complete handles POST /api/v1/admin/bookings/:ack_id/complete.
func (h *AdminHandler) Complete(c *gin.Context) {
	result, err := h.service.Complete(c.Request.Context(), c.Param("ack_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
	result, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
