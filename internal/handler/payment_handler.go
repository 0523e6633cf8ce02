package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/response"
)

// PaymentHandler handles HTTP requests for payment sessions.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers all payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/initiate", h.Initiate)
		payments.POST("/complete", h.Complete)
		payments.POST("/callback", h.Callback)
	}
}

// InitiatePaymentRequest identifies the booking to open a session for.
type InitiatePaymentRequest struct {
	AcknowledgementID string `json:"acknowledgement_id" binding:"required"`
}

// Initiate handles POST /api/v1/payments/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Initiate(c.Request.Context(), req.AcknowledgementID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// CompletePaymentRequest identifies the session the gateway settled.
type CompletePaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// Complete handles POST /api/v1/payments/complete.
func (h *PaymentHandler) Complete(c *gin.Context) {
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Complete(c.Request.Context(), req.PaymentReference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PaymentCallbackRequest is the gateway's settlement webhook payload.
type PaymentCallbackRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
	Status           string `json:"status" binding:"required"`
	Reason           string `json:"reason"`
}

// Callback handles POST /api/v1/payments/callback.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var result *application.PaymentSessionDTO
	var err error
	switch strings.ToUpper(req.Status) {
	case "SUCCESS", "COMPLETED":
		result, err = h.service.Complete(c.Request.Context(), req.PaymentReference)
	case "FAILED", "FAILURE":
		result, err = h.service.Fail(c.Request.Context(), req.PaymentReference, req.Reason)
	default:
		response.BadRequest(c, "status must be SUCCESS or FAILED")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
