package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/domain"
)

// genericTokenMessage hides which token check failed; the distinction is
// logged server-side only.
const genericTokenMessage = "Invalid or expired link"

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// Paginated writes a 200 with items plus pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Error maps a domain error to its HTTP representation. Unknown errors
// become opaque 500s.
func Error(c *gin.Context, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch kind {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.KindRateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case domain.KindTokenExpired:
		c.JSON(http.StatusGone, gin.H{"error": genericTokenMessage})
	case domain.KindTokenNotFound, domain.KindTokenAlreadyUsed:
		c.JSON(http.StatusBadRequest, gin.H{"error": genericTokenMessage})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
