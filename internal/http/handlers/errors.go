package handlers

import (
	"errors"
	"log"
	"net/http"

	"booker/internal/domain"
	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// bookingStatus maps a booking failure kind to the HTTP status an
// interactive caller sees.
var bookingStatus = map[domain.BookingErrorKind]int{
	domain.KindProfileMissing:     http.StatusUnprocessableEntity,
	domain.KindRouteUnavailable:   http.StatusConflict,
	domain.KindServiceSoldOut:     http.StatusConflict,
	domain.KindInteractiveExpired: http.StatusGone,
	domain.KindTooManySessions:    http.StatusTooManyRequests,
	domain.KindCaptchaExhausted:   http.StatusBadGateway,
	domain.KindPortalLayoutDrift:  http.StatusBadGateway,
	domain.KindPortalRejected:     http.StatusBadGateway,
	domain.KindNetworkOrDriver:    http.StatusBadGateway,
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	if kind := domain.BookingKind(err); kind != "" {
		status, ok := bookingStatus[kind]
		if !ok {
			status = http.StatusBadGateway
		}
		respondError(c, status, string(kind), err.Error(), nil)
		return
	}
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsInternal(err):
		var ierr domain.InternalError
		errors.As(err, &ierr)
		log.Printf("[HTTP] request_id=%s internal error: %v", middleware.GetRequestID(c), err)
		if ierr.Reservation != "" {
			// the portal holds the seat; the caller still needs the code
			respondError(c, http.StatusInternalServerError, "ticket_not_saved", ierr.Error(), gin.H{"reservation_code": ierr.Reservation})
			return
		}
		respondError(c, http.StatusInternalServerError, "internal_error", "terjadi kesalahan", nil)
	default:
		log.Printf("[HTTP] request_id=%s internal error: %v", middleware.GetRequestID(c), err)
		respondError(c, http.StatusInternalServerError, "internal_error", "terjadi kesalahan", nil)
	}
}
