package handlers

import (
	"net/http"

	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	list, err := h.Tickets.List(middleware.UserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": list})
}

// GET /api/tickets/:id/pdf?doc=eticket|payment
func (h *Handlers) TicketPDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	docs := h.Docs
	docs.RequestID = middleware.GetRequestID(c)

	var (
		pdfBytes []byte
		filename string
		err      error
	)
	switch c.DefaultQuery("doc", "eticket") {
	case "eticket":
		pdfBytes, filename, err = docs.GenerateETicket(middleware.UserID(c), id)
	case "payment":
		pdfBytes, filename, err = docs.GeneratePaymentSlip(middleware.UserID(c), id)
	default:
		respondError(c, http.StatusBadRequest, "invalid_doc", "doc harus eticket atau payment", nil)
		return
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

type paidRequest struct {
	Paid *bool `json:"paid"`
}

// PUT /api/tickets/:id/paid
func (h *Handlers) SetTicketPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paidRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Paid == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "paid: wajib diisi", nil)
		return
	}
	if err := h.Tickets.SetPaid(middleware.UserID(c), id, *req.Paid); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_paid": *req.Paid})
}
