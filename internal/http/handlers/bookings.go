package handlers

import (
	"net/http"
	"strings"

	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/http/middleware"
	"booker/internal/utils"

	"github.com/gin-gonic/gin"
)

type searchRequest struct {
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	TravelDate     string `json:"travel_date"`
	DepartureTime  string `json:"departure_time"`
	ServiceCode    string `json:"service_code"`
	SeatPreference string `json:"seat_preference"`
}

// POST /api/bookings/search
// Runs the search now and keeps the browser open for the pick.
func (h *Handlers) SearchNow(c *gin.Context) {
	var in searchRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	req, err := h.searchFrom(in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sess, err := h.Interactive.Search(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type bookRequest struct {
	ServiceCode string `json:"service_code"`
}

// POST /api/bookings/search/:session/book
func (h *Handlers) BookService(c *gin.Context) {
	var in bookRequest
	// an empty body is fine when the search went straight to passenger info
	if c.Request.ContentLength > 0 && !BindJSONOrError(c, &in) {
		return
	}
	ticket, err := h.Interactive.Book(c.Request.Context(), middleware.UserID(c), c.Param("session"), strings.TrimSpace(in.ServiceCode))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *Handlers) searchFrom(in searchRequest) (models.SearchRequest, error) {
	origin, ok := models.StationValue(in.Origin)
	if !ok {
		return models.SearchRequest{}, domain.ValidationError{Field: "origin", Msg: "stasiun tidak dikenal"}
	}
	dest, ok := models.StationValue(in.Destination)
	if !ok {
		return models.SearchRequest{}, domain.ValidationError{Field: "destination", Msg: "stasiun tidak dikenal"}
	}
	if origin == dest {
		return models.SearchRequest{}, domain.ValidationError{Field: "destination", Msg: "harus berbeda dengan origin"}
	}
	date, err := utils.ParseTravelDate(in.TravelDate)
	if err != nil {
		return models.SearchRequest{}, domain.ValidationError{Field: "travel_date", Msg: "format YYYY/MM/DD", Err: err}
	}
	departure := strings.TrimSpace(in.DepartureTime)
	if departure == "" {
		departure = "00:00"
	}
	count := h.TicketCount
	if count <= 0 {
		count = 1
	}
	return models.SearchRequest{
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		TravelDate:     utils.FormatTravelDate(date),
		DepartureTime:  departure,
		ServiceCode:    strings.TrimSpace(in.ServiceCode),
		SeatPreference: models.ParseSeatPreference(in.SeatPreference),
		TicketCount:    count,
	}, nil
}
