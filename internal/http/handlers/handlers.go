package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"booker/internal/domain/models"
	"booker/internal/events"
	"booker/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskAPI interface {
	Create(ctx context.Context, userID int64, in services.TaskInput) (models.BookingTask, error)
	Get(userID, id int64) (models.BookingTask, error)
	List(userID int64) ([]models.BookingTask, error)
	Cancel(ctx context.Context, userID, id int64) (models.BookingTask, error)
}

type TicketAPI interface {
	List(userID int64) ([]models.Ticket, error)
	SetPaid(userID, id int64, paid bool) error
}

type ProfileAPI interface {
	Get(userID int64) (models.PassengerProfile, error)
	Save(userID int64, in models.PassengerProfile) (models.PassengerProfile, error)
}

type InteractiveAPI interface {
	Search(ctx context.Context, userID int64, req models.SearchRequest) (services.SearchSession, error)
	Book(ctx context.Context, userID int64, sessionID, code string) (models.Ticket, error)
}

type UserStore interface {
	FindByLogin(login string) (models.User, error)
	Create(username, email, passwordHash string, now time.Time) (models.User, error)
}

// Handlers carries the services the API delegates to.
type Handlers struct {
	DB          *sql.DB
	Users       UserStore
	Tasks       TaskAPI
	Tickets     TicketAPI
	Profiles    ProfileAPI
	Docs        services.DocsService
	Interactive InteractiveAPI
	Hub         *events.Hub
	TicketCount int

	JWTSecret []byte
	TokenTTL  time.Duration
	Now       func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_"+name, name+" tidak valid", nil)
		return 0, false
	}
	return id, true
}
