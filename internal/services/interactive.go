package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"booker/internal/browser"
	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/portal"

	"github.com/google/uuid"
)

// TicketSink persists tickets booked outside the scheduler.
type TicketSink interface {
	Create(t models.Ticket, now time.Time) (models.Ticket, error)
}

// SessionMetrics is satisfied by *metrics.Metrics.
type SessionMetrics interface {
	SessionOpened()
	SessionClosed()
}

type noopSessionMetrics struct{}

func (noopSessionMetrics) SessionOpened() {}
func (noopSessionMetrics) SessionClosed() {}

// SearchSession is what the caller gets back from an interactive search.
type SearchSession struct {
	ID        string                `json:"session_id"`
	Services  []models.TrainService `json:"services"`
	Direct    bool                  `json:"direct"`
	ExpiresAt time.Time             `json:"expires_at"`
}

type openSession struct {
	id        string
	userID    int64
	req       models.SearchRequest
	session   browser.Session
	services  []models.TrainService
	direct    bool
	expiresAt time.Time
}

// InteractiveService keeps the browser open between the search and the
// caller's pick. Each session is used for exactly one booking.
type InteractiveService struct {
	Launcher browser.Launcher
	Stages   BookingStages
	Profiles ProfileSource
	Tickets  TicketSink
	Metrics  SessionMetrics
	TTL      time.Duration
	Now      func() time.Time

	// MaxOpen caps browsers held by interactive sessions, launching ones
	// included. Zero means no cap.
	MaxOpen int

	mu       sync.Mutex
	sessions map[string]*openSession
	browsers int
}

func (s *InteractiveService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *InteractiveService) metrics() SessionMetrics {
	if s.Metrics != nil {
		return s.Metrics
	}
	return noopSessionMetrics{}
}

// Search runs the search stage and parks the browser on the result page.
func (s *InteractiveService) Search(ctx context.Context, userID int64, req models.SearchRequest) (SearchSession, error) {
	if _, berr := loadProfile(s.Profiles, userID); berr != nil {
		return SearchSession{}, berr
	}

	if !s.reserve() {
		log.Printf("[Interactive] user=%d rejected, %d browsers open", userID, s.MaxOpen)
		return SearchSession{}, domain.NewBookingError(domain.KindTooManySessions, "too many open browser sessions", nil)
	}
	sess, err := s.Launcher.Launch(ctx)
	if err != nil {
		s.release()
		return SearchSession{}, domain.NewBookingError(domain.KindNetworkOrDriver, "launch browser", err)
	}
	s.metrics().SessionOpened()

	res, err := s.guardedSearch(ctx, sess.Page(), req)
	if err == nil && res.Outcome != portal.SearchFound && res.Outcome != portal.SearchDirect {
		err = searchError(res)
	}
	if err != nil {
		s.closeSession(sess)
		return SearchSession{}, err
	}

	open := &openSession{
		id:        uuid.NewString(),
		userID:    userID,
		req:       req,
		session:   sess,
		services:  res.Services,
		direct:    res.Outcome == portal.SearchDirect,
		expiresAt: s.now().Add(s.ttl()),
	}
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = map[string]*openSession{}
	}
	s.sessions[open.id] = open
	s.mu.Unlock()

	log.Printf("[Interactive] session=%s user=%d services=%d direct=%v", open.id, userID, len(open.services), open.direct)
	return SearchSession{ID: open.id, Services: open.services, Direct: open.direct, ExpiresAt: open.expiresAt}, nil
}

// Book finishes the purchase on a parked session. The session is consumed
// whatever the outcome.
func (s *InteractiveService) Book(ctx context.Context, userID int64, sessionID, code string) (models.Ticket, error) {
	s.mu.Lock()
	open, ok := s.sessions[sessionID]
	if ok && open.userID != userID {
		s.mu.Unlock()
		return models.Ticket{}, domain.ForbiddenError{Resource: "session"}
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return models.Ticket{}, domain.NewBookingError(domain.KindInteractiveExpired, "search session not found or expired", nil)
	}
	defer s.closeSession(open.session)

	if s.now().After(open.expiresAt) {
		return models.Ticket{}, domain.NewBookingError(domain.KindInteractiveExpired, "search session expired", nil)
	}

	profile, berr := loadProfile(s.Profiles, userID)
	if berr != nil {
		return models.Ticket{}, berr
	}

	var conf models.Confirmation
	err := guard(func() error {
		if !open.direct {
			if code == "" {
				return domain.ValidationError{Field: "service_code", Msg: "wajib diisi"}
			}
			if berr := selectionError(s.Stages.SelectService(ctx, open.session.Page(), code), code); berr != nil {
				return berr
			}
		}
		c, berr := finishBooking(ctx, s.Stages, open.session.Page(), *profile)
		if berr != nil {
			return berr
		}
		conf = c
		return nil
	})
	if err != nil {
		if domain.IsValidation(err) {
			return models.Ticket{}, err
		}
		return models.Ticket{}, asBookingError(err)
	}

	ticket := models.TicketFromConfirmation(userID, open.req.Origin, open.req.Destination, conf)
	saved, err := s.Tickets.Create(ticket, s.now())
	if err != nil {
		return ticket, domain.TicketNotSaved(conf.ReservationCode, err)
	}
	log.Printf("[Interactive] session=%s user=%d booked pnr=%s", sessionID, userID, saved.ReservationCode)
	return saved, nil
}

// Reap closes sessions idle past their TTL and returns how many it closed.
func (s *InteractiveService) Reap() int {
	now := s.now()
	var expired []*openSession
	s.mu.Lock()
	for id, open := range s.sessions {
		if now.After(open.expiresAt) {
			expired = append(expired, open)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, open := range expired {
		log.Printf("[Interactive] session=%s expired, closing browser", open.id)
		s.closeSession(open.session)
	}
	return len(expired)
}

// RunReaper calls Reap every interval until ctx ends, then closes everything.
func (s *InteractiveService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}

func (s *InteractiveService) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = nil
	s.mu.Unlock()
	for _, open := range all {
		s.closeSession(open.session)
	}
}

// Open reports the number of parked sessions.
func (s *InteractiveService) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *InteractiveService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 5 * time.Minute
}

func (s *InteractiveService) guardedSearch(ctx context.Context, page browser.Page, req models.SearchRequest) (portal.SearchResult, error) {
	var res portal.SearchResult
	err := guard(func() error {
		res = s.Stages.Search(ctx, page, req)
		return nil
	})
	if err != nil {
		return res, asBookingError(err)
	}
	return res, nil
}

func (s *InteractiveService) closeSession(sess browser.Session) {
	if err := sess.Close(); err != nil {
		log.Printf("[Interactive] close browser: %v", err)
	}
	s.release()
	s.metrics().SessionClosed()
}

func (s *InteractiveService) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MaxOpen > 0 && s.browsers >= s.MaxOpen {
		return false
	}
	s.browsers++
	return true
}

func (s *InteractiveService) release() {
	s.mu.Lock()
	if s.browsers > 0 {
		s.browsers--
	}
	s.mu.Unlock()
}

// guard turns a panic from driver code into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("browser session panic: %v", r)
		}
	}()
	return fn()
}
