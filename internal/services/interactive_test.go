package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/portal"
)

type memTickets struct {
	saved []models.Ticket
	err   error
}

func (m *memTickets) Create(t models.Ticket, now time.Time) (models.Ticket, error) {
	if m.err != nil {
		return t, m.err
	}
	t.ID = int64(len(m.saved) + 1)
	t.CreatedAt = now
	m.saved = append(m.saved, t)
	return t, nil
}

func newInteractive(st *fakeStages) (*InteractiveService, *memTickets, *clock) {
	clk := &clock{t: t0}
	tickets := &memTickets{}
	l := fakeLauncher()
	return &InteractiveService{
		Launcher: l, Stages: st, Profiles: withProfile(), Tickets: tickets,
		TTL: 5 * time.Minute, Now: clk.Now,
	}, tickets, clk
}

func TestInteractive_SearchThenBook(t *testing.T) {
	st := okStages("0657", "0803")
	s, tickets, _ := newInteractive(st)
	l := s.Launcher.(interface{ Open() int })

	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)
	require.Len(t, sess.Services, 2)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, t0.Add(5*time.Minute), sess.ExpiresAt)
	assert.Equal(t, 1, l.Open(), "browser stays open between search and pick")

	ticket, err := s.Book(context.Background(), 7, sess.ID, "0803")
	require.NoError(t, err)
	assert.Equal(t, "02915121", ticket.ReservationCode)
	assert.Equal(t, "台北", ticket.Origin)
	assert.Equal(t, []string{"0803"}, st.selected)
	require.Len(t, tickets.saved, 1)
	assert.Equal(t, 0, l.Open())
	assert.Zero(t, s.Open())
}

func TestInteractive_SessionIsSingleUse(t *testing.T) {
	s, _, _ := newInteractive(okStages("0657"))
	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)

	_, err = s.Book(context.Background(), 7, sess.ID, "0657")
	require.NoError(t, err)

	_, err = s.Book(context.Background(), 7, sess.ID, "0657")
	assert.Equal(t, domain.KindInteractiveExpired, domain.BookingKind(err))
}

func TestInteractive_OtherUserIsForbidden(t *testing.T) {
	s, _, _ := newInteractive(okStages("0657"))
	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)

	_, err = s.Book(context.Background(), 8, sess.ID, "0657")
	assert.True(t, domain.IsForbidden(err))
	assert.Equal(t, 1, s.Open(), "the owner can still use it")
}

func TestInteractive_ExpiredSession(t *testing.T) {
	s, tickets, clk := newInteractive(okStages("0657"))
	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)

	clk.Set(t0.Add(6 * time.Minute))
	_, err = s.Book(context.Background(), 7, sess.ID, "0657")

	assert.Equal(t, domain.KindInteractiveExpired, domain.BookingKind(err))
	assert.Empty(t, tickets.saved)
	assert.Equal(t, 0, s.Launcher.(interface{ Open() int }).Open())
}

func TestInteractive_ReapClosesIdleSessions(t *testing.T) {
	s, _, clk := newInteractive(okStages("0657"))
	_, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)
	clk.Set(t0.Add(time.Minute))
	_, err = s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)

	clk.Set(t0.Add(5*time.Minute + time.Second))
	assert.Equal(t, 1, s.Reap())
	assert.Equal(t, 1, s.Open())

	s.CloseAll()
	assert.Equal(t, 0, s.Launcher.(interface{ Open() int }).Open())
}

func TestInteractive_MaxOpenBoundsBrowsers(t *testing.T) {
	s, _, _ := newInteractive(okStages("0657"))
	s.MaxOpen = 2
	l := s.Launcher.(interface{ Open() int })

	first, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)
	_, err = s.Search(context.Background(), 8, req(""))
	require.NoError(t, err)

	_, err = s.Search(context.Background(), 7, req(""))
	assert.Equal(t, domain.KindTooManySessions, domain.BookingKind(err))
	assert.Equal(t, 2, l.Open(), "rejected search must not launch a browser")

	_, err = s.Book(context.Background(), 7, first.ID, "0657")
	require.NoError(t, err)

	_, err = s.Search(context.Background(), 7, req(""))
	require.NoError(t, err, "a consumed session frees its slot")
	assert.Equal(t, 2, l.Open())
}

func TestInteractive_SearchFailuresCloseBrowser(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeStages)
		want  domain.BookingErrorKind
	}{
		{"empty", func(s *fakeStages) { s.search = portal.SearchResult{Outcome: portal.SearchEmpty} }, domain.KindRouteUnavailable},
		{"captcha", func(s *fakeStages) {
			s.search = portal.SearchResult{Outcome: portal.SearchFailed, Err: domain.NewBookingError(domain.KindCaptchaExhausted, "", nil)}
		}, domain.KindCaptchaExhausted},
		{"panic", func(s *fakeStages) { s.panicOn = "search" }, domain.KindNetworkOrDriver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := okStages("0657")
			tc.setup(st)
			s, _, _ := newInteractive(st)

			_, err := s.Search(context.Background(), 7, req(""))

			assert.Equal(t, tc.want, domain.BookingKind(err))
			assert.Equal(t, 0, s.Launcher.(interface{ Open() int }).Open())
			assert.Zero(t, s.Open())
		})
	}
}

func TestInteractive_MissingProfileSkipsBrowser(t *testing.T) {
	s, _, _ := newInteractive(okStages("0657"))
	s.Profiles = fakeProfiles{}

	_, err := s.Search(context.Background(), 7, req(""))

	assert.Equal(t, domain.KindProfileMissing, domain.BookingKind(err))
}

func TestInteractive_BookSoldOutConsumesSession(t *testing.T) {
	st := okStages("0657")
	s, tickets, _ := newInteractive(st)
	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)
	st.sel = portal.SelectionResult{Outcome: portal.SelectionSoldOut}

	_, err = s.Book(context.Background(), 7, sess.ID, "0657")

	assert.Equal(t, domain.KindServiceSoldOut, domain.BookingKind(err))
	assert.Empty(t, tickets.saved)
	assert.Zero(t, s.Open())
}

func TestInteractive_SaveFailureKeepsPNRInError(t *testing.T) {
	s, tickets, _ := newInteractive(okStages("0657"))
	tickets.err = errors.New("db down")
	sess, err := s.Search(context.Background(), 7, req(""))
	require.NoError(t, err)

	ticket, err := s.Book(context.Background(), 7, sess.ID, "0657")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "02915121")
	assert.Equal(t, "02915121", ticket.ReservationCode)
	var ierr domain.InternalError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "02915121", ierr.Reservation)
	assert.ErrorIs(t, err, tickets.err)
}
