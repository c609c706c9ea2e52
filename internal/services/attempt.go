package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"booker/internal/browser"
	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/portal"
)

// BookingStages is the portal flow; *portal.Portal implements it.
type BookingStages interface {
	Search(ctx context.Context, page browser.Page, req models.SearchRequest) portal.SearchResult
	SelectService(ctx context.Context, page browser.Page, code string) portal.SelectionResult
	SubmitPassenger(ctx context.Context, page browser.Page, profile models.PassengerProfile) *domain.BookingError
	ExtractResult(ctx context.Context, page browser.Page) (models.Confirmation, *domain.BookingError)
}

// ProfileSource returns nil, nil for a user without a profile.
type ProfileSource interface {
	Get(userID int64) (*models.PassengerProfile, error)
}

// AttemptRunner runs one full purchase on a fresh browser. It is the only
// place stage outcomes become BookingErrors.
type AttemptRunner struct {
	Launcher browser.Launcher
	Stages   BookingStages
	Profiles ProfileSource
}

// Run books req for userID. Every returned error is a *domain.BookingError.
func (r AttemptRunner) Run(ctx context.Context, userID int64, req models.SearchRequest) (models.Confirmation, error) {
	profile, berr := loadProfile(r.Profiles, userID)
	if berr != nil {
		return models.Confirmation{}, berr
	}

	var (
		conf    models.Confirmation
		outcome *domain.BookingError
	)
	err := browser.WithSession(ctx, r.Launcher, func(page browser.Page) error {
		conf, outcome = r.drive(ctx, page, *profile, req)
		if outcome != nil {
			return outcome
		}
		return nil
	})
	if err != nil {
		return models.Confirmation{}, asBookingError(err)
	}
	return conf, nil
}

func (r AttemptRunner) drive(ctx context.Context, page browser.Page, profile models.PassengerProfile, req models.SearchRequest) (models.Confirmation, *domain.BookingError) {
	res := r.Stages.Search(ctx, page, req)
	log.Printf("[Attempt] user=%d route=%s-%s date=%s search=%s rounds=%d", profile.UserID, req.Origin, req.Destination, req.TravelDate, res.Outcome, len(res.Rounds))

	switch res.Outcome {
	case portal.SearchFound:
		code := pickService(res.Services, req.ServiceCode)
		if berr := selectionError(r.Stages.SelectService(ctx, page, code), code); berr != nil {
			return models.Confirmation{}, berr
		}
	case portal.SearchDirect:
	default:
		return models.Confirmation{}, searchError(res)
	}
	return finishBooking(ctx, r.Stages, page, profile)
}

// finishBooking runs the stages after the passenger page is reached.
func finishBooking(ctx context.Context, stages BookingStages, page browser.Page, profile models.PassengerProfile) (models.Confirmation, *domain.BookingError) {
	if berr := stages.SubmitPassenger(ctx, page, profile); berr != nil {
		return models.Confirmation{}, berr
	}
	return stages.ExtractResult(ctx, page)
}

func loadProfile(src ProfileSource, userID int64) (*models.PassengerProfile, *domain.BookingError) {
	profile, err := src.Get(userID)
	if err != nil {
		return nil, domain.NewBookingError(domain.KindNetworkOrDriver, "load passenger profile", err)
	}
	if profile == nil || strings.TrimSpace(profile.NationalID) == "" {
		return nil, domain.NewBookingError(domain.KindProfileMissing, "no passenger profile for user", nil)
	}
	return profile, nil
}

// pickService honours the requested code; without one the first listed
// (earliest) departure is taken.
func pickService(services []models.TrainService, want string) string {
	if want = strings.TrimSpace(want); want != "" {
		return want
	}
	return services[0].Code
}

func searchError(res portal.SearchResult) *domain.BookingError {
	switch res.Outcome {
	case portal.SearchEmpty:
		return domain.NewBookingError(domain.KindRouteUnavailable, "no services listed for this route and date", nil)
	case portal.SearchFailed:
		if res.Err != nil {
			return res.Err
		}
	}
	return domain.NewBookingError(domain.KindNetworkOrDriver, "search ended without a result", nil)
}

func selectionError(res portal.SelectionResult, code string) *domain.BookingError {
	switch res.Outcome {
	case portal.SelectionSuccess:
		return nil
	case portal.SelectionNotAvailable:
		return domain.NewBookingError(domain.KindServiceSoldOut, "service "+code+" not offered", nil)
	case portal.SelectionSoldOut:
		return domain.NewBookingError(domain.KindServiceSoldOut, "service "+code+" sold out", nil)
	default:
		return domain.NewBookingError(domain.KindPortalLayoutDrift, "unexpected page after selection: "+res.Snippet, nil)
	}
}

// asBookingError keeps booking errors as they are; anything else (launch
// failure, driver panic) is a driver error.
func asBookingError(err error) *domain.BookingError {
	var be *domain.BookingError
	if errors.As(err, &be) {
		return be
	}
	return domain.NewBookingError(domain.KindNetworkOrDriver, "browser session", err)
}
