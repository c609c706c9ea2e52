package portal

import (
	"context"
	"fmt"
	"strings"

	"booker/internal/browser"
	"booker/internal/domain"
	"booker/internal/domain/models"
)

type SearchOutcome int

const (
	SearchFailed SearchOutcome = iota
	SearchFound
	SearchDirect
	SearchEmpty
)

func (o SearchOutcome) String() string {
	switch o {
	case SearchFound:
		return "found"
	case SearchDirect:
		return "direct_to_passenger_info"
	case SearchEmpty:
		return "empty_result"
	default:
		return "failed"
	}
}

// SearchResult is Found(services), DirectToPassengerInfo, EmptyResult or Failed(Err).
type SearchResult struct {
	Outcome  SearchOutcome
	Services []models.TrainService
	Err      *domain.BookingError
	Rounds   []CaptchaAttempt
}

func searchFailed(kind domain.BookingErrorKind, msg string, err error) SearchResult {
	return SearchResult{Outcome: SearchFailed, Err: domain.NewBookingError(kind, msg, err)}
}

// Search fills the booking form and runs the CAPTCHA loop until the portal
// shows the train list, jumps to passenger info, or gives up.
func (p *Portal) Search(ctx context.Context, page browser.Page, req models.SearchRequest) SearchResult {
	from, ok := models.StationValue(req.Origin)
	if !ok {
		return searchFailed(domain.KindRouteUnavailable, "unknown origin station "+req.Origin, nil)
	}
	to, ok := models.StationValue(req.Destination)
	if !ok {
		return searchFailed(domain.KindRouteUnavailable, "unknown destination station "+req.Destination, nil)
	}
	if from == to {
		return searchFailed(domain.KindRouteUnavailable, "origin and destination are the same", nil)
	}

	if err := page.Goto(p.cfg.PortalURL); err != nil {
		return searchFailed(domain.KindNetworkOrDriver, "open portal", err)
	}
	home := page.URL()

	if p.waitFor(ctx, dialogWait, func() bool { return browser.Exists(page, selCookieAccept) }) {
		_ = page.Click(selCookieAccept)
	}

	if res, failed := p.fillSearchForm(page, from, to, req); failed {
		return res
	}

	st := captchaState{Max: p.cfg.MaxCaptchaAttempts}
	var rounds []CaptchaAttempt
	for {
		if err := ctx.Err(); err != nil {
			res := searchFailed(domain.KindNetworkOrDriver, "search cancelled", err)
			res.Rounds = rounds
			return res
		}

		obs := p.captchaRound(ctx, page, home)
		rounds = append(rounds, obs.Attempt)

		var d captchaDecision
		st, d = nextCaptcha(st, obs)
		p.logf("captcha round=%d guess=%q submitted=%v signal=%s", st.Round, obs.Attempt.Guess, obs.Attempt.Submitted, obs.Attempt.Signal)

		var res SearchResult
		switch d.Action {
		case actionRefresh:
			p.observer.CaptchaRound("rejected")
			if err := page.Click(selCaptchaReload); err != nil {
				res = p.finalParse(page)
				res.Rounds = rounds
				return res
			}
			if err := p.pause(ctx, settleDelay); err != nil {
				res = searchFailed(domain.KindNetworkOrDriver, "search cancelled", err)
				res.Rounds = rounds
				return res
			}
			continue
		case actionSelection:
			p.observer.CaptchaRound("accepted")
			res = p.collectServices(ctx, page)
		case actionDirect:
			p.observer.CaptchaRound("accepted")
			res = SearchResult{Outcome: SearchDirect}
		case actionFinalParse:
			res = p.finalParse(page)
		default:
			p.observer.CaptchaRound("failed")
			res = searchFailed(d.Kind, d.Reason, nil)
		}
		res.Rounds = rounds
		return res
	}
}

func (p *Portal) fillSearchForm(page browser.Page, from, to string, req models.SearchRequest) (SearchResult, bool) {
	drift := func(what string, err error) (SearchResult, bool) {
		return searchFailed(domain.KindPortalLayoutDrift, what, err), true
	}

	if err := page.Select(selStartStation, browser.SelectBy{Value: from}); err != nil {
		return drift("origin select", err)
	}
	if err := page.Select(selDestStation, browser.SelectBy{Value: to}); err != nil {
		return drift("destination select", err)
	}
	if err := page.SetValue(selDateInput, req.TravelDate); err != nil {
		return drift("date input", err)
	}

	byCode := req.ServiceCode != "" && browser.Exists(page, selMethodTrainNo)
	if byCode {
		if err := page.Click(selMethodTrainNo); err != nil {
			return drift("booking method radio", err)
		}
		if err := page.SetValue(selTrainNoInput, req.ServiceCode); err != nil {
			return drift("train number input", err)
		}
	} else {
		depart := req.DepartureTime
		if depart == "" {
			depart = "00:00"
		}
		if err := page.Select(selTimeTable, browser.SelectBy{Label: depart}); err != nil {
			if err := page.Select(selTimeTable, browser.SelectBy{Index: 1, ByIndex: true}); err != nil {
				return drift("departure time select", err)
			}
		}
	}

	count := req.TicketCount
	if count <= 0 {
		count = 1
	}
	if err := page.Select(selTicketAmount, browser.SelectBy{Value: fmt.Sprintf("%dF", count)}); err != nil {
		return drift("ticket amount select", err)
	}

	seat := selSeatNone
	switch req.SeatPreference {
	case models.SeatWindow:
		seat = selSeatWindow
	case models.SeatAisle:
		seat = selSeatAisle
	}
	// Seat choice is closed for some departures; the booking still goes through.
	if err := page.Click(seat); err != nil {
		p.logf("seat preference %s not applied: %v", req.SeatPreference, err)
	}

	if !browser.Exists(page, selCaptchaImage) || !browser.Exists(page, selCaptchaInput) {
		return drift("captcha controls missing", nil)
	}
	return SearchResult{}, false
}

// captchaRound reads, guesses and (when the guess looks plausible) submits once.
func (p *Portal) captchaRound(ctx context.Context, page browser.Page, home string) (obs captchaObservation) {
	defer func() {
		obs.RefreshPresent = browser.Exists(page, selCaptchaReload)
	}()

	img, err := page.Screenshot(selCaptchaImage)
	if err != nil {
		p.logf("captcha screenshot: %v", err)
		return obs
	}
	guess, err := p.solver.Solve(ctx, img)
	if err != nil {
		p.logf("ocr: %v", err)
		return obs
	}
	obs.Attempt.Guess = guess
	if !validGuess(guess) {
		return obs
	}

	if err := page.SetValue(selCaptchaInput, guess); err != nil {
		return obs
	}
	if err := page.Click(selSearchSubmit); err != nil {
		return obs
	}
	obs.Attempt.Submitted = true

	var snap Snapshot
	p.waitFor(ctx, p.cfg.PageTimeout, func() bool {
		snap = takeSnapshot(page, home)
		return ClassifySearch(snap) != SignalUnknown
	})
	obs.Attempt.Signal = ClassifySearch(snap)
	obs.ErrorText = snap.ErrorText
	return obs
}

func (p *Portal) collectServices(ctx context.Context, page browser.Page) SearchResult {
	p.waitFor(ctx, p.cfg.PageTimeout, func() bool { return browser.Exists(page, selResultListing) })
	services, err := parseServices(page)
	if err != nil {
		return searchFailed(domain.KindNetworkOrDriver, "parse train list", err)
	}
	if len(services) == 0 {
		return SearchResult{Outcome: SearchEmpty}
	}
	return SearchResult{Outcome: SearchFound, Services: services}
}

// finalParse runs when the refresh control vanished without a success marker:
// a result table that did load must not be discarded.
func (p *Portal) finalParse(page browser.Page) SearchResult {
	services, err := parseServices(page)
	if err == nil && len(services) > 0 {
		return SearchResult{Outcome: SearchFound, Services: services}
	}
	if takeSnapshot(page, "").onPassengerInfo() {
		return SearchResult{Outcome: SearchDirect}
	}
	return searchFailed(domain.KindCaptchaExhausted, "captcha refresh control disappeared", err)
}

func parseServices(page browser.Page) ([]models.TrainService, error) {
	rows, err := page.Rows(trainRowSpec())
	if err != nil {
		return nil, err
	}
	out := make([]models.TrainService, 0, len(rows))
	for _, r := range rows {
		code := strings.TrimSpace(r["code"])
		if code == "" {
			continue
		}
		out = append(out, models.TrainService{
			Code:      code,
			Departure: strings.TrimSpace(r["departure"]),
			Arrival:   strings.TrimSpace(r["arrival"]),
			Duration:  strings.TrimSpace(r["duration"]),
			Discount:  strings.TrimSpace(r["discount"]),
		})
	}
	return out, nil
}
