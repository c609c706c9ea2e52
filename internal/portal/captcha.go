package portal

import "booker/internal/domain"

// CaptchaAttempt records one OCR guess inside a single search. Not persisted.
type CaptchaAttempt struct {
	Guess     string
	Submitted bool
	Signal    Signal
}

type captchaAction int

const (
	actionRefresh captchaAction = iota
	actionSelection
	actionDirect
	actionFinalParse
	actionFail
)

type captchaState struct {
	Round int
	Max   int // 0 = unbounded while the refresh control exists
}

type captchaObservation struct {
	Attempt        CaptchaAttempt
	ErrorText      string
	RefreshPresent bool
}

type captchaDecision struct {
	Action captchaAction
	Kind   domain.BookingErrorKind
	Reason string
}

// nextCaptcha decides what the search loop does after one round.
func nextCaptcha(st captchaState, obs captchaObservation) (captchaState, captchaDecision) {
	st.Round++

	if obs.Attempt.Submitted {
		switch obs.Attempt.Signal {
		case SignalTrainSelection:
			return st, captchaDecision{Action: actionSelection}
		case SignalPassengerInfo:
			return st, captchaDecision{Action: actionDirect}
		case SignalPortalError:
			return st, captchaDecision{Action: actionFail, Kind: domain.KindPortalRejected, Reason: obs.ErrorText}
		}
	}

	if !obs.RefreshPresent {
		return st, captchaDecision{Action: actionFinalParse}
	}
	if st.Max > 0 && st.Round >= st.Max {
		return st, captchaDecision{Action: actionFail, Kind: domain.KindCaptchaExhausted, Reason: "captcha retries exhausted"}
	}
	return st, captchaDecision{Action: actionRefresh}
}

func validGuess(guess string) bool {
	return len([]rune(guess)) == 4
}
