package portal

import (
	"strings"

	"booker/internal/browser"
)

type rowSpec = browser.RowSpec

// Signal is what a page looks like after an action, reduced to the cases the
// stages branch on.
type Signal int

const (
	SignalUnknown Signal = iota
	SignalTrainSelection
	SignalPassengerInfo
	SignalCaptchaError
	SignalPortalError
	SignalSoldOut
)

func (s Signal) String() string {
	switch s {
	case SignalTrainSelection:
		return "train_selection"
	case SignalPassengerInfo:
		return "passenger_info"
	case SignalCaptchaError:
		return "captcha_error"
	case SignalPortalError:
		return "portal_error"
	case SignalSoldOut:
		return "sold_out"
	default:
		return "unknown"
	}
}

// Snapshot holds the raw markers a classifier looks at.
type Snapshot struct {
	URL              string
	HomeURL          string
	HasResultListing bool
	HasSearchSubmit  bool
	HasIDNumber      bool
	HasInfoModal     bool
	HasSoldOutModal  bool
	ErrorText        string
}

func takeSnapshot(p browser.Page, homeURL string) Snapshot {
	s := Snapshot{
		URL:              p.URL(),
		HomeURL:          homeURL,
		HasResultListing: browser.Exists(p, selResultListing),
		HasSearchSubmit:  browser.Exists(p, selSearchSubmit),
		HasIDNumber:      browser.Exists(p, selIDNumber),
		HasInfoModal:     browser.Exists(p, selInfoModalBtn),
		HasSoldOutModal:  browser.Exists(p, selSoldOutModal),
	}
	if browser.Exists(p, selFeedError) {
		if txt, err := p.Text(selFeedError); err == nil {
			s.ErrorText = strings.TrimSpace(txt)
		}
	}
	return s
}

func (s Snapshot) onPassengerInfo() bool {
	return s.HasIDNumber || s.HasInfoModal || strings.Contains(s.URL, urlPassengerInfo)
}

// left reports whether the browser navigated away from the search form: the
// submit button is gone and the URL differs from the landing URL.
func (s Snapshot) left() bool {
	return !s.HasSearchSubmit && s.URL != "" && s.URL != s.HomeURL
}

// ClassifySearch maps the page after a CAPTCHA submission. Train-selection
// markers win over passenger-info markers, which win over error text. Any one
// advancing marker is enough.
func ClassifySearch(s Snapshot) Signal {
	if strings.Contains(s.URL, urlTrainSelection) || s.HasResultListing {
		return SignalTrainSelection
	}
	if s.onPassengerInfo() {
		return SignalPassengerInfo
	}
	if s.ErrorText != "" {
		if isCaptchaError(s.ErrorText) {
			return SignalCaptchaError
		}
		return SignalPortalError
	}
	if s.left() {
		return SignalTrainSelection
	}
	return SignalUnknown
}

// ClassifySelection maps the page after the train-selection submit.
func ClassifySelection(s Snapshot) Signal {
	if s.HasSoldOutModal {
		return SignalSoldOut
	}
	if s.onPassengerInfo() {
		return SignalPassengerInfo
	}
	if s.ErrorText != "" {
		return SignalPortalError
	}
	return SignalUnknown
}

func isCaptchaError(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range captchaErrorWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
