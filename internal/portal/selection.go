package portal

import (
	"context"

	"booker/internal/browser"
)

type SelectionOutcome int

const (
	SelectionUnexpected SelectionOutcome = iota
	SelectionSuccess
	SelectionNotAvailable
	SelectionSoldOut
)

func (o SelectionOutcome) String() string {
	switch o {
	case SelectionSuccess:
		return "success"
	case SelectionNotAvailable:
		return "not_available"
	case SelectionSoldOut:
		return "sold_out_race"
	default:
		return "unexpected_state"
	}
}

type SelectionResult struct {
	Outcome SelectionOutcome
	Snippet string // page evidence for UnexpectedState
}

// SelectService picks the row for code on the train-selection page and submits
// once. It never refreshes or retries; that is the scheduler's job.
func (p *Portal) SelectService(ctx context.Context, page browser.Page, code string) SelectionResult {
	radio := trainRadio(code)
	if !browser.Exists(page, radio) {
		return SelectionResult{Outcome: SelectionNotAvailable}
	}

	if err := page.Click(radio); err != nil {
		return SelectionResult{Outcome: SelectionUnexpected, Snippet: "click service row: " + err.Error()}
	}
	if err := page.Click(selSelectSubmit); err != nil {
		return SelectionResult{Outcome: SelectionUnexpected, Snippet: "submit button: " + err.Error()}
	}

	var snap Snapshot
	p.waitFor(ctx, p.cfg.PageTimeout, func() bool {
		snap = takeSnapshot(page, "")
		return ClassifySelection(snap) != SignalUnknown
	})

	switch ClassifySelection(snap) {
	case SignalSoldOut:
		// Leaving the modal up would block every later interaction.
		if err := page.Click(selSoldOutClose); err != nil {
			p.logf("dismiss sold-out dialog: %v", err)
		}
		return SelectionResult{Outcome: SelectionSoldOut}
	case SignalPassengerInfo:
		return SelectionResult{Outcome: SelectionSuccess}
	default:
		snippet := snap.ErrorText
		if snippet == "" {
			snippet = "url=" + snap.URL
		}
		return SelectionResult{Outcome: SelectionUnexpected, Snippet: snippet}
	}
}
