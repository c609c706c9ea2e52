// Package portal drives the rail operator's booking pages: search with the
// CAPTCHA loop, train selection, passenger info and the confirmation scrape.
// Every stage returns a structured outcome; nothing panics or loops past its
// own boundary.
package portal

import (
	"context"
	"log"
	"time"

	"booker/internal/config"
	"booker/internal/ocr"
)

const (
	pollInterval = 250 * time.Millisecond
	settleDelay  = 1500 * time.Millisecond
	dialogWait   = 3 * time.Second
)

// Observer receives one event per CAPTCHA round; used for metrics.
type Observer interface {
	CaptchaRound(result string)
}

type noopObserver struct{}

func (noopObserver) CaptchaRound(string) {}

type Portal struct {
	cfg      config.Booking
	solver   ocr.Solver
	observer Observer
	// pause blocks for d unless ctx ends first; swapped out in tests.
	pause func(ctx context.Context, d time.Duration) error
}

func New(cfg config.Booking, solver ocr.Solver) *Portal {
	return &Portal{
		cfg:      cfg,
		solver:   solver,
		observer: noopObserver{},
		pause:    sleepCtx,
	}
}

// WithObserver attaches a round observer.
func (p *Portal) WithObserver(o Observer) *Portal {
	if o != nil {
		p.observer = o
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitFor polls cond until it holds or timeout worth of polls elapsed.
func (p *Portal) waitFor(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	polls := int(timeout / pollInterval)
	if polls < 1 {
		polls = 1
	}
	for i := 0; i < polls; i++ {
		if cond() {
			return true
		}
		if err := p.pause(ctx, pollInterval); err != nil {
			return false
		}
	}
	return cond()
}

func (p *Portal) logf(format string, args ...any) {
	if p.cfg.Verbose {
		log.Printf("[Portal] "+format, args...)
	}
}
