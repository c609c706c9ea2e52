package portal

import (
	"context"
	"strings"

	"booker/internal/browser"
	"booker/internal/domain"
	"booker/internal/domain/models"
)

// ExtractResult scrapes the confirmation page. Only the reservation code is
// required; this page renders after a real booking, so partial data is kept.
func (p *Portal) ExtractResult(ctx context.Context, page browser.Page) (models.Confirmation, *domain.BookingError) {
	var pnr string
	p.waitFor(ctx, p.cfg.PageTimeout, func() bool {
		pnr = textOr(page, selPNR, "")
		return pnr != ""
	})
	if pnr == "" {
		return models.Confirmation{}, drift("reservation code not found on confirmation page", nil)
	}

	c := models.Confirmation{
		ReservationCode: pnr,
		Price:           textOr(page, selTotalPrice, models.Unknown),
		PaymentStatus:   strings.Join(strings.Fields(textOr(page, selPaymentStatus, models.Unknown)), " "),
		ServiceCode:     textOr(page, selTrainCode, models.Unknown),
		Departure:       textOr(page, selTrainDep, models.Unknown),
		Arrival:         textOr(page, selTrainArr, models.Unknown),
		TravelDate:      textOr(page, selTicketDate, models.Unknown),
	}

	if seats, err := page.Texts(selSeatLabels); err == nil {
		for _, s := range seats {
			if s = strings.TrimSpace(s); s != "" {
				c.Seats = append(c.Seats, s)
			}
		}
	}
	if len(c.Seats) == 0 {
		c.Seats = []string{models.Unknown}
	}
	return c, nil
}

func textOr(page browser.Page, selector, def string) string {
	if !browser.Exists(page, selector) {
		return def
	}
	txt, err := page.Text(selector)
	if err != nil {
		return def
	}
	if txt = strings.TrimSpace(txt); txt == "" {
		return def
	}
	return txt
}
