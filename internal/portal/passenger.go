package portal

import (
	"context"

	"booker/internal/browser"
	"booker/internal/domain"
	"booker/internal/domain/models"
)

func drift(what string, err error) *domain.BookingError {
	return domain.NewBookingError(domain.KindPortalLayoutDrift, what, err)
}

// SubmitPassenger fills the passenger form and submits the order. A nil
// return means no known dialog is left pending.
func (p *Portal) SubmitPassenger(ctx context.Context, page browser.Page, profile models.PassengerProfile) *domain.BookingError {
	if p.waitFor(ctx, dialogWait, func() bool { return visible(page, selInfoModalBtn) }) {
		if err := page.Click(selInfoModalBtn); err != nil {
			p.logf("info modal: %v", err)
		}
	}

	if !p.waitFor(ctx, p.cfg.PageTimeout, func() bool { return browser.Exists(page, selIDNumber) }) {
		return drift("national id field not found", nil)
	}
	if err := page.SetValue(selIDNumber, profile.NationalID); err != nil {
		return drift("national id field", err)
	}
	// Discounted fares add a second real-name field; presence is the only
	// reliable hint at this stage.
	if browser.Exists(page, selRealNameID) {
		if err := page.SetValue(selRealNameID, profile.NationalID); err != nil {
			return drift("real-name id field", err)
		}
	}

	if profile.Phone != "" {
		if err := page.SetValue(selMobilePhone, profile.Phone); err != nil {
			p.logf("phone not filled: %v", err)
		}
	}
	if profile.Email != "" {
		if err := page.SetValue(selEmail, profile.Email); err != nil {
			p.logf("email not filled: %v", err)
		}
	}

	if err := p.fillLoyalty(page, profile); err != nil {
		return err
	}

	if !browser.Exists(page, selAgree) {
		return drift("terms checkbox not found", nil)
	}
	if err := ensureChecked(page, selAgree, true); err != nil {
		return drift("terms checkbox", err)
	}

	if err := page.Click(selOrderSubmit); err != nil {
		return drift("order submit", err)
	}

	p.dismissFollowUps(ctx, page)
	return nil
}

// fillLoyalty applies exactly one of: member number, same-as-id, non-member.
func (p *Portal) fillLoyalty(page browser.Page, profile models.PassengerProfile) *domain.BookingError {
	number := profile.LoyaltyNumber()
	same := profile.LoyaltySameAsID()

	if !same && number == "" {
		if err := page.Click(selNonMemberRadio); err != nil {
			return drift("non-member option", err)
		}
		return nil
	}

	if err := page.Click(selMemberRadio); err != nil {
		return drift("member option", err)
	}
	if same {
		if err := ensureChecked(page, selMemberSameAsID, true); err != nil {
			return drift("same-as-id checkbox", err)
		}
		return nil
	}
	if err := ensureChecked(page, selMemberSameAsID, false); err != nil {
		return drift("same-as-id checkbox", err)
	}
	if err := page.SetValue(selMemberNumber, number); err != nil {
		return drift("membership number field", err)
	}
	return nil
}

// dismissFollowUps clears the optional confirm-details and discount notices in
// whatever order they appear.
func (p *Portal) dismissFollowUps(ctx context.Context, page browser.Page) {
	dialogs := []string{selConfirmDetails, selDiscountConfirm}
	anyVisible := func() bool {
		for _, sel := range dialogs {
			if visible(page, sel) {
				return true
			}
		}
		return browser.Exists(page, selPNR)
	}

	for round := 0; round < 2*len(dialogs); round++ {
		if !p.waitFor(ctx, dialogWait, anyVisible) {
			return
		}
		clicked := false
		for _, sel := range dialogs {
			if visible(page, sel) {
				p.logf("dismiss dialog %s", sel)
				if err := page.Click(sel); err == nil {
					clicked = true
				}
			}
		}
		if !clicked {
			return
		}
		if err := p.pause(ctx, settleDelay); err != nil {
			return
		}
	}
}

// ensureChecked toggles the box only when it is not already in the wanted state.
func ensureChecked(page browser.Page, selector string, want bool) error {
	checked, err := page.Checked(selector)
	if err != nil {
		return err
	}
	if checked == want {
		return nil
	}
	return page.Click(selector)
}

func visible(page browser.Page, selector string) bool {
	ok, err := page.Visible(selector)
	return err == nil && ok
}
