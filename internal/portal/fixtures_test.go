package portal

import (
	"context"
	"sync"
	"time"

	"booker/internal/browser/browsertest"
	"booker/internal/config"
)

const (
	homeURL      = "https://irs.example.test/IMINT/"
	selectionURL = "https://irs.example.test/IMINT/?wicket:interface=:1:BookingS1Form::TrainSelection"
	passengerURL = "https://irs.example.test/IMINT/?wicket:interface=:2:BookingS2Form"
	doneURL      = "https://irs.example.test/IMINT/?wicket:interface=:3:BookingS3Form"
)

type el = browsertest.Element

// scriptedSolver returns guesses in order, repeating the last one.
type scriptedSolver struct {
	mu      sync.Mutex
	guesses []string
	calls   int
}

func (s *scriptedSolver) Solve(ctx context.Context, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.guesses) {
		i = len(s.guesses) - 1
	}
	s.calls++
	return s.guesses[i], nil
}

func testPortal(solver *scriptedSolver, maxCaptcha int) *Portal {
	cfg := config.DefaultBooking()
	cfg.PortalURL = homeURL
	cfg.PageTimeout = time.Second
	cfg.MaxCaptchaAttempts = maxCaptcha
	p := New(cfg, solver)
	p.pause = func(context.Context, time.Duration) error { return nil }
	return p
}

func searchFormFixture() browsertest.Fixture {
	return browsertest.Fixture{
		URL: homeURL,
		Elements: map[string]*el{
			selStartStation:  {},
			selDestStation:   {},
			selDateInput:     {},
			selTimeTable:     {},
			selTicketAmount:  {},
			selSeatNone:      {},
			selSeatWindow:    {},
			selSeatAisle:     {},
			selCaptchaImage:  {Image: []byte("captcha.png")},
			selCaptchaInput:  {},
			selCaptchaReload: {},
			selSearchSubmit:  {},
		},
	}
}

func trainListFixture(codes ...string) browsertest.Fixture {
	f := browsertest.Fixture{
		URL: selectionURL,
		Elements: map[string]*el{
			selResultListing: {},
			selSelectSubmit:  {},
		},
		Rows: map[string][]map[string]string{},
	}
	rows := []map[string]string{}
	for i, c := range codes {
		rows = append(rows, map[string]string{
			"code":      c,
			"departure": []string{"10:11", "10:46", "11:21"}[i%3],
			"arrival":   []string{"11:45", "12:20", "12:55"}[i%3],
			"duration":  "1:34",
			"discount":  []string{"", "早鳥9折", ""}[i%3],
		})
		f.Elements[trainRadio(c)] = &el{}
	}
	f.Rows[selResultItem] = rows
	return f
}

func passengerFixture() browsertest.Fixture {
	return browsertest.Fixture{
		URL: passengerURL,
		Elements: map[string]*el{
			selIDNumber:       {},
			selMobilePhone:    {},
			selEmail:          {},
			selMemberRadio:    {},
			selNonMemberRadio: {},
			selMemberSameAsID: {},
			selMemberNumber:   {},
			selAgree:          {},
			selOrderSubmit:    {},
		},
	}
}

func confirmationFixture() browsertest.Fixture {
	return browsertest.Fixture{
		URL: doneURL,
		Elements: map[string]*el{
			selPNR:           {Text: " 02915121 "},
			selPaymentStatus: {Text: "未付款\n付款期限 10/20"},
			selTotalPrice:    {Text: "TWD 1,490"},
			selTrainCode:     {Text: "657"},
			selTrainDep:      {Text: "15:46"},
			selTrainArr:      {Text: "17:45"},
			selTicketDate:    {Text: "2026/10/21"},
			selSeatLabels:    {Text: "5車17E"},
		},
	}
}

// wireSearchSubmit makes the submit button accept only the given code.
func wireSearchSubmit(page *browsertest.Page, code string, next browsertest.Fixture) {
	page.OnClick(selSearchSubmit, func(p *browsertest.Page) {
		if p.Values[selCaptchaInput] == code {
			p.Load(next)
			return
		}
		p.Set(selFeedError, &el{Text: "檢測碼輸入錯誤，請確認後重新輸入"})
	})
	page.OnClick(selCaptchaReload, func(p *browsertest.Page) {
		p.Remove(selFeedError)
	})
}
