package browser

import (
	"context"
	"fmt"
	"log"
	"sync"

	"booker/internal/config"

	"github.com/go-rod/stealth"
	"github.com/playwright-community/playwright-go"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const rowsScript = `([sel, fields]) => Array.from(document.querySelectorAll(sel)).map(row => {
	const out = {};
	for (const [name, spec] of Object.entries(fields)) {
		const at = spec.lastIndexOf('@');
		const css = at >= 0 ? spec.slice(0, at) : spec;
		const attr = at >= 0 ? spec.slice(at + 1) : '';
		const el = css ? row.querySelector(css) : row;
		if (!el) { out[name] = ''; continue; }
		out[name] = attr ? (el.getAttribute(attr) || '') : (el.innerText || '').trim();
	}
	return out;
})`

const setValueScript = `(el, v) => {
	el.value = v;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
}`

// PlaywrightLauncher starts one Chromium per Launch on top of a shared
// playwright driver process.
type PlaywrightLauncher struct {
	cfg config.Booking

	mu sync.Mutex
	pw *playwright.Playwright
}

func NewPlaywrightLauncher(cfg config.Booking) *PlaywrightLauncher {
	return &PlaywrightLauncher{cfg: cfg}
}

func (l *PlaywrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not launch playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
		Args: []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--window-size=1280,800",
			"--disable-blink-features=AutomationControlled",
		},
	}
	if l.cfg.ChromeBinary != "" {
		opts.ExecutablePath = playwright.String(l.cfg.ChromeBinary)
	}
	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("could not launch Chromium: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 800},
		Locale:    playwright.String("zh-TW"),
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealth.JS)}); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("could not install stealth script: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.cfg.PageTimeout.Milliseconds()))
	// Native alert/confirm dialogs would block every later call.
	page.OnDialog(func(d playwright.Dialog) {
		if l.cfg.Verbose {
			log.Printf("[Browser] dialog accepted: %s", d.Message())
		}
		_ = d.Accept()
	})

	return &pwSession{browser: browser, page: &pwPage{page: page}}, nil
}

// Stop shuts the shared driver down; call once on exit.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

type pwSession struct {
	browser playwright.Browser
	page    *pwPage
	once    sync.Once
	err     error
}

func (s *pwSession) Page() Page { return s.page }

func (s *pwSession) Close() error {
	s.once.Do(func() {
		s.err = s.browser.Close()
	})
	return s.err
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) first(selector string) (playwright.Locator, error) {
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return loc.First(), nil
}

func (p *pwPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) Count(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *pwPage) Visible(selector string) (bool, error) {
	loc, err := p.first(selector)
	if err != nil {
		return false, nil
	}
	return loc.IsVisible()
}

func (p *pwPage) Checked(selector string) (bool, error) {
	loc, err := p.first(selector)
	if err != nil {
		return false, err
	}
	return loc.IsChecked()
}

func (p *pwPage) Click(selector string) error {
	loc, err := p.first(selector)
	if err != nil {
		return err
	}
	_, err = loc.Evaluate("el => el.click()", nil)
	return err
}

func (p *pwPage) SetValue(selector, value string) error {
	loc, err := p.first(selector)
	if err != nil {
		return err
	}
	_, err = loc.Evaluate(setValueScript, value)
	return err
}

func (p *pwPage) Select(selector string, by SelectBy) error {
	loc, err := p.first(selector)
	if err != nil {
		return err
	}
	var values playwright.SelectOptionValues
	switch {
	case by.ByIndex:
		values.Indexes = &[]int{by.Index}
	case by.Label != "":
		values.Labels = &[]string{by.Label}
	default:
		values.Values = &[]string{by.Value}
	}
	_, err = loc.SelectOption(values)
	return err
}

func (p *pwPage) Text(selector string) (string, error) {
	loc, err := p.first(selector)
	if err != nil {
		return "", err
	}
	return loc.InnerText()
}

func (p *pwPage) Texts(selector string) ([]string, error) {
	return p.page.Locator(selector).AllInnerTexts()
}

func (p *pwPage) Rows(spec RowSpec) ([]map[string]string, error) {
	fields := make(map[string]any, len(spec.Fields))
	for k, v := range spec.Fields {
		fields[k] = v
	}
	raw, err := p.page.Evaluate(rowsScript, []any{spec.Selector, fields})
	if err != nil {
		return nil, err
	}
	list, _ := raw.([]any)
	out := make([]map[string]string, 0, len(list))
	for _, item := range list {
		m, _ := item.(map[string]any)
		row := make(map[string]string, len(m))
		for k, v := range m {
			row[k] = fmt.Sprint(v)
		}
		out = append(out, row)
	}
	return out, nil
}

func (p *pwPage) Screenshot(selector string) ([]byte, error) {
	loc, err := p.first(selector)
	if err != nil {
		return nil, err
	}
	return loc.Screenshot()
}
