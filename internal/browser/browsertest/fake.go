// Package browsertest provides an in-memory browser.Page driven by page fixtures.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"booker/internal/browser"
)

// Element is one matched node in a fixture.
type Element struct {
	Text    string
	Value   string
	Hidden  bool
	Checked bool
	Count   int // defaults to 1
	Image   []byte
}

// Fixture is a captured page state.
type Fixture struct {
	URL      string
	Elements map[string]*Element
	Rows     map[string][]map[string]string
}

// Page is a scriptable fake. Handlers registered with OnClick run when the
// selector is clicked and typically Load the next fixture.
type Page struct {
	mu       sync.Mutex
	fixture  Fixture
	onClick  map[string]func(*Page)
	onGoto   func(*Page, string)
	Clicks   []string
	Values   map[string]string
	Selected map[string]browser.SelectBy
	Gotos    []string
}

func NewPage(f Fixture) *Page {
	p := &Page{
		onClick:  map[string]func(*Page){},
		Values:   map[string]string{},
		Selected: map[string]browser.SelectBy{},
	}
	p.Load(f)
	return p
}

// Load swaps in a new page state.
func (p *Page) Load(f Fixture) {
	if f.Elements == nil {
		f.Elements = map[string]*Element{}
	}
	if f.Rows == nil {
		f.Rows = map[string][]map[string]string{}
	}
	p.fixture = f
}

func (p *Page) OnClick(selector string, fn func(*Page)) { p.onClick[selector] = fn }

func (p *Page) OnGoto(fn func(*Page, string)) { p.onGoto = fn }

// Set adds or replaces one element on the current fixture.
func (p *Page) Set(selector string, e *Element) { p.fixture.Elements[selector] = e }

// Remove deletes one element from the current fixture.
func (p *Page) Remove(selector string) { delete(p.fixture.Elements, selector) }

func (p *Page) ClickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Clicks {
		if c == selector {
			n++
		}
	}
	return n
}

func (p *Page) el(selector string) (*Element, error) {
	e, ok := p.fixture.Elements[selector]
	if !ok || (e.Count < 0) {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return e, nil
}

func (p *Page) Goto(url string) error {
	p.Gotos = append(p.Gotos, url)
	if p.onGoto != nil {
		p.onGoto(p, url)
	}
	return nil
}

func (p *Page) URL() string { return p.fixture.URL }

func (p *Page) Count(selector string) (int, error) {
	e, ok := p.fixture.Elements[selector]
	if !ok {
		return 0, nil
	}
	if e.Count == 0 {
		return 1, nil
	}
	if e.Count < 0 {
		return 0, nil
	}
	return e.Count, nil
}

func (p *Page) Visible(selector string) (bool, error) {
	e, err := p.el(selector)
	if err != nil {
		return false, nil
	}
	return !e.Hidden, nil
}

func (p *Page) Checked(selector string) (bool, error) {
	e, err := p.el(selector)
	if err != nil {
		return false, err
	}
	return e.Checked, nil
}

func (p *Page) Click(selector string) error {
	e, err := p.el(selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	p.mu.Unlock()
	if fn, ok := p.onClick[selector]; ok {
		fn(p)
		return nil
	}
	e.Checked = !e.Checked
	return nil
}

func (p *Page) SetValue(selector, value string) error {
	e, err := p.el(selector)
	if err != nil {
		return err
	}
	e.Value = value
	p.Values[selector] = value
	return nil
}

func (p *Page) Select(selector string, by browser.SelectBy) error {
	if _, err := p.el(selector); err != nil {
		return err
	}
	p.Selected[selector] = by
	return nil
}

func (p *Page) Text(selector string) (string, error) {
	e, err := p.el(selector)
	if err != nil {
		return "", err
	}
	return e.Text, nil
}

func (p *Page) Texts(selector string) ([]string, error) {
	e, ok := p.fixture.Elements[selector]
	if !ok {
		return nil, nil
	}
	return []string{e.Text}, nil
}

func (p *Page) Rows(spec browser.RowSpec) ([]map[string]string, error) {
	return p.fixture.Rows[spec.Selector], nil
}

func (p *Page) Screenshot(selector string) ([]byte, error) {
	e, err := p.el(selector)
	if err != nil {
		return nil, err
	}
	if e.Image != nil {
		return e.Image, nil
	}
	return []byte(selector), nil
}

// Launcher hands out fake sessions and counts open/close calls.
type Launcher struct {
	mu     sync.Mutex
	NewFn  func() *Page
	Err    error
	Opened int
	Closed int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	l.Opened++
	return &session{page: l.NewFn(), l: l}, nil
}

func (l *Launcher) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Opened - l.Closed
}

type session struct {
	page   *Page
	l      *Launcher
	closed bool
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.l.Closed++
	}
	return nil
}
