package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrElementNotFound is returned when a selector matches nothing.
var ErrElementNotFound = errors.New("element not found")

// SelectBy picks an <option>; exactly one of Value, Label or Index (with ByIndex) is used.
type SelectBy struct {
	Value   string
	Label   string
	Index   int
	ByIndex bool
}

// RowSpec describes a table-like scrape. Each field is "css@attr" for an
// attribute, "css" for inner text, or "@attr" for an attribute of the row itself.
type RowSpec struct {
	Selector string
	Fields   map[string]string
}

// Page is the slice of browser control the booking stages need.
type Page interface {
	Goto(url string) error
	URL() string
	Count(selector string) (int, error)
	Visible(selector string) (bool, error)
	Checked(selector string) (bool, error)
	// Click dispatches a DOM click, bypassing overlays that intercept pointer events.
	Click(selector string) error
	// SetValue assigns the value directly and fires input/change events.
	SetValue(selector, value string) error
	Select(selector string, by SelectBy) error
	Text(selector string) (string, error)
	Texts(selector string) ([]string, error)
	Rows(spec RowSpec) ([]map[string]string, error)
	Screenshot(selector string) ([]byte, error)
}

// Session owns one browser instance.
type Session interface {
	Page() Page
	Close() error
}

// Launcher opens a fresh browser per call.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// WithSession acquires one session, runs fn and always releases the browser.
func WithSession(ctx context.Context, l Launcher, fn func(Page) error) (err error) {
	s, err := l.Launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("browser session panic: %v", r)
		}
		if cerr := s.Close(); cerr != nil {
			log.Printf("[Browser] close failed: %v", cerr)
		}
	}()
	return fn(s.Page())
}

// Exists is a convenience over Count.
func Exists(p Page, selector string) bool {
	n, err := p.Count(selector)
	return err == nil && n > 0
}
