package utils

import (
	"strings"
	"time"
)

const (
	layoutPortalDate = "2006/01/02"
	layoutISODate    = "2006-01-02"
)

// ParseTravelDate accepts the portal's slash form and ISO dashes.
func ParseTravelDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(layoutPortalDate, s); err == nil {
		return t, nil
	}
	return time.Parse(layoutISODate, s)
}

// FormatTravelDate formats t the way the portal's date field expects it.
func FormatTravelDate(t time.Time) string {
	return t.Format(layoutPortalDate)
}

var portalLocation = loadPortalLocation()

// Hosts without tzdata still get the fixed +08:00 offset Taiwan uses.
func loadPortalLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// PortalToday is the portal's current calendar day as a UTC midnight, the
// same form ParseTravelDate returns.
func PortalToday(now time.Time) time.Time {
	y, m, d := now.In(portalLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
