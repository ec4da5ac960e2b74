package validation

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,80}$`)
)

// Container types accepted on tolerances and delivery requests.
var containerTypes = map[string]bool{
	"20ft": true,
	"40ft": true,
	"40hc": true,
	"45ft": true,
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 120
}

func ValidateUsername(username string) bool {
	return usernameRegex.MatchString(strings.TrimSpace(username))
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 100
}

// ValidateRoute checks that both endpoints are present and distinct.
// Matching compares these by exact string equality, so they are trimmed but
// otherwise left untouched.
func ValidateRoute(origin, destination string) bool {
	o := strings.TrimSpace(origin)
	d := strings.TrimSpace(destination)
	return o != "" && d != "" && o != d && len(o) <= 100 && len(d) <= 100
}

// ValidateWindow checks that a time window is well formed (start before end).
func ValidateWindow(start, end time.Time) bool {
	return !start.IsZero() && !end.IsZero() && start.Before(end)
}

func ValidateContainerType(t string) bool {
	return containerTypes[strings.ToLower(strings.TrimSpace(t))]
}

func ValidateContainerCount(n int) bool {
	return n > 0 && n <= 100
}

func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
