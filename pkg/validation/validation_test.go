package validation

import (
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "ops+freight@example.com", " padded@example.org "}
	for _, e := range valid {
		if !ValidateEmail(e) {
			t.Errorf("%q should be valid", e)
		}
	}
	invalid := []string{"", "no-at-sign", "a@b", "@example.com", "a b@example.com"}
	for _, e := range invalid {
		if ValidateEmail(e) {
			t.Errorf("%q should be invalid", e)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	if !ValidateUsername("carrier_01") {
		t.Error("carrier_01 should be valid")
	}
	if ValidateUsername("ab") {
		t.Error("too-short username should be invalid")
	}
	if ValidateUsername("has space") {
		t.Error("username with space should be invalid")
	}
}

func TestValidateRoute(t *testing.T) {
	if !ValidateRoute("rotterdam", "hamburg") {
		t.Error("distinct endpoints should be valid")
	}
	if ValidateRoute("rotterdam", "rotterdam") {
		t.Error("identical endpoints should be invalid")
	}
	if ValidateRoute("", "hamburg") {
		t.Error("empty origin should be invalid")
	}
	if ValidateRoute("rotterdam", "  ") {
		t.Error("blank destination should be invalid")
	}
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if !ValidateWindow(start, start.Add(time.Hour)) {
		t.Error("start before end should be valid")
	}
	if ValidateWindow(start, start) {
		t.Error("equal start and end should be invalid")
	}
	if ValidateWindow(start.Add(time.Hour), start) {
		t.Error("start after end should be invalid")
	}
	if ValidateWindow(time.Time{}, start) {
		t.Error("zero start should be invalid")
	}
}

func TestValidateContainerType(t *testing.T) {
	for _, ct := range []string{"20ft", "40ft", "40hc", "45ft", "40FT", " 20ft "} {
		if !ValidateContainerType(ct) {
			t.Errorf("%q should be valid", ct)
		}
	}
	for _, ct := range []string{"", "50ft", "large"} {
		if ValidateContainerType(ct) {
			t.Errorf("%q should be invalid", ct)
		}
	}
}

func TestValidateContainerCount(t *testing.T) {
	if ValidateContainerCount(0) || ValidateContainerCount(-1) || ValidateContainerCount(101) {
		t.Error("out-of-range counts should be invalid")
	}
	if !ValidateContainerCount(1) || !ValidateContainerCount(100) {
		t.Error("boundary counts should be valid")
	}
}

func TestValidateCoordinates(t *testing.T) {
	if !ValidateCoordinates(51.9, 4.5) {
		t.Error("Rotterdam coordinates should be valid")
	}
	if !ValidateCoordinates(-90, 180) || !ValidateCoordinates(90, -180) {
		t.Error("boundary coordinates should be valid")
	}
	if ValidateCoordinates(90.1, 0) || ValidateCoordinates(0, -180.1) {
		t.Error("out-of-range coordinates should be invalid")
	}
}
