package matches

import (
	"testing"

	"freight-service/internal/drivers"
	"freight-service/internal/requests"
	"freight-service/internal/tolerances"
)

func TestLegalTransitions(t *testing.T) {
	legal := [][2]string{
		{StatusProposed, StatusAccepted},
		{StatusProposed, StatusRejected},
		{StatusAccepted, StatusRejected},
		{StatusAccepted, StatusInProgress},
		{StatusInProgress, StatusCompleted},
	}
	for _, pair := range legal {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be legal", pair[0], pair[1])
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	illegal := [][2]string{
		{StatusProposed, StatusInProgress},
		{StatusProposed, StatusCompleted},
		{StatusAccepted, StatusCompleted},
		{StatusInProgress, StatusRejected},
		{StatusInProgress, StatusAccepted},
		{StatusRejected, StatusProposed},
		{StatusRejected, StatusAccepted},
		{StatusCompleted, StatusInProgress},
		{StatusCompleted, StatusRejected},
		{StatusAccepted, StatusAccepted},
	}
	for _, pair := range illegal {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be illegal", pair[0], pair[1])
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !Terminal(StatusRejected) {
		t.Error("rejected should be terminal")
	}
	if !Terminal(StatusCompleted) {
		t.Error("completed should be terminal")
	}
	for _, s := range []string{StatusProposed, StatusAccepted, StatusInProgress} {
		if Terminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestRejectRevertsBothSides(t *testing.T) {
	ef := EffectsOf(StatusRejected)
	if ef.Tolerance != tolerances.StatusAvailable {
		t.Errorf("reject must free the tolerance, got %q", ef.Tolerance)
	}
	if ef.Request != requests.StatusPending {
		t.Errorf("reject must free the request, got %q", ef.Request)
	}
	if ef.Driver != "" {
		t.Errorf("reject must not touch the driver, got %q", ef.Driver)
	}
}

func TestAcceptMarksBothSides(t *testing.T) {
	ef := EffectsOf(StatusAccepted)
	if ef.Tolerance != tolerances.StatusMatched || ef.Request != requests.StatusMatched {
		t.Errorf("accept must settle both sides on matched, got %+v", ef)
	}
	if ef.Driver != "" {
		t.Errorf("accept must not touch the driver, got %q", ef.Driver)
	}
}

func TestPickupPutsRequestInTransit(t *testing.T) {
	ef := EffectsOf(StatusInProgress)
	if ef.Request != requests.StatusInTransit {
		t.Errorf("pickup must move the request to in_transit, got %q", ef.Request)
	}
	if ef.Driver != drivers.StatusBusy {
		t.Errorf("pickup must mark the driver busy, got %q", ef.Driver)
	}
	if ef.Tolerance != "" {
		t.Errorf("pickup must not touch the tolerance, got %q", ef.Tolerance)
	}
}

func TestCompletionSettlesEverything(t *testing.T) {
	ef := EffectsOf(StatusCompleted)
	if ef.Tolerance != tolerances.StatusCompleted || ef.Request != requests.StatusCompleted {
		t.Errorf("completion must settle both sides on completed, got %+v", ef)
	}
	if ef.Driver != drivers.StatusAvailable {
		t.Errorf("completion must release the driver, got %q", ef.Driver)
	}
}

func TestNoEffectsForUnknownStatus(t *testing.T) {
	if ef := EffectsOf("bogus"); ef != (Effects{}) {
		t.Errorf("unknown status must touch nothing, got %+v", ef)
	}
	if ef := EffectsOf(StatusProposed); ef != (Effects{}) {
		t.Errorf("proposing is done by the matcher, not the fan-out, got %+v", ef)
	}
}

func TestUnknownStatus(t *testing.T) {
	if CanTransition("bogus", StatusAccepted) {
		t.Error("unknown source status must not transition")
	}
	if CanTransition(StatusProposed, "bogus") {
		t.Error("unknown target status must not transition")
	}
}
