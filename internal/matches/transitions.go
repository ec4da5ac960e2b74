package matches

import (
	"freight-service/internal/drivers"
	"freight-service/internal/requests"
	"freight-service/internal/tolerances"
)

// transitions is the closed set of legal lifecycle moves. rejected and
// completed are terminal: they appear as sources nowhere.
var transitions = map[string]map[string]bool{
	StatusProposed: {
		StatusAccepted: true,
		StatusRejected: true,
	},
	StatusAccepted: {
		StatusRejected:   true,
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusCompleted: true,
	},
}

// CanTransition reports whether a match may move from one status to another.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Terminal reports whether a status permits no further transitions.
func Terminal(status string) bool {
	return len(transitions[status]) == 0
}

// Effects is the status fan-out of entering a match status: where the
// tolerance, the request and the driver settle alongside the match. An empty
// field leaves that entity untouched.
type Effects struct {
	Tolerance string
	Request   string
	Driver    string
}

// EffectsOf returns the fan-out for a target match status. Rejection frees
// both sides for the next matching pass; completion settles everything and
// releases the driver.
func EffectsOf(to string) Effects {
	switch to {
	case StatusAccepted:
		return Effects{
			Tolerance: tolerances.StatusMatched,
			Request:   requests.StatusMatched,
		}
	case StatusRejected:
		return Effects{
			Tolerance: tolerances.StatusAvailable,
			Request:   requests.StatusPending,
		}
	case StatusInProgress:
		return Effects{
			Request: requests.StatusInTransit,
			Driver:  drivers.StatusBusy,
		}
	case StatusCompleted:
		return Effects{
			Tolerance: tolerances.StatusCompleted,
			Request:   requests.StatusCompleted,
			Driver:    drivers.StatusAvailable,
		}
	}
	return Effects{}
}
