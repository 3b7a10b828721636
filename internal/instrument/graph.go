// Package instrument drives checks through their status lifecycle and posts
// the ledger effect of every transition.
package instrument

import (
	"slices"

	"github.com/cleared-dev/tally/internal/model"
)

// transitions is the single source of allowed status changes.
// CASHED and CANCELLED are terminal. OVERDUE never appears: it is derived.
var transitions = map[model.InstrumentStatus][]model.InstrumentStatus{
	model.StatusPending:     {model.StatusCashed, model.StatusReturned, model.StatusBounced, model.StatusCancelled},
	model.StatusReturned:    {model.StatusResubmitted, model.StatusCancelled},
	model.StatusBounced:     {model.StatusResubmitted, model.StatusCancelled},
	model.StatusResubmitted: {model.StatusCashed, model.StatusReturned, model.StatusBounced, model.StatusCancelled},
	model.StatusCashed:      nil,
	model.StatusCancelled:   nil,
}

// archivable lists the statuses a check may be archived from.
var archivable = []model.InstrumentStatus{model.StatusCashed, model.StatusCancelled}

// CanTransition reports whether a check may move from one status to another.
func CanTransition(from, to model.InstrumentStatus) bool {
	return slices.Contains(transitions[from], to)
}

// Allowed returns the statuses reachable from a status.
func Allowed(from model.InstrumentStatus) []model.InstrumentStatus {
	return slices.Clone(transitions[from])
}

// Terminal reports whether no transition leaves the status.
func Terminal(s model.InstrumentStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanArchive reports whether a check in status s may be archived.
func CanArchive(s model.InstrumentStatus) bool {
	return slices.Contains(archivable, s)
}
