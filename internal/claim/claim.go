// Package claim implements the ownership state machine shared by gear
// items, ingredients, and meal-plan checklist entries. It never touches
// linked records; callers route through the linkage package when a claim
// lands on a linked ingredient or entry.
package claim

import "github.com/fernhollow/tripsync/internal/model"

// Resolve applies a claim transition for actor against the current claim.
//
// With requested == nil the transition is a toggle: an unclaimed record
// becomes claimed by the actor, a record claimed by the actor is released,
// and a record claimed by someone else is rejected, unless the actor is
// an administrator, in which case it is released ("take back").
//
// A non-nil requested is a direct assignment (pointer to the zero Claim
// forces a release). Only administrators may assign; anyone else is
// rejected.
//
// The second return value reports whether the transition was applied.
// A rejection is deliberately not an error: the product treats claiming
// someone else's item as a no-op, and callers must not surface it.
func Resolve(actor model.Member, current model.Claim, requested *model.Claim) (model.Claim, bool) {
	if requested != nil {
		if !actor.IsAdmin {
			return current, false
		}
		return *requested, true
	}

	if actor.IsAdmin {
		if current.Claimed() {
			return model.Claim{}, true
		}
		return model.ClaimFor(actor), true
	}

	switch {
	case current.By(actor.ID):
		return model.Claim{}, true
	case !current.Claimed():
		return model.ClaimFor(actor), true
	default:
		// Claimed by someone else: silent no-op.
		return current, false
	}
}
