// Package vote holds the vote ledger state machine.
//
// A vote is a replacement, not an accumulation: one voter contributes at
// most ±1 to a target at any time. Stores persist the resulting state and
// apply the delta to the target total inside one atomic section.
package vote

import (
	"fmt"

	"github.com/alphabot-ai/contextoverflow/internal/model"
)

// Policy decides what re-submitting the current direction does.
type Policy string

const (
	// PolicyIgnore makes a repeated vote a successful no-op.
	PolicyIgnore Policy = "ignore"
	// PolicyRetract makes a repeated vote withdraw the existing one.
	PolicyRetract Policy = "retract"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyIgnore:
		return PolicyIgnore, nil
	case PolicyRetract:
		return PolicyRetract, nil
	}
	return "", fmt.Errorf("unknown vote repeat policy %q", s)
}

// Step is one ledger transition.
type Step struct {
	Previous model.Direction
	Next     model.Direction
	Delta    int
}

// Changed reports whether the step modifies stored state.
func (s Step) Changed() bool {
	return s.Previous != s.Next
}

// Transition computes the effect of a requested direction on the current
// state. requested must be Upvoted or Downvoted.
//
//	current   | upvote        | downvote
//	NoVote    | +1 Upvoted    | -1 Downvoted
//	Upvoted   | repeat        | -2 Downvoted
//	Downvoted | +2 Upvoted    | repeat
func (p Policy) Transition(current, requested model.Direction) Step {
	if requested == model.NoVote {
		return Step{Previous: current, Next: current}
	}
	if current == requested {
		if p == PolicyRetract {
			return Step{Previous: current, Next: model.NoVote, Delta: -current.Weight()}
		}
		return Step{Previous: current, Next: current}
	}
	return Step{
		Previous: current,
		Next:     requested,
		Delta:    requested.Weight() - current.Weight(),
	}
}
