// Package window implements the weekly upload-window policy that gates
// cheat-sheet submissions.
//
// A Policy is a static recurrence [StartDay, EndDay] over weekdays that may
// wrap across the week boundary (Friday through Monday is Start=5, End=1).
// Evaluation is a pure function of the supplied time so callers and tests
// control the clock.
package window

import (
	"fmt"
	"time"
)

// Policy is an inclusive weekly window.
type Policy struct {
	StartDay time.Weekday
	EndDay   time.Weekday
}

// Contains reports whether day falls inside the window.
func (p Policy) Contains(day time.Weekday) bool {
	if p.StartDay <= p.EndDay {
		return day >= p.StartDay && day <= p.EndDay
	}
	return day >= p.StartDay || day <= p.EndDay
}

// Describe renders the window for humans, e.g. "Friday 12:00 AM - Monday 11:59:59 PM".
func (p Policy) Describe() string {
	return fmt.Sprintf("%s 12:00 AM - %s 11:59:59 PM", p.StartDay, p.EndDay)
}

// NextOpening returns midnight of the next day the window opens, in now's
// location. When now is already inside the window it returns the start of
// today.
func (p Policy) NextOpening(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if p.Contains(now.Weekday()) {
		return today
	}
	days := (int(p.StartDay) - int(now.Weekday()) + 7) % 7
	return today.AddDate(0, 0, days)
}

// RejectionError is returned for unprivileged uploads outside the window.
type RejectionError struct {
	Policy Policy
	Now    time.Time
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf(
		"Cheat sheet uploads are only accepted during the active week (%s). "+
			"The upload window is currently closed and reopens on %s.",
		e.Policy.Describe(), e.Policy.NextOpening(e.Now).Format("Monday, 02 Jan 2006"))
}

// Evaluate decides an upload attempt at now. Privileged callers always pass.
func Evaluate(p Policy, now time.Time, privileged bool) error {
	if privileged || p.Contains(now.Weekday()) {
		return nil
	}
	return &RejectionError{Policy: p, Now: now}
}

// Gate binds a Policy to a clock.
type Gate struct {
	policy Policy
	now    func() time.Time
}

// NewGate returns a Gate; a nil clock means time.Now.
func NewGate(p Policy, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{policy: p, now: now}
}

// Check evaluates the policy against the gate's clock.
func (g *Gate) Check(privileged bool) error {
	return Evaluate(g.policy, g.now(), privileged)
}

// Policy returns the configured window.
func (g *Gate) Policy() Policy {
	return g.policy
}
