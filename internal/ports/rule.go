// Package ports defines the interfaces between the scoring core and its
// adapters (input sources, detection rules, report outputs), following the
// ports-and-adapters layout: dependencies point inward, implementations live
// under internal/adapters.
package ports

import "github.com/logsentry/logsentry/internal/domain"

// Rule is one independent threat evaluator. The engine invokes Evaluate once
// per incoming event with the source IP's current profile.
//
// Contract:
//   - A rule maintains its own per-IP rolling state and must prune entries
//     older than its window before evaluating, keyed on event timestamps.
//   - Rules never read each other's state; adding or removing a rule must not
//     change any other rule's output.
//   - The returned delta is credited to the profile under Name(). Deltas are
//     add-only and scored on threshold crossings: while a condition stays
//     satisfied a rule returns 0 (or tops up as the condition intensifies)
//     until its windowed state drops below threshold again.
//
// Rules are invoked from a single goroutine and need no internal locking.
type Rule interface {
	// Name returns the rule identifier used as the rule_scores key and the
	// report column header (UPPER_SNAKE, e.g. "BRUTE_FORCE").
	Name() string

	// Evaluate folds one event into the rule's state for that IP and returns
	// the score contribution this event earned (usually 0).
	Evaluate(ev *domain.AccessEvent, profile *domain.IPProfile) int

	// Reset drops all per-IP state, for a fresh analysis window.
	Reset()
}
