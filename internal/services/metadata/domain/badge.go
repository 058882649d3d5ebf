package domain

import "time"

// BadgeResult is the outcome a CI badge reports for one build type.
//
// The integer encoding is part of the wire protocol shared with UGS clients
// and the badge poster; the values must never be renumbered.
type BadgeResult int

const (
	BadgeStarting BadgeResult = 0
	BadgeFailure  BadgeResult = 1
	BadgeWarning  BadgeResult = 2
	BadgeSuccess  BadgeResult = 3
	BadgeSkipped  BadgeResult = 4
)

// Valid reports whether the result is one of the known wire encodings.
func (r BadgeResult) Valid() bool {
	return r >= BadgeStarting && r <= BadgeSkipped
}

// Badge is one immutable build-status report. Badges are append-only: a new
// report for the same (project, change, build type) gets its own row and its
// own sequence number.
type Badge struct {
	Sequence  int64
	Change    int64
	AddedAt   time.Time
	BuildType string
	Result    BadgeResult
	URL       string
	ProjectID int64
}
