package domain

import "time"

// UserVote is a user's verdict on a changelist.
//
// Like BadgeResult, the integer encoding is wire-stable and must never be
// renumbered.
type UserVote int

const (
	VoteNone           UserVote = 0
	VoteCompileSuccess UserVote = 1
	VoteCompileFailure UserVote = 2
	VoteGood           UserVote = 3
	VoteBad            UserVote = 4
)

// Valid reports whether the vote is one of the known wire encodings.
func (v UserVote) Valid() bool {
	return v >= VoteNone && v <= VoteBad
}

// UserEvent is one user's cumulative review state for a (project, changelist)
// pair. Unlike badges it mutates in place: each submission merges into the
// stored record, and the sequence number advances on every merge so pollers
// pick up the change.
//
// Nil optional fields mean "never set". A set sync time is never cleared.
type UserEvent struct {
	ID            int64
	ProjectID     int64
	Change        int64
	User          string
	Sequence      int64
	UpdatedAt     time.Time
	SyncTime      *time.Time
	Vote          *UserVote
	Starred       *bool
	Investigating *bool
	Comment       *string
}
