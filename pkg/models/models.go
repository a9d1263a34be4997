package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord represents a single logged health/fitness session
type SessionRecord struct {
	UID   string
	Name  string
	Start time.Time
	End   time.Time
}

// Duration returns the length of the session
func (r SessionRecord) Duration() time.Duration {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// OutcomeKind tags the result of the last controller command
type OutcomeKind int

const (
	OutcomeIdle OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIdle:
		return "idle"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of the last command. Failures carry a unique
// OccurrenceID so that two failures with identical errors stay distinct.
type Outcome struct {
	Kind         OutcomeKind
	Err          error
	OccurrenceID uuid.UUID
}

// Idle returns an outcome with no pending notification
func Idle() Outcome {
	return Outcome{Kind: OutcomeIdle}
}

// Success returns an outcome for a command that completed without error
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Failure returns a failed outcome with a freshly minted occurrence token
func Failure(err error) Outcome {
	return Outcome{
		Kind:         OutcomeFailure,
		Err:          err,
		OccurrenceID: uuid.New(),
	}
}

// IsFailure reports whether the outcome is a failure
func (o Outcome) IsFailure() bool {
	return o.Kind == OutcomeFailure
}

// ListState is the controller-owned view of the session list
type ListState struct {
	Records []SessionRecord // insertion order
	Outcome Outcome
	Busy    bool   // a command is in flight
	Version uint64 // bumped on every published change
}

// Find returns the record with the given uid
func (s ListState) Find(uid string) (SessionRecord, bool) {
	for _, r := range s.Records {
		if r.UID == uid {
			return r, true
		}
	}
	return SessionRecord{}, false
}

// Contains reports whether uid is in the record list
func (s ListState) Contains(uid string) bool {
	_, ok := s.Find(uid)
	return ok
}

// Clone returns a copy that shares no slice storage with s
func (s ListState) Clone() ListState {
	c := s
	if s.Records != nil {
		c.Records = make([]SessionRecord, len(s.Records))
		copy(c.Records, s.Records)
	}
	return c
}
