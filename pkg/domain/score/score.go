// Package score models per-user contribution counters.
package score

import "time"

// Kind is a contribution type. Values are wire-visible in score queue
// payloads.
type Kind string

const (
	Location Kind = "location"
	NewCell  Kind = "new_cell"
	NewWifi  Kind = "new_wifi"
)

// HashKey uniquely identifies a (user, kind, time-bucket) counter. Time is
// nil for the kinds emitted by the upload pipeline.
type HashKey struct {
	UserID string     `json:"userid"`
	Key    Kind       `json:"key"`
	Time   *time.Time `json:"time"`
}

// Delta is one accumulated increment; values are only ever added downstream.
type Delta struct {
	HashKey HashKey `json:"hashkey"`
	Value   int     `json:"value"`
}

// NewDelta builds an untimed delta for the given user and kind.
func NewDelta(userID string, kind Kind, value int) Delta {
	return Delta{
		HashKey: HashKey{UserID: userID, Key: kind},
		Value:   value,
	}
}
