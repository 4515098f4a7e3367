package report

import "time"

// Issue is a citizen-reported problem at an optional location.
type Issue struct {
	ID   int       `json:"id"`
	Type string    `json:"type"`
	Desc string    `json:"desc"`
	Lat  *float64  `json:"lat,omitempty"`
	Lng  *float64  `json:"lng,omitempty"`
	Time time.Time `json:"time"` // always UTC
}

// Store is the contract the in-memory issue store must satisfy.
type Store interface {
	Save(issue Issue) Issue
	Get(id int) (Issue, error)
	List() []Issue
	Prune(now time.Time) int
}
