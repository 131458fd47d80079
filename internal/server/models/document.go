// Package models holds the in-memory shapes of the user document and the
// projections handed to callers.
package models

import (
	"maps"
	"time"
)

type AccessLog struct {
	Email string    `json:"email"`
	TS    time.Time `json:"ts"`
}

type Metrics struct {
	// MonthlyAccesses maps "YYYY-MM" (UTC) to the number of logins.
	MonthlyAccesses map[string]int
}

// Document is the single logical record persisted as one blob.
type Document struct {
	Users      []*User
	Metrics    Metrics
	AccessLogs []AccessLog
}

// NewDocument returns an empty document with all sections initialized.
func NewDocument() *Document {
	return &Document{
		Users:      []*User{},
		Metrics:    Metrics{MonthlyAccesses: map[string]int{}},
		AccessLogs: []AccessLog{},
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{
		Users:      make([]*User, 0, len(d.Users)),
		Metrics:    Metrics{MonthlyAccesses: maps.Clone(d.Metrics.MonthlyAccesses)},
		AccessLogs: append([]AccessLog{}, d.AccessLogs...),
	}
	if c.Metrics.MonthlyAccesses == nil {
		c.Metrics.MonthlyAccesses = map[string]int{}
	}
	for _, u := range d.Users {
		c.Users = append(c.Users, u.Clone())
	}
	return c
}

// MaxUserID returns the largest id among users, or 0.
func (d *Document) MaxUserID() int {
	n := 0
	for _, u := range d.Users {
		if u.ID > n {
			n = u.ID
		}
	}
	return n
}
