package model

import "time"

// Revision describes one stored version of a snapshot.
type Revision struct {
	RevID      string     `json:"rev_id"`
	ID         string     `json:"id"`
	Version    int        `json:"version"`
	Supersedes string     `json:"supersedes,omitempty"`
	SavedAt    string     `json:"saved_at"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	Cards      int        `json:"cards"`
	Bytes      int        `json:"bytes"`
}
