package models

import "time"

// ActivityRecord is a single feed event. Records are never mutated after
// creation except for the Active flag.
type ActivityRecord struct {
	ID      int       `json:"id"`
	Author  int       `json:"author"`
	Type    string    `json:"type"`
	Active  bool      `json:"active"`
	Data    Payload   `json:"data"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewActivity is the input of the activity write path.
type NewActivity struct {
	Author int
	Type   string
	Data   Payload
}
