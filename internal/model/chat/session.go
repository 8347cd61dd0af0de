package chat

import "time"

// Session captures a transient anonymous conversation bound to a therapy mode.
type Session struct {
	ID        string    `json:"id"`
	ModeID    string    `json:"modeId"`
	CreatedAt time.Time `json:"createdAt"`
}
