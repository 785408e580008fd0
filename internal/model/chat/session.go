package chat

import "time"

// Session captures one user's conversation with the companion.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}
