package leads

import "time"

// Lead is a persisted capture-form submission. ID and CreatedAt are assigned
// by the store.
type Lead struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is a submission that passed validation but is not yet stored.
type Candidate struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Message *string `json:"message,omitempty"`
}

// HasMessage reports whether the optional message was supplied.
func (c Candidate) HasMessage() bool {
	return c.Message != nil
}
