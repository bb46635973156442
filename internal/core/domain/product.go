package domain

import "time"

// Product is a catalogue item owned by the user that created it. OwnerID may
// be empty for rows created before ownership was recorded; those can only be
// mutated by an admin.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
