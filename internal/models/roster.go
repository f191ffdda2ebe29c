package models

import "time"

// ProductionHead is one entry on the ordered round-robin roster.
type ProductionHead struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	FullName  string    `db:"full_name" json:"fullName"`
	Position  int       `db:"position" json:"position"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
