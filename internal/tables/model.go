package tables

import "time"

// Table is one physical table. SessionToken is the opaque token embedded in
// the QR code on the table; guest terminals authenticate with it.
type Table struct {
	ID           int64     `json:"id" db:"id"`
	Number       string    `json:"number" db:"number"`
	Seats        int       `json:"seats" db:"seats"`
	SessionToken string    `json:"-" db:"session_token"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
