package models

import "time"

// User represents a registered customer
type User struct {
	ID        int64
	Name      string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
