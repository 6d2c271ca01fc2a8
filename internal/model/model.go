// Package model holds the records stored by the application.
package model

import (
	"strconv"
	"time"
)

// Base carries the columns every table shares.
type Base struct {
	ID        int64      `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// FormatID renders a primary key the way it appears in tokens and logs.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
