// internal/model/event.go
package model

import "time"

// Event is a transient status line shown to the operator
type Event struct {
	Timestamp time.Time
	Message   string
	Level     string // "info" or "error"
}
