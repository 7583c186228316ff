package model

import "time"

// Alarm is a named one-shot timer that survives process restarts
type Alarm struct {
	Name          string    `json:"name"`
	ScheduledTime time.Time `json:"scheduledTime"`
}
