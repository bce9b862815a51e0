package model

import "time"

// DraftState is a locally cached, not-yet-submitted record plus the wizard
// step the user had reached.
type DraftState struct {
	Key     string
	Payload Record
	Step    int
	SavedAt time.Time
}
