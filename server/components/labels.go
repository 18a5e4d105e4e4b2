// Package components holds the html fragments pushed to the sync page over
// its websocket. Fragments use htmx out of band swaps so the page only has to
// append whatever arrives.
package components

import "github.com/Pjt727/homeroom/calsync"

// id of the element on the page which holds the state of one subject
func SubjectElementID(subjectID string) string {
	return "sync-" + subjectID
}

func stateLabel(s calsync.SyncState) string {
	switch s {
	case calsync.StateIdle:
		return "Waiting"
	case calsync.StateEnsuringCalendar:
		return "Finding calendar"
	case calsync.StateClearingEvents:
		return "Clearing old events"
	case calsync.StatePushingEvents:
		return "Adding events"
	case calsync.StateDone:
		return "Synced"
	case calsync.StateFailed:
		return "Failed"
	}
	return "Unknown"
}
