package models

// SessionStatus is the lifecycle stage of a session.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusInProgress SessionStatus = "in_progress"
	StatusFinished   SessionStatus = "finished"
)
