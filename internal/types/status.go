package types

// Status is the lifecycle state shared by crawl jobs and test sessions.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusRunning         Status = "RUNNING"
	StatusWaitingForInput Status = "WAITING_FOR_INPUT"
	StatusDone            Status = "DONE"
	StatusFailed          Status = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusWaitingForInput, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Live reports whether a browser session may be attached to a job in this state.
func (s Status) Live() bool {
	return s == StatusRunning || s == StatusWaitingForInput
}
