package poll

// Status represents the state of a remote job.
type Status int8

const (
	// Pending indicates the job was accepted but has not started yet.
	Pending Status = iota

	// Running indicates the job is in progress.
	Running

	// Succeeded indicates the job completed successfully.
	Succeeded

	// Failed indicates the job completed with an error.
	Failed

	// Cancelled indicates the job was cancelled on the service side.
	Cancelled

	// TimedOut is a synthetic status returned when the poller gave up
	// waiting before a terminal status was observed.
	TimedOut
)

var statusNames = [...]string{
	Pending:   "Pending",
	Running:   "Running",
	Succeeded: "Succeeded",
	Failed:    "Failed",
	Cancelled: "Cancelled",
	TimedOut:  "TimedOut",
}

// IsTerminal reports whether no further transition leaves the status.
func (s Status) IsTerminal() bool {
	switch s {
	case Succeeded, Failed, Cancelled, TimedOut:
		return true
	default:
		return false
	}
}

// String returns the name of the status.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}
