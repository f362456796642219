package member

// Status is the membership lifecycle state stored on a member record.
type Status string

const (
	StatusActive            Status = "Active"
	StatusInactive          Status = "Inactive"
	StatusTemporaryInactive Status = "Temporary Inactive" // manual only
	StatusDormant           Status = "Dormant"
	StatusClosed            Status = "Closed" // manual only, terminal
)

// StatusUnknown is reported for a member that could not be found. It is never persisted.
const StatusUnknown Status = "Unknown"

// AutoManagedStatuses are the statuses the automatic status engine reads and writes.
var AutoManagedStatuses = []Status{StatusActive, StatusInactive, StatusDormant}

// IsAutoManaged reports whether s participates in automatic transitions.
func (s Status) IsAutoManaged() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDormant:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the persisted statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTemporaryInactive, StatusDormant, StatusClosed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
