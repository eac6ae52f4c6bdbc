package event

// Type identifies the type of domain event
type Type string

const (
	TypeReportCreated Type = "report.created"
	TypeReportUpdated Type = "report.updated"
	TypeStateChanged  Type = "report.state_changed"
	TypeReportBooked  Type = "report.booked"
	TypeReportDeleted Type = "report.deleted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReportCreated,
		TypeReportUpdated,
		TypeStateChanged,
		TypeReportBooked,
		TypeReportDeleted:
		return true
	default:
		return false
	}
}
