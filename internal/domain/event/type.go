package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequisitionCreated   Type = "requisition.created"
	TypeRequisitionUpdated   Type = "requisition.updated"
	TypeStatusChanged        Type = "requisition.status_changed"
	TypeRequisitionApproved  Type = "requisition.approved"
	TypeRequisitionRejected  Type = "requisition.rejected"
	TypeRequisitionCompleted Type = "requisition.completed"
	TypeProjectCreated       Type = "project.created"
)

// All returns every event type in declaration order
func All() []Type {
	return []Type{
		TypeRequisitionCreated,
		TypeRequisitionUpdated,
		TypeStatusChanged,
		TypeRequisitionApproved,
		TypeRequisitionRejected,
		TypeRequisitionCompleted,
		TypeProjectCreated,
	}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequisitionCreated,
		TypeRequisitionUpdated,
		TypeStatusChanged,
		TypeRequisitionApproved,
		TypeRequisitionRejected,
		TypeRequisitionCompleted,
		TypeProjectCreated:
		return true
	default:
		return false
	}
}
