package entity

import "time"

// HistoryRecord is the immutable audit trail entry written for every
// accepted transition of a requisition
type HistoryRecord struct {
	ID             int64     `json:"id"`
	RequisitionID  int64     `json:"requisition_id"`
	ActorID        string    `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	EventType      string    `json:"event_type"`
	Description    string    `json:"description"`
	Payload        string    `json:"payload,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SubjectType implements permission.Subject
func (h *HistoryRecord) SubjectType() SubjectType {
	return SubjectHistory
}
