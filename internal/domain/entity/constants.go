package entity

// Status constants for Requisition
const (
	StatusDraft             = "DRAFT"
	StatusPendingPurchasing = "PENDING_PURCHASING"
	StatusPendingManagement = "PENDING_MANAGEMENT"
	StatusApproved          = "APPROVED"
	StatusRejected          = "REJECTED"
	StatusCompleted         = "COMPLETED"
)

// History event types that are not workflow triggers
const (
	HistoryEventCreate = "CREATE"
)

// SubjectType discriminates the entities permission rules are written against
type SubjectType string

const (
	SubjectAll         SubjectType = "all"
	SubjectRequisition SubjectType = "Requisition"
	SubjectProject     SubjectType = "Project"
	SubjectUser        SubjectType = "User"
	SubjectHistory     SubjectType = "HistoryRecord"
)

// String returns the string representation of the subject type
func (t SubjectType) String() string {
	return string(t)
}
