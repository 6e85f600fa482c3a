package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition is a purchase requisition moving through the approval workflow.
// Status is only ever changed by the transition orchestrator.
type Requisition struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	RequesterID     string          `json:"requester_id"`
	ProjectID       *int64          `json:"project_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// History is only populated by loads that ask for it
	History []*HistoryRecord `json:"history,omitempty"`
}

// SubjectType implements permission.Subject
func (r *Requisition) SubjectType() SubjectType {
	return SubjectRequisition
}

// Clone returns a copy that shares no pointers with r
func (r *Requisition) Clone() *Requisition {
	if r == nil {
		return nil
	}
	c := *r
	c.ProjectID = cloneInt64(r.ProjectID)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	if r.History != nil {
		c.History = append([]*HistoryRecord(nil), r.History...)
	}
	return &c
}

// Project groups requisitions for reporting
type Project struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SubjectType implements permission.Subject
func (p *Project) SubjectType() SubjectType {
	return SubjectProject
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
