package permit

import (
	"errors"
	"time"
)

// Permit statuses. Expiry is not a status: a permit whose expiry date has
// passed is classified as expired in stats regardless of its stored status.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusClosed   = "CLOSED"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// Permit represents a work authorization. CreatedBy and ID are immutable
// after creation; update requests touching either are rejected.
type Permit struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	PermitNumber string    `json:"permit_number" gorm:"column:permit_number;not null"`
	PONumber     string    `json:"po_number" gorm:"column:po_number"`
	EmployeeName string    `json:"employee_name" gorm:"column:employee_name;not null"`
	PermitType   string    `json:"permit_type" gorm:"column:permit_type"`
	PermitStatus string    `json:"permit_status" gorm:"column:permit_status;default:PENDING"`
	Location     string    `json:"location" gorm:"column:location"`
	Remarks      string    `json:"remarks" gorm:"column:remarks"`
	IssueDate    time.Time `json:"issue_date" gorm:"column:issue_date"`
	ExpiryDate   time.Time `json:"expiry_date" gorm:"column:expiry_date"`
	CreatedBy    int64     `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (Permit) TableName() string {
	return "permits"
}

// Expired reports whether the permit's expiry date is in the past.
func (p *Permit) Expired(now time.Time) bool {
	return p.ExpiryDate.Before(now)
}

// Stats are derived counts over the caller's visible permits.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Expired  int64 `json:"expired"`
}

// Domain errors
var (
	ErrPermitNotFound = errors.New("permit not found")
	ErrImmutableField = errors.New("id and created_by cannot be modified")
)
