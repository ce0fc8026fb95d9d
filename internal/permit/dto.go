package permit

import (
	"net/url"
	"time"
)

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

const dateLayout = "2006-01-02"

// CreatePermitDTO is the request payload for creating a permit. The owner is
// always the authenticated caller; any client-supplied created_by is ignored
// because the field simply does not exist here.
type CreatePermitDTO struct {
	PermitNumber string     `json:"permit_number"`
	PONumber     string     `json:"po_number"`
	EmployeeName string     `json:"employee_name"`
	PermitType   string     `json:"permit_type"`
	PermitStatus string     `json:"permit_status,omitempty"`
	Location     string     `json:"location"`
	Remarks      string     `json:"remarks,omitempty"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	ExpiryDate   time.Time  `json:"expiry_date"`
}

func (dto CreatePermitDTO) Validate() error {
	if dto.PermitNumber == "" {
		return ValidationError{Msg: "permit_number is required"}
	}
	if dto.EmployeeName == "" {
		return ValidationError{Msg: "employee_name is required"}
	}
	if dto.ExpiryDate.IsZero() {
		return ValidationError{Msg: "expiry_date is required"}
	}
	if dto.PermitStatus != "" && !ValidStatus(dto.PermitStatus) {
		return ValidationError{Msg: "permit_status must be one of PENDING, APPROVED, REJECTED, CLOSED"}
	}
	return nil
}

// ToPermit builds a Permit owned by createdBy, filling server-side defaults:
// status PENDING, empty remarks, issue date now.
func (dto CreatePermitDTO) ToPermit(createdBy int64) *Permit {
	now := time.Now()

	status := dto.PermitStatus
	if status == "" {
		status = StatusPending
	}

	issueDate := now
	if dto.IssueDate != nil && !dto.IssueDate.IsZero() {
		issueDate = *dto.IssueDate
	}

	return &Permit{
		PermitNumber: dto.PermitNumber,
		PONumber:     dto.PONumber,
		EmployeeName: dto.EmployeeName,
		PermitType:   dto.PermitType,
		PermitStatus: status,
		Location:     dto.Location,
		Remarks:      dto.Remarks,
		IssueDate:    issueDate,
		ExpiryDate:   dto.ExpiryDate,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UpdatePermitDTO carries a partial update. ID and CreatedBy are decoded only
// so a mutation attempt can be rejected explicitly instead of silently dropped.
type UpdatePermitDTO struct {
	ID           *int64     `json:"id,omitempty"`
	CreatedBy    *int64     `json:"created_by,omitempty"`
	PermitNumber *string    `json:"permit_number,omitempty"`
	PONumber     *string    `json:"po_number,omitempty"`
	EmployeeName *string    `json:"employee_name,omitempty"`
	PermitType   *string    `json:"permit_type,omitempty"`
	PermitStatus *string    `json:"permit_status,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Remarks      *string    `json:"remarks,omitempty"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
}

func (dto UpdatePermitDTO) Validate() error {
	if dto.ID != nil || dto.CreatedBy != nil {
		return ErrImmutableField
	}
	if dto.PermitNumber != nil && *dto.PermitNumber == "" {
		return ValidationError{Msg: "permit_number cannot be empty"}
	}
	if dto.EmployeeName != nil && *dto.EmployeeName == "" {
		return ValidationError{Msg: "employee_name cannot be empty"}
	}
	if dto.PermitStatus != nil && !ValidStatus(*dto.PermitStatus) {
		return ValidationError{Msg: "permit_status must be one of PENDING, APPROVED, REJECTED, CLOSED"}
	}
	return nil
}

// Apply copies the provided fields onto the permit.
func (dto UpdatePermitDTO) Apply(p *Permit) {
	if dto.PermitNumber != nil {
		p.PermitNumber = *dto.PermitNumber
	}
	if dto.PONumber != nil {
		p.PONumber = *dto.PONumber
	}
	if dto.EmployeeName != nil {
		p.EmployeeName = *dto.EmployeeName
	}
	if dto.PermitType != nil {
		p.PermitType = *dto.PermitType
	}
	if dto.PermitStatus != nil {
		p.PermitStatus = *dto.PermitStatus
	}
	if dto.Location != nil {
		p.Location = *dto.Location
	}
	if dto.Remarks != nil {
		p.Remarks = *dto.Remarks
	}
	if dto.IssueDate != nil {
		p.IssueDate = *dto.IssueDate
	}
	if dto.ExpiryDate != nil {
		p.ExpiryDate = *dto.ExpiryDate
	}
	p.UpdatedAt = time.Now()
}

// SearchQuery holds the independently optional search criteria. Text fields
// match case-insensitively as substrings; the issue-date range is inclusive.
// All provided criteria are ANDed, then ANDed with the caller's scope.
type SearchQuery struct {
	PONumber      string
	PermitNumber  string
	EmployeeName  string
	PermitType    string
	PermitStatus  string
	IssueDateFrom *time.Time
	IssueDateTo   *time.Time
}

// ParseSearchQuery reads criteria from URL query parameters. Dates use the
// YYYY-MM-DD form; a malformed date is a validation error rather than a
// silently dropped filter.
func ParseSearchQuery(values url.Values) (SearchQuery, error) {
	q := SearchQuery{
		PONumber:     values.Get("po_number"),
		PermitNumber: values.Get("permit_number"),
		EmployeeName: values.Get("employee_name"),
		PermitType:   values.Get("permit_type"),
		PermitStatus: values.Get("permit_status"),
	}

	if from := values.Get("issue_date_from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return SearchQuery{}, ValidationError{Msg: "issue_date_from must be formatted as YYYY-MM-DD"}
		}
		q.IssueDateFrom = &t
	}

	if to := values.Get("issue_date_to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return SearchQuery{}, ValidationError{Msg: "issue_date_to must be formatted as YYYY-MM-DD"}
		}
		// inclusive upper bound: extend to the end of the day
		end := t.Add(24*time.Hour - time.Nanosecond)
		q.IssueDateTo = &end
	}

	return q, nil
}
