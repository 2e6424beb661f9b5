package repository

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ── Status enums ─────────────────────────────────────────────────────────────

// ApprovalStatus is the value of one purchase-request approval axis.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

var approvalStatuses = map[string]ApprovalStatus{
	"pending":  ApprovalPending,
	"approved": ApprovalApproved,
	"rejected": ApprovalRejected,
}

// ParseApprovalStatus matches s case-insensitively against the axis enum.
func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	st, ok := approvalStatuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// IsTerminal reports whether no further approval action is allowed.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

func (s ApprovalStatus) String() string { return string(s) }

// WithdrawalStatus is the single status field of a withdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "Pending"
	WithdrawalApproved WithdrawalStatus = "Approved"
	WithdrawalRejected WithdrawalStatus = "Rejected"
	WithdrawalReturned WithdrawalStatus = "Returned"
)

var withdrawalStatuses = map[string]WithdrawalStatus{
	"pending":  WithdrawalPending,
	"approved": WithdrawalApproved,
	"rejected": WithdrawalRejected,
	"returned": WithdrawalReturned,
}

// ParseWithdrawalStatus matches s case-insensitively against the withdrawal enum.
func ParseWithdrawalStatus(s string) (WithdrawalStatus, bool) {
	st, ok := withdrawalStatuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// IsTerminal reports whether the approval path can no longer move the record.
func (s WithdrawalStatus) IsTerminal() bool {
	return s != WithdrawalPending
}

func (s WithdrawalStatus) String() string { return string(s) }

// ── Axes ─────────────────────────────────────────────────────────────────────

// RecordKind names the table a record id belongs to.
type RecordKind string

const (
	KindPurchaseRequest RecordKind = "purchase_request"
	KindWithdrawal      RecordKind = "withdrawal"
)

// Axis is one independently decided status field.
type Axis string

const (
	AxisProcurement Axis = "procurement"
	AxisFinance     Axis = "finance"
	AxisWithdrawal  Axis = "withdrawal"
)

// ParseAxis matches s case-insensitively.
func ParseAxis(s string) (Axis, bool) {
	switch Axis(strings.ToLower(strings.TrimSpace(s))) {
	case AxisProcurement:
		return AxisProcurement, true
	case AxisFinance:
		return AxisFinance, true
	case AxisWithdrawal:
		return AxisWithdrawal, true
	}
	return "", false
}

// Kind returns the record kind the axis lives on.
func (a Axis) Kind() RecordKind {
	if a == AxisWithdrawal {
		return KindWithdrawal
	}
	return KindPurchaseRequest
}

// ── Records ──────────────────────────────────────────────────────────────────

// PurchaseRequest is a departmental request to buy an item, decided
// independently by Procurement and Finance.
type PurchaseRequest struct {
	ID                 string          `json:"id"`
	ItemDescription    string          `json:"item_description"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Department         string          `json:"department"`
	RequestedBy        string          `json:"requested_by"`
	ProcurementStatus  ApprovalStatus  `json:"procurement_status"`
	ProcurementRemarks *string         `json:"procurement_remarks,omitempty"`
	FinanceStatus      ApprovalStatus  `json:"finance_status"`
	FinanceRemarks     *string         `json:"finance_remarks,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AxisStatus returns the status on axis.
func (p *PurchaseRequest) AxisStatus(axis Axis) ApprovalStatus {
	if axis == AxisFinance {
		return p.FinanceStatus
	}
	return p.ProcurementStatus
}

// FullyApproved reports whether both axes are Approved.
func (p *PurchaseRequest) FullyApproved() bool {
	return p.ProcurementStatus == ApprovalApproved && p.FinanceStatus == ApprovalApproved
}

// TotalPrice is quantity × unit price.
func (p *PurchaseRequest) TotalPrice() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Withdrawal is a request to take catalogue items out of inventory.
type Withdrawal struct {
	ID         string            `json:"id"`
	EmployeeID string            `json:"employee_id"`
	Department string            `json:"department"`
	Status     WithdrawalStatus  `json:"status"`
	Remarks    *string           `json:"remarks,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Items      []*WithdrawalItem `json:"items"`
}

// WithdrawalItem is one catalogue item/quantity line on a withdrawal.
type WithdrawalItem struct {
	ID           string    `json:"id"`
	WithdrawalID string    `json:"withdrawal_id"`
	ItemID       string    `json:"item_id"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// CatalogueItem is an inventory record with an on-hand quantity.
type CatalogueItem struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Employee holds the payroll-relevant fields of an employee.
type Employee struct {
	ID             string          `json:"id"`
	EmployeeNumber string          `json:"employee_number"`
	FullName       string          `json:"full_name"`
	Department     string          `json:"department"`
	BaseSalary     decimal.Decimal `json:"base_salary"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StatusAuditEntry is one immutable record of an applied status change.
type StatusAuditEntry struct {
	ID           string                 `json:"id"`
	RecordID     string                 `json:"record_id"`
	RecordKind   RecordKind             `json:"record_kind"`
	Axis         Axis                   `json:"axis"`
	StatusBefore string                 `json:"status_before"`
	StatusAfter  string                 `json:"status_after"`
	Department   string                 `json:"department"`
	Remarks      *string                `json:"remarks,omitempty"`
	PerformedAt  time.Time              `json:"performed_at"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ── Filters ──────────────────────────────────────────────────────────────────

// PurchaseRequestFilter narrows List results; nil fields are ignored.
type PurchaseRequestFilter struct {
	Department        *string
	ProcurementStatus *ApprovalStatus
	FinanceStatus     *ApprovalStatus
}

// WithdrawalFilter narrows List results; nil fields are ignored.
type WithdrawalFilter struct {
	Department *string
	Status     *WithdrawalStatus
}
