package service

import (
	"context"

	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// PurchaseRequestStore persists purchase requests. Implemented by
// repository.PurchaseRequestRepository.
type PurchaseRequestStore interface {
	Create(ctx context.Context, pr *repository.PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*repository.PurchaseRequest, error)
	List(ctx context.Context, filter repository.PurchaseRequestFilter, limit, offset int) ([]*repository.PurchaseRequest, int64, error)
	// UpdateAxisStatus writes the axis and runs within in the same transaction.
	UpdateAxisStatus(ctx context.Context, id string, axis repository.Axis, status repository.ApprovalStatus, remarks *string, within func(tx repository.Tx) error) (*repository.PurchaseRequest, error)
}

// WithdrawalStore persists withdrawals and their items. Implemented by
// repository.WithdrawalRepository.
type WithdrawalStore interface {
	Create(ctx context.Context, w *repository.Withdrawal) error
	GetByID(ctx context.Context, id string) (*repository.Withdrawal, error)
	List(ctx context.Context, filter repository.WithdrawalFilter, limit, offset int) ([]*repository.Withdrawal, int64, error)
	// UpdateStatus writes the status and runs within in the same transaction,
	// handing it the withdrawal and items read inside that transaction.
	UpdateStatus(ctx context.Context, id string, status repository.WithdrawalStatus, remarks *string, within func(tx repository.Tx, w *repository.Withdrawal) error) (*repository.Withdrawal, error)
}

// CatalogueStore reads catalogue items.
type CatalogueStore interface {
	GetByID(ctx context.Context, id string) (*repository.CatalogueItem, error)
}

// EmployeeStore reads employees.
type EmployeeStore interface {
	GetByID(ctx context.Context, id string) (*repository.Employee, error)
}

// AuditStore appends to and reads the status audit log.
type AuditStore interface {
	Append(ctx context.Context, entry *repository.StatusAuditEntry) error
	ListByRecordID(ctx context.Context, recordID string) ([]*repository.StatusAuditEntry, error)
}

// StatusEventPublisher fans transition events out to other services.
// Implemented by client.NotificationPublisher.
type StatusEventPublisher interface {
	PublishStatusEvent(ctx context.Context, eventType, recordID, department string, payload map[string]interface{})
}
