package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// Transition describes a status change that has passed validation.
type Transition struct {
	RecordID   string
	Kind       repository.RecordKind
	Axis       repository.Axis
	From       string
	To         string
	Department string
	Remarks    *string

	// The record, set according to Kind. A purchase request is the copy read
	// before the write; a withdrawal is the row read inside the transaction.
	PurchaseRequest *repository.PurchaseRequest
	Withdrawal      *repository.Withdrawal
}

// EventType is the notification event name, e.g. withdrawal_approved or
// purchase_request_finance_rejected.
func (t *Transition) EventType() string {
	if t.Kind == repository.KindWithdrawal {
		return fmt.Sprintf("withdrawal_%s", strings.ToLower(t.To))
	}
	return fmt.Sprintf("purchase_request_%s_%s", t.Axis, strings.ToLower(t.To))
}

// requestingDepartment is the department that raised the record.
func (t *Transition) requestingDepartment() string {
	switch {
	case t.Withdrawal != nil:
		return t.Withdrawal.Department
	case t.PurchaseRequest != nil:
		return t.PurchaseRequest.Department
	}
	return ""
}

// TransitionHook runs inside the status-write transaction. Returning an
// error rolls back the status write and every earlier hook's work.
type TransitionHook interface {
	BeforeCommit(ctx context.Context, tx repository.Tx, t *Transition) error
}

// TransitionHookFunc adapts a function to TransitionHook.
type TransitionHookFunc func(ctx context.Context, tx repository.Tx, t *Transition) error

func (f TransitionHookFunc) BeforeCommit(ctx context.Context, tx repository.Tx, t *Transition) error {
	return f(ctx, tx, t)
}

// TransitionObserver runs after commit. It cannot fail the transition.
type TransitionObserver interface {
	AfterCommit(ctx context.Context, t *Transition)
}

// ── Inventory ─────────────────────────────────────────────────────────────────

// InventoryDecrementHook subtracts each line item's quantity from its
// catalogue item when a withdrawal is approved.
type InventoryDecrementHook struct{}

func (InventoryDecrementHook) BeforeCommit(ctx context.Context, tx repository.Tx, t *Transition) error {
	if t.Kind != repository.KindWithdrawal || t.To != string(repository.WithdrawalApproved) || t.Withdrawal == nil {
		return nil
	}
	for _, item := range t.Withdrawal.Items {
		if err := tx.DecrementCatalogueQuantity(ctx, item.ItemID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ── Audit ─────────────────────────────────────────────────────────────────────

// AuditObserver appends every applied transition to the audit log.
type AuditObserver struct {
	store AuditStore
	log   *logger.Logger
}

// NewAuditObserver creates an AuditObserver.
func NewAuditObserver(store AuditStore, log *logger.Logger) *AuditObserver {
	return &AuditObserver{store: store, log: log}
}

// AfterCommit writes an audit entry and logs a warning on failure (never returns error).
func (o *AuditObserver) AfterCommit(ctx context.Context, t *Transition) {
	entry := &repository.StatusAuditEntry{
		RecordID:     t.RecordID,
		RecordKind:   t.Kind,
		Axis:         t.Axis,
		StatusBefore: t.From,
		StatusAfter:  t.To,
		Department:   t.Department,
		Remarks:      t.Remarks,
	}
	if t.Withdrawal != nil {
		entry.Metadata = map[string]interface{}{"line_items": len(t.Withdrawal.Items)}
	}

	if err := o.store.Append(ctx, entry); err != nil {
		o.log.Warn().Err(err).
			Str("record_id", t.RecordID).
			Str("axis", string(t.Axis)).
			Msg("Failed to write audit log entry")
	}
}

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationObserver publishes a status event for every applied transition.
type NotificationObserver struct {
	publisher StatusEventPublisher
}

// NewNotificationObserver creates a NotificationObserver.
func NewNotificationObserver(publisher StatusEventPublisher) *NotificationObserver {
	return &NotificationObserver{publisher: publisher}
}

func (o *NotificationObserver) AfterCommit(ctx context.Context, t *Transition) {
	payload := map[string]interface{}{
		"record_kind":       string(t.Kind),
		"axis":              string(t.Axis),
		"status_before":     t.From,
		"status_after":      t.To,
		"acting_department": t.Department,
	}
	if t.Remarks != nil {
		payload["remarks"] = *t.Remarks
	}
	o.publisher.PublishStatusEvent(ctx, t.EventType(), t.RecordID, t.requestingDepartment(), payload)
}
