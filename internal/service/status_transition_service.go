package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// Departments names the department allowed to decide each axis.
type Departments struct {
	Procurement string
	Finance     string
	Inventory   string
}

// DefaultDepartments are the department names used when none are configured.
var DefaultDepartments = Departments{
	Procurement: "Procurement",
	Finance:     "Finance",
	Inventory:   "Inventory",
}

func (d Departments) forAxis(axis repository.Axis) string {
	switch axis {
	case repository.AxisProcurement:
		return d.Procurement
	case repository.AxisFinance:
		return d.Finance
	default:
		return d.Inventory
	}
}

// ChangeStatusRequest asks for one axis of one record to move to TargetStatus.
type ChangeStatusRequest struct {
	RecordID         string `json:"record_id"`
	Axis             string `json:"axis"`
	TargetStatus     string `json:"target_status"`
	ActingDepartment string `json:"acting_department"`
	Remarks          string `json:"remarks,omitempty"`
}

// UpdatedRecord is the record after a successful transition. Exactly one of
// PurchaseRequest and Withdrawal is set, matching Kind.
type UpdatedRecord struct {
	Kind            repository.RecordKind
	Axis            repository.Axis
	PurchaseRequest *repository.PurchaseRequest
	Withdrawal      *repository.Withdrawal
}

// Status returns the new status of the changed axis.
func (u *UpdatedRecord) Status() string {
	if u.Withdrawal != nil {
		return string(u.Withdrawal.Status)
	}
	return string(u.PurchaseRequest.AxisStatus(u.Axis))
}

// UpdatedAt returns the record's write timestamp.
func (u *UpdatedRecord) UpdatedAt() time.Time {
	if u.Withdrawal != nil {
		return u.Withdrawal.UpdatedAt
	}
	return u.PurchaseRequest.UpdatedAt
}

// StatusTransitionService validates and applies approval decisions on
// purchase requests and withdrawals.
type StatusTransitionService struct {
	purchaseRequests PurchaseRequestStore
	withdrawals      WithdrawalStore
	departments      Departments
	hooks            []TransitionHook
	observers        []TransitionObserver
	log              *logger.Logger
}

// NewStatusTransitionService creates a new StatusTransitionService. Hooks run
// inside the status-write transaction in order; observers run after commit.
func NewStatusTransitionService(
	purchaseRequests PurchaseRequestStore,
	withdrawals WithdrawalStore,
	departments Departments,
	hooks []TransitionHook,
	observers []TransitionObserver,
	log *logger.Logger,
) *StatusTransitionService {
	return &StatusTransitionService{
		purchaseRequests: purchaseRequests,
		withdrawals:      withdrawals,
		departments:      departments,
		hooks:            hooks,
		observers:        observers,
		log:              log,
	}
}

// ChangeStatus applies req. Checks run in this order: axis, record lookup
// (NotFound), status enum (InvalidStatus), department (Forbidden), state
// machine (InvalidTransition), remarks (ValidationError).
func (s *StatusTransitionService) ChangeStatus(ctx context.Context, req *ChangeStatusRequest) (*UpdatedRecord, error) {
	axis, ok := repository.ParseAxis(req.Axis)
	if !ok {
		return nil, errors.InvalidInput("axis",
			fmt.Sprintf("unknown axis %q, expected procurement, finance or withdrawal", req.Axis))
	}

	// Ids are UUIDs; anything else cannot resolve.
	if _, err := uuid.Parse(req.RecordID); err != nil {
		return nil, errors.NotFound(string(axis.Kind()), req.RecordID)
	}

	if axis.Kind() == repository.KindWithdrawal {
		return s.changeWithdrawalStatus(ctx, req)
	}
	return s.changePurchaseRequestStatus(ctx, axis, req)
}

// ── Purchase requests ─────────────────────────────────────────────────────────

func (s *StatusTransitionService) changePurchaseRequestStatus(
	ctx context.Context,
	axis repository.Axis,
	req *ChangeStatusRequest,
) (*UpdatedRecord, error) {
	pr, err := s.purchaseRequests.GetByID(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}

	target, ok := repository.ParseApprovalStatus(req.TargetStatus)
	if !ok {
		return nil, errors.InvalidStatus(req.TargetStatus)
	}
	if err := s.authorize(axis, req.ActingDepartment); err != nil {
		return nil, err
	}

	current := pr.AxisStatus(axis)
	if current.IsTerminal() {
		return nil, errors.InvalidTransition(
			fmt.Sprintf("%s status is already %s", axis, current))
	}
	if target == repository.ApprovalPending {
		return nil, errors.InvalidTransition(
			fmt.Sprintf("%s status is already Pending", axis))
	}

	remarks, err := remarksFor(target == repository.ApprovalRejected, req.Remarks)
	if err != nil {
		return nil, err
	}

	t := &Transition{
		RecordID:        pr.ID,
		Kind:            repository.KindPurchaseRequest,
		Axis:            axis,
		From:            string(current),
		To:              string(target),
		Department:      req.ActingDepartment,
		Remarks:         remarks,
		PurchaseRequest: pr,
	}

	updated, err := s.purchaseRequests.UpdateAxisStatus(ctx, pr.ID, axis, target, remarks, s.runHooks(ctx, t))
	if err != nil {
		s.log.Error().Err(err).
			Str("purchase_request_id", pr.ID).
			Str("axis", string(axis)).
			Str("target_status", string(target)).
			Msg("Purchase request status change failed")
		return nil, err
	}

	s.notify(ctx, t)

	s.log.Info().
		Str("purchase_request_id", pr.ID).
		Str("axis", string(axis)).
		Str("from", t.From).
		Str("to", t.To).
		Str("department", req.ActingDepartment).
		Bool("fully_approved", updated.FullyApproved()).
		Msg("Purchase request status changed")

	return &UpdatedRecord{Kind: repository.KindPurchaseRequest, Axis: axis, PurchaseRequest: updated}, nil
}

// ── Withdrawals ───────────────────────────────────────────────────────────────

func (s *StatusTransitionService) changeWithdrawalStatus(ctx context.Context, req *ChangeStatusRequest) (*UpdatedRecord, error) {
	w, err := s.withdrawals.GetByID(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}

	target, ok := repository.ParseWithdrawalStatus(req.TargetStatus)
	if !ok {
		return nil, errors.InvalidStatus(req.TargetStatus)
	}
	if err := s.authorize(repository.AxisWithdrawal, req.ActingDepartment); err != nil {
		return nil, err
	}

	if w.Status.IsTerminal() {
		return nil, errors.InvalidTransition(
			fmt.Sprintf("withdrawal status is already %s", w.Status))
	}
	switch target {
	case repository.WithdrawalPending:
		return nil, errors.InvalidTransition("withdrawal status is already Pending")
	case repository.WithdrawalReturned:
		return nil, errors.InvalidTransition("Returned is only set by return processing")
	}

	remarks, err := remarksFor(target == repository.WithdrawalRejected, req.Remarks)
	if err != nil {
		return nil, err
	}

	t := &Transition{
		RecordID:   w.ID,
		Kind:       repository.KindWithdrawal,
		Axis:       repository.AxisWithdrawal,
		From:       string(w.Status),
		To:         string(target),
		Department: req.ActingDepartment,
		Remarks:    remarks,
		Withdrawal: w,
	}

	hooks := s.runHooks(ctx, t)
	updated, err := s.withdrawals.UpdateStatus(ctx, w.ID, target, remarks, func(tx repository.Tx, current *repository.Withdrawal) error {
		// Hooks act on the lines as they stand inside the transaction.
		t.Withdrawal = current
		return hooks(tx)
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("withdrawal_id", w.ID).
			Str("target_status", string(target)).
			Msg("Withdrawal status change failed")
		return nil, err
	}

	s.notify(ctx, t)

	s.log.Info().
		Str("withdrawal_id", w.ID).
		Str("from", t.From).
		Str("to", t.To).
		Str("department", req.ActingDepartment).
		Int("line_items", len(w.Items)).
		Msg("Withdrawal status changed")

	return &UpdatedRecord{Kind: repository.KindWithdrawal, Axis: repository.AxisWithdrawal, Withdrawal: updated}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// authorize checks that department decides axis.
func (s *StatusTransitionService) authorize(axis repository.Axis, department string) error {
	want := s.departments.forAxis(axis)
	if !strings.EqualFold(strings.TrimSpace(department), want) {
		return errors.Forbidden(
			fmt.Sprintf("department %q may not decide the %s axis", department, axis))
	}
	return nil
}

// remarksFor returns the remarks to persist. Rejections need non-blank
// remarks; other targets persist none.
func remarksFor(rejecting bool, raw string) (*string, error) {
	if !rejecting {
		return nil, nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.InvalidInput("remarks", "remarks required")
	}
	return &trimmed, nil
}

func (s *StatusTransitionService) runHooks(ctx context.Context, t *Transition) func(tx repository.Tx) error {
	return func(tx repository.Tx) error {
		for _, hook := range s.hooks {
			if err := hook.BeforeCommit(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *StatusTransitionService) notify(ctx context.Context, t *Transition) {
	for _, o := range s.observers {
		o.AfterCommit(ctx, t)
	}
}
