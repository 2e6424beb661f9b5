package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// RecordService handles creation and lookup of the records the transition
// engine decides on.
type RecordService struct {
	purchaseRequests PurchaseRequestStore
	withdrawals      WithdrawalStore
	catalogue        CatalogueStore
	audit            AuditStore
	log              *logger.Logger
}

// NewRecordService creates a new record service
func NewRecordService(
	purchaseRequests PurchaseRequestStore,
	withdrawals WithdrawalStore,
	catalogue CatalogueStore,
	audit AuditStore,
	log *logger.Logger,
) *RecordService {
	return &RecordService{
		purchaseRequests: purchaseRequests,
		withdrawals:      withdrawals,
		catalogue:        catalogue,
		audit:            audit,
		log:              log,
	}
}

// CreatePurchaseRequestRequest represents a create purchase request request
type CreatePurchaseRequestRequest struct {
	ItemDescription string          `json:"item_description" validate:"required,max=500"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Department      string          `json:"department" validate:"required"`
	RequestedBy     string          `json:"requested_by" validate:"required"`
}

// CreateWithdrawalRequest represents a create withdrawal request
type CreateWithdrawalRequest struct {
	EmployeeID string                   `json:"employee_id" validate:"required"`
	Department string                   `json:"department" validate:"required"`
	Remarks    *string                  `json:"remarks,omitempty"`
	Items      []*WithdrawalItemRequest `json:"items" validate:"min=1,dive,required"`
}

// WithdrawalItemRequest represents one requested catalogue item
type WithdrawalItemRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// ── Purchase requests ─────────────────────────────────────────────────────────

// CreatePurchaseRequest creates a purchase request pending on both axes.
func (s *RecordService) CreatePurchaseRequest(ctx context.Context, req *CreatePurchaseRequestRequest) (*repository.PurchaseRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, errors.InvalidInput("unit_price", "unit price cannot be negative")
	}

	pr := &repository.PurchaseRequest{
		ItemDescription:   req.ItemDescription,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		Department:        req.Department,
		RequestedBy:       req.RequestedBy,
		ProcurementStatus: repository.ApprovalPending,
		FinanceStatus:     repository.ApprovalPending,
	}

	if err := s.purchaseRequests.Create(ctx, pr); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("purchase_request_id", pr.ID).
		Str("department", pr.Department).
		Str("requested_by", pr.RequestedBy).
		Str("total_price", pr.TotalPrice().StringFixed(currencyPlaces)).
		Msg("Purchase request created")

	return pr, nil
}

// GetPurchaseRequest retrieves a purchase request by ID
func (s *RecordService) GetPurchaseRequest(ctx context.Context, id string) (*repository.PurchaseRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("purchase_request", id)
	}
	return s.purchaseRequests.GetByID(ctx, id)
}

// ListPurchaseRequests lists purchase requests with filtering and pagination
func (s *RecordService) ListPurchaseRequests(ctx context.Context, filter repository.PurchaseRequestFilter, page, pageSize int) ([]*repository.PurchaseRequest, Page, error) {
	p := paginate(page, pageSize)
	items, total, err := s.purchaseRequests.List(ctx, filter, p.PageSize, p.offset())
	if err != nil {
		return nil, p, err
	}
	p.Total = total
	return items, p, nil
}

// ── Withdrawals ───────────────────────────────────────────────────────────────

// CreateWithdrawal creates a pending withdrawal with its line items.
func (s *RecordService) CreateWithdrawal(ctx context.Context, req *CreateWithdrawalRequest) (*repository.Withdrawal, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	w := &repository.Withdrawal{
		EmployeeID: req.EmployeeID,
		Department: req.Department,
		Status:     repository.WithdrawalPending,
		Remarks:    req.Remarks,
		Items:      make([]*repository.WithdrawalItem, 0, len(req.Items)),
	}

	seen := make(map[string]bool, len(req.Items))
	for _, itemReq := range req.Items {
		if seen[itemReq.ItemID] {
			return nil, errors.InvalidInput("items", "catalogue item listed more than once: "+itemReq.ItemID)
		}
		seen[itemReq.ItemID] = true

		if _, err := s.catalogue.GetByID(ctx, itemReq.ItemID); err != nil {
			return nil, err
		}

		w.Items = append(w.Items, &repository.WithdrawalItem{
			ItemID:   itemReq.ItemID,
			Quantity: itemReq.Quantity,
		})
	}

	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("withdrawal_id", w.ID).
		Str("employee_id", w.EmployeeID).
		Str("department", w.Department).
		Int("line_items", len(w.Items)).
		Msg("Withdrawal created")

	return w, nil
}

// GetWithdrawal retrieves a withdrawal with its line items
func (s *RecordService) GetWithdrawal(ctx context.Context, id string) (*repository.Withdrawal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("withdrawal", id)
	}
	return s.withdrawals.GetByID(ctx, id)
}

// ListWithdrawals lists withdrawal headers with filtering and pagination
func (s *RecordService) ListWithdrawals(ctx context.Context, filter repository.WithdrawalFilter, page, pageSize int) ([]*repository.Withdrawal, Page, error) {
	p := paginate(page, pageSize)
	items, total, err := s.withdrawals.List(ctx, filter, p.PageSize, p.offset())
	if err != nil {
		return nil, p, err
	}
	p.Total = total
	return items, p, nil
}

// ── Catalogue and history ─────────────────────────────────────────────────────

// GetCatalogueItem retrieves a catalogue item with its on-hand quantity
func (s *RecordService) GetCatalogueItem(ctx context.Context, id string) (*repository.CatalogueItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("catalogue_item", id)
	}
	return s.catalogue.GetByID(ctx, id)
}

// GetStatusHistory returns the audit trail for a record, oldest first.
func (s *RecordService) GetStatusHistory(ctx context.Context, recordID string) ([]*repository.StatusAuditEntry, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		return nil, errors.InvalidInput("record_id", "record id must be a UUID")
	}
	return s.audit.ListByRecordID(ctx, recordID)
}

// Page is the window a list call actually served.
type Page struct {
	Total    int64
	Page     int
	PageSize int
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PageSize
}

// paginate clamps the requested page and page size.
func paginate(page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return Page{Page: page, PageSize: pageSize}
}
