package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
	"github.com/pesio-ai/be-erp-approvals/internal/service"
)

// store is a single in-memory backing for every repository interface the
// services need. Hooks run against it directly; rollback is not modelled.
type store struct {
	mu        sync.Mutex
	prs       map[string]*repository.PurchaseRequest
	wds       map[string]*repository.Withdrawal
	catalogue map[string]*repository.CatalogueItem
	employees map[string]*repository.Employee
	audit     []*repository.StatusAuditEntry
}

func newStore() *store {
	return &store{
		prs:       map[string]*repository.PurchaseRequest{},
		wds:       map[string]*repository.Withdrawal{},
		catalogue: map[string]*repository.CatalogueItem{},
		employees: map[string]*repository.Employee{},
	}
}

type prStore struct{ *store }
type wdStore struct{ *store }
type catalogueStore struct{ *store }
type employeeStore struct{ *store }
type auditStore struct{ *store }

func (s prStore) Create(ctx context.Context, pr *repository.PurchaseRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr.ID = uuid.NewString()
	pr.CreatedAt = time.Now().UTC()
	pr.UpdatedAt = pr.CreatedAt
	c := *pr
	s.prs[pr.ID] = &c
	return nil
}

func (s prStore) GetByID(ctx context.Context, id string) (*repository.PurchaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.prs[id]
	if !ok {
		return nil, errors.NotFound("purchase_request", id)
	}
	c := *pr
	return &c, nil
}

func (s prStore) List(ctx context.Context, filter repository.PurchaseRequestFilter, limit, offset int) ([]*repository.PurchaseRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.PurchaseRequest, 0, len(s.prs))
	for _, pr := range s.prs {
		if filter.FinanceStatus != nil && pr.FinanceStatus != *filter.FinanceStatus {
			continue
		}
		c := *pr
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (s prStore) UpdateAxisStatus(ctx context.Context, id string, axis repository.Axis, st repository.ApprovalStatus, remarks *string, within func(tx repository.Tx) error) (*repository.PurchaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.prs[id]
	if !ok {
		return nil, errors.NotFound("purchase_request", id)
	}
	if within != nil {
		if err := within(s.store); err != nil {
			return nil, err
		}
	}
	if axis == repository.AxisFinance {
		pr.FinanceStatus = st
		if remarks != nil {
			pr.FinanceRemarks = remarks
		}
	} else {
		pr.ProcurementStatus = st
		if remarks != nil {
			pr.ProcurementRemarks = remarks
		}
	}
	pr.UpdatedAt = time.Now().UTC()
	c := *pr
	return &c, nil
}

func (s wdStore) Create(ctx context.Context, w *repository.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = uuid.NewString()
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	for _, item := range w.Items {
		item.ID = uuid.NewString()
		item.WithdrawalID = w.ID
	}
	c := *w
	s.wds[w.ID] = &c
	return nil
}

func (s wdStore) GetByID(ctx context.Context, id string) (*repository.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wds[id]
	if !ok {
		return nil, errors.NotFound("withdrawal", id)
	}
	c := *w
	return &c, nil
}

func (s wdStore) List(ctx context.Context, filter repository.WithdrawalFilter, limit, offset int) ([]*repository.Withdrawal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.Withdrawal, 0, len(s.wds))
	for _, w := range s.wds {
		c := *w
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (s wdStore) UpdateStatus(ctx context.Context, id string, st repository.WithdrawalStatus, remarks *string, within func(tx repository.Tx, w *repository.Withdrawal) error) (*repository.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wds[id]
	if !ok {
		return nil, errors.NotFound("withdrawal", id)
	}
	if within != nil {
		c := *w
		if err := within(s.store, &c); err != nil {
			return nil, err
		}
	}
	w.Status = st
	if remarks != nil {
		w.Remarks = remarks
	}
	w.UpdatedAt = time.Now().UTC()
	c := *w
	return &c, nil
}

// DecrementCatalogueQuantity makes *store a repository.Tx; callers already
// hold mu.
func (s *store) DecrementCatalogueQuantity(ctx context.Context, itemID string, qty int) error {
	item, ok := s.catalogue[itemID]
	if !ok {
		return errors.NotFound("catalogue_item", itemID)
	}
	item.Quantity -= qty
	return nil
}

func (s catalogueStore) GetByID(ctx context.Context, id string) (*repository.CatalogueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.catalogue[id]
	if !ok {
		return nil, errors.NotFound("catalogue_item", id)
	}
	c := *item
	return &c, nil
}

func (s employeeStore) GetByID(ctx context.Context, id string) (*repository.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, errors.NotFound("employee", id)
	}
	c := *emp
	return &c, nil
}

func (s auditStore) Append(ctx context.Context, entry *repository.StatusAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.PerformedAt = time.Now().UTC()
	c := *entry
	s.audit = append(s.audit, &c)
	return nil
}

func (s auditStore) ListByRecordID(ctx context.Context, recordID string) ([]*repository.StatusAuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.StatusAuditEntry, 0)
	for _, e := range s.audit {
		if e.RecordID == recordID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *store) seedPurchaseRequest() *repository.PurchaseRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr := &repository.PurchaseRequest{
		ID:                uuid.NewString(),
		ItemDescription:   "Office chairs",
		Quantity:          4,
		UnitPrice:         decimal.RequireFromString("3200"),
		Department:        "Admin",
		RequestedBy:       "emp-9",
		ProcurementStatus: repository.ApprovalPending,
		FinanceStatus:     repository.ApprovalPending,
	}
	s.prs[pr.ID] = pr
	return pr
}

func (s *store) seedWithdrawal(itemQty, lineQty int) (*repository.Withdrawal, *repository.CatalogueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := &repository.CatalogueItem{ID: uuid.NewString(), Code: "BAT-AA", Name: "AA batteries", Quantity: itemQty}
	s.catalogue[item.ID] = item
	w := &repository.Withdrawal{
		ID:         uuid.NewString(),
		EmployeeID: "emp-4",
		Department: "Security Operations",
		Status:     repository.WithdrawalPending,
		Items:      []*repository.WithdrawalItem{{ID: uuid.NewString(), ItemID: item.ID, Quantity: lineQty}},
	}
	s.wds[w.ID] = w
	return w, item
}

type services struct {
	transitions *service.StatusTransitionService
	records     *service.RecordService
	payroll     *service.PayrollService
}

func newServices(s *store) services {
	log := logger.Nop()
	return services{
		transitions: service.NewStatusTransitionService(prStore{s}, wdStore{s}, service.DefaultDepartments,
			[]service.TransitionHook{service.InventoryDecrementHook{}},
			[]service.TransitionObserver{service.NewAuditObserver(auditStore{s}, log)},
			log),
		records: service.NewRecordService(prStore{s}, wdStore{s}, catalogueStore{s}, auditStore{s}, log),
		payroll: service.NewPayrollService(employeeStore{s}, log),
	}
}
