package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// memDB is an in-memory stand-in for Postgres. Status updates snapshot the
// catalogue before running hooks and restore it when a hook fails, the same
// all-or-nothing outcome a real transaction gives.
type memDB struct {
	mu               sync.Mutex
	clock            time.Time
	purchaseRequests map[string]*repository.PurchaseRequest
	withdrawals      map[string]*repository.Withdrawal
	catalogue        map[string]*repository.CatalogueItem
	employees        map[string]*repository.Employee
	audit            []*repository.StatusAuditEntry
	auditErr         error
}

func newMemDB() *memDB {
	return &memDB{
		clock:            time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		purchaseRequests: map[string]*repository.PurchaseRequest{},
		withdrawals:      map[string]*repository.Withdrawal{},
		catalogue:        map[string]*repository.CatalogueItem{},
		employees:        map[string]*repository.Employee{},
	}
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Minute)
	return db.clock
}

func (db *memDB) addCatalogueItem(name string, qty int) *repository.CatalogueItem {
	db.mu.Lock()
	defer db.mu.Unlock()
	item := &repository.CatalogueItem{
		ID:        uuid.NewString(),
		Code:      name,
		Name:      name,
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(100),
		CreatedAt: db.tick(),
	}
	db.catalogue[item.ID] = item
	return item
}

func (db *memDB) addPurchaseRequest(procurement, finance repository.ApprovalStatus) *repository.PurchaseRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	pr := &repository.PurchaseRequest{
		ID:                uuid.NewString(),
		ItemDescription:   "Handheld radios",
		Quantity:          10,
		UnitPrice:         decimal.RequireFromString("2450.00"),
		Department:        "Security Operations",
		RequestedBy:       "emp-001",
		ProcurementStatus: procurement,
		FinanceStatus:     finance,
		CreatedAt:         db.tick(),
	}
	pr.UpdatedAt = pr.CreatedAt
	db.purchaseRequests[pr.ID] = pr
	return pr
}

func (db *memDB) addWithdrawal(status repository.WithdrawalStatus, lines map[string]int) *repository.Withdrawal {
	db.mu.Lock()
	defer db.mu.Unlock()
	w := &repository.Withdrawal{
		ID:         uuid.NewString(),
		EmployeeID: "emp-002",
		Department: "Security Operations",
		Status:     status,
		CreatedAt:  db.tick(),
	}
	w.UpdatedAt = w.CreatedAt

	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		w.Items = append(w.Items, &repository.WithdrawalItem{
			ID:           uuid.NewString(),
			WithdrawalID: w.ID,
			ItemID:       id,
			Quantity:     lines[id],
		})
	}
	db.withdrawals[w.ID] = w
	return w
}

func (db *memDB) quantity(itemID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.catalogue[itemID].Quantity
}

// runInTx runs within against the catalogue and restores the catalogue when
// it fails. Callers only store the updated record on success.
func (db *memDB) runInTx(within func(tx repository.Tx) error) error {
	snapshot := make(map[string]int, len(db.catalogue))
	for id, item := range db.catalogue {
		snapshot[id] = item.Quantity
	}
	if within == nil {
		return nil
	}
	if err := within(&memTx{db: db}); err != nil {
		for id, qty := range snapshot {
			db.catalogue[id].Quantity = qty
		}
		return err
	}
	return nil
}

type memTx struct {
	db *memDB
}

func (t *memTx) DecrementCatalogueQuantity(ctx context.Context, itemID string, qty int) error {
	item, ok := t.db.catalogue[itemID]
	if !ok {
		return errors.NotFound("catalogue_item", itemID)
	}
	item.Quantity -= qty
	return nil
}

func clonePR(pr *repository.PurchaseRequest) *repository.PurchaseRequest {
	c := *pr
	return &c
}

func cloneWithdrawal(w *repository.Withdrawal) *repository.Withdrawal {
	c := *w
	c.Items = make([]*repository.WithdrawalItem, len(w.Items))
	for i, item := range w.Items {
		ic := *item
		c.Items[i] = &ic
	}
	return &c
}

// ── Purchase requests ─────────────────────────────────────────────────────────

type memPurchaseRequests struct{ db *memDB }

func (s memPurchaseRequests) Create(ctx context.Context, pr *repository.PurchaseRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	pr.ID = uuid.NewString()
	pr.CreatedAt = s.db.tick()
	pr.UpdatedAt = pr.CreatedAt
	s.db.purchaseRequests[pr.ID] = clonePR(pr)
	return nil
}

func (s memPurchaseRequests) GetByID(ctx context.Context, id string) (*repository.PurchaseRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	pr, ok := s.db.purchaseRequests[id]
	if !ok {
		return nil, errors.NotFound("purchase_request", id)
	}
	return clonePR(pr), nil
}

func (s memPurchaseRequests) List(ctx context.Context, filter repository.PurchaseRequestFilter, limit, offset int) ([]*repository.PurchaseRequest, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []*repository.PurchaseRequest
	for _, pr := range s.db.purchaseRequests {
		if filter.Department != nil && pr.Department != *filter.Department {
			continue
		}
		if filter.ProcurementStatus != nil && pr.ProcurementStatus != *filter.ProcurementStatus {
			continue
		}
		if filter.FinanceStatus != nil && pr.FinanceStatus != *filter.FinanceStatus {
			continue
		}
		matched = append(matched, clonePR(pr))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (s memPurchaseRequests) UpdateAxisStatus(ctx context.Context, id string, axis repository.Axis, status repository.ApprovalStatus, remarks *string, within func(tx repository.Tx) error) (*repository.PurchaseRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.purchaseRequests[id]
	if !ok {
		return nil, errors.NotFound("purchase_request", id)
	}

	next := clonePR(current)
	switch axis {
	case repository.AxisProcurement:
		next.ProcurementStatus = status
		if remarks != nil {
			next.ProcurementRemarks = remarks
		}
	case repository.AxisFinance:
		next.FinanceStatus = status
		if remarks != nil {
			next.FinanceRemarks = remarks
		}
	}
	next.UpdatedAt = s.db.tick()

	if err := s.db.runInTx(within); err != nil {
		return nil, err
	}
	s.db.purchaseRequests[id] = next
	return clonePR(next), nil
}

// ── Withdrawals ───────────────────────────────────────────────────────────────

type memWithdrawals struct{ db *memDB }

func (s memWithdrawals) Create(ctx context.Context, w *repository.Withdrawal) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	w.ID = uuid.NewString()
	w.CreatedAt = s.db.tick()
	w.UpdatedAt = w.CreatedAt
	for _, item := range w.Items {
		item.ID = uuid.NewString()
		item.WithdrawalID = w.ID
		item.CreatedAt = w.CreatedAt
	}
	s.db.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (s memWithdrawals) GetByID(ctx context.Context, id string) (*repository.Withdrawal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	w, ok := s.db.withdrawals[id]
	if !ok {
		return nil, errors.NotFound("withdrawal", id)
	}
	return cloneWithdrawal(w), nil
}

func (s memWithdrawals) List(ctx context.Context, filter repository.WithdrawalFilter, limit, offset int) ([]*repository.Withdrawal, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []*repository.Withdrawal
	for _, w := range s.db.withdrawals {
		if filter.Department != nil && w.Department != *filter.Department {
			continue
		}
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		c := cloneWithdrawal(w)
		c.Items = nil
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (s memWithdrawals) UpdateStatus(ctx context.Context, id string, status repository.WithdrawalStatus, remarks *string, within func(tx repository.Tx, w *repository.Withdrawal) error) (*repository.Withdrawal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	current, ok := s.db.withdrawals[id]
	if !ok {
		return nil, errors.NotFound("withdrawal", id)
	}

	next := cloneWithdrawal(current)
	next.Status = status
	if remarks != nil {
		next.Remarks = remarks
	}
	next.UpdatedAt = s.db.tick()

	var run func(tx repository.Tx) error
	if within != nil {
		run = func(tx repository.Tx) error { return within(tx, cloneWithdrawal(next)) }
	}
	if err := s.db.runInTx(run); err != nil {
		return nil, err
	}
	s.db.withdrawals[id] = next
	return cloneWithdrawal(next), nil
}

// ── Catalogue, employees, audit ───────────────────────────────────────────────

type memCatalogue struct{ db *memDB }

func (s memCatalogue) GetByID(ctx context.Context, id string) (*repository.CatalogueItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	item, ok := s.db.catalogue[id]
	if !ok {
		return nil, errors.NotFound("catalogue_item", id)
	}
	c := *item
	return &c, nil
}

type memEmployees struct{ db *memDB }

func (s memEmployees) GetByID(ctx context.Context, id string) (*repository.Employee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[id]
	if !ok {
		return nil, errors.NotFound("employee", id)
	}
	c := *emp
	return &c, nil
}

type memAudit struct{ db *memDB }

func (s memAudit) Append(ctx context.Context, entry *repository.StatusAuditEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.auditErr != nil {
		return s.db.auditErr
	}
	entry.ID = uuid.NewString()
	entry.PerformedAt = s.db.tick()
	c := *entry
	s.db.audit = append(s.db.audit, &c)
	return nil
}

func (s memAudit) ListByRecordID(ctx context.Context, recordID string) ([]*repository.StatusAuditEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	entries := make([]*repository.StatusAuditEntry, 0)
	for _, e := range s.db.audit {
		if e.RecordID == recordID {
			c := *e
			entries = append(entries, &c)
		}
	}
	return entries, nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// ── Observers ─────────────────────────────────────────────────────────────────

type recordingObserver struct {
	transitions []*Transition
}

func (o *recordingObserver) AfterCommit(ctx context.Context, t *Transition) {
	o.transitions = append(o.transitions, t)
}

type recordedEvent struct {
	eventType  string
	recordID   string
	department string
	payload    map[string]interface{}
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) PublishStatusEvent(ctx context.Context, eventType, recordID, department string, payload map[string]interface{}) {
	p.events = append(p.events, recordedEvent{eventType, recordID, department, payload})
}
