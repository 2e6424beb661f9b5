package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
)

const purchaseRequestColumns = `
	id, item_description, quantity, unit_price, department, requested_by,
	procurement_status, procurement_remarks,
	finance_status, finance_remarks,
	created_at, updated_at
`

// PurchaseRequestRepository handles purchase request persistence.
// Rows are never deleted; only the two status axes change after creation.
type PurchaseRequestRepository struct {
	db *database.DB
}

// NewPurchaseRequestRepository creates a new purchase request repository
func NewPurchaseRequestRepository(db *database.DB) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{db: db}
}

// Create inserts a purchase request with both axes Pending.
func (r *PurchaseRequestRepository) Create(ctx context.Context, pr *PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (item_description, quantity, unit_price, department, requested_by,
		                               procurement_status, finance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		pr.ItemDescription,
		pr.Quantity,
		pr.UnitPrice,
		pr.Department,
		pr.RequestedBy,
		pr.ProcurementStatus,
		pr.FinanceStatus,
	).Scan(&pr.ID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create purchase request")
	}
	return nil
}

// GetByID retrieves a purchase request.
func (r *PurchaseRequestRepository) GetByID(ctx context.Context, id string) (*PurchaseRequest, error) {
	query := `SELECT` + purchaseRequestColumns + `FROM purchase_requests WHERE id = $1`

	pr, err := scanPurchaseRequest(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("purchase_request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get purchase request")
	}
	return pr, nil
}

// List retrieves purchase requests with filtering and pagination
func (r *PurchaseRequestRepository) List(ctx context.Context, filter PurchaseRequestFilter, limit, offset int) ([]*PurchaseRequest, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.Department != nil {
		where += fmt.Sprintf(" AND department = $%d", argCount)
		args = append(args, *filter.Department)
		argCount++
	}
	if filter.ProcurementStatus != nil {
		where += fmt.Sprintf(" AND procurement_status = $%d", argCount)
		args = append(args, string(*filter.ProcurementStatus))
		argCount++
	}
	if filter.FinanceStatus != nil {
		where += fmt.Sprintf(" AND finance_status = $%d", argCount)
		args = append(args, string(*filter.FinanceStatus))
		argCount++
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count purchase requests")
	}

	query := `SELECT` + purchaseRequestColumns + `FROM purchase_requests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)

	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list purchase requests")
	}
	defer rows.Close()

	requests := make([]*PurchaseRequest, 0)
	for rows.Next() {
		pr, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan purchase request")
		}
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list purchase requests")
	}

	return requests, total, nil
}

// UpdateAxisStatus writes one axis' status and remarks, then runs within in
// the same transaction. An error from within rolls the status write back.
// There is no version check: concurrent writers overwrite each other.
func (r *PurchaseRequestRepository) UpdateAxisStatus(
	ctx context.Context,
	id string,
	axis Axis,
	status ApprovalStatus,
	remarks *string,
	within func(tx Tx) error,
) (*PurchaseRequest, error) {
	var query string
	switch axis {
	case AxisProcurement:
		query = `
			UPDATE purchase_requests
			SET procurement_status  = $2,
			    procurement_remarks = COALESCE($3, procurement_remarks),
			    updated_at          = NOW()
			WHERE id = $1
			RETURNING` + purchaseRequestColumns
	case AxisFinance:
		query = `
			UPDATE purchase_requests
			SET finance_status  = $2,
			    finance_remarks = COALESCE($3, finance_remarks),
			    updated_at      = NOW()
			WHERE id = $1
			RETURNING` + purchaseRequestColumns
	default:
		return nil, errors.InvalidInput("axis", fmt.Sprintf("axis %q is not a purchase request axis", axis))
	}

	var updated *PurchaseRequest
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		pr, err := scanPurchaseRequest(tx.QueryRow(ctx, query, id, string(status), remarks))
		if err == pgx.ErrNoRows {
			return errors.NotFound("purchase_request", id)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update purchase request status")
		}

		if within != nil {
			if err := within(&pgTx{tx: tx}); err != nil {
				return err
			}
		}

		updated = pr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchaseRequest(row rowScanner) (*PurchaseRequest, error) {
	pr := &PurchaseRequest{}
	var procurement, finance string
	err := row.Scan(
		&pr.ID,
		&pr.ItemDescription,
		&pr.Quantity,
		&pr.UnitPrice,
		&pr.Department,
		&pr.RequestedBy,
		&procurement,
		&pr.ProcurementRemarks,
		&finance,
		&pr.FinanceRemarks,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pr.ProcurementStatus = ApprovalStatus(procurement)
	pr.FinanceStatus = ApprovalStatus(finance)
	return pr, nil
}
