package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
)

const withdrawalColumns = `
	id, employee_id, department, status, remarks, created_at, updated_at
`

// WithdrawalRepository manages withdrawals and their line items.
// Header + item creation is always done together in a single transaction.
type WithdrawalRepository struct {
	db *database.DB
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a withdrawal and its line items in one transaction.
func (r *WithdrawalRepository) Create(ctx context.Context, w *Withdrawal) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		headerQuery := `
			INSERT INTO withdrawals (employee_id, department, status, remarks)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, headerQuery,
			w.EmployeeID,
			w.Department,
			string(w.Status),
			w.Remarks,
		).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create withdrawal")
		}

		itemQuery := `
			INSERT INTO withdrawal_items (withdrawal_id, item_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`

		for _, item := range w.Items {
			item.WithdrawalID = w.ID

			err := tx.QueryRow(ctx, itemQuery,
				item.WithdrawalID,
				item.ItemID,
				item.Quantity,
			).Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create withdrawal item")
			}
		}

		return nil
	})
}

// GetByID retrieves a withdrawal with its line items.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*Withdrawal, error) {
	query := `SELECT` + withdrawalColumns + `FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("withdrawal", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get withdrawal")
	}

	rows, err := r.db.Query(ctx, withdrawalItemsQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get withdrawal items")
	}
	if w.Items, err = scanWithdrawalItems(rows); err != nil {
		return nil, err
	}

	return w, nil
}

// List returns withdrawal headers (without items), newest first.
func (r *WithdrawalRepository) List(ctx context.Context, filter WithdrawalFilter, limit, offset int) ([]*Withdrawal, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.Department != nil {
		where += fmt.Sprintf(" AND department = $%d", argCount)
		args = append(args, *filter.Department)
		argCount++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(*filter.Status))
		argCount++
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count withdrawals")
	}

	query := `SELECT` + withdrawalColumns + `FROM withdrawals` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)

	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list withdrawals")
	}
	defer rows.Close()

	withdrawals := make([]*Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan withdrawal")
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list withdrawals")
	}

	return withdrawals, total, nil
}

// UpdateStatus sets the withdrawal status and remarks and runs within in the
// same transaction, passing it the row and line items as read inside that
// transaction. Any error from within rolls the whole write back.
// There is no version check: concurrent writers overwrite each other.
func (r *WithdrawalRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status WithdrawalStatus,
	remarks *string,
	within func(tx Tx, w *Withdrawal) error,
) (*Withdrawal, error) {
	query := `
		UPDATE withdrawals
		SET status     = $2,
		    remarks    = COALESCE($3, remarks),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING` + withdrawalColumns

	var updated *Withdrawal
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		w, err := scanWithdrawal(tx.QueryRow(ctx, query, id, string(status), remarks))
		if err == pgx.ErrNoRows {
			return errors.NotFound("withdrawal", id)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update withdrawal status")
		}

		rows, err := tx.Query(ctx, withdrawalItemsQuery, id)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to get withdrawal items")
		}
		if w.Items, err = scanWithdrawalItems(rows); err != nil {
			return err
		}

		if within != nil {
			if err := within(&pgTx{tx: tx}, w); err != nil {
				return err
			}
		}

		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

const withdrawalItemsQuery = `
	SELECT id, withdrawal_id, item_id, quantity, created_at
	FROM withdrawal_items
	WHERE withdrawal_id = $1
	ORDER BY created_at, id
`

func scanWithdrawal(row rowScanner) (*Withdrawal, error) {
	w := &Withdrawal{}
	var status string
	err := row.Scan(
		&w.ID,
		&w.EmployeeID,
		&w.Department,
		&status,
		&w.Remarks,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Status = WithdrawalStatus(status)
	return w, nil
}

// scanWithdrawalItems drains and closes rows.
func scanWithdrawalItems(rows pgx.Rows) ([]*WithdrawalItem, error) {
	defer rows.Close()

	items := make([]*WithdrawalItem, 0)
	for rows.Next() {
		item := &WithdrawalItem{}
		if err := rows.Scan(
			&item.ID,
			&item.WithdrawalID,
			&item.ItemID,
			&item.Quantity,
			&item.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan withdrawal item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read withdrawal items")
	}
	return items, nil
}
