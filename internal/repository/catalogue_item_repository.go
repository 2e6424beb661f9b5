package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
)

// Tx is the handle given to work that must commit or roll back together
// with a status write.
type Tx interface {
	// DecrementCatalogueQuantity subtracts qty from an item's on-hand quantity.
	DecrementCatalogueQuantity(ctx context.Context, itemID string, qty int) error
}

// pgTx implements Tx on an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) DecrementCatalogueQuantity(ctx context.Context, itemID string, qty int) error {
	query := `
		UPDATE catalogue_items
		SET quantity   = quantity - $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := t.tx.QueryRow(ctx, query, itemID, qty).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("catalogue_item", itemID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to decrement catalogue item quantity")
	}
	return nil
}

// CatalogueItemRepository reads inventory catalogue items.
// Quantity changes only happen through Tx inside a status transition.
type CatalogueItemRepository struct {
	db *database.DB
}

// NewCatalogueItemRepository creates a new CatalogueItemRepository.
func NewCatalogueItemRepository(db *database.DB) *CatalogueItemRepository {
	return &CatalogueItemRepository{db: db}
}

// GetByID retrieves a catalogue item.
func (r *CatalogueItemRepository) GetByID(ctx context.Context, id string) (*CatalogueItem, error) {
	query := `
		SELECT id, code, name, quantity, unit_price, created_at, updated_at
		FROM catalogue_items
		WHERE id = $1
	`

	item := &CatalogueItem{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Code,
		&item.Name,
		&item.Quantity,
		&item.UnitPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("catalogue_item", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get catalogue item")
	}
	return item, nil
}
