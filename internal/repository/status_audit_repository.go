package repository

import (
	"context"
	"encoding/json"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
)

// StatusAuditRepository appends and reads immutable status audit log entries.
type StatusAuditRepository struct {
	db *database.DB
}

// NewStatusAuditRepository creates a new StatusAuditRepository.
func NewStatusAuditRepository(db *database.DB) *StatusAuditRepository {
	return &StatusAuditRepository{db: db}
}

// Append inserts one audit entry. The table has a delete-prevention trigger so
// this is the only mutation operation exposed.
func (r *StatusAuditRepository) Append(ctx context.Context, entry *StatusAuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO status_audit_log
		    (record_id, record_kind, axis,
		     status_before, status_after,
		     department, remarks, metadata)
		VALUES ($1, $2, $3,
		        $4, $5,
		        $6, $7, $8)
		RETURNING id, performed_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.RecordID,
		string(entry.RecordKind),
		string(entry.Axis),
		entry.StatusBefore,
		entry.StatusAfter,
		entry.Department,
		entry.Remarks,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByRecordID returns the full audit trail for a record ordered oldest-first.
func (r *StatusAuditRepository) ListByRecordID(ctx context.Context, recordID string) ([]*StatusAuditEntry, error) {
	query := `
		SELECT id, record_id, record_kind, axis,
		       status_before, status_after,
		       department, remarks, performed_at,
		       metadata
		FROM status_audit_log
		WHERE record_id = $1
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, recordID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	entries := make([]*StatusAuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read audit log")
	}
	return entries, nil
}

func scanAuditEntry(sc rowScanner) (*StatusAuditEntry, error) {
	entry := &StatusAuditEntry{}
	var kind, axis string
	var metadataJSON []byte

	err := sc.Scan(
		&entry.ID,
		&entry.RecordID,
		&kind,
		&axis,
		&entry.StatusBefore,
		&entry.StatusAfter,
		&entry.Department,
		&entry.Remarks,
		&entry.PerformedAt,
		&metadataJSON,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
	}
	entry.RecordKind = RecordKind(kind)
	entry.Axis = Axis(axis)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
		}
	}

	return entry, nil
}
