package inquiries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inquiry-sync-workers/internal/common/normalizer"
	"inquiry-sync-workers/internal/models"
)

// Schema creates the inquiries table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS inquiries (
    service_area    TEXT        NOT NULL,
    inquiry_id      TEXT        NOT NULL,
    form_type       TEXT        NOT NULL,
    form_data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
    sync_status     TEXT        NOT NULL DEFAULT 'none',
    last_sync_error TEXT,
    lead_id         BIGINT,
    lead_url        TEXT,
    last_synced_at  TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (service_area, inquiry_id)
)`

const (
	selectInquirySQL = `
        SELECT service_area, inquiry_id, form_type, form_data, sync_status,
               last_sync_error, lead_id, lead_url, last_synced_at, created_at
        FROM inquiries
        WHERE service_area = $1 AND inquiry_id = $2`

	updateSyncSQL = `
        UPDATE inquiries
        SET sync_status = $3, last_sync_error = $4, last_synced_at = NOW()
        WHERE service_area = $1 AND inquiry_id = $2`

	updateSyncWithLeadSQL = `
        UPDATE inquiries
        SET sync_status = $3, last_sync_error = $4, lead_id = $5, lead_url = $6, last_synced_at = NOW()
        WHERE service_area = $1 AND inquiry_id = $2`

	upsertInquirySQL = `
        INSERT INTO inquiries (service_area, inquiry_id, form_type, form_data, sync_status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (service_area, inquiry_id)
        DO UPDATE SET form_type = EXCLUDED.form_type, form_data = EXCLUDED.form_data`
)

// PostgresStore keeps inquiries in the inquiries table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the inquiries table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create inquiries table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ref models.InquiryRef) (*models.Inquiry, error) {
	var (
		inq           models.Inquiry
		formType      string
		syncStatus    string
		formData      []byte
		lastSyncError sql.NullString
		leadID        sql.NullInt64
		leadURL       sql.NullString
		lastSyncedAt  sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, selectInquirySQL, ref.ServiceArea, ref.InquiryID).Scan(
		&inq.ServiceArea, &inq.InquiryID, &formType, &formData, &syncStatus,
		&lastSyncError, &leadID, &leadURL, &lastSyncedAt, &inq.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inquiry %s: %w", ref, err)
	}

	inq.FormType = models.FormType(formType)
	inq.SyncStatus = models.SyncStatus(syncStatus)
	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &inq.FormData); err != nil {
			return nil, fmt.Errorf("failed to decode form data of %s: %w", ref, err)
		}
	}
	if lastSyncError.Valid {
		inq.LastSyncError = &lastSyncError.String
	}
	if leadID.Valid {
		inq.LeadID = &leadID.Int64
	}
	if leadURL.Valid {
		inq.LeadURL = &leadURL.String
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		inq.LastSyncedAt = &t
	}

	return &inq, nil
}

func (s *PostgresStore) UpdateSync(ctx context.Context, ref models.InquiryRef, update models.SyncUpdate) error {
	var (
		res sql.Result
		err error
	)
	if update.LeadID != nil {
		res, err = s.db.ExecContext(ctx, updateSyncWithLeadSQL,
			ref.ServiceArea, ref.InquiryID, string(update.Status),
			nullString(update.LastSyncError), *update.LeadID, nullString(update.LeadURL))
	} else {
		res, err = s.db.ExecContext(ctx, updateSyncSQL,
			ref.ServiceArea, ref.InquiryID, string(update.Status), nullString(update.LastSyncError))
	}
	if err != nil {
		return fmt.Errorf("failed to write sync status %s for %s: %w", update.Status, ref, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write sync status %s for %s: %w", update.Status, ref, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Save inserts an inquiry or replaces its form data. Sync fields are left
// to UpdateSync.
func (s *PostgresStore) Save(ctx context.Context, inq *models.Inquiry) error {
	formData, err := json.Marshal(normalizer.SerializeMap(inq.FormData))
	if err != nil {
		return fmt.Errorf("failed to encode form data: %w", err)
	}

	status := inq.SyncStatus
	if status == "" {
		status = models.SyncStatusNone
	}
	createdAt := inq.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, upsertInquirySQL,
		inq.ServiceArea, inq.InquiryID, string(inq.FormType), formData, string(status), createdAt,
	); err != nil {
		return fmt.Errorf("failed to save inquiry %s: %w", inq.InquiryRef, err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
