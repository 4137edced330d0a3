// Package inquiries persists inquiry records and their CRM sync state.
package inquiries

import (
	"context"
	stderrors "errors"

	"inquiry-sync-workers/internal/models"
)

// ErrNotFound is returned when no inquiry exists for a reference.
var ErrNotFound = stderrors.New("inquiry not found")

// Store is the inquiry record store. UpdateSync stamps lastSyncedAt with the
// store's own clock. Writes are not guarded against concurrent syncs of the
// same record.
type Store interface {
	Get(ctx context.Context, ref models.InquiryRef) (*models.Inquiry, error)
	UpdateSync(ctx context.Context, ref models.InquiryRef, update models.SyncUpdate) error
	Save(ctx context.Context, inquiry *models.Inquiry) error
}
