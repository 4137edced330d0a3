package inquiries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"inquiry-sync-workers/internal/common/normalizer"
	"inquiry-sync-workers/internal/models"
)

// RedisStore keeps each inquiry as one JSON document.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Key returns the document key of an inquiry.
func Key(ref models.InquiryRef) string {
	return fmt.Sprintf("inquiry:%s:%s", ref.ServiceArea, ref.InquiryID)
}

func (s *RedisStore) Get(ctx context.Context, ref models.InquiryRef) (*models.Inquiry, error) {
	raw, err := s.client.Get(ctx, Key(ref)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inquiry %s: %w", ref, err)
	}

	var inq models.Inquiry
	if err := json.Unmarshal(raw, &inq); err != nil {
		return nil, fmt.Errorf("failed to decode inquiry %s: %w", ref, err)
	}
	if inq.SyncStatus == "" {
		inq.SyncStatus = models.SyncStatusNone
	}
	return &inq, nil
}

// UpdateSync is a plain read-modify-write of the document.
func (s *RedisStore) UpdateSync(ctx context.Context, ref models.InquiryRef, update models.SyncUpdate) error {
	inq, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	inq.SyncStatus = update.Status
	inq.LastSyncError = update.LastSyncError
	inq.LastSyncedAt = &now
	if update.LeadID != nil {
		inq.LeadID = update.LeadID
		inq.LeadURL = update.LeadURL
	}

	return s.write(ctx, inq)
}

func (s *RedisStore) Save(ctx context.Context, inq *models.Inquiry) error {
	doc := *inq
	doc.FormData = normalizer.SerializeMap(inq.FormData)
	if doc.SyncStatus == "" {
		doc.SyncStatus = models.SyncStatusNone
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	return s.write(ctx, &doc)
}

func (s *RedisStore) write(ctx context.Context, inq *models.Inquiry) error {
	data, err := json.Marshal(inq)
	if err != nil {
		return fmt.Errorf("failed to encode inquiry %s: %w", inq.InquiryRef, err)
	}
	if err := s.client.Set(ctx, Key(inq.InquiryRef), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write inquiry %s: %w", inq.InquiryRef, err)
	}
	return nil
}
