package inquiries

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/models"
)

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Sync:     config.SyncConfig{Store: config.StoreRedis},
		Database: config.DatabaseConfig{Redis: config.RedisConfig{Address: mr.Addr()}},
	}

	store, closeStore, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()

	require.IsType(t, &RedisStore{}, store)

	ref := models.InquiryRef{ServiceArea: "mediation", InquiryID: "open-1"}
	require.NoError(t, store.Save(context.Background(), &models.Inquiry{
		InquiryRef: ref,
		FormType:   models.FormTypeMediationSelfReferral,
	}))
	assert.True(t, mr.Exists(Key(ref)))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{
		Sync:     config.SyncConfig{Store: config.StoreRedis},
		Database: config.DatabaseConfig{Redis: config.RedisConfig{Address: addr}},
	}

	_, _, err := Open(context.Background(), cfg)
	require.Error(t, err)
}

func TestOpen_UnknownStore(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{Sync: config.SyncConfig{Store: "mongo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown inquiry store "mongo"`)
}
