package inquiryleadsync

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inquiry-sync-workers/internal/alerts"
	"inquiry-sync-workers/internal/common/config"
	commonhttp "inquiry-sync-workers/internal/common/http"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/inquiries"
	"inquiry-sync-workers/internal/models"
	"inquiry-sync-workers/internal/synclog"
)

var testRef = models.InquiryRef{ServiceArea: "mediation", InquiryID: "inq-1"}

// ==========================
// Test doubles
// ==========================

type recordingStore struct {
	mu       sync.Mutex
	inquiry  *models.Inquiry
	updates  []models.SyncUpdate
	getErr   error
	writeErr error
}

func (s *recordingStore) Get(ctx context.Context, ref models.InquiryRef) (*models.Inquiry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.inquiry == nil || s.inquiry.InquiryRef != ref {
		return nil, inquiries.ErrNotFound
	}
	return s.inquiry, nil
}

func (s *recordingStore) UpdateSync(ctx context.Context, ref models.InquiryRef, update models.SyncUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	return s.writeErr
}

func (s *recordingStore) Save(ctx context.Context, inquiry *models.Inquiry) error {
	s.inquiry = inquiry
	return nil
}

func (s *recordingStore) statuses() []models.SyncStatus {
	out := make([]models.SyncStatus, len(s.updates))
	for i, u := range s.updates {
		out[i] = u.Status
	}
	return out
}

type stubCreator struct {
	calls  int
	leads  []*insightly.Lead
	result *insightly.CreateLeadResult
	err    error
	panic  interface{}
}

func (c *stubCreator) CreateLead(ctx context.Context, lead *insightly.Lead) (*insightly.CreateLeadResult, error) {
	c.calls++
	c.leads = append(c.leads, lead)
	if c.panic != nil {
		panic(c.panic)
	}
	return c.result, c.err
}

type recordingRecorder struct {
	events []synclog.SyncEvent
	err    error
}

func (r *recordingRecorder) Record(ctx context.Context, event synclog.SyncEvent) error {
	r.events = append(r.events, event)
	return r.err
}

type recordingNotifier struct {
	failures []alerts.Failure
}

func (n *recordingNotifier) NotifyFailure(ctx context.Context, f alerts.Failure) error {
	n.failures = append(n.failures, f)
	return nil
}

func testCRMConfig() *config.CRMConfig {
	return &config.CRMConfig{
		APIURL:         "https://api.example.com/v3.1",
		APIKey:         "k",
		DefaultCountry: "United States",
		WebURL:         "https://crm.example.com",
		Retry: config.RetryConfig{
			MaxRetries:        3,
			InitialDelayMs:    100,
			MaxDelayMs:        1000,
			BackoffMultiplier: 2,
		},
		Timeout: 5 * time.Second,
	}
}

type fixture struct {
	service  *Service
	creator  *stubCreator
	recorder *recordingRecorder
	notifier *recordingNotifier
}

func newFixture(t *testing.T, creator LeadCreator) *fixture {
	t.Helper()
	f := &fixture{
		recorder: &recordingRecorder{},
		notifier: &recordingNotifier{},
	}
	if stub, ok := creator.(*stubCreator); ok {
		f.creator = stub
	}
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service = NewService(ServiceDependencies{
		CRM:          testCRMConfig(),
		Creator:      creator,
		Recorder:     f.recorder,
		Notifier:     f.notifier,
		Logger:       logger.NewTestLogger(t),
		Now:          func() time.Time { return clock },
		NewAttemptID: func() string { return "attempt-1" },
	})
	return f
}

func selfReferral(data map[string]interface{}) *models.Inquiry {
	return &models.Inquiry{
		InquiryRef: testRef,
		FormType:   models.FormTypeMediationSelfReferral,
		FormData:   data,
	}
}

// ==========================
// Sync outcomes
// ==========================

func TestSync_Success(t *testing.T) {
	creator := &stubCreator{result: &insightly.CreateLeadResult{LeadID: 42}}
	f := newFixture(t, creator)
	store := &recordingStore{}

	result := f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	require.NotNil(t, result.LeadID)
	assert.Equal(t, int64(42), *result.LeadID)
	require.NotNil(t, result.LeadURL)
	assert.Equal(t, "https://crm.example.com/details/Lead/42", *result.LeadURL)
	assert.Empty(t, result.Error)
	assert.Equal(t, "attempt-1", result.AttemptID)
	assert.Len(t, result.Warnings, 2)

	assert.Equal(t, []models.SyncStatus{models.SyncStatusPending, models.SyncStatusSuccess}, store.statuses())
	assert.Nil(t, store.updates[0].LastSyncError)
	assert.Nil(t, store.updates[0].LeadID)
	assert.Equal(t, int64(42), *store.updates[1].LeadID)
	assert.Nil(t, store.updates[1].LastSyncError)

	require.Len(t, creator.leads, 1)
	assert.Equal(t, "Doe", creator.leads[0].LastName)

	require.Len(t, f.recorder.events, 1)
	assert.Equal(t, models.SyncStatusSuccess, f.recorder.events[0].Status)
	assert.Empty(t, f.notifier.failures)
}

func TestSync_SuccessWithoutWebURL(t *testing.T) {
	f := newFixture(t, &stubCreator{result: &insightly.CreateLeadResult{LeadID: 7}})
	f.service.crm.WebURL = ""
	store := &recordingStore{}

	result := f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Nil(t, result.LeadURL)
	assert.Nil(t, store.updates[1].LeadURL)
}

func TestSync_UnsupportedFormType(t *testing.T) {
	creator := &stubCreator{}
	f := newFixture(t, creator)
	store := &recordingStore{}

	inquiry := selfReferral(map[string]interface{}{"lastName": "Doe"})
	inquiry.FormType = "unknown-type"

	result := f.service.Sync(context.Background(), store, inquiry)

	assert.Equal(t, models.SyncStatusFailed, result.Status)
	assert.Contains(t, result.Error, "Unsupported formType")
	assert.Equal(t, "UNSUPPORTED_FORM_TYPE", result.ErrorCode)
	assert.Equal(t, 0, creator.calls)

	assert.Equal(t, []models.SyncStatus{models.SyncStatusPending, models.SyncStatusFailed}, store.statuses())
	require.NotNil(t, store.updates[1].LastSyncError)
	assert.Contains(t, *store.updates[1].LastSyncError, "Unsupported formType")
	assert.Nil(t, store.updates[1].LeadID)

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, testRef, f.notifier.failures[0].Ref)
	assert.Equal(t, "UNSUPPORTED_FORM_TYPE", f.notifier.failures[0].ErrorCode)
}

func TestSync_RemoteRejection(t *testing.T) {
	creator := &stubCreator{err: &insightly.RemoteRejectionError{StatusCode: 400, Body: "LAST_NAME is invalid"}}
	f := newFixture(t, creator)
	store := &recordingStore{}

	result := f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusFailed, result.Status)
	assert.Equal(t, "Insightly API error (status 400): LAST_NAME is invalid", result.Error)
	assert.Equal(t, "REMOTE_REJECTION", result.ErrorCode)
	assert.Equal(t, *store.updates[1].LastSyncError, result.Error)
}

func TestSync_NetworkExhaustion(t *testing.T) {
	netErr := stderrors.New("dial tcp 10.0.0.1:443: connect: connection refused")
	attempts := 0
	doer := roundTripFunc(func(*http.Request) (*http.Response, error) {
		attempts++
		return nil, netErr
	})
	var slept []time.Duration
	client := insightly.NewClient(testCRMConfig(), doer, logger.NewTestLogger(t),
		commonhttp.WithSleeper(commonhttp.SleeperFunc(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		})),
	)
	f := newFixture(t, client)
	store := &recordingStore{}

	var result SyncResult
	require.NotPanics(t, func() {
		result = f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))
	})

	assert.Equal(t, models.SyncStatusFailed, result.Status)
	assert.Equal(t, netErr.Error(), result.Error)
	assert.Equal(t, "TRANSIENT_HTTP_ERROR", result.ErrorCode)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, slept)

	require.NotNil(t, store.updates[1].LastSyncError)
	assert.Equal(t, netErr.Error(), *store.updates[1].LastSyncError)
}

func TestSync_MissingLastNameDefaultsToUnknown(t *testing.T) {
	creator := &stubCreator{result: &insightly.CreateLeadResult{LeadID: 1}}
	f := newFixture(t, creator)

	result := f.service.Sync(context.Background(), &recordingStore{}, selfReferral(map[string]interface{}{
		"firstName": "Jane",
		"email":     "jane@example.com",
	}))

	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	require.Len(t, creator.leads, 1)
	assert.Equal(t, "Unknown", creator.leads[0].LastName)
}

func TestSync_RecoversPanic(t *testing.T) {
	creator := &stubCreator{panic: "boom"}
	f := newFixture(t, creator)
	store := &recordingStore{}

	var result SyncResult
	require.NotPanics(t, func() {
		result = f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))
	})

	assert.Equal(t, models.SyncStatusFailed, result.Status)
	assert.Contains(t, result.Error, "boom")
	assert.Equal(t, "INTERNAL_ERROR", result.ErrorCode)
	assert.Equal(t, []models.SyncStatus{models.SyncStatusPending, models.SyncStatusFailed}, store.statuses())
}

func TestSync_MissingInquiryOrStore(t *testing.T) {
	creator := &stubCreator{result: &insightly.CreateLeadResult{LeadID: 42}}
	f := newFixture(t, creator)

	var noInquiry, noStore SyncResult
	require.NotPanics(t, func() {
		noInquiry = f.service.Sync(context.Background(), &recordingStore{}, nil)
		noStore = f.service.Sync(context.Background(), nil, selfReferral(map[string]interface{}{"lastName": "Doe"}))
	})

	for _, result := range []SyncResult{noInquiry, noStore} {
		assert.Equal(t, models.SyncStatusFailed, result.Status)
		assert.Equal(t, "INTERNAL_ERROR", result.ErrorCode)
		assert.Equal(t, "attempt-1", result.AttemptID)
		assert.Nil(t, result.LeadID)
	}
	assert.Equal(t, testRef, noStore.Ref)
	assert.Zero(t, creator.calls)
}

func TestSync_StoreWriteFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t, &stubCreator{result: &insightly.CreateLeadResult{LeadID: 42}})
	store := &recordingStore{writeErr: stderrors.New("connection reset")}

	result := f.service.Sync(context.Background(), store, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Len(t, store.updates, 2)
}

func TestSync_RecorderFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, &stubCreator{result: &insightly.CreateLeadResult{LeadID: 42}})
	f.recorder.err = stderrors.New("index closed")

	result := f.service.Sync(context.Background(), &recordingStore{}, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Len(t, f.recorder.events, 1)
}

func TestSync_TerminalWriteSurvivesCancelledContext(t *testing.T) {
	store := &cancellingStore{}
	f := newFixture(t, &stubCreator{err: context.DeadlineExceeded})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.service.Sync(ctx, store, selfReferral(map[string]interface{}{"lastName": "Doe"}))

	assert.Equal(t, models.SyncStatusFailed, result.Status)
	require.Len(t, store.ctxErrs, 2)
	assert.Error(t, store.ctxErrs[0])
	assert.NoError(t, store.ctxErrs[1])
}

func TestSync_AgainstRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := inquiries.NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Inquiry{
		InquiryRef: testRef,
		FormType:   models.FormTypeRestorativeReferral,
		FormData: map[string]interface{}{
			"referrerName":     "Jane Q Public",
			"referrerEmail":    "jane@example.org",
			"organizationType": "school",
			"incidentDate":     time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC),
		},
	}))

	creator := &stubCreator{result: &insightly.CreateLeadResult{LeadID: 99}}
	f := newFixture(t, creator)

	inquiry, err := store.Get(ctx, testRef)
	require.NoError(t, err)

	result := f.service.Sync(ctx, store, inquiry)
	require.Equal(t, models.SyncStatusSuccess, result.Status)

	stored, err := store.Get(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, stored.SyncStatus)
	require.NotNil(t, stored.LeadID)
	assert.Equal(t, int64(99), *stored.LeadID)
	assert.Nil(t, stored.LastSyncError)
	assert.NotNil(t, stored.LastSyncedAt)

	require.Len(t, creator.leads, 1)
	assert.Equal(t, "Jane", creator.leads[0].FirstName)
	assert.Equal(t, "Q Public", creator.leads[0].LastName)
}

func TestSyncResult_Output(t *testing.T) {
	failed := SyncResult{Status: models.SyncStatusFailed, Error: "boom"}.Output()
	assert.Equal(t, models.SyncStatusFailed, failed.SyncStatus)
	require.NotNil(t, failed.LastSyncError)
	assert.Equal(t, "boom", *failed.LastSyncError)

	id := int64(5)
	ok := SyncResult{Status: models.SyncStatusSuccess, LeadID: &id}.Output()
	assert.Nil(t, ok.LastSyncError)
	assert.Equal(t, &id, ok.LeadID)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type cancellingStore struct {
	ctxErrs []error
}

func (s *cancellingStore) Get(context.Context, models.InquiryRef) (*models.Inquiry, error) {
	return nil, inquiries.ErrNotFound
}

func (s *cancellingStore) UpdateSync(ctx context.Context, _ models.InquiryRef, _ models.SyncUpdate) error {
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return ctx.Err()
}

func (s *cancellingStore) Save(context.Context, *models.Inquiry) error { return nil }
