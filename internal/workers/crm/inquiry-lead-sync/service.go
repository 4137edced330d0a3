package inquiryleadsync

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"inquiry-sync-workers/internal/alerts"
	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/metrics"
	"inquiry-sync-workers/internal/common/normalizer"
	"inquiry-sync-workers/internal/common/observability"
	"inquiry-sync-workers/internal/inquiries"
	"inquiry-sync-workers/internal/leads"
	"inquiry-sync-workers/internal/models"
	"inquiry-sync-workers/internal/synclog"
)

// Status writes after the CRM call use a context detached from the job
// deadline so a timed out attempt still records its outcome.
const statusWriteTimeout = 10 * time.Second

// Syncer runs one sync of a stored inquiry.
type Syncer interface {
	Sync(ctx context.Context, store inquiries.Store, inquiry *models.Inquiry) SyncResult
}

// Service pushes one inquiry to the CRM and records the outcome on the
// inquiry. It never returns an error: every failure ends in the failed status.
type Service struct {
	crm          *config.CRMConfig
	mapper       *leads.Mapper
	creator      LeadCreator
	recorder     synclog.Recorder
	notifier     alerts.Notifier
	obs          *observability.Observability
	logger       logger.Logger
	now          func() time.Time
	newAttemptID func() string
}

func NewService(deps ServiceDependencies) *Service {
	s := &Service{
		crm:          deps.CRM,
		mapper:       deps.Mapper,
		creator:      deps.Creator,
		recorder:     deps.Recorder,
		notifier:     deps.Notifier,
		obs:          deps.Observability,
		logger:       deps.Logger,
		now:          deps.Now,
		newAttemptID: deps.NewAttemptID,
	}
	if s.crm == nil {
		s.crm = &config.CRMConfig{}
	}
	if s.mapper == nil {
		s.mapper = leads.NewMapper(s.crm)
	}
	if s.recorder == nil {
		s.recorder = synclog.NopRecorder{}
	}
	if s.notifier == nil {
		s.notifier = alerts.NopNotifier{}
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newAttemptID == nil {
		s.newAttemptID = uuid.NewString
	}
	s.logger = s.logger.WithFields(map[string]interface{}{"component": "inquiry-sync"})
	return s
}

// stepResult is the outcome of the steps between the pending and the
// terminal status write.
type stepResult struct {
	leadID   int64
	warnings []string
	step     string
	err      error
}

// Sync marks the inquiry pending, maps and validates its form data, creates
// the lead and writes the terminal status.
func (s *Service) Sync(ctx context.Context, store inquiries.Store, inquiry *models.Inquiry) SyncResult {
	start := s.now()
	attemptID := s.newAttemptID()
	if inquiry == nil || store == nil {
		msg := "sync needs both an inquiry and a store"
		s.logger.Error("Inquiry sync rejected", map[string]interface{}{
			"attemptId":  attemptID,
			"hasInquiry": inquiry != nil,
			"hasStore":   store != nil,
		})
		result := SyncResult{
			AttemptID: attemptID,
			Status:    models.SyncStatusFailed,
			Error:     msg,
			ErrorCode: string(errors.ErrCodeInternal),
			Duration:  s.now().Sub(start),
		}
		if inquiry != nil {
			result.Ref = inquiry.InquiryRef
			result.FormType = inquiry.FormType
		}
		return result
	}
	ref := inquiry.InquiryRef

	log := s.logger.WithFields(map[string]interface{}{
		"attemptId":   attemptID,
		"serviceArea": ref.ServiceArea,
		"inquiryId":   ref.InquiryID,
		"formType":    string(inquiry.FormType),
	})

	ctx, span := s.startSpan(ctx, "inquiry.sync",
		attribute.String("inquiry.ref", ref.String()),
		attribute.String("inquiry.form_type", string(inquiry.FormType)),
		attribute.String("sync.attempt_id", attemptID),
	)
	defer span.End()

	if !models.CanTransition(inquiry.SyncStatus, models.SyncStatusPending) {
		log.Warn("Inquiry is already being synced, continuing", map[string]interface{}{
			"syncStatus": string(inquiry.SyncStatus),
		})
	}

	log.Info("Starting inquiry sync", nil)
	s.write(ctx, store, ref, models.SyncUpdate{Status: models.SyncStatusPending}, log)

	res := s.run(ctx, inquiry, log)

	result := s.finish(ctx, store, inquiry, res, log)
	result.AttemptID = attemptID
	result.Duration = s.now().Sub(start)

	s.report(ctx, span, result, start, log)
	return result
}

func (s *Service) run(ctx context.Context, inquiry *models.Inquiry, log logger.Logger) (res stepResult) {
	step := "hydrate"
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered panic during sync", map[string]interface{}{
				"step":  step,
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			res = stepResult{step: step, warnings: res.warnings, err: fmt.Errorf("sync panicked during %s: %v", step, r)}
		}
	}()

	data := normalizer.HydrateMap(inquiry.FormData)

	step = "map"
	lead, err := s.mapper.Map(inquiry.FormType, data)
	if err != nil {
		return stepResult{step: step, err: err}
	}

	step = "validate"
	if err := leads.Validate(lead); err != nil {
		return stepResult{step: step, err: err}
	}
	res.warnings = leads.Warnings(lead)
	if len(res.warnings) > 0 {
		log.Warn("Lead is missing recommended fields", map[string]interface{}{
			"warnings": res.warnings,
		})
	}

	step = "create"
	created, err := s.creator.CreateLead(ctx, lead)
	if err != nil {
		return stepResult{step: step, warnings: res.warnings, err: err}
	}

	return stepResult{leadID: created.LeadID, warnings: res.warnings}
}

// finish translates the step outcome into the terminal status write.
func (s *Service) finish(ctx context.Context, store inquiries.Store, inquiry *models.Inquiry, res stepResult, log logger.Logger) SyncResult {
	result := SyncResult{
		Ref:      inquiry.InquiryRef,
		FormType: inquiry.FormType,
		Warnings: res.warnings,
	}

	var update models.SyncUpdate
	if res.err == nil {
		leadID := res.leadID
		result.Status = models.SyncStatusSuccess
		result.LeadID = &leadID
		result.LeadURL = insightly.LeadURL(s.crm.WebURL, leadID)
		update = models.SyncUpdate{
			Status:  models.SyncStatusSuccess,
			LeadID:  result.LeadID,
			LeadURL: result.LeadURL,
		}
	} else {
		msg := res.err.Error()
		result.Status = models.SyncStatusFailed
		result.Error = msg
		result.ErrorCode = string(errors.CodeOf(res.err))
		update = models.SyncUpdate{
			Status:        models.SyncStatusFailed,
			LastSyncError: &msg,
		}
		log.Error("Inquiry sync failed", map[string]interface{}{
			"step":          res.step,
			"errorCode":     result.ErrorCode,
			"errorCategory": errors.GetErrorCategory(errors.ErrorCode(result.ErrorCode)),
			"error":         msg,
		})
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	s.write(writeCtx, store, inquiry.InquiryRef, update, log)

	return result
}

func (s *Service) write(ctx context.Context, store inquiries.Store, ref models.InquiryRef, update models.SyncUpdate, log logger.Logger) {
	if err := store.UpdateSync(ctx, ref, update); err != nil {
		metrics.StoreWriteFailures.WithLabelValues(string(update.Status)).Inc()
		log.Error("Failed to write sync status", map[string]interface{}{
			"syncStatus": string(update.Status),
			"error":      err.Error(),
		})
	}
}

func (s *Service) report(ctx context.Context, span trace.Span, result SyncResult, start time.Time, log logger.Logger) {
	formType := string(result.FormType)
	metrics.InquirySyncs.WithLabelValues(formType, string(result.Status), result.ErrorCode).Inc()
	metrics.InquirySyncDuration.WithLabelValues(formType).Observe(result.Duration.Seconds())
	if s.obs != nil {
		s.obs.RecordSync(ctx, formType, string(result.Status), result.Duration)
	}

	span.SetAttributes(attribute.String("sync.status", string(result.Status)))
	if result.Status == models.SyncStatusFailed {
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetAttributes(attribute.Int64("crm.lead_id", *result.LeadID))
	}

	// History and alerts must not be cut short by the job deadline either.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	event := synclog.SyncEvent{
		AttemptID:   result.AttemptID,
		ServiceArea: result.Ref.ServiceArea,
		InquiryID:   result.Ref.InquiryID,
		FormType:    result.FormType,
		Status:      result.Status,
		LeadID:      result.LeadID,
		LeadURL:     result.LeadURL,
		Error:       result.Error,
		ErrorCode:   result.ErrorCode,
		Warnings:    result.Warnings,
		StartedAt:   start.UTC(),
		DurationMs:  result.Duration.Milliseconds(),
	}
	if err := s.recorder.Record(sideCtx, event); err != nil {
		log.Warn("Failed to record sync history", map[string]interface{}{"error": err.Error()})
	}

	if result.Status == models.SyncStatusFailed {
		err := s.notifier.NotifyFailure(sideCtx, alerts.Failure{
			Ref:       result.Ref,
			FormType:  result.FormType,
			Message:   result.Error,
			ErrorCode: result.ErrorCode,
			AttemptID: result.AttemptID,
			At:        s.now(),
		})
		if err != nil {
			log.Warn("Failed to send sync failure alert", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	log.Info("Inquiry synced to CRM", map[string]interface{}{
		"leadId":     *result.LeadID,
		"durationMs": result.Duration.Milliseconds(),
	})
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.obs != nil {
		return s.obs.StartSpan(ctx, name, attrs...)
	}
	return otel.Tracer("inquiry-sync-workers").Start(ctx, name, trace.WithAttributes(attrs...))
}
