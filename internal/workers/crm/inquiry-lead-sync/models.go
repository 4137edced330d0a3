package inquiryleadsync

import (
	"context"
	"time"

	"inquiry-sync-workers/internal/alerts"
	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/observability"
	"inquiry-sync-workers/internal/leads"
	"inquiry-sync-workers/internal/models"
	"inquiry-sync-workers/internal/synclog"
)

type Input struct {
	ServiceArea string `json:"serviceArea"`
	InquiryID   string `json:"inquiryId"`
}

func (i Input) Ref() models.InquiryRef {
	return models.InquiryRef{ServiceArea: i.ServiceArea, InquiryID: i.InquiryID}
}

type Output struct {
	SyncStatus    models.SyncStatus `json:"syncStatus"`
	LeadID        *int64            `json:"leadId,omitempty"`
	LeadURL       *string           `json:"leadUrl,omitempty"`
	LastSyncError *string           `json:"lastSyncError,omitempty"`
}

// SyncResult is the outcome of one sync invocation.
type SyncResult struct {
	AttemptID string
	Ref       models.InquiryRef
	FormType  models.FormType
	Status    models.SyncStatus
	LeadID    *int64
	LeadURL   *string
	Error     string
	ErrorCode string
	Warnings  []string
	Duration  time.Duration
}

// Output converts the result into job variables.
func (r SyncResult) Output() *Output {
	out := &Output{
		SyncStatus: r.Status,
		LeadID:     r.LeadID,
		LeadURL:    r.LeadURL,
	}
	if r.Error != "" {
		msg := r.Error
		out.LastSyncError = &msg
	}
	return out
}

// LeadCreator creates leads in the CRM.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead *insightly.Lead) (*insightly.CreateLeadResult, error)
}

type ServiceDependencies struct {
	CRM           *config.CRMConfig
	Mapper        *leads.Mapper
	Creator       LeadCreator
	Recorder      synclog.Recorder
	Notifier      alerts.Notifier
	Observability *observability.Observability
	Logger        logger.Logger
	Now           func() time.Time
	NewAttemptID  func() string
}
