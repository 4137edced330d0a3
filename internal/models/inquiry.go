// internal/models/inquiry.go
package models

import (
	"fmt"
	"time"
)

// FormType selects the lead mapping applied to an inquiry.
type FormType string

const (
	FormTypeMediationSelfReferral FormType = "mediation-self-referral"
	FormTypeRestorativeReferral   FormType = "restorative-referral"
)

// SyncStatus is the CRM sync state stored on an inquiry.
type SyncStatus string

const (
	SyncStatusNone    SyncStatus = "none"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed within one sync.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusSuccess || s == SyncStatusFailed
}

// syncTransitions lists allowed moves within a single sync invocation.
// A new invocation always restarts at pending.
var syncTransitions = map[SyncStatus][]SyncStatus{
	SyncStatusNone:    {SyncStatusPending},
	SyncStatusPending: {SyncStatusSuccess, SyncStatusFailed},
	SyncStatusSuccess: {SyncStatusPending},
	SyncStatusFailed:  {SyncStatusPending},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to SyncStatus) bool {
	if from == "" {
		from = SyncStatusNone
	}
	for _, next := range syncTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InquiryRef identifies an inquiry inside its service area.
type InquiryRef struct {
	ServiceArea string `json:"serviceArea"`
	InquiryID   string `json:"inquiryId"`
}

func (r InquiryRef) String() string {
	return fmt.Sprintf("%s/%s", r.ServiceArea, r.InquiryID)
}

// Inquiry is a stored form submission together with its CRM sync state.
type Inquiry struct {
	InquiryRef
	FormType      FormType               `json:"formType"`
	FormData      map[string]interface{} `json:"formData"`
	SyncStatus    SyncStatus             `json:"syncStatus"`
	LastSyncError *string                `json:"lastSyncError"`
	LeadID        *int64                 `json:"leadId,omitempty"`
	LeadURL       *string                `json:"leadUrl"`
	LastSyncedAt  *time.Time             `json:"lastSyncedAt,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// SyncUpdate is the set of sync fields written back onto an inquiry.
// Status and LastSyncError are always written. LeadID and LeadURL are written
// together, and only when LeadID is non-nil.
type SyncUpdate struct {
	Status        SyncStatus
	LastSyncError *string
	LeadID        *int64
	LeadURL       *string
}
