package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to SyncStatus
		want     bool
	}{
		{SyncStatusNone, SyncStatusPending, true},
		{"", SyncStatusPending, true},
		{SyncStatusPending, SyncStatusSuccess, true},
		{SyncStatusPending, SyncStatusFailed, true},
		{SyncStatusFailed, SyncStatusPending, true},
		{SyncStatusSuccess, SyncStatusPending, true},
		{SyncStatusNone, SyncStatusSuccess, false},
		{SyncStatusSuccess, SyncStatusFailed, false},
		{SyncStatusFailed, SyncStatusSuccess, false},
		{SyncStatusPending, SyncStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestSyncStatus_IsTerminal(t *testing.T) {
	assert.True(t, SyncStatusSuccess.IsTerminal())
	assert.True(t, SyncStatusFailed.IsTerminal())
	assert.False(t, SyncStatusPending.IsTerminal())
	assert.False(t, SyncStatusNone.IsTerminal())
}

func TestInquiryRef_String(t *testing.T) {
	ref := InquiryRef{ServiceArea: "mediation", InquiryID: "abc123"}
	assert.Equal(t, "mediation/abc123", ref.String())
}
