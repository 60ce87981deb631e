package models_test

import (
	"testing"

	"github.com/otzivi/authcore/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSeverityFor_Table(t *testing.T) {
	tests := []struct {
		eventType models.EventType
		severity  models.Severity
	}{
		{models.EventMultipleFailedAttempts, models.SeverityCritical},
		{models.EventAccountLocked, models.SeverityCritical},
		{models.EventPasswordChanged, models.SeverityHigh},
		{models.EventEmailChanged, models.SeverityHigh},
		{models.EventTwoFactorDisabled, models.SeverityHigh},
		{models.EventAccountDeleted, models.SeverityHigh},
		{models.EventFailedLogin, models.SeverityMedium},
		{models.EventNewDeviceLogin, models.SeverityMedium},
		{models.EventChallengeChanged, models.SeverityMedium},
		{models.EventPasswordResetRequest, models.SeverityMedium},
		{models.EventSuspiciousActivity, models.SeverityMedium},
		{models.EventRoleChanged, models.SeverityMedium},
		{models.EventTwoFactorFailed, models.SeverityMedium},
		{models.EventSuccessfulLogin, models.SeverityLow},
		{models.EventTwoFactorEnabled, models.SeverityLow},
		{models.EventTwoFactorSucceeded, models.SeverityLow},
		{models.EventContentModerated, models.SeverityLow},
		{models.EventLogout, models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.severity, models.SeverityFor(tt.eventType))
		})
	}
}

func TestSeverityFor_UnlistedTypeDefaultsToLow(t *testing.T) {
	assert.Equal(t, models.SeverityLow, models.SeverityFor(models.EventType("made_up_type")))
}

// Same type, same severity: classification depends on nothing else.
func TestSeverityFor_IsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, models.SeverityCritical, models.SeverityFor(models.EventMultipleFailedAttempts))
		assert.Equal(t, models.SeverityMedium, models.SeverityFor(models.EventFailedLogin))
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "low", models.SeverityLow.String())
	assert.Equal(t, "medium", models.SeverityMedium.String())
	assert.Equal(t, "high", models.SeverityHigh.String())
	assert.Equal(t, "critical", models.SeverityCritical.String())
	assert.Equal(t, "unknown", models.Severity(0).String())
}
